package dtsugar

import (
	"strconv"
	"testing"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshVarGen() func() string {
	n := 0
	return func() string {
		n++
		return "_fresh_" + strconv.Itoa(n)
	}
}

func TestDesugarAvgWithFiveSecondBucket(t *testing.T) {
	from := rdf.Literal{Lexical: "2022-06-01T08:46:53Z", Datatype: rdf.XSDDateTime}
	b := Block{
		TimeseriesVars: []string{"ts"},
		From:           &from,
		Interval:       "5s",
		Aggregations:   []string{"avg"},
	}
	node, err := Desugar(b, nil, freshVarGen())
	require.NoError(t, err)

	group, ok := node.(algebra.Group)
	require.True(t, ok, "interval+aggregation must produce a Group")
	require.Len(t, group.Aggregations, 1)
	assert.Equal(t, "ts_value_avg", group.Aggregations[0].Var)
	assert.Equal(t, algebra.AggAvg, group.Aggregations[0].Expr.Name)

	extend, ok := group.Input.(algebra.Extend)
	require.True(t, ok, "bucket key must be bound via Extend before Group")
	call, ok := extend.Expr.(algebra.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "https://github.com/chrontext#FloorDateTimeToSecondsInterval", call.IRI)
}

func TestDesugarInfersLoneScopeVariable(t *testing.T) {
	node, err := Desugar(Block{}, []string{"only_series"}, freshVarGen())
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestDesugarAmbiguousBindingFails(t *testing.T) {
	_, err := Desugar(Block{}, []string{"a", "b"}, freshVarGen())
	require.Error(t, err)
	var ambErr *AmbiguousDTBinding
	assert.ErrorAs(t, err, &ambErr)
}

func TestDesugarMultipleSeriesExpandsToUnion(t *testing.T) {
	node, err := Desugar(Block{TimeseriesVars: []string{"a", "b"}}, nil, freshVarGen())
	require.NoError(t, err)
	_, ok := node.(algebra.Union)
	assert.True(t, ok, "multiple timeseries must expand per-series and union the branches")
}

func TestDesugarWithoutBucketingYieldsPlainFilter(t *testing.T) {
	from := rdf.Literal{Lexical: "2022-06-01T08:46:53Z", Datatype: rdf.XSDDateTime}
	node, err := Desugar(Block{TimeseriesVars: []string{"ts"}, From: &from}, nil, freshVarGen())
	require.NoError(t, err)
	_, ok := node.(algebra.Filter)
	assert.True(t, ok)
}
