package template

import (
	"testing"

	"github.com/chrontext/chrontext/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataPointTemplate(t *testing.T) *Template {
	t.Helper()
	r := NewRegistry()
	tmpl, err := r.Register(
		"https://github.com/chrontext#TimeseriesDataPoint",
		[]Parameter{
			{Name: "series", Type: IRIType()},
			{Name: "value", Type: LiteralType(rdf.XSDDouble)},
		},
		[]Triple{
			{
				Subject:   ParamRef("series"),
				Predicate: ConstRef(rdf.NamedNode{IRI: "https://github.com/chrontext#hasDataPoint"}),
				Object:    BlankRef("dp"),
			},
			{
				Subject:   BlankRef("dp"),
				Predicate: ConstRef(rdf.NamedNode{IRI: "https://github.com/chrontext#hasValue"}),
				Object:    ParamRef("value"),
			},
		},
	)
	require.NoError(t, err)
	return tmpl
}

func TestRegisterRejectsUndeclaredParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("bad", nil, []Triple{
		{Subject: ParamRef("missing"), Predicate: ConstRef(rdf.NamedNode{IRI: "p"}), Object: ConstRef(rdf.NamedNode{IRI: "o"})},
	})
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestExpandSubstitutesParametersAndMintsFreshBlanks(t *testing.T) {
	tmpl := dataPointTemplate(t)
	series := rdf.Variable{Name: "ts"}
	value := rdf.Variable{Name: "v"}

	patterns1, err := Expand(tmpl, []rdf.Term{series, value})
	require.NoError(t, err)
	require.Len(t, patterns1, 2)

	patterns2, err := Expand(tmpl, []rdf.Term{series, value})
	require.NoError(t, err)

	dp1 := patterns1[0].Object
	dp2 := patterns2[0].Object
	assert.NotEqual(t, dp1, dp2, "each expansion must mint an independent blank variable")
	assert.Equal(t, patterns1[1].Subject, dp1, "the same minted blank must be reused consistently within one expansion")
}

func TestExpandRejectsArgumentCountMismatch(t *testing.T) {
	tmpl := dataPointTemplate(t)
	_, err := Expand(tmpl, []rdf.Term{rdf.Variable{Name: "only_one"}})
	require.Error(t, err)
}

func TestExpandRejectsWrongLiteralDatatype(t *testing.T) {
	tmpl := dataPointTemplate(t)
	_, err := Expand(tmpl, []rdf.Term{
		rdf.Variable{Name: "ts"},
		rdf.Literal{Lexical: "x", Datatype: rdf.XSDString},
	})
	require.Error(t, err)
}
