package split

import (
	"testing"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ColumnPredicates: map[string]string{
			"https://github.com/chrontext#hasTimestamp": "timestamp",
			"https://github.com/chrontext#hasValue":      "value",
		},
		IdentifierPredicate: "https://github.com/chrontext#hasDataPoint",
	}
}

func TestSplitGroupsVirtualPatternsIntoOneCandidate(t *testing.T) {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{
			Subject:   rdf.Variable{Name: "w"},
			Predicate: rdf.NamedNode{IRI: "https://github.com/chrontext#hasSensor"},
			Object:    rdf.Variable{Name: "s"},
		},
		{
			Subject:   rdf.Variable{Name: "s"},
			Predicate: rdf.NamedNode{IRI: "https://github.com/chrontext#hasDataPoint"},
			Object:    rdf.Variable{Name: "dp"},
		},
		{
			Subject:   rdf.Variable{Name: "dp"},
			Predicate: rdf.NamedNode{IRI: "https://github.com/chrontext#hasTimestamp"},
			Object:    rdf.Variable{Name: "t"},
		},
		{
			Subject:   rdf.Variable{Name: "dp"},
			Predicate: rdf.NamedNode{IRI: "https://github.com/chrontext#hasValue"},
			Object:    rdf.Variable{Name: "v"},
		},
	}}

	result := Split(bgp, testConfig())
	require.Len(t, result.VQs, 1)
	vq := result.VQs[0]
	assert.Equal(t, "s", vq.IdentifierVar)
	assert.Len(t, vq.Patterns, 3)
	assert.ElementsMatch(t, []algebra.ColumnMapping{
		{Column: "timestamp", Variable: "t"},
		{Column: "value", Variable: "v"},
	}, vq.ColumnMapping)

	join, ok := result.Static.(algebra.Join)
	require.True(t, ok, "expected static plan joined against VirtualJoin placeholder")
	placeholder, ok := join.Right.(algebra.VirtualJoin)
	require.True(t, ok)
	assert.Equal(t, vq.ID, placeholder.VQID)
	assert.Contains(t, placeholder.SharedVars, "s")
}

func TestSplitKeepsTypeTriplesStatic(t *testing.T) {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{
			Subject:   rdf.Variable{Name: "w"},
			Predicate: rdf.NamedNode{IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"},
			Object:    rdf.NamedNode{IRI: "https://github.com/chrontext#BigWidget"},
		},
	}}
	result := Split(bgp, testConfig())
	assert.Empty(t, result.VQs)
	asBgp, ok := result.Static.(algebra.Bgp)
	require.True(t, ok)
	assert.Len(t, asBgp.Patterns, 1)
}

func TestSplitRecursesThroughWrappingOperators(t *testing.T) {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{
			Subject:   rdf.Variable{Name: "dp"},
			Predicate: rdf.NamedNode{IRI: "https://github.com/chrontext#hasValue"},
			Object:    rdf.Variable{Name: "v"},
		},
	}}
	wrapped := algebra.Project{Input: algebra.Filter{Input: bgp, Expr: nil}, Vars: []string{"v"}}
	result := Split(wrapped, testConfig())
	require.Len(t, result.VQs, 1)

	proj, ok := result.Static.(algebra.Project)
	require.True(t, ok)
	filter, ok := proj.Input.(algebra.Filter)
	require.True(t, ok)
	_, ok = filter.Input.(algebra.VirtualJoin)
	assert.True(t, ok)
}
