package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/backend"
	"github.com/chrontext/chrontext/pushdown"
	"github.com/chrontext/chrontext/rdf"
	"github.com/chrontext/chrontext/resultmap"
	"github.com/chrontext/chrontext/split"
)

const (
	rdfType      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	sensorType   = "https://github.com/chrontext#Sensor"
	hasDataPoint = "https://github.com/chrontext#hasDataPoint"
	hasTimestamp = "https://github.com/chrontext#hasTimestamp"
	hasValue     = "https://github.com/chrontext#hasValue"
)

func splitConfig() split.Config {
	return split.Config{
		Resource: "temperature",
		ColumnPredicates: map[string]string{
			hasTimestamp: "timestamp",
			hasValue:     "value",
		},
		IdentifierPredicate: hasDataPoint,
	}
}

// sensorQuery builds: SELECT ?s ?t ?v WHERE {
//   ?s a chrontext:Sensor .
//   ?s chrontext:hasDataPoint ?dp . ?dp chrontext:hasTimestamp ?t . ?dp chrontext:hasValue ?v .
//   FILTER(?v > 10.0)
// }
func sensorQuery() algebra.Node {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: hasDataPoint}, Object: rdf.Variable{Name: "dp"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasTimestamp}, Object: rdf.Variable{Name: "t"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasValue}, Object: rdf.Variable{Name: "v"}},
	}}
	filter := algebra.Filter{
		Input: bgp,
		Expr: algebra.Compare{
			Op:    algebra.OpGreater,
			Left:  algebra.Var{Name: "v"},
			Right: algebra.Lit{Value: rdf.Literal{Lexical: "10", Datatype: rdf.XSDDouble}},
		},
	}
	return algebra.Project{Input: filter, Vars: []string{"s", "t", "v"}}
}

func outputColumnTypes() []resultmap.ColumnType {
	return []resultmap.ColumnType{
		{Variable: "s", IsIRI: true},
		{Variable: "t", XSDDatatype: rdf.XSDDateTime},
		{Variable: "v", XSDDatatype: rdf.XSDDouble},
	}
}

func TestExecutePushesFilterAndJoinsHybridResult(t *testing.T) {
	store := backend.NewMemoryStore([]backend.Triple{
		{Subject: rdf.NamedNode{IRI: "ex:sensor1"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.NamedNode{IRI: "ex:sensor2"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vb := backend.NewMemoryBackend(map[string]backend.MemorySeries{
		"ex:sensor1": {
			ID:         "ex:sensor1",
			Timestamps: []time.Time{base, base.Add(time.Minute)},
			Values:     []float64{5, 15},
		},
		"ex:sensor2": {
			ID:         "ex:sensor2",
			Timestamps: []time.Time{base},
			Values:     []float64{20},
		},
	})

	c := New(store, vb)
	res, err := c.Execute(context.Background(), QueryPlan{
		Root:        sensorQuery(),
		SplitConfig: splitConfig(),
		OutputVars:  []string{"s", "t", "v"},
		ColumnTypes: outputColumnTypes(),
	})
	require.NoError(t, err)

	// Only the 15 and 20 readings clear the FILTER(?v > 10) pushed into
	// the VQ; the 5 reading for sensor1 never reaches the join.
	require.Len(t, res.Mapping.Rows, 2)
	for _, row := range res.Mapping.Rows {
		sTerm := row[0]
		require.NotNil(t, sTerm)
		vLit, ok := row[2].(rdf.Literal)
		require.True(t, ok)
		native, err := rdf.ToNative(vLit)
		require.NoError(t, err)
		assert.Greater(t, native.(float64), 10.0)
	}

	// The filter should show up in the pushdown path for its VQ.
	require.Len(t, res.PushdownPaths, 1)
	assert.Contains(t, res.PushdownPaths[0], pushdown.TagFilterInner)
}

func TestExecuteReturnsNoRowsWhenNoSensorsMatchType(t *testing.T) {
	store := backend.NewMemoryStore(nil) // no sensors declared at all
	vb := backend.NewMemoryBackend(map[string]backend.MemorySeries{})

	c := New(store, vb)
	res, err := c.Execute(context.Background(), QueryPlan{
		Root:        sensorQuery(),
		SplitConfig: splitConfig(),
		OutputVars:  []string{"s", "t", "v"},
		ColumnTypes: outputColumnTypes(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Mapping.Rows)
}

// TestExecuteAppliesResidualFilterAcrossDisjointVQs builds: SELECT ?va ?vb
// WHERE {
//   ?sa a chrontext:Sensor . ?sa chrontext:hasDataPoint ?dpa . ?dpa chrontext:hasValue ?va .
//   ?sb a chrontext:Sensor . ?sb chrontext:hasDataPoint ?dpb . ?dpb chrontext:hasValue ?vb .
//   FILTER(?va > ?vb)
// }
// ?sa and ?sb never share a variable, so the splitter discovers two
// independent, disjoint VQ candidates rather than one. Neither VQ alone can
// satisfy FILTER(?va > ?vb) (each only ever binds one of the two
// variables), so pushdown must defer it to the coordinator's residual stage
// instead of wrapping it around a still-unresolved VirtualJoin.
func TestExecuteAppliesResidualFilterAcrossDisjointVQs(t *testing.T) {
	store := backend.NewMemoryStore([]backend.Triple{
		{Subject: rdf.NamedNode{IRI: "ex:sensorA"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.NamedNode{IRI: "ex:sensorB"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vb := backend.NewMemoryBackend(map[string]backend.MemorySeries{
		"ex:sensorA": {ID: "ex:sensorA", Timestamps: []time.Time{base}, Values: []float64{20}},
		"ex:sensorB": {ID: "ex:sensorB", Timestamps: []time.Time{base}, Values: []float64{5}},
	})

	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: rdf.Variable{Name: "sa"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.Variable{Name: "sa"}, Predicate: rdf.NamedNode{IRI: hasDataPoint}, Object: rdf.Variable{Name: "dpa"}},
		{Subject: rdf.Variable{Name: "dpa"}, Predicate: rdf.NamedNode{IRI: hasValue}, Object: rdf.Variable{Name: "va"}},
		{Subject: rdf.Variable{Name: "sb"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.Variable{Name: "sb"}, Predicate: rdf.NamedNode{IRI: hasDataPoint}, Object: rdf.Variable{Name: "dpb"}},
		{Subject: rdf.Variable{Name: "dpb"}, Predicate: rdf.NamedNode{IRI: hasValue}, Object: rdf.Variable{Name: "vb"}},
	}}
	filter := algebra.Filter{
		Input: bgp,
		Expr: algebra.Compare{
			Op:    algebra.OpGreater,
			Left:  algebra.Var{Name: "va"},
			Right: algebra.Var{Name: "vb"},
		},
	}
	root := algebra.Project{Input: filter, Vars: []string{"va", "vb"}}

	c := New(store, vb)
	planned := Plan(root, splitConfig())
	require.Len(t, planned.VQCandidates, 2, "sensorA's and sensorB's chains are disjoint, independent VQ candidates")
	require.Len(t, planned.Residual, 1, "the cross-VQ filter can't be pushed into either VQ alone")
	_, ok := planned.Residual[0].(pushdown.ResidualFilter)
	require.True(t, ok)
	for _, events := range planned.PushdownPaths {
		assert.NotContains(t, events, pushdown.TagFilterInner, "neither VQ satisfies the filter by itself")
	}

	res, err := c.ExecutePlanned(context.Background(), planned, []string{"va", "vb"}, []resultmap.ColumnType{
		{Variable: "va", XSDDatatype: rdf.XSDDouble},
		{Variable: "vb", XSDDatatype: rdf.XSDDouble},
	})
	require.NoError(t, err)

	require.Len(t, res.Mapping.Rows, 1, "the static execution never saw an unbound-variable error")
	vaLit, ok := res.Mapping.Rows[0][0].(rdf.Literal)
	require.True(t, ok)
	vaNative, err := rdf.ToNative(vaLit)
	require.NoError(t, err)
	assert.Equal(t, 20.0, vaNative)

	vbLit, ok := res.Mapping.Rows[0][1].(rdf.Literal)
	require.True(t, ok)
	vbNative, err := rdf.ToNative(vbLit)
	require.NoError(t, err)
	assert.Equal(t, 5.0, vbNative)
}

func TestExecuteGroupsAndAveragesPerSensor(t *testing.T) {
	store := backend.NewMemoryStore([]backend.Triple{
		{Subject: rdf.NamedNode{IRI: "ex:sensor1"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vb := backend.NewMemoryBackend(map[string]backend.MemorySeries{
		"ex:sensor1": {
			ID:         "ex:sensor1",
			Timestamps: []time.Time{base, base.Add(time.Second)},
			Values:     []float64{10, 20},
		},
	})

	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: hasDataPoint}, Object: rdf.Variable{Name: "dp"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasTimestamp}, Object: rdf.Variable{Name: "t"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasValue}, Object: rdf.Variable{Name: "v"}},
	}}
	group := algebra.Group{
		Input: bgp,
		By:    []string{"s"},
		Aggregations: []algebra.AggregateBinding{
			{Var: "avgValue", Expr: algebra.AggregateExpression{Name: algebra.AggAvg, Expr: algebra.Var{Name: "v"}}},
		},
	}
	root := algebra.Project{Input: group, Vars: []string{"s", "avgValue"}}

	c := New(store, vb)
	res, err := c.Execute(context.Background(), QueryPlan{
		Root:        root,
		SplitConfig: splitConfig(),
		OutputVars:  []string{"s", "avgValue"},
		ColumnTypes: []resultmap.ColumnType{
			{Variable: "s", IsIRI: true},
			{Variable: "avgValue", XSDDatatype: rdf.XSDDouble},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Mapping.Rows, 1)

	avgLit, ok := res.Mapping.Rows[0][1].(rdf.Literal)
	require.True(t, ok)
	native, err := rdf.ToNative(avgLit)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, native.(float64), 0.001)
}
