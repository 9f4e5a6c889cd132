package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/backend"
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

func temperatureQuery() algebra.Node {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: hasDataPoint}, Object: rdf.Variable{Name: "dp"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasTimestamp}, Object: rdf.Variable{Name: "t"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: hasValue}, Object: rdf.Variable{Name: "v"}},
	}}
	return algebra.Project{Input: bgp, Vars: []string{"s", "t", "v"}}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store := backend.NewMemoryStore([]backend.Triple{
		{Subject: rdf.NamedNode{IRI: "ex:sensor1"}, Predicate: rdf.NamedNode{IRI: rdfType}, Object: rdf.NamedNode{IRI: sensorType}},
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vb := backend.NewMemoryBackend(map[string]backend.MemorySeries{
		"ex:sensor1": {
			ID:         "ex:sensor1",
			Timestamps: []time.Time{base, base.Add(time.Minute)},
			Values:     []float64{5, 15},
		},
	})

	e, err := Init(Config{
		Resources: map[string]split.Config{
			"temperature": {
				Resource: "temperature",
				ColumnPredicates: map[string]string{
					hasTimestamp: "timestamp",
					hasValue:     "value",
				},
				IdentifierPredicate: hasDataPoint,
			},
		},
		Store:   store,
		Backend: vb,
	})
	require.NoError(t, err)
	return e
}

func TestQueryUnknownResourceIsSchemaError(t *testing.T) {
	e := newTestEngine(t)
	_, _, err := e.Query(context.Background(), "humidity", temperatureQuery(), []string{"s"}, nil)
	require.Error(t, err)
	var schemaErr interface{ Kind() string }
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "SchemaError", schemaErr.Kind())
}

func TestQueryCachesPlanAcrossRepeatedCalls(t *testing.T) {
	e := newTestEngine(t)
	root := temperatureQuery()
	columnTypes := []resultmap.ColumnType{
		{Variable: "s", IsIRI: true},
		{Variable: "t", XSDDatatype: rdf.XSDDateTime},
		{Variable: "v", XSDDatatype: rdf.XSDDouble},
	}

	_, _, err := e.Query(context.Background(), "temperature", root, []string{"s", "t", "v"}, columnTypes)
	require.NoError(t, err)
	hits, misses, size := e.planCache.Stats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, size)

	mapping, _, err := e.Query(context.Background(), "temperature", root, []string{"s", "t", "v"}, columnTypes)
	require.NoError(t, err)
	hits, _, _ = e.planCache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, 2, len(mapping.Rows))
}

func TestQueryRejectsAlreadyCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := e.Query(ctx, "temperature", temperatureQuery(), []string{"s"}, nil)
	require.Error(t, err)
}

func TestCloseWithoutPersistentLogIsNoop(t *testing.T) {
	e := newTestEngine(t)
	assert.NoError(t, e.Close())
}
