package planstore

import (
	"testing"
	"time"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
	"github.com/chrontext/chrontext/split"
)

func sampleQuery() algebra.Node {
	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: "ex:hasDataPoint"}, Object: rdf.Variable{Name: "dp"}},
		{Subject: rdf.Variable{Name: "dp"}, Predicate: rdf.NamedNode{IRI: "ex:hasValue"}, Object: rdf.Variable{Name: "v"}},
	}}
	return algebra.Project{Input: bgp, Vars: []string{"s", "v"}}
}

func sampleConfig() split.Config {
	return split.Config{
		Resource:            "temperature",
		ColumnPredicates:    map[string]string{"ex:hasValue": "value"},
		IdentifierPredicate: "ex:hasDataPoint",
	}
}

func TestGetOrPlanCachesAcrossCalls(t *testing.T) {
	cache := NewCache(10, time.Minute)
	root := sampleQuery()
	cfg := sampleConfig()

	first := cache.GetOrPlan(root, cfg)
	_, _, size := cache.Stats()
	if size != 1 {
		t.Fatalf("expected 1 cache entry after first plan, got %d", size)
	}

	second := cache.GetOrPlan(root, cfg)
	hits, misses, _ := cache.Stats()
	if hits != 1 {
		t.Fatalf("expected 1 hit on second call, got %d", hits)
	}
	if misses != 1 {
		t.Fatalf("expected 1 miss on first call, got %d", misses)
	}
	if len(first.VQCandidates) != len(second.VQCandidates) {
		t.Fatal("cached plan should have the same VQ candidate shape as the original")
	}
}

func TestDifferentConfigsGetDistinctCacheEntries(t *testing.T) {
	cache := NewCache(10, time.Minute)
	root := sampleQuery()

	cache.GetOrPlan(root, sampleConfig())
	other := sampleConfig()
	other.Resource = "humidity"
	cache.GetOrPlan(root, other)

	_, _, size := cache.Stats()
	if size != 2 {
		t.Fatalf("expected 2 distinct cache entries for 2 configs, got %d", size)
	}
}

func TestCacheExpiresEntriesPastTTL(t *testing.T) {
	cache := NewCache(10, time.Millisecond)
	root := sampleQuery()
	cfg := sampleConfig()

	cache.GetOrPlan(root, cfg)
	time.Sleep(5 * time.Millisecond)
	cache.GetOrPlan(root, cfg)

	_, misses, _ := cache.Stats()
	if misses != 2 {
		t.Fatalf("expected both calls to miss once the entry expired, got %d misses", misses)
	}
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	cache := NewCache(1, time.Minute)
	root := sampleQuery()

	first := sampleConfig()
	cache.GetOrPlan(root, first)

	second := sampleConfig()
	second.Resource = "humidity"
	cache.GetOrPlan(root, second)

	_, _, size := cache.Stats()
	if size != 1 {
		t.Fatalf("expected eviction to keep cache at maxSize 1, got %d entries", size)
	}
	if _, ok := cache.Get(NewKey(root, first)); ok {
		t.Fatal("expected the oldest entry to have been evicted")
	}
}
