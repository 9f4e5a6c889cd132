// Package engine is the top-level facade (spec §5/§6.1): construct one from
// a Config, then call Query per incoming request. Grounded on the teacher's
// cmd/datalog/main.go construction sequence (open storage, build the
// executor, serve requests against it) generalized from a single-process
// CLI demo into a long-lived, concurrency-safe facade a server or CLI can
// share across requests.
package engine

import (
	"context"
	"fmt"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/coordinator"
	"github.com/chrontext/chrontext/planstore"
	"github.com/chrontext/chrontext/pushdown"
	"github.com/chrontext/chrontext/resultmap"
	"github.com/chrontext/chrontext/split"
)

// Engine holds the immutable, shared resources a query needs: the split
// config registry, the coordinator wired to the store and backend, and the
// plan cache (spec §5: "the engine holds immutable template registry, a
// shared handle to the RDF store (reader-only), and per-backend connection
// pools"). An Engine is safe for concurrent use by multiple goroutines once
// Init returns.
type Engine struct {
	resources   map[string]split.Config
	coordinator *coordinator.Coordinator
	planCache   *planstore.Cache
	persistent  *planstore.PersistentLog
}

// Init validates cfg and constructs an Engine ready to serve queries. It
// fails with a SchemaError if no resources are registered or a required
// collaborator is missing, mirroring the teacher's main() bailing out early
// when storage can't be opened.
func Init(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, &coordinator.SchemaError{Reason: "engine: Config.Store is required"}
	}
	if cfg.Backend == nil {
		return nil, &coordinator.SchemaError{Reason: "engine: Config.Backend is required"}
	}
	if len(cfg.Resources) == 0 {
		return nil, &coordinator.SchemaError{Reason: "engine: Config.Resources must register at least one resource"}
	}

	coord := coordinator.New(cfg.Store, cfg.Backend)
	if cfg.MaxConcurrency > 0 {
		coord.MaxConcurrency = cfg.MaxConcurrency
	}

	var persistent *planstore.PersistentLog
	if cfg.PlanCacheDir != "" {
		log, err := planstore.OpenPersistentLog(cfg.PlanCacheDir)
		if err != nil {
			return nil, fmt.Errorf("engine: opening plan cache dir %q: %w", cfg.PlanCacheDir, err)
		}
		persistent = log
	}

	resources := make(map[string]split.Config, len(cfg.Resources))
	for name, sc := range cfg.Resources {
		resources[name] = sc
	}

	return &Engine{
		resources:   resources,
		coordinator: coord,
		planCache:   planstore.NewCache(cfg.PlanCacheSize, cfg.PlanCacheTTL),
		persistent:  persistent,
	}, nil
}

// Query runs one SPARQL query against a named virtualized resource (spec
// §6.1: "Query(ctx, query) -> (SolutionMapping, error)", generalized here
// to take the already-parsed algebra root rather than raw query text —
// parsing, desugaring DT{} blocks, and template expansion happen upstream,
// before the tree reaches the engine — and to return the per-VQ pushdown
// paths alongside the mapping). Planning is cached by (root, the
// resource's split config); execution always hits the store and backend
// fresh, since results depend on live data.
func (e *Engine) Query(
	ctx context.Context,
	resource string,
	root algebra.Node,
	outputVars []string,
	columnTypes []resultmap.ColumnType,
) (resultmap.SolutionMapping, [][]pushdown.Tag, error) {
	cfg, ok := e.resources[resource]
	if !ok {
		return resultmap.SolutionMapping{}, nil, &coordinator.SchemaError{
			Reason: fmt.Sprintf("engine: unknown resource %q", resource),
		}
	}

	if err := ctx.Err(); err != nil {
		return resultmap.SolutionMapping{}, nil, &coordinator.CancellationError{Cause: err}
	}

	planned := e.planCache.GetOrPlan(root, cfg)
	if e.persistent != nil {
		key := planstore.NewKey(root, cfg)
		if err := e.persistent.Record(key, planned.PushdownPaths); err != nil {
			// Observability persistence is best-effort; a badger write
			// failure must never fail the query itself.
			_ = err
		}
	}

	result, err := e.coordinator.ExecutePlanned(ctx, planned, outputVars, columnTypes)
	if err != nil {
		return resultmap.SolutionMapping{}, nil, err
	}
	return result.Mapping, result.PushdownPaths, nil
}

// ServeFlight would expose Query results over Arrow Flight (spec §6.6: "an
// optional Arrow Flight endpoint for bulk result retrieval"). Wiring an
// actual Flight server is an external-collaborator concern (it needs a
// listener, TLS config, and an Arrow schema derived per-query from
// columnTypes) that belongs in cmd/chrontext, not in the engine package
// itself; this stub documents the seam.
func (e *Engine) ServeFlight(addr string) error {
	return fmt.Errorf("engine: ServeFlight not implemented")
}

// Close releases the Engine's optional persistent plan log, if one was
// opened. The RDF store and backend handles are owned by the caller that
// built Config and are not closed here.
func (e *Engine) Close() error {
	if e.persistent != nil {
		return e.persistent.Close()
	}
	return nil
}
