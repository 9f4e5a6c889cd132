// Package coordinator implements the Execution Coordinator (spec
// component C7): it drives the RDF store, invokes the virtualized
// backend, materializes tabular results, and joins everything into the
// final result set. Grounded on the teacher's staged Execute pipeline
// (datalog/executor/executor.go, executor_sequential.go).
package coordinator

import (
	"context"
	"fmt"
	"sort"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/backend"
	"github.com/chrontext/chrontext/pushdown"
	"github.com/chrontext/chrontext/pushdownpath"
	"github.com/chrontext/chrontext/rdf"
	"github.com/chrontext/chrontext/resultmap"
	"github.com/chrontext/chrontext/split"
)

// Coordinator owns the shared, read-only resources a query needs: the RDF
// store handle and the virtualized backend (spec §5: "the engine holds
// immutable template registry, a shared handle to the RDF store
// (reader-only), and per-backend connection pools").
type Coordinator struct {
	Store          backend.RDFStore
	Backend        backend.VirtualizedBackend
	MaxConcurrency int
}

// New returns a Coordinator with a sensible default concurrency bound.
func New(store backend.RDFStore, vb backend.VirtualizedBackend) *Coordinator {
	return &Coordinator{Store: store, Backend: vb, MaxConcurrency: 8}
}

// QueryPlan is everything the coordinator needs to execute one query: the
// parsed algebra root, the splitter config for its virtualized resources,
// the variables the caller wants in the final projection, and their
// declared output types for retyping (C8).
type QueryPlan struct {
	Root        algebra.Node
	SplitConfig split.Config
	OutputVars  []string
	ColumnTypes []resultmap.ColumnType
}

// Result is the coordinator's output: the retyped solution mapping plus
// the pushdown paths recorded for each VQ (spec §4.8/§4.9).
type Result struct {
	Mapping       resultmap.SolutionMapping
	PushdownPaths [][]pushdown.Tag
}

// PlannedQuery is the output of the split+pushdown planning stage (spec
// §4.4/§4.5), before any store or backend I/O happens. It depends only on
// the query root and the split configuration, never on the data, which is
// exactly what makes it cacheable (planstore keys on a fingerprint of
// those two inputs and reuses a PlannedQuery verbatim across repeated
// queries of the same shape — grounded on the teacher's
// PlanCache.GetWithOptions/SetWithOptions, datalog/planner/cache.go).
type PlannedQuery struct {
	StaticPlan    algebra.Node
	VQs           map[int]algebra.VQNode
	VQCandidates  []split.VQCandidate
	PushdownPaths [][]pushdown.Tag
	Residual      []pushdown.ResidualOp
}

// Plan runs the splitter (C4) and pushdown rewriter (C5) over a query
// root, producing a PlannedQuery. Separated from Execute so planstore can
// cache and reuse it across structurally identical queries.
func Plan(root algebra.Node, cfg split.Config) PlannedQuery {
	splitResult := split.Split(root, cfg)

	vqs := make(map[int]algebra.VQNode, len(splitResult.VQs))
	for _, cand := range splitResult.VQs {
		vqs[cand.ID] = algebra.Basic{
			Resource:       cand.Resource,
			IdentifierName: cand.IdentifierVar,
			ColumnMapping:  cand.ColumnMapping,
		}
	}

	collector := pushdownpath.NewCollector()
	staticPlan, vqs, residual := pushdown.Rewrite(splitResult.Static, vqs, collector)

	return PlannedQuery{
		StaticPlan:    staticPlan,
		VQs:           vqs,
		VQCandidates:  splitResult.VQs,
		PushdownPaths: collector.Drain(),
		Residual:      residual,
	}
}

// Execute runs the five-step pipeline described in spec §4.7, planning the
// query itself first. Callers that want plan caching should call Plan (or
// planstore's cached equivalent) and ExecutePlanned directly instead.
func (c *Coordinator) Execute(ctx context.Context, p QueryPlan) (Result, error) {
	return c.ExecutePlanned(ctx, Plan(p.Root, p.SplitConfig), p.OutputVars, p.ColumnTypes)
}

// ExecutePlanned runs steps 1-5 of spec §4.7 against an already-planned
// query, materializing VQ identifiers, dispatching the backend, joining,
// and retyping the result.
func (c *Coordinator) ExecutePlanned(ctx context.Context, planned PlannedQuery, outputVars []string, columnTypes []resultmap.ColumnType) (Result, error) {
	staticPlan := planned.StaticPlan
	vqs := make(map[int]algebra.VQNode, len(planned.VQs))
	for id, vq := range planned.VQs {
		vqs[id] = vq
	}

	// Step 1: identifier discovery.
	identifierVars := identifierVarSet(planned.VQCandidates)
	if err := ctx.Err(); err != nil {
		return Result{}, &CancellationError{Cause: err}
	}
	idRows, err := c.Store.Select(ctx, staticPlan, identifierVars)
	if err != nil {
		return Result{}, fmt.Errorf("identifier discovery: %w", err)
	}

	// Step 2: VQ materialization + dispatch.
	var tasks []vqTask
	for _, cand := range planned.VQCandidates {
		ids := distinctIdentifiers(idRows, cand.IdentifierVar)
		if len(ids) == 0 {
			continue // no identifiers reachable from the static plan for this VQ: nothing to dispatch
		}
		materialized := setIDs(vqs[cand.ID], ids)
		vqs[cand.ID] = materialized
		tasks = append(tasks, vqTask{id: cand.ID, vq: materialized})
	}

	tables, failedID, err := dispatchAll(ctx, c.Backend, tasks, c.MaxConcurrency)
	if err != nil {
		var fp uint64
		for _, t := range tasks {
			if t.id == failedID {
				fp = uint64(algebra.Hash(t.vq))
				break
			}
		}
		return Result{}, &BackendError{VQFingerprint: fp, Cause: err}
	}

	// Step 3: static execution (full output variables this time, not just
	// identifiers), carrying unbound placeholders at VirtualJoin positions.
	staticVars := unionVars(outputVars, identifierVars)
	staticRows, err := c.Store.Select(ctx, staticPlan, staticVars)
	if err != nil {
		return Result{}, fmt.Errorf("static execution: %w", err)
	}

	// Step 4: residual join, then any Filter/Extend/OrderBy/Distinct/Slice
	// pushdown could not fully push into a VQ (spec §4.7 step 4; spec §7:
	// "non-fatal... falls back to post-join evaluation; no error").
	rows := joinAll(staticRows, planned.VQCandidates, tables)
	rows, err = applyResidual(rows, planned.Residual)
	if err != nil {
		return Result{}, fmt.Errorf("residual evaluation: %w", err)
	}

	// Step 5: result retyping (C8). Values arriving from the static side
	// are still rdf.Terms (the RDF store's native currency); the VQ side
	// already produced plain Go scalars. Normalize both to what
	// resultmap.FromNativeColumns expects before handing them over.
	columns := make(map[string][]interface{}, len(columnTypes))
	for _, ct := range columnTypes {
		values := make([]interface{}, len(rows))
		for i, r := range rows {
			values[i] = nativeValue(r[ct.Variable])
		}
		columns[ct.Variable] = values
	}
	mapping, err := resultmap.FromNativeColumns(columnTypes, columns, len(rows))
	if err != nil {
		return Result{}, err
	}

	return Result{Mapping: mapping, PushdownPaths: planned.PushdownPaths}, nil
}

func identifierVarSet(candidates []split.VQCandidate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		if c.IdentifierVar == "" || seen[c.IdentifierVar] {
			continue
		}
		seen[c.IdentifierVar] = true
		out = append(out, c.IdentifierVar)
	}
	sort.Strings(out)
	return out
}

func unionVars(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, vs := range [][]string{a, b} {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func distinctIdentifiers(rows []backend.Row, identifierVar string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		v, ok := r[identifierVar]
		if !ok {
			continue
		}
		key := identifierKeyFromRow(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// nativeValue unwraps an rdf.Term (as produced by the static RDF side)
// into the plain Go scalar resultmap.FromNativeColumns expects; values
// that already came from the VQ table pass through unchanged.
func nativeValue(v interface{}) interface{} {
	t, ok := v.(rdf.Term)
	if !ok {
		return v
	}
	switch x := t.(type) {
	case rdf.NamedNode:
		return x.IRI
	case rdf.BlankNode:
		return x.ID
	case rdf.Literal:
		native, err := rdf.ToNative(x)
		if err != nil {
			return nil
		}
		return native
	default:
		return nil
	}
}

func identifierKeyFromRow(v interface{}) string {
	t, ok := v.(rdf.Term)
	if !ok {
		return ""
	}
	return identifierKey(t)
}

// setIDs recurses into a VQ tree and sets IDs on the leaf Basic node.
func setIDs(vq algebra.VQNode, ids []string) algebra.VQNode {
	switch x := vq.(type) {
	case algebra.Basic:
		x.IDs = ids
		return x
	case algebra.Filtered:
		x.Input = setIDs(x.Input, ids)
		return x
	case algebra.Grouped:
		x.Input = setIDs(x.Input, ids)
		return x
	case algebra.ExpressionAs:
		x.Input = setIDs(x.Input, ids)
		return x
	case algebra.InnerJoin:
		x.Left = setIDs(x.Left, ids)
		x.Right = setIDs(x.Right, ids)
		return x
	case algebra.Distincted:
		x.Input = setIDs(x.Input, ids)
		return x
	case algebra.Limited:
		x.Input = setIDs(x.Input, ids)
		return x
	default:
		return vq
	}
}

func joinAll(staticRows []backend.Row, candidates []split.VQCandidate, tables map[int]backend.Table) []joinedRow {
	if len(candidates) == 0 {
		return wrapStatic(staticRows)
	}

	rows := wrapStatic(staticRows)
	for _, cand := range candidates {
		table, ok := tables[cand.ID]
		if !ok {
			continue
		}
		converted := make([]backend.Row, len(rows))
		for i, r := range rows {
			converted[i] = backend.Row(r)
		}
		rows = residualJoin(converted, cand.IdentifierVar, table)
	}
	return rows
}

func wrapStatic(rows []backend.Row) []joinedRow {
	out := make([]joinedRow, len(rows))
	for i, r := range rows {
		out[i] = joinedRow(r)
	}
	return out
}
