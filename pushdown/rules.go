// Package pushdown implements the Pushdown Rewriter (spec component C5):
// after the split (C4), it rewrites the algebra wrapping each VQ candidate
// into enriched VQ nodes as aggressively as possible, recording how deep
// each pushdown reached. Grounded on the teacher's per-predicate
// classification/rewriting passes (datalog/planner/predicate_rewriter.go,
// phase_predicates.go), generalized from Datalog predicates to the SPARQL
// algebra operator table in spec §4.5.
package pushdown

import (
	"github.com/chrontext/chrontext/algebra"
)

// Tag names one position in a pushdown path (spec §3: "Pushdown Path...
// node-position tags"). Kept as a defined string type, not bare string,
// so the recorder (C9) and tests can reference named constants instead of
// magic literals.
type Tag string

const (
	TagProjectInner   Tag = "ProjectInner"
	TagFilterInner    Tag = "FilterInner"
	TagExtendInner    Tag = "ExtendInner"
	TagGroupInner     Tag = "GroupInner"
	TagDistinctInner  Tag = "DistinctInner"
	TagSliceInner     Tag = "SliceInner"
	TagOrderByInner   Tag = "OrderByInner"
	TagUnionLeftSide  Tag = "UnionLeftSide"
	TagUnionRightSide Tag = "UnionRightSide"
	TagMinusLeftSide  Tag = "MinusLeftSide"
	TagMinusRightSide Tag = "MinusRightSide"
	TagLeftJoinLeft   Tag = "LeftJoinLeftSide"
	TagLeftJoinRight  Tag = "LeftJoinRightSide"
	TagExistsInner    Tag = "ExistsInner"
	TagNotExistsInner Tag = "NotExistsInner"
)

// Outcome is the sealed result of attempting to push one algebra operator
// into a VQ (design note: "functions over expressions return a result type
// that distinguishes translated from pushdown-fallback"). Exactly one of
// Pushed/Fallback holds.
type Outcome struct {
	pushed bool
	node   algebra.VQNode
	tag    Tag
	reason string
}

// Pushed reports whether the rewrite succeeded.
func (o Outcome) Pushed() bool { return o.pushed }

// Node returns the rewritten VQ node; valid only when Pushed() is true.
func (o Outcome) Node() algebra.VQNode { return o.node }

// Tag returns the pushdown-path tag recorded for a successful rewrite.
func (o Outcome) Tag() Tag { return o.tag }

// Reason explains why a rewrite fell back; valid only when Pushed() is
// false. A fallback is never an error (spec §7: "Pushdown-impossible
// expression: non-fatal").
func (o Outcome) Reason() string { return o.reason }

func pushed(node algebra.VQNode, tag Tag) Outcome {
	return Outcome{pushed: true, node: node, tag: tag}
}

func fallback(reason string) Outcome {
	return Outcome{pushed: false, reason: reason}
}

// PushFilter attempts to push a SPARQL Filter(expr) over a VQ into
// `Filtered(expr')` (spec §4.5 row 1): requires expr to reference only
// variables the VQ already outputs, and to translate via TranslateExpr.
func PushFilter(input algebra.VQNode, expr algebra.Expression) Outcome {
	if !usesOnly(algebra.Vars(expr), algebra.VQVars(input)) {
		return fallback("filter references a variable not bound by the VQ")
	}
	translated, ok := TranslateExpr(expr)
	if !ok {
		return fallback("filter expression is not translatable")
	}
	return pushed(algebra.Filtered{Input: input, Expr: translated}, TagFilterInner)
}

// PushExtend attempts to push a SPARQL Extend (BIND) into `ExpressionAs`
// (spec §4.5 row 2), under the same requirements as PushFilter.
func PushExtend(input algebra.VQNode, v string, expr algebra.Expression) Outcome {
	if !usesOnly(algebra.Vars(expr), algebra.VQVars(input)) {
		return fallback("extend expression references a variable not bound by the VQ")
	}
	translated, ok := TranslateExpr(expr)
	if !ok {
		return fallback("extend expression is not translatable")
	}
	return pushed(algebra.ExpressionAs{Input: input, Var: v, Expr: translated}, TagExtendInner)
}

// PushProject reports whether a SPARQL Project(vars) over a VQ can be
// satisfied entirely by the VQ's existing outputs (spec §4.5 row 3:
// "column prune column_mapping... vars ⊆ VQ outputs"). It does not mutate
// the VQ tree and Project has no wrapper VQ node; nothing in this module
// prunes the column_mapping afterwards either (PruneColumns has no caller),
// so a dispatched VQ keeps its full column mapping.
func PushProject(vqOutputs []string, vars []string) Outcome {
	if !usesOnly(vars, vqOutputs) {
		return fallback("project requests a variable not bound by the VQ")
	}
	return Outcome{pushed: true, tag: TagProjectInner}
}

// PruneColumns restricts a leaf Basic's column_mapping to exactly the
// variables in keep, preserving relative order. The coordinator does not
// call it: VQs are dispatched with their full column mapping.
func PruneColumns(b algebra.Basic, keep []string) algebra.Basic {
	want := make(map[string]bool, len(keep))
	for _, v := range keep {
		want[v] = true
	}
	pruned := b
	pruned.ColumnMapping = nil
	for _, cm := range b.ColumnMapping {
		if want[cm.Variable] {
			pruned.ColumnMapping = append(pruned.ColumnMapping, cm)
		}
	}
	return pruned
}

// PushGroup attempts to push a SPARQL Group(by, aggs) into `Grouped`
// (spec §4.5 row 4): requires every By variable to be a VQ output and
// every aggregate expression to be translatable.
func PushGroup(input algebra.VQNode, by []string, aggs []algebra.AggregateBinding) Outcome {
	outputs := algebra.VQVars(input)
	if !usesOnly(by, outputs) {
		return fallback("group-by key references a variable not bound by the VQ")
	}
	for _, agg := range aggs {
		if !usesOnly(algebra.Vars(agg.Expr), outputs) {
			return fallback("aggregate expression references a variable not bound by the VQ")
		}
		if _, ok := TranslateExpr(agg.Expr); !ok {
			return fallback("aggregate expression is not translatable")
		}
	}
	return pushed(algebra.Grouped{Input: input, By: by, Aggregations: aggs}, TagGroupInner)
}

// PushDistinct always succeeds (spec §4.5 row 5), wrapping input in a
// Distincted node so the backend thins its own table before dispatch. This
// is an optimization only — it never substitutes for the coordinator's
// residual distinct pass, since duplicates can reappear once several VQs
// are joined together.
func PushDistinct(input algebra.VQNode) Outcome {
	return pushed(algebra.Distincted{Input: input}, TagDistinctInner)
}

// PushSlice attempts to push a SPARQL Slice's Limit into the VQ (spec
// §4.5 row 6), wrapping input in a Limited node. OFFSET is never pushed
// down (Open Question #1, resolved: no — see DESIGN.md), and even a pushed
// LIMIT is only an optimization: the coordinator always re-applies the
// original OFFSET/LIMIT as a residual operator after the join, since the
// join can change the final row count.
func PushSlice(input algebra.VQNode, limit *int64) Outcome {
	if limit == nil {
		return fallback("no LIMIT to push (OFFSET alone is never pushed down)")
	}
	return pushed(algebra.Limited{Input: input, Limit: *limit}, TagSliceInner)
}

// usesOnly reports whether every name in used also appears in available.
func usesOnly(used, available []string) bool {
	avail := make(map[string]bool, len(available))
	for _, a := range available {
		avail[a] = true
	}
	for _, u := range used {
		if !avail[u] {
			return false
		}
	}
	return true
}
