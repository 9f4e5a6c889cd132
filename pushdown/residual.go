package pushdown

import "github.com/chrontext/chrontext/algebra"

// ResidualOp is one SPARQL operator the rewriter could not fully push into
// any VQ, deferred instead to the coordinator's post-join residual
// evaluation stage (spec §4.7 step 4: "evaluate any filters/extends not
// pushed down; apply residual order-by/limit/offset/distinct"; spec §7:
// "Pushdown-impossible expression: non-fatal... falls back to post-join
// evaluation; no error"). Sealed the same way algebra.Node is: only
// variants in this package implement it.
type ResidualOp interface {
	residualOp()
}

// ResidualFilter re-evaluates a FILTER that pushdown couldn't translate
// into the VQ it sits over, against the coordinator's joined row.
type ResidualFilter struct {
	Expr algebra.Expression
}

func (ResidualFilter) residualOp() {}

// ResidualExtend re-evaluates a BIND pushdown couldn't translate, against
// the joined row.
type ResidualExtend struct {
	Var  string
	Expr algebra.Expression
}

func (ResidualExtend) residualOp() {}

// ResidualOrderBy sorts the joined rows. Ordering always defers here rather
// than ever staying in the static plan: the residual join itself can
// reorder rows regardless of whether the ORDER BY touches static or
// VQ-bound variables, so only a post-join sort is correct.
type ResidualOrderBy struct {
	Conditions []algebra.OrderCondition
}

func (ResidualOrderBy) residualOp() {}

// ResidualDistinct deduplicates the joined rows by their full output tuple.
// A VQ-level Distincted pushdown (see PushDistinct) is an optimization that
// only thins one VQ's own table before the join; this is what actually
// enforces DISTINCT, since the join itself can reintroduce duplicates.
type ResidualDistinct struct{}

func (ResidualDistinct) residualOp() {}

// ResidualSlice applies the original OFFSET/LIMIT to the joined rows. A
// VQ-level Limited pushdown (see PushSlice) only bounds one VQ's own table
// before the join; OFFSET is never pushed (Open Question #1) and LIMIT
// must still be re-applied here since the join can change the row count.
type ResidualSlice struct {
	Offset int64
	Limit  *int64
}

func (ResidualSlice) residualOp() {}
