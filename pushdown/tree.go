package pushdown

import "github.com/chrontext/chrontext/algebra"

// Recorder receives one Tag per successful pushdown, in traversal order,
// keyed by the VQ candidate ID it was pushed into. The pushdown-path
// recorder (C9) implements this to build its per-VQ ordered tag list;
// tree.go only depends on this narrow interface to avoid importing C9
// from C5.
type Recorder interface {
	Record(vqID int, tag Tag)
}

// noopRecorder discards tags; used when callers don't need path tracking
// (e.g. planning-time dry runs).
type noopRecorder struct{}

func (noopRecorder) Record(int, Tag) {}

// subtree is the result of rewriting one static-algebra subtree: either it
// collapsed entirely into a single VQ (vqID >= 0, node unused by the
// caller except to thread shared vars), or it remains a mixed/static node.
type subtree struct {
	node algebra.Node
	vqID int // -1 if not a pure single-VQ subtree
}

// Rewrite walks a split static plan (containing algebra.VirtualJoin
// placeholders) and pushes as much of the surrounding algebra into each
// referenced VQ as possible (spec §4.5). vqs maps a VQCandidate's ID to
// its current VQNode form (initially a bare algebra.Basic; C4's split
// result seeds this map). Returns the rewritten static plan, the final
// per-VQ VQNode map, and the operators that could not be pushed anywhere
// and must instead be evaluated by the coordinator against the joined
// result (spec §7: "non-fatal... falls back to post-join evaluation").
func Rewrite(root algebra.Node, vqs map[int]algebra.VQNode, rec Recorder) (algebra.Node, map[int]algebra.VQNode, []ResidualOp) {
	if rec == nil {
		rec = noopRecorder{}
	}
	r := &rewriter{vqs: vqs, rec: rec}
	result := r.node(root)
	return result.node, r.vqs, r.residual
}

type rewriter struct {
	vqs      map[int]algebra.VQNode
	rec      Recorder
	residual []ResidualOp
}

// vqVarsBelow collects the union of output variables of every VQ still
// reachable as an unresolved algebra.VirtualJoin inside a static subtree.
// The splitter only ever leaves Join trees of VirtualJoin leaves (mixed, in
// general, with static remainder nodes the default case below ignores)
// below a Filter/Extend, so walking Join/VirtualJoin is exhaustive.
func (r *rewriter) vqVarsBelow(n algebra.Node) map[string]bool {
	vars := make(map[string]bool)
	var walk func(algebra.Node)
	walk = func(n algebra.Node) {
		switch x := n.(type) {
		case algebra.VirtualJoin:
			for _, v := range algebra.VQVars(r.vqs[x.VQID]) {
				vars[v] = true
			}
		case algebra.Join:
			walk(x.Left)
			walk(x.Right)
		}
	}
	walk(n)
	return vars
}

// touchesAny reports whether any name in used is a member of set.
func touchesAny(used []string, set map[string]bool) bool {
	for _, u := range used {
		if set[u] {
			return true
		}
	}
	return false
}

// findVQLeaf walks a tree built solely of Join nodes (the shape the
// splitter leaves behind when a Bgp mixes static and virtualized
// patterns) and returns the VQID of a VirtualJoin leaf whose VQ already
// outputs every variable in want, or -1 if none qualifies.
func (r *rewriter) findVQLeaf(n algebra.Node, want []string) int {
	switch x := n.(type) {
	case algebra.VirtualJoin:
		if usesOnly(want, algebra.VQVars(r.vqs[x.VQID])) {
			return x.VQID
		}
		return -1
	case algebra.Join:
		if id := r.findVQLeaf(x.Left, want); id >= 0 {
			return id
		}
		return r.findVQLeaf(x.Right, want)
	default:
		return -1
	}
}

func (r *rewriter) node(n algebra.Node) subtree {
	switch x := n.(type) {
	case algebra.VirtualJoin:
		return subtree{node: x, vqID: x.VQID}

	case algebra.Filter:
		inner := r.node(x.Input)
		if inner.vqID >= 0 {
			outcome := PushFilter(r.vqs[inner.vqID], x.Expr)
			if outcome.Pushed() {
				r.vqs[inner.vqID] = outcome.Node()
				r.rec.Record(inner.vqID, outcome.Tag())
				return inner
			}
		} else if id := r.findVQLeaf(inner.node, algebra.Vars(x.Expr)); id >= 0 {
			// The filter only touches one VQ's own variables and sits
			// above an inner join: it commutes below the join (spec
			// §4.5), so it can still land in that VQ even though the
			// join's other side never collapsed.
			outcome := PushFilter(r.vqs[id], x.Expr)
			if outcome.Pushed() {
				r.vqs[id] = outcome.Node()
				r.rec.Record(id, outcome.Tag())
				return subtree{node: inner.node, vqID: -1}
			}
		}
		if touchesAny(algebra.Vars(x.Expr), r.vqVarsBelow(inner.node)) {
			// The expression references a variable only a VQ's join can
			// bind: evaluating it now, against the still-unresolved
			// VirtualJoin, would see that variable as unbound. Defer to
			// the coordinator's post-join residual stage instead (spec
			// §7: non-fatal, falls back to post-join evaluation).
			r.residual = append(r.residual, ResidualFilter{Expr: x.Expr})
			return inner
		}
		return subtree{node: algebra.Filter{Input: inner.node, Expr: x.Expr}, vqID: -1}

	case algebra.Extend:
		inner := r.node(x.Input)
		if inner.vqID >= 0 {
			outcome := PushExtend(r.vqs[inner.vqID], x.Var, x.Expr)
			if outcome.Pushed() {
				r.vqs[inner.vqID] = outcome.Node()
				r.rec.Record(inner.vqID, outcome.Tag())
				return inner
			}
		} else if id := r.findVQLeaf(inner.node, algebra.Vars(x.Expr)); id >= 0 {
			outcome := PushExtend(r.vqs[id], x.Var, x.Expr)
			if outcome.Pushed() {
				r.vqs[id] = outcome.Node()
				r.rec.Record(id, outcome.Tag())
				return subtree{node: inner.node, vqID: -1}
			}
		}
		if touchesAny(algebra.Vars(x.Expr), r.vqVarsBelow(inner.node)) {
			r.residual = append(r.residual, ResidualExtend{Var: x.Var, Expr: x.Expr})
			return inner
		}
		return subtree{node: algebra.Extend{Input: inner.node, Var: x.Var, Expr: x.Expr}, vqID: -1}

	case algebra.Project:
		inner := r.node(x.Input)
		if inner.vqID >= 0 {
			outcome := PushProject(algebra.VQVars(r.vqs[inner.vqID]), x.Vars)
			if outcome.Pushed() {
				r.rec.Record(inner.vqID, outcome.Tag())
				return subtree{node: algebra.Project{Input: inner.node, Vars: x.Vars}, vqID: -1}
			}
		}
		// The coordinator reads each VirtualJoin's shared variables (the VQ
		// identifier among them) from the static rows, for identifier
		// discovery and for the residual join, so the static projection
		// keeps them alongside the requested variables.
		vars := append([]string(nil), x.Vars...)
		var keep func(algebra.Node)
		keep = func(n algebra.Node) {
			switch y := n.(type) {
			case algebra.VirtualJoin:
				vars = append(vars, y.SharedVars...)
			case algebra.Join:
				keep(y.Left)
				keep(y.Right)
			}
		}
		keep(inner.node)
		return subtree{node: algebra.Project{Input: inner.node, Vars: vars}, vqID: -1}

	case algebra.Distinct:
		inner := r.node(x.Input)
		// DISTINCT always defers to the coordinator's residual pass: a VQ
		// can only thin its own rows, but duplicates can be reintroduced
		// by the join itself, so a single-VQ push is an optimization,
		// never the enforcement mechanism (spec §4.7 step 4).
		r.residual = append(r.residual, ResidualDistinct{})
		if inner.vqID >= 0 {
			outcome := PushDistinct(r.vqs[inner.vqID])
			r.vqs[inner.vqID] = outcome.Node()
			r.rec.Record(inner.vqID, outcome.Tag())
		}
		return subtree{node: inner.node, vqID: inner.vqID}

	case algebra.Slice:
		inner := r.node(x.Input)
		// OFFSET/LIMIT always defer to the coordinator's residual pass: the
		// join can change row counts and order, so the original
		// Offset/Limit must be re-applied after it regardless of any VQ
		// push below (spec §4.7 step 4, Open Question #1).
		r.residual = append(r.residual, ResidualSlice{Offset: x.Offset, Limit: x.Limit})
		if inner.vqID >= 0 {
			outcome := PushSlice(r.vqs[inner.vqID], x.Limit)
			if outcome.Pushed() {
				r.vqs[inner.vqID] = outcome.Node()
				r.rec.Record(inner.vqID, outcome.Tag())
			}
		}
		return subtree{node: inner.node, vqID: inner.vqID}

	case algebra.Group:
		inner := r.node(x.Input)
		if inner.vqID >= 0 {
			outcome := PushGroup(r.vqs[inner.vqID], x.By, x.Aggregations)
			if outcome.Pushed() {
				r.vqs[inner.vqID] = outcome.Node()
				r.rec.Record(inner.vqID, outcome.Tag())
				return inner
			}
		} else {
			groupVars := append([]string{}, x.By...)
			for _, agg := range x.Aggregations {
				groupVars = append(groupVars, algebra.Vars(agg.Expr)...)
			}
			if id := r.findVQLeaf(inner.node, groupVars); id >= 0 {
				outcome := PushGroup(r.vqs[id], x.By, x.Aggregations)
				if outcome.Pushed() {
					r.vqs[id] = outcome.Node()
					r.rec.Record(id, outcome.Tag())
					return subtree{node: inner.node, vqID: -1}
				}
			}
		}
		return subtree{node: algebra.Group{Input: inner.node, By: x.By, Aggregations: x.Aggregations}, vqID: -1}

	case algebra.OrderBy:
		inner := r.node(x.Input)
		// Ordering always defers to the coordinator's residual sort (spec
		// §5: "the coordinator applies any residual ordering after the
		// residual join"): the join can reorder or duplicate rows
		// regardless of whether the ORDER BY touches static or VQ-bound
		// variables, so only a post-join sort is correct.
		r.residual = append(r.residual, ResidualOrderBy{Conditions: x.Conditions})
		if inner.vqID >= 0 {
			r.rec.Record(inner.vqID, TagOrderByInner)
		}
		return subtree{node: inner.node, vqID: inner.vqID}

	case algebra.Union:
		left := r.node(x.Left)
		right := r.node(x.Right)
		if left.vqID >= 0 {
			r.rec.Record(left.vqID, TagUnionLeftSide)
		}
		if right.vqID >= 0 {
			r.rec.Record(right.vqID, TagUnionRightSide)
		}
		return subtree{node: algebra.Union{Left: left.node, Right: right.node}, vqID: -1}

	case algebra.Minus:
		left := r.node(x.Left)
		right := r.node(x.Right)
		if left.vqID >= 0 {
			r.rec.Record(left.vqID, TagMinusLeftSide)
		}
		if right.vqID >= 0 {
			r.rec.Record(right.vqID, TagMinusRightSide)
		}
		return subtree{node: algebra.Minus{Left: left.node, Right: right.node}, vqID: -1}

	case algebra.LeftJoin:
		left := r.node(x.Left)
		right := r.node(x.Right)
		if left.vqID >= 0 {
			r.rec.Record(left.vqID, TagLeftJoinLeft)
		}
		if right.vqID >= 0 {
			r.rec.Record(right.vqID, TagLeftJoinRight)
		}
		return subtree{node: algebra.LeftJoin{Left: left.node, Right: right.node, Expr: x.Expr}, vqID: -1}

	case algebra.Join:
		left := r.node(x.Left)
		right := r.node(x.Right)
		// A Join of two pure single-VQ subtrees only collapses further
		// when they are the same VQ (e.g. one candidate re-wrapped twice
		// during recursion); otherwise a Join mixes two independently
		// dispatched VQs (or a VQ with static patterns) and must remain
		// in the static plan for the coordinator's residual join.
		if left.vqID >= 0 && left.vqID == right.vqID {
			return left
		}
		return subtree{node: algebra.Join{Left: left.node, Right: right.node}, vqID: -1}

	case algebra.Service:
		inner := r.node(x.Input)
		return subtree{node: algebra.Service{Endpoint: x.Endpoint, Silent: x.Silent, Input: inner.node}, vqID: -1}

	default:
		return subtree{node: n, vqID: -1}
	}
}
