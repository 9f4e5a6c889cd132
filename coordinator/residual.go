package coordinator

import (
	"fmt"
	"sort"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/pushdown"
	"github.com/chrontext/chrontext/rdf"
)

// applyResidual runs the pushdown rewriter's leftover operators (spec §4.7
// step 4) against the joined rows, in the order pushdown.Rewrite encountered
// them: FILTER/BIND first (closest to the join), then DISTINCT, then
// ORDER BY, then OFFSET/LIMIT last, mirroring SPARQL's own Distinct ->
// OrderBy -> Slice evaluation order (algebra/sparql.go's nesting). A
// Filter/Extend ends up here only when it referenced a VQ-bound variable the
// static plan can't see before the join (spec §7: non-fatal fallback);
// Distinct/OrderBy/Slice end up here unconditionally, since the residual
// join can reorder rows or reintroduce duplicates regardless of any VQ-level
// push already applied as an optimization.
func applyResidual(rows []joinedRow, ops []pushdown.ResidualOp) ([]joinedRow, error) {
	var distinct *pushdown.ResidualDistinct
	var order *pushdown.ResidualOrderBy
	var slice *pushdown.ResidualSlice

	for _, op := range ops {
		switch x := op.(type) {
		case pushdown.ResidualFilter:
			var err error
			rows, err = residualFilter(rows, x.Expr)
			if err != nil {
				return nil, err
			}
		case pushdown.ResidualExtend:
			var err error
			rows, err = residualExtend(rows, x.Var, x.Expr)
			if err != nil {
				return nil, err
			}
		case pushdown.ResidualDistinct:
			d := x
			distinct = &d
		case pushdown.ResidualOrderBy:
			o := x
			order = &o
		case pushdown.ResidualSlice:
			s := x
			slice = &s
		default:
			return nil, fmt.Errorf("coordinator: unsupported residual operator %T", op)
		}
	}

	if distinct != nil {
		rows = residualDistinct(rows)
	}
	if order != nil {
		var err error
		rows, err = residualOrderBy(rows, order.Conditions)
		if err != nil {
			return nil, err
		}
	}
	if slice != nil {
		rows = residualSlice(rows, slice.Offset, slice.Limit)
	}
	return rows, nil
}

func residualFilter(rows []joinedRow, expr algebra.Expression) ([]joinedRow, error) {
	var out []joinedRow
	for _, r := range rows {
		ok, err := evalResidualBool(expr, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func residualExtend(rows []joinedRow, v string, expr algebra.Expression) ([]joinedRow, error) {
	out := make([]joinedRow, len(rows))
	for i, r := range rows {
		val, err := evalResidualExpr(expr, r)
		if err != nil {
			return nil, err
		}
		merged := make(joinedRow, len(r)+1)
		for k, vv := range r {
			merged[k] = vv
		}
		merged[v] = val
		out[i] = merged
	}
	return out, nil
}

func residualOrderBy(rows []joinedRow, conditions []algebra.OrderCondition) ([]joinedRow, error) {
	out := make([]joinedRow, len(rows))
	copy(out, rows)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := residualOrderLess(conditions, out[i], out[j])
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func residualOrderLess(conditions []algebra.OrderCondition, a, b joinedRow) (bool, error) {
	for _, cond := range conditions {
		left, err := evalResidualExpr(cond.Expr, a)
		if err != nil {
			return false, err
		}
		right, err := evalResidualExpr(cond.Expr, b)
		if err != nil {
			return false, err
		}
		cmp := rdf.Compare(left, right)
		if cmp == 0 {
			continue
		}
		if cond.Direction == algebra.Descending {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}

// residualDistinct deduplicates rows by their full output tuple, the way
// SPARQL DISTINCT compares whole solutions (mirrors backend/memory.go's
// dedupe, generalized to joinedRow's mix of rdf.Term and native values).
func residualDistinct(rows []joinedRow) []joinedRow {
	seen := make(map[string]bool, len(rows))
	var out []joinedRow
	for _, r := range rows {
		key := joinedRowKey(r)
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

func joinedRowKey(r joinedRow) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + fmt.Sprint(nativeValue(r[k])) + ";"
	}
	return key
}

func residualSlice(rows []joinedRow, offset int64, limit *int64) []joinedRow {
	start := int(offset)
	if start > len(rows) {
		start = len(rows)
	}
	rows = rows[start:]
	if limit != nil && int64(len(rows)) > *limit {
		rows = rows[:*limit]
	}
	return rows
}

// evalResidualExpr evaluates an algebra.Expression to a native scalar
// against a joined row, supporting the same deliberately limited subset as
// backend/memory.go's evalExpr/evalBool (Var, Lit, Compare, And, Or, Not,
// Bound) — this mirrors, not duplicates, that subset: the residual
// evaluator works over joinedRow's mix of rdf.Term and already-native VQ
// values rather than MemoryStore's pure binding map.
func evalResidualExpr(e algebra.Expression, r joinedRow) (rdf.Native, error) {
	switch x := e.(type) {
	case algebra.Var:
		v, ok := r[x.Name]
		if !ok {
			return nil, fmt.Errorf("coordinator: residual evaluation: variable %q is unbound", x.Name)
		}
		return nativeValue(v), nil
	case algebra.Lit:
		return nativeValue(x.Value), nil
	default:
		return nil, fmt.Errorf("coordinator: residual evaluation: expression %T not supported", e)
	}
}

func evalResidualBool(e algebra.Expression, r joinedRow) (bool, error) {
	switch x := e.(type) {
	case algebra.Compare:
		left, err := evalResidualExpr(x.Left, r)
		if err != nil {
			return false, err
		}
		right, err := evalResidualExpr(x.Right, r)
		if err != nil {
			return false, err
		}
		cmp := rdf.Compare(left, right)
		switch x.Op {
		case algebra.OpGreater:
			return cmp > 0, nil
		case algebra.OpLess:
			return cmp < 0, nil
		case algebra.OpGreaterOrEqual:
			return cmp >= 0, nil
		case algebra.OpLessOrEqual:
			return cmp <= 0, nil
		case algebra.OpEqual:
			return cmp == 0, nil
		case algebra.OpNotEqual:
			return cmp != 0, nil
		}
		return false, fmt.Errorf("coordinator: residual evaluation: unknown comparison operator %v", x.Op)
	case algebra.And:
		l, err := evalResidualBool(x.Left, r)
		if err != nil || !l {
			return false, err
		}
		return evalResidualBool(x.Right, r)
	case algebra.Or:
		l, err := evalResidualBool(x.Left, r)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalResidualBool(x.Right, r)
	case algebra.Not:
		v, err := evalResidualBool(x.Expr, r)
		return !v, err
	case algebra.Bound:
		_, ok := r[x.Var]
		return ok, nil
	default:
		return false, fmt.Errorf("coordinator: residual evaluation: boolean expression %T not supported", e)
	}
}
