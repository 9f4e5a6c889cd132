package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// MemoryStore is an in-memory RDFStore reference implementation, used only
// by this module's own tests (spec §1 lists the real RDF store as an
// external collaborator). Grounded on the teacher's in-memory indexed
// pattern matcher (datalog/executor/indexed_memory_matcher.go), reduced to
// a flat triple slice with nested-loop joins since test fixtures are small.
type MemoryStore struct {
	Triples []Triple
}

// Triple is one constant RDF triple held by MemoryStore.
type Triple struct {
	Subject, Predicate, Object rdf.Term
}

// NewMemoryStore builds a MemoryStore over a fixed triple set.
func NewMemoryStore(triples []Triple) *MemoryStore {
	return &MemoryStore{Triples: triples}
}

// binding is one partial solution mapping: variable name -> bound term.
type binding map[string]rdf.Term

func (b binding) clone() binding {
	out := make(binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Select implements RDFStore by evaluating the given algebra subset
// in-memory (spec §6.3). Unsupported node types return an error rather
// than silently misinterpreting the query.
func (m *MemoryStore) Select(ctx context.Context, query algebra.Node, selectVars []string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bindings, err := m.eval(ctx, query)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(bindings))
	for _, b := range bindings {
		row := make(Row, len(selectVars))
		for _, v := range selectVars {
			if term, ok := b[v]; ok {
				row[v] = term
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MemoryStore) eval(ctx context.Context, n algebra.Node) ([]binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch x := n.(type) {
	case algebra.Bgp:
		return m.evalBgp(x.Patterns)

	case algebra.VirtualJoin:
		// Spec §4.7 step 3: the static execution "returns a solution
		// mapping that includes all static variables and unbound
		// placeholders for the VirtualJoin positions" — one empty
		// binding, contributing no columns of its own.
		return []binding{{}}, nil

	case algebra.Project:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		out := make([]binding, len(inner))
		for i, b := range inner {
			proj := make(binding)
			for _, v := range x.Vars {
				if t, ok := b[v]; ok {
					proj[v] = t
				}
			}
			out[i] = proj
		}
		return out, nil

	case algebra.Distinct:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return dedupe(inner), nil

	case algebra.Filter:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		var out []binding
		for _, b := range inner {
			ok, err := evalBool(x.Expr, b)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, b)
			}
		}
		return out, nil

	case algebra.Extend:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		out := make([]binding, len(inner))
		for i, b := range inner {
			v, err := evalExpr(x.Expr, b)
			if err != nil {
				return nil, err
			}
			nb := b.clone()
			nb[x.Var] = v
			out[i] = nb
		}
		return out, nil

	case algebra.Join:
		left, err := m.eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := m.eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		return joinBindings(left, right), nil

	case algebra.LeftJoin:
		left, err := m.eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := m.eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		var out []binding
		for _, l := range left {
			matched := false
			for _, r := range right {
				if compatible(l, r) {
					merged := mergeBindings(l, r)
					if x.Expr != nil {
						ok, err := evalBool(x.Expr, merged)
						if err != nil {
							return nil, err
						}
						if !ok {
							continue
						}
					}
					out = append(out, merged)
					matched = true
				}
			}
			if !matched {
				out = append(out, l)
			}
		}
		return out, nil

	case algebra.Union:
		left, err := m.eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := m.eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case algebra.Minus:
		left, err := m.eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := m.eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		var out []binding
		for _, l := range left {
			excluded := false
			for _, r := range right {
				if compatible(l, r) {
					excluded = true
					break
				}
			}
			if !excluded {
				out = append(out, l)
			}
		}
		return out, nil

	case algebra.OrderBy:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		out := make([]binding, len(inner))
		copy(out, inner)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			less, err := orderLess(x.Conditions, out[i], out[j])
			if err != nil {
				sortErr = err
			}
			return less
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return out, nil

	case algebra.Slice:
		inner, err := m.eval(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		start := int(x.Offset)
		if start > len(inner) {
			start = len(inner)
		}
		inner = inner[start:]
		if x.Limit != nil && int64(len(inner)) > *x.Limit {
			inner = inner[:*x.Limit]
		}
		return inner, nil

	case algebra.Values:
		var out []binding
		for _, row := range x.Rows {
			b := make(binding, len(x.Vars))
			for i, v := range x.Vars {
				if i < len(row) && row[i] != nil {
					b[v] = row[i]
				}
			}
			out = append(out, b)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("backend: MemoryStore does not support algebra node %T", n)
	}
}

func (m *MemoryStore) evalBgp(patterns []algebra.TriplePattern) ([]binding, error) {
	bindings := []binding{{}}
	for _, p := range patterns {
		var next []binding
		for _, b := range bindings {
			for _, tr := range m.Triples {
				candidate := b.clone()
				if matchTerm(p.Subject, tr.Subject, candidate) &&
					matchTerm(p.Predicate, tr.Predicate, candidate) &&
					matchTerm(p.Object, tr.Object, candidate) {
					next = append(next, candidate)
				}
			}
		}
		bindings = next
		if len(bindings) == 0 {
			return nil, nil
		}
	}
	return bindings, nil
}

func matchTerm(pattern, actual rdf.Term, b binding) bool {
	v, isVar := pattern.(rdf.Variable)
	if !isVar {
		return rdf.Equal(pattern, actual)
	}
	if bound, ok := b[v.Name]; ok {
		return rdf.Equal(bound, actual)
	}
	b[v.Name] = actual
	return true
}

func compatible(a, b binding) bool {
	for k, v := range a {
		if bv, ok := b[k]; ok && !rdf.Equal(v, bv) {
			return false
		}
	}
	return true
}

func mergeBindings(a, b binding) binding {
	out := a.clone()
	for k, v := range b {
		out[k] = v
	}
	return out
}

func joinBindings(left, right []binding) []binding {
	var out []binding
	for _, l := range left {
		for _, r := range right {
			if compatible(l, r) {
				out = append(out, mergeBindings(l, r))
			}
		}
	}
	return out
}

func dedupe(bindings []binding) []binding {
	seen := make(map[string]bool)
	var out []binding
	for _, b := range bindings {
		key := bindingKey(b)
		if !seen[key] {
			seen[key] = true
			out = append(out, b)
		}
	}
	return out
}

func bindingKey(b binding) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + b[k].String() + ";"
	}
	return key
}

// evalExpr evaluates an algebra.Expression to an rdf.Term against a
// binding. Only Var and Lit are supported here (comparisons and logical
// operators are evaluated by evalBool); arithmetic, function calls and
// every other expression return an error.
func evalExpr(e algebra.Expression, b binding) (rdf.Term, error) {
	switch x := e.(type) {
	case algebra.Var:
		t, ok := b[x.Name]
		if !ok {
			return nil, fmt.Errorf("backend: variable %q is unbound", x.Name)
		}
		return t, nil
	case algebra.Lit:
		return x.Value, nil
	default:
		return nil, fmt.Errorf("backend: expression %T not supported by MemoryStore", e)
	}
}

// evalBool evaluates a boolean-valued expression (Filter condition)
// against a binding.
func evalBool(e algebra.Expression, b binding) (bool, error) {
	switch x := e.(type) {
	case algebra.Compare:
		leftLit, err := literalOf(x.Left, b)
		if err != nil {
			return false, err
		}
		rightLit, err := literalOf(x.Right, b)
		if err != nil {
			return false, err
		}
		leftNative, err := rdf.ToNative(leftLit)
		if err != nil {
			return false, err
		}
		rightNative, err := rdf.ToNative(rightLit)
		if err != nil {
			return false, err
		}
		cmp := rdf.Compare(leftNative, rightNative)
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
		return false, fmt.Errorf("backend: unknown comparison operator %v", x.Op)
	case algebra.And:
		l, err := evalBool(x.Left, b)
		if err != nil || !l {
			return false, err
		}
		return evalBool(x.Right, b)
	case algebra.Or:
		l, err := evalBool(x.Left, b)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalBool(x.Right, b)
	case algebra.Not:
		v, err := evalBool(x.Expr, b)
		return !v, err
	case algebra.Bound:
		_, ok := b[x.Var]
		return ok, nil
	default:
		return false, fmt.Errorf("backend: boolean expression %T not supported by MemoryStore", e)
	}
}

// orderLess evaluates an ORDER BY condition list against two bindings,
// falling through to the next condition on a tie, mirroring SPARQL's
// lexicographic multi-key sort.
func orderLess(conditions []algebra.OrderCondition, a, b binding) (bool, error) {
	for _, cond := range conditions {
		left, err := evalExpr(cond.Expr, a)
		if err != nil {
			return false, err
		}
		right, err := evalExpr(cond.Expr, b)
		if err != nil {
			return false, err
		}
		cmp := rdf.Compare(termNative(left), termNative(right))
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

// termNative unwraps an rdf.Term into the native Go scalar rdf.Compare
// operates on.
func termNative(t rdf.Term) rdf.Native {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return t.String()
	}
	native, err := rdf.ToNative(lit)
	if err != nil {
		return lit.Lexical
	}
	return native
}

func literalOf(e algebra.Expression, b binding) (rdf.Literal, error) {
	t, err := evalExpr(e, b)
	if err != nil {
		return rdf.Literal{}, err
	}
	lit, ok := t.(rdf.Literal)
	if !ok {
		return rdf.Literal{}, fmt.Errorf("backend: expected a literal, got %T", t)
	}
	return lit, nil
}
