package pushdown

import "github.com/chrontext/chrontext/algebra"

// FloorDateTimeToSecondsInterval is the domain function IRI recognized for
// bucket-floor arithmetic (spec §4.5: "ct:FloorDateTimeToSecondsInterval
// (ts, seconds) — floor a timestamp to the nearest multiple of seconds
// epoch-seconds"). Bucket-floor arithmetic is grounded on the teacher's
// epoch-second range composition (datalog/constraints/time_constraints.go's
// ComposeTimeConstraint).
const FloorDateTimeToSecondsInterval = "https://github.com/chrontext#FloorDateTimeToSecondsInterval"

// recognizedFunctions is the set of function IRIs translatable into a
// backend-evaluable VQ expression (spec §4.5: "Domain-specific function
// IRIs recognized"). Built-ins are named with their SPARQL spelling;
// XSD casts with their full datatype IRI.
var recognizedFunctions = map[string]bool{
	FloorDateTimeToSecondsInterval: true,
	"SECONDS":  true,
	"MINUTES":  true,
	"HOURS":    true,
	"DAY":      true,
	"MONTH":    true,
	"YEAR":     true,
	"FLOOR":    true,
	"CEIL":     true,
	"CONCAT":   true,
	"COALESCE": true,
	"IF":       true,
	"IN":       true,
}

func init() {
	for _, xsd := range []string{
		"http://www.w3.org/2001/XMLSchema#integer",
		"http://www.w3.org/2001/XMLSchema#double",
		"http://www.w3.org/2001/XMLSchema#decimal",
		"http://www.w3.org/2001/XMLSchema#dateTime",
	} {
		recognizedFunctions[xsd] = true
	}
}

// TranslateExpr attempts to translate a SPARQL Expression tree into a form
// the virtualized backend can evaluate, per the pushdown rewriter's
// per-node translation rules (spec §4.5). It fails (ok=false) the first
// time it encounters a FunctionCall whose IRI is not in
// recognizedFunctions, or a reference to a static-only construct (Exists /
// NotExists, which never appear inside a pushed VQ expression).
//
// The translated tree is presently identical in shape to the input — VQ
// expressions reuse the algebra.Expression type — but going through
// TranslateExpr keeps the one chokepoint where untranslatable constructs
// are rejected, matching the design note's "result type that distinguishes
// translated from pushdown-fallback".
func TranslateExpr(e algebra.Expression) (algebra.Expression, bool) {
	switch x := e.(type) {
	case algebra.Var, algebra.Lit, algebra.Bound:
		return e, true
	case algebra.Compare:
		left, ok := TranslateExpr(x.Left)
		if !ok {
			return nil, false
		}
		right, ok := TranslateExpr(x.Right)
		if !ok {
			return nil, false
		}
		return algebra.Compare{Op: x.Op, Left: left, Right: right}, true
	case algebra.And:
		left, ok := TranslateExpr(x.Left)
		if !ok {
			return nil, false
		}
		right, ok := TranslateExpr(x.Right)
		if !ok {
			return nil, false
		}
		return algebra.And{Left: left, Right: right}, true
	case algebra.Or:
		left, ok := TranslateExpr(x.Left)
		if !ok {
			return nil, false
		}
		right, ok := TranslateExpr(x.Right)
		if !ok {
			return nil, false
		}
		return algebra.Or{Left: left, Right: right}, true
	case algebra.Not:
		inner, ok := TranslateExpr(x.Expr)
		if !ok {
			return nil, false
		}
		return algebra.Not{Expr: inner}, true
	case algebra.Arith:
		left, ok := TranslateExpr(x.Left)
		if !ok {
			return nil, false
		}
		right, ok := TranslateExpr(x.Right)
		if !ok {
			return nil, false
		}
		return algebra.Arith{Op: x.Op, Left: left, Right: right}, true
	case algebra.If:
		cond, ok := TranslateExpr(x.Cond)
		if !ok {
			return nil, false
		}
		then, ok := TranslateExpr(x.Then)
		if !ok {
			return nil, false
		}
		els, ok := TranslateExpr(x.Else)
		if !ok {
			return nil, false
		}
		return algebra.If{Cond: cond, Then: then, Else: els}, true
	case algebra.In:
		expr, ok := TranslateExpr(x.Expr)
		if !ok {
			return nil, false
		}
		set := make([]algebra.Expression, len(x.Set))
		for i, s := range x.Set {
			translated, ok := TranslateExpr(s)
			if !ok {
				return nil, false
			}
			set[i] = translated
		}
		return algebra.In{Expr: expr, Set: set}, true
	case algebra.Coalesce:
		args := make([]algebra.Expression, len(x.Args))
		for i, a := range x.Args {
			translated, ok := TranslateExpr(a)
			if !ok {
				return nil, false
			}
			args[i] = translated
		}
		return algebra.Coalesce{Args: args}, true
	case algebra.FunctionCall:
		if !recognizedFunctions[x.IRI] {
			return nil, false
		}
		args := make([]algebra.Expression, len(x.Args))
		for i, a := range x.Args {
			translated, ok := TranslateExpr(a)
			if !ok {
				return nil, false
			}
			args[i] = translated
		}
		return algebra.FunctionCall{IRI: x.IRI, Args: args}, true
	case algebra.AggregateExpression:
		inner, ok := TranslateExpr(x.Expr)
		if !ok {
			return nil, false
		}
		return algebra.AggregateExpression{Name: x.Name, Expr: inner, Separator: x.Separator, Distinct: x.Distinct}, true
	default:
		// Exists/NotExists (and any future static-only construct) are
		// never pushable: they recurse over the static plan, not the VQ.
		return nil, false
	}
}
