// Package dtsugar implements the DT Sugar Desugarer (spec component C6):
// it expands the domain-specific `DT { ... }` block into the equivalent
// algebra the rest of the pipeline already knows how to plan — implicit
// triple patterns, a clamping time-range Filter, and an optional bucketed
// Group-by/aggregation. Grounded on the teacher's epoch-second bucket
// arithmetic (datalog/constraints/time_constraints.go) and the aggregate
// shapes from datalog/query/aggregate.go for the `<ts>_value_<agg>` output
// naming.
package dtsugar

import (
	"fmt"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// Predicate IRIs used by the implicit triples a DT block expands to (spec
// §4.6). Declared here rather than imported from a shared vocabulary
// package since dtsugar is the only component that hard-codes them; every
// other component learns virtual predicates from the resource registry.
const (
	HasDataPoint = "https://github.com/chrontext#hasDataPoint"
	HasTimestamp = "https://github.com/chrontext#hasTimestamp"
	HasValue     = "https://github.com/chrontext#hasValue"
)

// Block is the parsed form of a `DT { ... }` clause (spec §6.5).
type Block struct {
	TimestampVar   string       // bind variable for the timestamp; "" uses a fresh internal variable
	TimeseriesVars []string     // explicit `timeseries = ?a, ?b`; empty means "infer from scope"
	From, To       *rdf.Literal // optional xsd:dateTime bounds
	Interval       string       // duration literal, e.g. "5s", "10m", "1h"; "" means no bucketing
	Aggregations   []string     // one or more of {avg,min,max,sum,count,first,last}; empty means no aggregation
}

// AmbiguousDTBinding is raised when `timeseries` is omitted and the
// enclosing scope contains no candidate timeseries variable or more than
// one (spec §4.6: "failure with AmbiguousDTBinding if multiple").
type AmbiguousDTBinding struct {
	Candidates []string
}

func (e *AmbiguousDTBinding) Error() string {
	return fmt.Sprintf("ambiguous DT binding: %d candidate timeseries variables in scope, need exactly one or an explicit `timeseries =`", len(e.Candidates))
}

// aggregateFn maps a DT sugar aggregation name to its SPARQL aggregate.
var aggregateFn = map[string]algebra.AggregateName{
	"avg":   algebra.AggAvg,
	"min":   algebra.AggMin,
	"max":   algebra.AggMax,
	"sum":   algebra.AggSum,
	"count": algebra.AggCount,
	"first": algebra.AggSample, // no FIRST/LAST primitive in the algebra: first and last both map to SAMPLE, with no ordering by ?t, so they pick the same value
	"last":  algebra.AggSample,
}

// Desugar expands one DT Block into an algebra.Node, rooted at a Bgp of
// the implicit triples, wrapped with the clamping Filter and — when
// Interval/Aggregations are set — a bucketed Group (spec §4.6). scopeVars
// lists the timeseries-typed variables already bound earlier in the query,
// used to resolve an omitted `timeseries =`.
func Desugar(b Block, scopeVars []string, freshVar func() string) (algebra.Node, error) {
	series := b.TimeseriesVars
	if len(series) == 0 {
		if len(scopeVars) != 1 {
			return nil, &AmbiguousDTBinding{Candidates: scopeVars}
		}
		series = scopeVars
	}

	var branches []algebra.Node
	for _, ts := range series {
		branch, err := desugarOne(b, ts, freshVar)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	result := branches[0]
	for _, b := range branches[1:] {
		result = algebra.Union{Left: result, Right: b}
	}
	return result, nil
}

func desugarOne(b Block, tsVar string, freshVar func() string) (algebra.Node, error) {
	tVar := b.TimestampVar
	if tVar == "" {
		tVar = freshVar()
	}
	dpVar := freshVar()
	vVar := freshVar()

	bgp := algebra.Bgp{Patterns: []algebra.TriplePattern{
		{
			Subject:   rdf.Variable{Name: tsVar},
			Predicate: rdf.NamedNode{IRI: HasDataPoint},
			Object:    rdf.Variable{Name: dpVar},
		},
		{
			Subject:   rdf.Variable{Name: dpVar},
			Predicate: rdf.NamedNode{IRI: HasTimestamp},
			Object:    rdf.Variable{Name: tVar},
		},
		{
			Subject:   rdf.Variable{Name: dpVar},
			Predicate: rdf.NamedNode{IRI: HasValue},
			Object:    rdf.Variable{Name: vVar},
		},
	}}

	var node algebra.Node = bgp
	if clamp := clampFilter(tVar, b.From, b.To); clamp != nil {
		node = algebra.Filter{Input: node, Expr: clamp}
	}

	if b.Interval == "" || len(b.Aggregations) == 0 {
		return node, nil
	}

	seconds, err := intervalSeconds(b.Interval)
	if err != nil {
		return nil, err
	}

	bucketVar := freshVar()
	floorExpr := algebra.FunctionCall{
		IRI: "https://github.com/chrontext#FloorDateTimeToSecondsInterval",
		Args: []algebra.Expression{
			algebra.Var{Name: tVar},
			algebra.Lit{Value: rdf.Literal{Lexical: fmt.Sprintf("%d", seconds), Datatype: rdf.XSDInteger}},
		},
	}
	node = algebra.Extend{Input: node, Var: bucketVar, Expr: floorExpr}

	var aggs []algebra.AggregateBinding
	for _, name := range b.Aggregations {
		fn, ok := aggregateFn[name]
		if !ok {
			return nil, fmt.Errorf("dtsugar: unrecognized aggregation %q", name)
		}
		outVar := tsVar + "_value_" + name
		aggs = append(aggs, algebra.AggregateBinding{
			Var:  outVar,
			Expr: algebra.AggregateExpression{Name: fn, Expr: algebra.Var{Name: vVar}},
		})
	}

	return algebra.Group{Input: node, By: []string{bucketVar}, Aggregations: aggs}, nil
}

// clampFilter builds the Filter clamping tVar into [From,To] (spec §4.6:
// "a Filter clamping ?t to [from,to]"). Returns nil if neither bound is set.
func clampFilter(tVar string, from, to *rdf.Literal) algebra.Expression {
	var expr algebra.Expression
	if from != nil {
		expr = algebra.Compare{Op: algebra.OpGreaterOrEqual, Left: algebra.Var{Name: tVar}, Right: algebra.Lit{Value: *from}}
	}
	if to != nil {
		upper := algebra.Compare{Op: algebra.OpLessOrEqual, Left: algebra.Var{Name: tVar}, Right: algebra.Lit{Value: *to}}
		if expr == nil {
			expr = upper
		} else {
			expr = algebra.And{Left: expr, Right: upper}
		}
	}
	return expr
}

// intervalSeconds parses a duration literal like "5s", "10m", "1h" into a
// whole number of seconds (spec §6.5: `interval` -> duration).
func intervalSeconds(interval string) (int64, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("dtsugar: malformed interval %q", interval)
	}
	unit := interval[len(interval)-1]
	var multiplier int64
	switch unit {
	case 's':
		multiplier = 1
	case 'm':
		multiplier = 60
	case 'h':
		multiplier = 3600
	default:
		return 0, fmt.Errorf("dtsugar: unrecognized interval unit in %q", interval)
	}
	var n int64
	for _, c := range interval[:len(interval)-1] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("dtsugar: malformed interval %q", interval)
		}
		n = n*10 + int64(c-'0')
	}
	return n * multiplier, nil
}
