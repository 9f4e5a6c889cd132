// Package algebra implements the SPARQL algebra tree and the parallel
// Virtualized Query (VQ) algebra (spec component C2). Both trees are
// immutable: every rewrite returns a new tree rather than mutating one in
// place, following the teacher's sealed-interface, arena-free tree idiom
// (datalog/query/clause.go's Clause/Pattern/Query split).
package algebra

import "github.com/chrontext/chrontext/rdf"

// Node is the sealed SPARQL algebra node variant. Only types in this
// package implement it, sealing the interface so type switches over Node
// can be exhaustive at compile time (design note: "replace [dynamic string
// tag dispatch] with a sealed sum type").
type Node interface {
	algebraNode()
}

// TriplePattern is one [subject predicate object] pattern inside a Bgp.
// Each position is either a constant rdf.Term (NamedNode/Literal/BlankNode)
// or an rdf.Variable.
type TriplePattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
}

// Vars returns the distinct variables bound by this pattern, in
// subject/predicate/object order — mirrors the teacher's
// DataPattern.Symbols() (datalog/query/types.go).
func (p TriplePattern) Vars() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(t rdf.Term) {
		if v, ok := t.(rdf.Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v.Name)
		}
	}
	add(p.Subject)
	add(p.Predicate)
	add(p.Object)
	return out
}

// Bgp is a basic graph pattern: a conjunction of triple patterns.
type Bgp struct {
	Patterns []TriplePattern
}

func (Bgp) algebraNode() {}

// PathExpr is the sealed property-path expression variant used by Path.
type PathExpr interface {
	pathNode()
}

// PathIRI is a single predicate IRI step.
type PathIRI struct{ IRI string }

func (PathIRI) pathNode() {}

// PathInverse reverses a path: ^p.
type PathInverse struct{ Path PathExpr }

func (PathInverse) pathNode() {}

// PathSeq is a concatenation of path steps: p1/p2/p3.
type PathSeq struct{ Steps []PathExpr }

func (PathSeq) pathNode() {}

// PathAlt is an alternation: p1|p2.
type PathAlt struct{ Alternatives []PathExpr }

func (PathAlt) pathNode() {}

// PathZeroOrMore is p* — never virtualized (spec §4.4 step 6).
type PathZeroOrMore struct{ Path PathExpr }

func (PathZeroOrMore) pathNode() {}

// PathOneOrMore is p+ — never virtualized (spec §4.4 step 6).
type PathOneOrMore struct{ Path PathExpr }

func (PathOneOrMore) pathNode() {}

// Path is a property-path triple pattern [subject path object].
type Path struct {
	Subject rdf.Term
	Path    PathExpr
	Object  rdf.Term
}

func (Path) algebraNode() {}

// Project restricts the output columns to Vars, in order.
type Project struct {
	Input Node
	Vars  []string
}

func (Project) algebraNode() {}

// Distinct removes duplicate solution rows.
type Distinct struct {
	Input Node
}

func (Distinct) algebraNode() {}

// Filter keeps only rows for which Expr evaluates truthy.
type Filter struct {
	Input Node
	Expr  Expression
}

func (Filter) algebraNode() {}

// Extend binds the result of Expr to Var (SPARQL BIND).
type Extend struct {
	Input Node
	Var   string
	Expr  Expression
}

func (Extend) algebraNode() {}

// Join is an inner join of Left and Right on shared variables.
type Join struct {
	Left, Right Node
}

func (Join) algebraNode() {}

// LeftJoin is a SPARQL OPTIONAL: all rows of Left, extended with Right's
// columns where Expr (if present) holds and Right matches.
type LeftJoin struct {
	Left, Right Node
	Expr        Expression // nil if there is no join-filter
}

func (LeftJoin) algebraNode() {}

// Minus removes from Left every row compatible with a row of Right.
type Minus struct {
	Left, Right Node
}

func (Minus) algebraNode() {}

// Union yields the concatenation of Left's and Right's rows.
type Union struct {
	Left, Right Node
}

func (Union) algebraNode() {}

// AggregateBinding binds the result of an AggregateExpression to Var.
type AggregateBinding struct {
	Var  string
	Expr AggregateExpression
}

// Group partitions rows by the values of By and computes Aggregations per
// group.
type Group struct {
	Input        Node
	By           []string
	Aggregations []AggregateBinding
}

func (Group) algebraNode() {}

// OrderDirection is ascending or descending order for one OrderBy condition.
type OrderDirection int

const (
	Ascending OrderDirection = iota
	Descending
)

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr      Expression
	Direction OrderDirection
}

// OrderBy sorts Input's rows by Conditions, in priority order.
type OrderBy struct {
	Input      Node
	Conditions []OrderCondition
}

func (OrderBy) algebraNode() {}

// Slice applies OFFSET/LIMIT. A nil Limit means unbounded.
type Slice struct {
	Input  Node
	Offset int64
	Limit  *int64
}

func (Slice) algebraNode() {}

// Values is an inline SPARQL VALUES clause.
type Values struct {
	Vars []string
	Rows [][]rdf.Term // nil entry means unbound in that row
}

func (Values) algebraNode() {}

// Service is a federated SPARQL SERVICE clause. Chrontext never plans
// across a SERVICE boundary itself (spec §1: "not a general-purpose SPARQL
// endpoint") — it is kept only so the static plan can carry it through to
// the RDF store, which is the component actually responsible for
// evaluating it.
type Service struct {
	Endpoint string
	Silent   bool
	Input    Node
}

func (Service) algebraNode() {}

// VirtualJoin is the placeholder the splitter (C4) substitutes for a
// virtualized subgraph in the static plan (spec §4.4 step 4): "Static plan
// is the original algebra with each virtualized subgraph replaced by a
// placeholder VirtualJoin(vq_id, shared_vars)". The coordinator (C7)
// resolves VQID against its materialized VQ results and joins them back in
// on SharedVars.
type VirtualJoin struct {
	VQID       int
	SharedVars []string
}

func (VirtualJoin) algebraNode() {}
