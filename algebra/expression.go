package algebra

import "github.com/chrontext/chrontext/rdf"

// Expression is the sealed SPARQL expression variant (spec §3). Grounded on
// the teacher's Term/Function/Comparison split (datalog/query/predicate.go,
// function.go) but expressed as one sealed tree instead of separate
// Predicate/Function interfaces, since SPARQL expressions are used
// interchangeably as filters, BIND right-hand sides and projection
// expressions.
type Expression interface {
	expressionNode()
}

// Var references a bound variable.
type Var struct{ Name string }

func (Var) expressionNode() {}

// Lit is a literal constant.
type Lit struct{ Value rdf.Term }

func (Lit) expressionNode() {}

// Bound tests whether a variable is bound (SPARQL BOUND()).
type Bound struct{ Var string }

func (Bound) expressionNode() {}

// CompareOp is a comparison operator.
type CompareOp int

const (
	OpGreater CompareOp = iota
	OpLess
	OpGreaterOrEqual
	OpLessOrEqual
	OpEqual
	OpNotEqual
)

// Compare is a binary comparison expression.
type Compare struct {
	Op          CompareOp
	Left, Right Expression
}

func (Compare) expressionNode() {}

// And is a logical conjunction of two expressions.
type And struct{ Left, Right Expression }

func (And) expressionNode() {}

// Or is a logical disjunction of two expressions.
type Or struct{ Left, Right Expression }

func (Or) expressionNode() {}

// Not is a logical negation.
type Not struct{ Expr Expression }

func (Not) expressionNode() {}

// ArithOp is an arithmetic operator.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSubtract
	ArithMultiply
	ArithDivide
)

// Arith is a binary arithmetic expression.
type Arith struct {
	Op          ArithOp
	Left, Right Expression
}

func (Arith) expressionNode() {}

// If is a conditional expression: IF(Cond, Then, Else).
type If struct {
	Cond, Then, Else Expression
}

func (If) expressionNode() {}

// In tests membership: Expr IN (Set...).
type In struct {
	Expr Expression
	Set  []Expression
}

func (In) expressionNode() {}

// Coalesce returns the first bound expression in Args.
type Coalesce struct{ Args []Expression }

func (Coalesce) expressionNode() {}

// FunctionCall invokes a named function (an XSD cast, a built-in like
// FLOOR/CONCAT/SECONDS, or a domain function like
// ct:FloorDateTimeToSecondsInterval) — spec §4.5.
type FunctionCall struct {
	IRI  string
	Args []Expression
}

func (FunctionCall) expressionNode() {}

// AggregateName is one of the SPARQL aggregate functions (spec §3).
type AggregateName string

const (
	AggMin         AggregateName = "MIN"
	AggMax         AggregateName = "MAX"
	AggAvg         AggregateName = "AVG"
	AggSum         AggregateName = "SUM"
	AggCount       AggregateName = "COUNT"
	AggGroupConcat AggregateName = "GROUP_CONCAT"
	AggSample      AggregateName = "SAMPLE"
)

// AggregateExpression is a SPARQL aggregate, used only inside Group
// bindings (spec §3).
type AggregateExpression struct {
	Name      AggregateName
	Expr      Expression
	Separator string // GROUP_CONCAT only
	Distinct  bool
}

func (AggregateExpression) expressionNode() {}

// Exists is a FILTER EXISTS { pattern } subexpression.
type Exists struct{ Pattern Node }

func (Exists) expressionNode() {}

// NotExists is a FILTER NOT EXISTS { pattern } subexpression.
type NotExists struct{ Pattern Node }

func (NotExists) expressionNode() {}

// Vars returns the free variables referenced directly by an expression
// (not descending into Exists/NotExists subpatterns, which have their own
// scope). Used by the pushdown rewriter to check "uses only VQ-output
// variables" (spec §4.5).
func Vars(e Expression) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Expression)
	walk = func(e Expression) {
		switch x := e.(type) {
		case Var:
			if !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x.Name)
			}
		case Lit:
		case Bound:
			if !seen[x.Var] {
				seen[x.Var] = true
				out = append(out, x.Var)
			}
		case Compare:
			walk(x.Left)
			walk(x.Right)
		case And:
			walk(x.Left)
			walk(x.Right)
		case Or:
			walk(x.Left)
			walk(x.Right)
		case Not:
			walk(x.Expr)
		case Arith:
			walk(x.Left)
			walk(x.Right)
		case If:
			walk(x.Cond)
			walk(x.Then)
			walk(x.Else)
		case In:
			walk(x.Expr)
			for _, s := range x.Set {
				walk(s)
			}
		case Coalesce:
			for _, a := range x.Args {
				walk(a)
			}
		case FunctionCall:
			for _, a := range x.Args {
				walk(a)
			}
		case AggregateExpression:
			walk(x.Expr)
		}
	}
	walk(e)
	return out
}
