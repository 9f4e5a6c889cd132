package algebra

// VQNode is the sealed Virtualized Query algebra variant (spec component
// C2, "Virtualized Query algebra"). VQ trees are the pushdown target: the
// splitter (C4) produces a Basic leaf per VQ candidate, and the pushdown
// rewriter (C5) wraps it in Filtered/Grouped/ExpressionAs/Distincted/
// Limited nodes as SPARQL operators are pushed down onto it.
type VQNode interface {
	vqNode()
}

// ColumnMapping maps a relational column name, as produced by the
// virtualized backend, to the SPARQL variable it is bound to.
type ColumnMapping struct {
	Column   string
	Variable string
}

// Basic is the leaf VQ node: one virtualized resource together with the
// concrete identifiers (instance IDs) selected for it, and the column <->
// variable mapping inherited from its template (spec §3, §4.4).
type Basic struct {
	Resource            string
	IDs                 []string
	ColumnMapping       []ColumnMapping
	IdentifierName      string
	GroupingColumnName  string            // "" if the resource is not grouped by a separate column
	IDToGroupingMapping map[string]string // instance ID -> grouping column value, when GroupingColumnName is set
}

func (Basic) vqNode() {}

// Filtered wraps a VQ subtree with a pushed-down FILTER expression.
type Filtered struct {
	Input VQNode
	Expr  Expression
}

func (Filtered) vqNode() {}

// Grouped wraps a VQ subtree with a pushed-down GROUP BY + aggregations.
type Grouped struct {
	Input        VQNode
	By           []string
	Aggregations []AggregateBinding
}

func (Grouped) vqNode() {}

// ExpressionAs wraps a VQ subtree with a pushed-down BIND (SPARQL Extend).
type ExpressionAs struct {
	Input VQNode
	Var   string
	Expr  Expression
}

func (ExpressionAs) vqNode() {}

// InnerJoin wraps two VQ subtrees joined on shared variables. Nothing in
// this module builds one: the splitter emits a single Basic per VQ
// candidate, and MemoryBackend does not execute InnerJoin.
type InnerJoin struct {
	Left, Right VQNode
}

func (InnerJoin) vqNode() {}

// Distincted wraps a VQ subtree with a pushed-down SPARQL DISTINCT,
// deduplicating the subtree's own rows before they ever reach the
// coordinator's join (spec §4.5 row 5). This is an optimization only: the
// coordinator still runs a residual distinct pass after the join, since
// duplicates can be reintroduced by joining several VQs together.
type Distincted struct {
	Input VQNode
}

func (Distincted) vqNode() {}

// Limited wraps a VQ subtree with a pushed-down SPARQL LIMIT, truncating
// the subtree's own rows before dispatch (spec §4.5 row 6). Like
// Distincted, this is an optimization: the coordinator still re-applies
// LIMIT (and OFFSET, which is never pushed — Open Question #1) after the
// join, since the join can change the final row count.
type Limited struct {
	Input VQNode
	Limit int64
}

func (Limited) vqNode() {}

// VQVars returns the set of SPARQL variables a VQ subtree can bind, used by
// the pushdown rewriter to decide whether a SPARQL-level operator's free
// variables are fully covered by a VQ candidate (spec §4.5).
func VQVars(n VQNode) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var walk func(VQNode)
	walk = func(n VQNode) {
		switch x := n.(type) {
		case Basic:
			add(x.IdentifierName)
			for _, cm := range x.ColumnMapping {
				add(cm.Variable)
			}
		case Filtered:
			walk(x.Input)
		case Grouped:
			walk(x.Input)
			for _, by := range x.By {
				add(by)
			}
			for _, agg := range x.Aggregations {
				add(agg.Var)
			}
		case ExpressionAs:
			walk(x.Input)
			add(x.Var)
		case InnerJoin:
			walk(x.Left)
			walk(x.Right)
		case Distincted:
			walk(x.Input)
		case Limited:
			walk(x.Input)
		}
	}
	walk(n)
	return out
}
