package algebra

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/chrontext/chrontext/rdf"
)

// Fingerprint is a deterministic 64-bit digest of a VQ subtree, used as the
// plan-cache key (planstore) and to correlate a BackendError back to the
// VQ subtree that produced it (spec §7). Two structurally equal VQ trees
// always hash to the same Fingerprint; the hash is over the tree shape and
// its concrete IDs, not over Go pointer identity, mirroring the teacher's
// content-addressed datom key scheme (datalog/storage, before its
// badger-specific encoding was dropped — see DESIGN.md).
type Fingerprint uint64

// Fingerprint hashes a VQ subtree into a Fingerprint. Field order within
// each node is written out explicitly (rather than relying on struct
// layout) so the digest is stable across Go versions and unaffected by
// slice order where order is not semantically significant (ID lists are
// sorted before hashing; column mappings are not, since their order is
// significant template output order).
func Hash(n VQNode) Fingerprint {
	h := xxhash.New()
	writeVQNode(h, n)
	return Fingerprint(h.Sum64())
}

// HashNode hashes a full SPARQL algebra tree (the static plan prior to
// splitting, or a whole query root) into a Fingerprint, used by planstore
// as the plan-cache key (spec §4.5's implied "cache query plans to avoid
// re-planning identical queries", generalized from the teacher's
// PlanCache.computeKeyWithOptions string-hash to this module's own sealed
// Node tree).
func HashNode(n Node) Fingerprint {
	h := xxhash.New()
	writeNode(h, n)
	return Fingerprint(h.Sum64())
}

func writeNode(h *xxhash.Digest, n Node) {
	switch x := n.(type) {
	case Bgp:
		h.WriteString("Bgp[")
		for _, p := range x.Patterns {
			h.WriteString(termKey(p.Subject))
			h.WriteString(" ")
			h.WriteString(termKey(p.Predicate))
			h.WriteString(" ")
			h.WriteString(termKey(p.Object))
			h.WriteString(";")
		}
		h.WriteString("]")
	case Path:
		h.WriteString("Path(")
		h.WriteString(termKey(x.Subject))
		h.WriteString(",")
		writePathExpr(h, x.Path)
		h.WriteString(",")
		h.WriteString(termKey(x.Object))
		h.WriteString(")")
	case Project:
		h.WriteString("Project(")
		writeNode(h, x.Input)
		h.WriteString(")[")
		for _, v := range x.Vars {
			h.WriteString(v)
			h.WriteString(",")
		}
		h.WriteString("]")
	case Distinct:
		h.WriteString("Distinct(")
		writeNode(h, x.Input)
		h.WriteString(")")
	case Filter:
		h.WriteString("Filter(")
		writeNode(h, x.Input)
		h.WriteString(")[")
		writeExpr(h, x.Expr)
		h.WriteString("]")
	case Extend:
		h.WriteString("Extend(")
		writeNode(h, x.Input)
		h.WriteString(")[")
		h.WriteString(x.Var)
		h.WriteString("=")
		writeExpr(h, x.Expr)
		h.WriteString("]")
	case Join:
		h.WriteString("Join(")
		writeNode(h, x.Left)
		h.WriteString(",")
		writeNode(h, x.Right)
		h.WriteString(")")
	case LeftJoin:
		h.WriteString("LeftJoin(")
		writeNode(h, x.Left)
		h.WriteString(",")
		writeNode(h, x.Right)
		h.WriteString(")[")
		if x.Expr != nil {
			writeExpr(h, x.Expr)
		}
		h.WriteString("]")
	case Minus:
		h.WriteString("Minus(")
		writeNode(h, x.Left)
		h.WriteString(",")
		writeNode(h, x.Right)
		h.WriteString(")")
	case Union:
		h.WriteString("Union(")
		writeNode(h, x.Left)
		h.WriteString(",")
		writeNode(h, x.Right)
		h.WriteString(")")
	case Group:
		h.WriteString("Group(")
		writeNode(h, x.Input)
		h.WriteString(")by[")
		for _, by := range x.By {
			h.WriteString(by)
			h.WriteString(",")
		}
		h.WriteString("]agg[")
		for _, agg := range x.Aggregations {
			h.WriteString(agg.Var)
			h.WriteString("=")
			h.WriteString(string(agg.Expr.Name))
			h.WriteString("(")
			writeExpr(h, agg.Expr.Expr)
			h.WriteString("),")
		}
		h.WriteString("]")
	case OrderBy:
		h.WriteString("OrderBy(")
		writeNode(h, x.Input)
		h.WriteString(")[")
		for _, c := range x.Conditions {
			h.WriteString(strconv.Itoa(int(c.Direction)))
			h.WriteString(":")
			writeExpr(h, c.Expr)
			h.WriteString(",")
		}
		h.WriteString("]")
	case Slice:
		h.WriteString("Slice(")
		writeNode(h, x.Input)
		h.WriteString(")[")
		h.WriteString(strconv.FormatInt(x.Offset, 10))
		h.WriteString(",")
		if x.Limit != nil {
			h.WriteString(strconv.FormatInt(*x.Limit, 10))
		}
		h.WriteString("]")
	case Values:
		h.WriteString("Values[")
		for _, v := range x.Vars {
			h.WriteString(v)
			h.WriteString(",")
		}
		h.WriteString("](")
		for _, row := range x.Rows {
			for _, t := range row {
				if t == nil {
					h.WriteString("_")
				} else {
					h.WriteString(termKey(t))
				}
				h.WriteString(",")
			}
			h.WriteString(";")
		}
		h.WriteString(")")
	case Service:
		h.WriteString("Service(")
		h.WriteString(x.Endpoint)
		h.WriteString(",")
		h.WriteString(strconv.FormatBool(x.Silent))
		h.WriteString(")[")
		writeNode(h, x.Input)
		h.WriteString("]")
	case VirtualJoin:
		h.WriteString("VirtualJoin(")
		h.WriteString(strconv.Itoa(x.VQID))
		h.WriteString(")[")
		shared := append([]string(nil), x.SharedVars...)
		sort.Strings(shared)
		for _, v := range shared {
			h.WriteString(v)
			h.WriteString(",")
		}
		h.WriteString("]")
	default:
		h.WriteString(fmt.Sprintf("unknown(%T)", n))
	}
}

func writePathExpr(h *xxhash.Digest, p PathExpr) {
	switch x := p.(type) {
	case PathIRI:
		h.WriteString("IRI(")
		h.WriteString(x.IRI)
		h.WriteString(")")
	case PathInverse:
		h.WriteString("Inverse(")
		writePathExpr(h, x.Path)
		h.WriteString(")")
	case PathSeq:
		h.WriteString("Seq[")
		for _, s := range x.Steps {
			writePathExpr(h, s)
			h.WriteString(",")
		}
		h.WriteString("]")
	case PathAlt:
		h.WriteString("Alt[")
		for _, a := range x.Alternatives {
			writePathExpr(h, a)
			h.WriteString(",")
		}
		h.WriteString("]")
	case PathZeroOrMore:
		h.WriteString("ZeroOrMore(")
		writePathExpr(h, x.Path)
		h.WriteString(")")
	case PathOneOrMore:
		h.WriteString("OneOrMore(")
		writePathExpr(h, x.Path)
		h.WriteString(")")
	default:
		h.WriteString(fmt.Sprintf("unknown(%T)", p))
	}
}

func writeVQNode(h *xxhash.Digest, n VQNode) {
	switch x := n.(type) {
	case Basic:
		h.WriteString("Basic|")
		h.WriteString(x.Resource)
		h.WriteString("|ids:")
		ids := append([]string(nil), x.IDs...)
		sort.Strings(ids)
		for _, id := range ids {
			h.WriteString(id)
			h.WriteString(",")
		}
		h.WriteString("|cols:")
		for _, cm := range x.ColumnMapping {
			h.WriteString(cm.Column)
			h.WriteString("=")
			h.WriteString(cm.Variable)
			h.WriteString(",")
		}
		h.WriteString("|ident:")
		h.WriteString(x.IdentifierName)
		h.WriteString("|group:")
		h.WriteString(x.GroupingColumnName)
	case Filtered:
		h.WriteString("Filtered(")
		writeVQNode(h, x.Input)
		h.WriteString(")[")
		writeExpr(h, x.Expr)
		h.WriteString("]")
	case Grouped:
		h.WriteString("Grouped(")
		writeVQNode(h, x.Input)
		h.WriteString(")by[")
		by := append([]string(nil), x.By...)
		sort.Strings(by)
		for _, b := range by {
			h.WriteString(b)
			h.WriteString(",")
		}
		h.WriteString("]agg[")
		for _, a := range x.Aggregations {
			h.WriteString(a.Var)
			h.WriteString("=")
			h.WriteString(string(a.Expr.Name))
			h.WriteString("(")
			writeExpr(h, a.Expr.Expr)
			h.WriteString("),")
		}
		h.WriteString("]")
	case ExpressionAs:
		h.WriteString("ExpressionAs(")
		writeVQNode(h, x.Input)
		h.WriteString(")[")
		h.WriteString(x.Var)
		h.WriteString("=")
		writeExpr(h, x.Expr)
		h.WriteString("]")
	case InnerJoin:
		h.WriteString("InnerJoin(")
		writeVQNode(h, x.Left)
		h.WriteString(",")
		writeVQNode(h, x.Right)
		h.WriteString(")")
	case Distincted:
		h.WriteString("Distincted(")
		writeVQNode(h, x.Input)
		h.WriteString(")")
	case Limited:
		h.WriteString("Limited(")
		writeVQNode(h, x.Input)
		h.WriteString(")[")
		h.WriteString(strconv.FormatInt(x.Limit, 10))
		h.WriteString("]")
	default:
		h.WriteString(fmt.Sprintf("unknown(%T)", n))
	}
}

func writeExpr(h *xxhash.Digest, e Expression) {
	switch x := e.(type) {
	case Var:
		h.WriteString("Var(")
		h.WriteString(x.Name)
		h.WriteString(")")
	case Lit:
		h.WriteString("Lit(")
		h.WriteString(termKey(x.Value))
		h.WriteString(")")
	case Bound:
		h.WriteString("Bound(")
		h.WriteString(x.Var)
		h.WriteString(")")
	case Compare:
		h.WriteString("Compare(")
		h.WriteString(strconv.Itoa(int(x.Op)))
		h.WriteString(",")
		writeExpr(h, x.Left)
		h.WriteString(",")
		writeExpr(h, x.Right)
		h.WriteString(")")
	case And:
		h.WriteString("And(")
		writeExpr(h, x.Left)
		h.WriteString(",")
		writeExpr(h, x.Right)
		h.WriteString(")")
	case Or:
		h.WriteString("Or(")
		writeExpr(h, x.Left)
		h.WriteString(",")
		writeExpr(h, x.Right)
		h.WriteString(")")
	case Not:
		h.WriteString("Not(")
		writeExpr(h, x.Expr)
		h.WriteString(")")
	case Arith:
		h.WriteString("Arith(")
		h.WriteString(strconv.Itoa(int(x.Op)))
		h.WriteString(",")
		writeExpr(h, x.Left)
		h.WriteString(",")
		writeExpr(h, x.Right)
		h.WriteString(")")
	case If:
		h.WriteString("If(")
		writeExpr(h, x.Cond)
		h.WriteString(",")
		writeExpr(h, x.Then)
		h.WriteString(",")
		writeExpr(h, x.Else)
		h.WriteString(")")
	case In:
		h.WriteString("In(")
		writeExpr(h, x.Expr)
		h.WriteString(",[")
		for _, s := range x.Set {
			writeExpr(h, s)
			h.WriteString(",")
		}
		h.WriteString("])")
	case Coalesce:
		h.WriteString("Coalesce([")
		for _, a := range x.Args {
			writeExpr(h, a)
			h.WriteString(",")
		}
		h.WriteString("])")
	case FunctionCall:
		h.WriteString("FunctionCall(")
		h.WriteString(x.IRI)
		h.WriteString(",[")
		for _, a := range x.Args {
			writeExpr(h, a)
			h.WriteString(",")
		}
		h.WriteString("])")
	case AggregateExpression:
		h.WriteString("Aggregate(")
		h.WriteString(string(x.Name))
		h.WriteString(",")
		writeExpr(h, x.Expr)
		h.WriteString(",")
		h.WriteString(x.Separator)
		h.WriteString(",")
		h.WriteString(strconv.FormatBool(x.Distinct))
		h.WriteString(")")
	case Exists:
		h.WriteString("Exists(")
		writeNode(h, x.Pattern)
		h.WriteString(")")
	case NotExists:
		h.WriteString("NotExists(")
		writeNode(h, x.Pattern)
		h.WriteString(")")
	default:
		h.WriteString(fmt.Sprintf("unknown(%T)", e))
	}
}

func termKey(t rdf.Term) string {
	switch x := t.(type) {
	case rdf.NamedNode:
		return "iri:" + x.IRI
	case rdf.BlankNode:
		return "bnode:" + x.ID
	case rdf.Literal:
		return "lit:" + x.Lexical + "^^" + x.Datatype + "@" + x.Lang
	case rdf.Variable:
		return "var:" + x.Name
	default:
		return fmt.Sprintf("unknown:%T", t)
	}
}
