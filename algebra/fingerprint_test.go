package algebra

import (
	"testing"

	"github.com/chrontext/chrontext/rdf"
)

func TestHashIsStableAndOrderInsensitiveForIDs(t *testing.T) {
	a := Basic{
		Resource:       "temperature",
		IDs:            []string{"b", "a"},
		IdentifierName: "s",
		ColumnMapping:  []ColumnMapping{{Column: "value", Variable: "v"}},
	}
	b := Basic{
		Resource:       "temperature",
		IDs:            []string{"a", "b"},
		IdentifierName: "s",
		ColumnMapping:  []ColumnMapping{{Column: "value", Variable: "v"}},
	}
	if Hash(a) != Hash(b) {
		t.Fatal("Hash should be insensitive to IDs slice order (sorted before hashing)")
	}

	c := Basic{
		Resource:       "temperature",
		IDs:            []string{"a", "b"},
		IdentifierName: "s",
		ColumnMapping:  []ColumnMapping{{Column: "timestamp", Variable: "t"}},
	}
	if Hash(a) == Hash(c) {
		t.Fatal("Hash should differ when ColumnMapping differs")
	}
}

func TestHashDistinguishesFilterExpression(t *testing.T) {
	base := Basic{Resource: "temperature", IdentifierName: "s"}
	f1 := Filtered{Input: base, Expr: Compare{Op: OpGreater, Left: Var{Name: "v"}, Right: Lit{Value: rdf.Literal{Lexical: "10", Datatype: rdf.XSDDouble}}}}
	f2 := Filtered{Input: base, Expr: Compare{Op: OpLess, Left: Var{Name: "v"}, Right: Lit{Value: rdf.Literal{Lexical: "10", Datatype: rdf.XSDDouble}}}}
	if Hash(f1) == Hash(f2) {
		t.Fatal("Hash should distinguish different comparison operators")
	}
}

func TestHashNodeStableForEquivalentTrees(t *testing.T) {
	build := func() Node {
		bgp := Bgp{Patterns: []TriplePattern{
			{Subject: rdf.Variable{Name: "s"}, Predicate: rdf.NamedNode{IRI: "ex:p"}, Object: rdf.Variable{Name: "o"}},
		}}
		return Project{Input: Filter{Input: bgp, Expr: Compare{Op: OpGreater, Left: Var{Name: "o"}, Right: Lit{Value: rdf.Literal{Lexical: "1", Datatype: rdf.XSDInteger}}}}, Vars: []string{"s"}}
	}
	if HashNode(build()) != HashNode(build()) {
		t.Fatal("HashNode should be deterministic for structurally identical trees")
	}
}

func TestHashNodeDistinguishesVirtualJoinSharedVars(t *testing.T) {
	a := VirtualJoin{VQID: 1, SharedVars: []string{"s"}}
	b := VirtualJoin{VQID: 1, SharedVars: []string{"s", "dp"}}
	if HashNode(a) == HashNode(b) {
		t.Fatal("HashNode should distinguish different SharedVars sets")
	}
}
