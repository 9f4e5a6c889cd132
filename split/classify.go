// Package split implements the Static/Dynamic Splitter (spec component
// C4): it partitions an algebra tree into a static plan executed against
// the RDF store and a set of VQ candidates executed against the
// virtualized backend. Grounded on the teacher's planner_patterns.go
// pattern-to-variable binding analysis and clause_phasing.go's grouping
// of clauses by shared variables (datalog/planner/).
package split

import (
	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// VirtualPath is one predicate path known to lead into virtualized data,
// registered once per expanded resource template (spec §4.4 step 1:
// "its subject/predicate signature matches a path emitted by an expanded
// resource template"). It records only the predicate IRI.
type VirtualPath struct {
	PredicateIRI string
}

// Classifier knows which predicate IRIs lead into virtualized data. It is
// built once from the set of triple patterns emitted by template
// expansion (C3) plus any user-declared resource triples, and is
// read-only at split time.
type Classifier struct {
	virtualPredicates map[string]bool
}

// NewClassifier builds a Classifier from the predicate IRIs that
// constitute virtualized access paths.
func NewClassifier(virtualPredicateIRIs []string) *Classifier {
	set := make(map[string]bool, len(virtualPredicateIRIs))
	for _, iri := range virtualPredicateIRIs {
		set[iri] = true
	}
	return &Classifier{virtualPredicates: set}
}

// IsVirtual reports whether a triple pattern is virtual: its predicate is
// a constant IRI registered as a virtual path (spec §4.4 step 1). Tie-break
// (step 5): a pattern satisfiable by either store (notably rdf:type, whose
// predicate is never registered as virtual) classifies as static.
func (c *Classifier) IsVirtual(p algebra.TriplePattern) bool {
	iri, ok := predicateIRI(p.Predicate)
	if !ok {
		return false
	}
	return c.virtualPredicates[iri]
}

func predicateIRI(t rdf.Term) (string, bool) {
	n, ok := t.(rdf.NamedNode)
	if !ok {
		return "", false
	}
	return n.IRI, true
}

// DecomposePath expands a property-path triple pattern into a sequence of
// plain triple patterns joined through fresh intermediate variables (spec
// §4.4 step 6: "Path expressions (a/b/c) are decomposed into concatenated
// BGPs before classification"). Paths containing ZeroOrMore/OneOrMore
// return ok=false: they are never virtualized and must stay in the static
// plan as a single Path node.
func DecomposePath(pat algebra.Path, freshVar func() string) ([]algebra.TriplePattern, bool) {
	steps, ok := flattenSeq(pat.Path)
	if !ok {
		return nil, false
	}
	if len(steps) == 0 {
		return nil, false
	}

	var out []algebra.TriplePattern
	subject := pat.Subject
	for i, step := range steps {
		iri, inverse, ok := simpleStep(step)
		if !ok {
			return nil, false
		}
		var object rdf.Term
		if i == len(steps)-1 {
			object = pat.Object
		} else {
			object = rdf.Variable{Name: freshVar()}
		}
		s, o := subject, object
		if inverse {
			s, o = o, s
		}
		out = append(out, algebra.TriplePattern{
			Subject:   s,
			Predicate: rdf.NamedNode{IRI: iri},
			Object:    o,
		})
		subject = object
	}
	return out, true
}

// flattenSeq flattens nested PathSeq into a linear list of steps; any
// other path (PathIRI, PathInverse, PathAlt) is kept as one step, and
// ZeroOrMore/OneOrMore abort decomposition.
func flattenSeq(p algebra.PathExpr) ([]algebra.PathExpr, bool) {
	switch x := p.(type) {
	case algebra.PathSeq:
		var out []algebra.PathExpr
		for _, step := range x.Steps {
			sub, ok := flattenSeq(step)
			if !ok {
				return nil, false
			}
			out = append(out, sub...)
		}
		return out, true
	case algebra.PathZeroOrMore, algebra.PathOneOrMore:
		return nil, false
	default:
		return []algebra.PathExpr{p}, true
	}
}

// simpleStep extracts the predicate IRI and inversion flag from a single
// non-sequence path step; PathAlt is not decomposable into one triple
// pattern and aborts decomposition (left for the static plan).
func simpleStep(p algebra.PathExpr) (iri string, inverse bool, ok bool) {
	switch x := p.(type) {
	case algebra.PathIRI:
		return x.IRI, false, true
	case algebra.PathInverse:
		if inner, iok := x.Path.(algebra.PathIRI); iok {
			return inner.IRI, true, true
		}
		return "", false, false
	default:
		return "", false, false
	}
}
