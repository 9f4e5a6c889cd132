package template

import (
	"fmt"
	"sync/atomic"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// blankCounter mints process-wide unique suffixes for blank variables
// introduced by template expansion, so that two expansions of the same
// template body never collide on the same internal blank (spec §3
// invariant: "unique variables are created to preserve independence across
// expansions"). Grounded on the teacher's tuple_builder.go fresh-variable
// generation (datalog/query/tuple_builder.go).
var blankCounter uint64

// Expand substitutes a Template's Parameters with the given positional
// arguments (one rdf.Term per Parameter, in declaration order) and returns
// the resulting triple patterns. Every internal blank reference in the
// template body is replaced by a freshly minted Variable unique to this
// expansion.
func Expand(t *Template, args []rdf.Term) ([]algebra.TriplePattern, error) {
	if len(args) != len(t.Parameters) {
		return nil, &SchemaError{
			Resource: t.Resource,
			Reason:   fmt.Sprintf("expected %d arguments, got %d", len(t.Parameters), len(args)),
		}
	}

	for i, p := range t.Parameters {
		if err := checkArgType(p, args[i]); err != nil {
			return nil, err
		}
	}

	suffix := atomic.AddUint64(&blankCounter, 1)
	blankVars := make(map[string]rdf.Variable)
	resolveBlank := func(name string) rdf.Variable {
		if v, ok := blankVars[name]; ok {
			return v
		}
		v := rdf.Variable{Name: fmt.Sprintf("_tmpl_%s_%s_%d", t.Resource, name, suffix)}
		blankVars[name] = v
		return v
	}

	resolve := func(term TripleTerm) rdf.Term {
		switch {
		case term.ParameterRef != "":
			idx := t.ParameterIndex(term.ParameterRef)
			return args[idx]
		case term.BlankRef != "":
			return resolveBlank(term.BlankRef)
		default:
			return term.Constant
		}
	}

	patterns := make([]algebra.TriplePattern, len(t.Body))
	for i, tr := range t.Body {
		patterns[i] = algebra.TriplePattern{
			Subject:   resolve(tr.Subject),
			Predicate: resolve(tr.Predicate),
			Object:    resolve(tr.Object),
		}
	}
	return patterns, nil
}

// checkArgType validates an expansion argument against its Parameter's
// declared RDFType (spec §7: "parameter type mismatch at init: SchemaError").
func checkArgType(p Parameter, arg rdf.Term) error {
	switch p.Type.Kind {
	case RDFTypeIRI:
		if _, ok := arg.(rdf.NamedNode); !ok {
			if _, ok := arg.(rdf.Variable); !ok {
				return &SchemaError{Resource: p.Name, Reason: fmt.Sprintf("parameter %q expects an IRI, got %T", p.Name, arg)}
			}
		}
	case RDFTypeBlank:
		switch arg.(type) {
		case rdf.BlankNode, rdf.Variable:
		default:
			return &SchemaError{Resource: p.Name, Reason: fmt.Sprintf("parameter %q expects a blank node, got %T", p.Name, arg)}
		}
	case RDFTypeLiteral:
		switch v := arg.(type) {
		case rdf.Literal:
			if p.Type.XSDDatatype != "" && v.Datatype != "" && v.Datatype != p.Type.XSDDatatype {
				return &SchemaError{Resource: p.Name, Reason: fmt.Sprintf("parameter %q expects literal datatype %s, got %s", p.Name, p.Type.XSDDatatype, v.Datatype)}
			}
		case rdf.Variable:
		default:
			return &SchemaError{Resource: p.Name, Reason: fmt.Sprintf("parameter %q expects a literal, got %T", p.Name, arg)}
		}
	}
	return nil
}
