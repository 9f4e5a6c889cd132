// Package template implements the Template Expander (spec component C3):
// named, parameterized triple patterns that stand in for a virtualized
// resource until expanded against a concrete reference. Grounded on the
// teacher's map+mutex registry shape (datalog/planner/cache.go) adapted
// from a plan cache to an immutable-after-init template table.
package template

import (
	"fmt"
	"sync"

	"github.com/chrontext/chrontext/rdf"
)

// RDFTypeKind tags an RDFType's variant (design note: "model RDFType as a
// tagged variant {Literal(xsd_iri), Iri, Blank}; avoid inheritance").
type RDFTypeKind int

const (
	RDFTypeLiteral RDFTypeKind = iota
	RDFTypeIRI
	RDFTypeBlank
)

// RDFType declares the RDF shape a Parameter's argument must take.
// XSDDatatype is only meaningful when Kind is RDFTypeLiteral.
type RDFType struct {
	Kind        RDFTypeKind
	XSDDatatype string
}

func LiteralType(xsdIRI string) RDFType { return RDFType{Kind: RDFTypeLiteral, XSDDatatype: xsdIRI} }
func IRIType() RDFType                  { return RDFType{Kind: RDFTypeIRI} }
func BlankType() RDFType                { return RDFType{Kind: RDFTypeBlank} }

// Parameter is one named, typed slot in a Template's signature.
type Parameter struct {
	Name string
	Type RDFType
}

// TripleTerm is one position of a Template body Triple: either a reference
// to a Parameter, a reference to an internal blank node local to the
// template body, or a constant rdf.Term.
type TripleTerm struct {
	ParameterRef string // name of a Parameter, or "" if not a parameter ref
	BlankRef     string // name of an internal blank, or "" if not a blank ref
	Constant     rdf.Term
}

func ParamRef(name string) TripleTerm { return TripleTerm{ParameterRef: name} }
func BlankRef(name string) TripleTerm { return TripleTerm{BlankRef: name} }
func ConstRef(t rdf.Term) TripleTerm  { return TripleTerm{Constant: t} }

// Triple is one triple in a Template's body, prior to expansion.
type Triple struct {
	Subject   TripleTerm
	Predicate TripleTerm
	Object    TripleTerm
}

// Template names an RDF resource and binds ordered typed Parameters to a
// body of Triples (spec §3: "A Template names an RDF resource (an IRI) and
// binds ordered typed Parameters to a body of Triples").
type Template struct {
	ID         int
	Resource   string
	Parameters []Parameter
	Body       []Triple
}

// ParameterIndex returns the position of a named parameter, or -1.
func (t *Template) ParameterIndex(name string) int {
	for i, p := range t.Parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// SchemaError is raised when a template registration is inconsistent:
// unknown parameter/blank reference, duplicate resource name, or an
// argument mismatch at init (spec §7).
type SchemaError struct {
	Resource string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: resource %q: %s", e.Resource, e.Reason)
}

// Kind satisfies the same error-kind taxonomy as coordinator's error types
// (spec §7): template registration failures are schema errors too.
func (e *SchemaError) Kind() string { return "SchemaError" }

// Registry is the arena-indexed, immutable-after-init set of declared
// Templates (design note: "shared-by-reference template bodies... arena
// allocation indexed by ID so templates and algebra nodes form DAGs
// without cyclic ownership"). Templates are addressed either by resource
// name (for lookups during split) or ID (for compact cross-references).
type Registry struct {
	mu         sync.RWMutex
	byID       []*Template
	byResource map[string]*Template
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byResource: make(map[string]*Template)}
}

// Register adds a Template, validating that every TripleTerm in its body
// refers only to a declared Parameter, a blank introduced within the same
// body, or a constant (spec §3 invariant: "every variable used in the body
// is either a parameter or an internal blank").
func (r *Registry) Register(resource string, params []Parameter, body []Triple) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byResource[resource]; exists {
		return nil, &SchemaError{Resource: resource, Reason: "duplicate template registration"}
	}

	paramNames := make(map[string]bool, len(params))
	for _, p := range params {
		if paramNames[p.Name] {
			return nil, &SchemaError{Resource: resource, Reason: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		paramNames[p.Name] = true
	}

	blankNames := make(map[string]bool)
	check := func(term TripleTerm) error {
		switch {
		case term.ParameterRef != "":
			if !paramNames[term.ParameterRef] {
				return &SchemaError{Resource: resource, Reason: fmt.Sprintf("body references undeclared parameter %q", term.ParameterRef)}
			}
		case term.BlankRef != "":
			blankNames[term.BlankRef] = true
		case term.Constant == nil:
			return &SchemaError{Resource: resource, Reason: "triple term is neither a parameter, blank, nor constant"}
		}
		return nil
	}
	for _, tr := range body {
		for _, term := range []TripleTerm{tr.Subject, tr.Predicate, tr.Object} {
			if err := check(term); err != nil {
				return nil, err
			}
		}
	}

	tmpl := &Template{
		ID:         len(r.byID),
		Resource:   resource,
		Parameters: params,
		Body:       body,
	}
	r.byID = append(r.byID, tmpl)
	r.byResource[resource] = tmpl
	return tmpl, nil
}

// Lookup returns the Template declared for a resource name, if any.
func (r *Registry) Lookup(resource string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byResource[resource]
	return t, ok
}

// ByID returns the Template at a given arena index.
func (r *Registry) ByID(id int) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

// All returns every registered Template, in registration order.
func (r *Registry) All() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Template, len(r.byID))
	copy(out, r.byID)
	return out
}
