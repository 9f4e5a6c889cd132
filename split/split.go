package split

import (
	"sort"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// Config tells the splitter which predicates carry virtualized output
// columns and which predicate anchors the identifier variable of a VQ
// candidate (e.g. `ct:hasDataPoint`'s subject is the identifier in
// `?s ct:hasTimeseries/ct:hasDataPoint ?dp . ?dp ct:hasTimestamp ?t`).
// Built once at engine init from the resource registry's declared
// templates (C3) plus user-declared resource triples (spec §4.4 step 1).
type Config struct {
	// Resource names the virtualized resource this Config's predicates
	// belong to (spec §6.4: resource_name). A Config describes one
	// resource; the engine keeps one Config per resource name and each
	// query runs Split with the single Config it names, so candidates from
	// several Configs are never merged.
	Resource string
	// ColumnPredicates maps a predicate IRI to the output column name its
	// object variable is bound to (e.g. "...#hasTimestamp" -> "timestamp").
	ColumnPredicates map[string]string
	// IdentifierPredicate is the predicate IRI whose *subject* variable
	// becomes a VQ candidate's identifier variable.
	IdentifierPredicate string
}

func (c Config) classifier() *Classifier {
	iris := make([]string, 0, len(c.ColumnPredicates)+1)
	for iri := range c.ColumnPredicates {
		iris = append(iris, iri)
	}
	if c.IdentifierPredicate != "" {
		iris = append(iris, c.IdentifierPredicate)
	}
	return NewClassifier(iris)
}

// VQCandidate is a contiguous group of virtual triple patterns discovered
// by the splitter, sharing one identifier variable (spec §4.4 step 2). It
// is not yet a VQ algebra.Basic node — that conversion (resolving the
// identifier's concrete value set) is the coordinator's job (C7); the
// candidate only carries what is known at plan time.
type VQCandidate struct {
	ID            int
	Resource      string
	IdentifierVar string
	Patterns      []algebra.TriplePattern
	ColumnMapping []algebra.ColumnMapping // resource-column -> SPARQL variable, per Config.ColumnPredicates
}

// Result is the splitter's output: a static plan to execute against the
// RDF store, plus the VQ candidates discovered within it (spec §4.4:
// "produce a pair (static_plan, [vq_plans])").
type Result struct {
	Static algebra.Node
	VQs    []VQCandidate
}

// Split partitions an algebra tree into a static plan and VQ candidates
// (spec §4.4). Candidate IDs are assigned in tree order starting at 0 so
// they are stable across repeated splits of the same query shape.
func Split(root algebra.Node, cfg Config) Result {
	s := &splitter{classifier: cfg.classifier(), cfg: cfg}
	static := s.node(root)
	return Result{Static: static, VQs: s.candidates}
}

type splitter struct {
	classifier *Classifier
	cfg        Config
	candidates []VQCandidate
	nextID     int
	freshVarN  int
}

func (s *splitter) freshVar() string {
	s.freshVarN++
	return "_split_fresh_" + itoa(s.freshVarN)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// node recursively splits a node, replacing virtualized subgraphs
// discovered in any Bgp it finds with VirtualJoin placeholders and
// recording the extracted VQCandidates, while leaving every other algebra
// operator's shape untouched (pushdown into those operators is C5's job).
func (s *splitter) node(n algebra.Node) algebra.Node {
	switch x := n.(type) {
	case algebra.Bgp:
		return s.splitBgp(x.Patterns)
	case algebra.Path:
		patterns, ok := DecomposePath(x, s.freshVar)
		if !ok {
			return x // `+`/`*` paths are never virtualized; kept as-is (spec §4.4 step 6)
		}
		return s.splitBgp(patterns)
	case algebra.Project:
		return algebra.Project{Input: s.node(x.Input), Vars: x.Vars}
	case algebra.Distinct:
		return algebra.Distinct{Input: s.node(x.Input)}
	case algebra.Filter:
		return algebra.Filter{Input: s.node(x.Input), Expr: x.Expr}
	case algebra.Extend:
		return algebra.Extend{Input: s.node(x.Input), Var: x.Var, Expr: x.Expr}
	case algebra.Join:
		return algebra.Join{Left: s.node(x.Left), Right: s.node(x.Right)}
	case algebra.LeftJoin:
		return algebra.LeftJoin{Left: s.node(x.Left), Right: s.node(x.Right), Expr: x.Expr}
	case algebra.Minus:
		return algebra.Minus{Left: s.node(x.Left), Right: s.node(x.Right)}
	case algebra.Union:
		return algebra.Union{Left: s.node(x.Left), Right: s.node(x.Right)}
	case algebra.Group:
		return algebra.Group{Input: s.node(x.Input), By: x.By, Aggregations: x.Aggregations}
	case algebra.OrderBy:
		return algebra.OrderBy{Input: s.node(x.Input), Conditions: x.Conditions}
	case algebra.Slice:
		return algebra.Slice{Input: s.node(x.Input), Offset: x.Offset, Limit: x.Limit}
	case algebra.Service:
		return algebra.Service{Endpoint: x.Endpoint, Silent: x.Silent, Input: s.node(x.Input)}
	default:
		// Values and any other leaf with no Input child has nothing to split.
		return n
	}
}

// splitBgp applies spec §4.4 steps 1-4 to one basic graph pattern: classify
// each triple, union-find virtual patterns sharing a variable into
// connected components (step 2's "contiguous... sharing a common
// identifier variable" generalized to shared-variable connectivity within
// one Bgp), and replace each component with a VirtualJoin placeholder
// joined against the remaining static patterns.
func (s *splitter) splitBgp(patterns []algebra.TriplePattern) algebra.Node {
	var staticPatterns []algebra.TriplePattern
	virtualIdx := make([]int, 0, len(patterns))
	for i, p := range patterns {
		if s.classifier.IsVirtual(p) {
			virtualIdx = append(virtualIdx, i)
		} else {
			staticPatterns = append(staticPatterns, p)
		}
	}

	if len(virtualIdx) == 0 {
		return algebra.Bgp{Patterns: staticPatterns}
	}

	components := groupByConnectedVars(patterns, virtualIdx)

	var staticVars map[string]bool
	if len(staticPatterns) > 0 {
		staticVars = make(map[string]bool)
		for _, p := range staticPatterns {
			for _, v := range p.Vars() {
				staticVars[v] = true
			}
		}
	}

	var result algebra.Node
	if len(staticPatterns) > 0 {
		result = algebra.Bgp{Patterns: staticPatterns}
	}

	for _, comp := range components {
		candidate := s.buildCandidate(comp)
		s.candidates = append(s.candidates, candidate)

		shared := sharedVars(comp, staticVars)
		placeholder := algebra.VirtualJoin{VQID: candidate.ID, SharedVars: shared}

		if result == nil {
			result = placeholder
		} else {
			result = algebra.Join{Left: result, Right: placeholder}
		}
	}
	return result
}

// buildCandidate derives a VQCandidate's identifier variable and column
// mapping from its member patterns (spec §4.4 step 2).
func (s *splitter) buildCandidate(patterns []algebra.TriplePattern) VQCandidate {
	id := s.nextID
	s.nextID++

	var identifier string
	var columns []algebra.ColumnMapping
	for _, p := range patterns {
		iri, _ := predicateIRI(p.Predicate)
		if iri == s.cfg.IdentifierPredicate {
			if sv, ok := subjectVar(p); ok {
				identifier = sv
			}
		}
		if col, ok := s.cfg.ColumnPredicates[iri]; ok {
			if ov, ok := objectVar(p); ok {
				columns = append(columns, algebra.ColumnMapping{Column: col, Variable: ov})
			}
		}
	}
	if identifier == "" {
		// No identifier predicate matched (e.g. a user-declared resource
		// triple without the canonical hasDataPoint anchor): fall back to
		// the first pattern's subject variable.
		if len(patterns) > 0 {
			if sv, ok := subjectVar(patterns[0]); ok {
				identifier = sv
			}
		}
	}

	sort.Slice(columns, func(i, j int) bool { return columns[i].Column < columns[j].Column })

	return VQCandidate{
		ID:            id,
		Resource:      s.cfg.Resource,
		IdentifierVar: identifier,
		Patterns:      patterns,
		ColumnMapping: columns,
	}
}

func subjectVar(p algebra.TriplePattern) (string, bool) {
	return asVar(p.Subject)
}

func objectVar(p algebra.TriplePattern) (string, bool) {
	return asVar(p.Object)
}

func asVar(t rdf.Term) (string, bool) {
	v, ok := t.(rdf.Variable)
	if !ok {
		return "", false
	}
	return v.Name, true
}

// sharedVars returns the component's variables that also appear in the
// static remainder, sorted for determinism — these become the
// VirtualJoin's join key (spec §4.4 step 4).
func sharedVars(patterns []algebra.TriplePattern, staticVars map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		for _, v := range p.Vars() {
			if seen[v] {
				continue
			}
			if staticVars == nil || staticVars[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// groupByConnectedVars unions virtual pattern indices that share at least
// one variable, returning each connected component's patterns.
func groupByConnectedVars(patterns []algebra.TriplePattern, virtualIdx []int) [][]algebra.TriplePattern {
	parent := make(map[int]int, len(virtualIdx))
	for _, i := range virtualIdx {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	varOwner := make(map[string]int)
	for _, i := range virtualIdx {
		for _, v := range patterns[i].Vars() {
			if owner, ok := varOwner[v]; ok {
				union(owner, i)
			} else {
				varOwner[v] = i
			}
		}
	}

	groups := make(map[int][]algebra.TriplePattern)
	var order []int
	for _, i := range virtualIdx {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], patterns[i])
	}

	out := make([][]algebra.TriplePattern, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}
