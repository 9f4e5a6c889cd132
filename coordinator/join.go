package coordinator

import (
	"github.com/chrontext/chrontext/backend"
	"github.com/chrontext/chrontext/rdf"
)

// joinedRow is one row of the residual join: a mix of RDF terms from the
// static side and native scalars from a VQ's Table, keyed by output
// variable name.
type joinedRow map[string]interface{}

// identifierKey canonicalizes an rdf.Term bound to an identifier variable
// into the string form the backend contract uses for identifier columns
// (spec §6.2: "Identifier columns carry string-typed values").
func identifierKey(t rdf.Term) string {
	switch x := t.(type) {
	case rdf.NamedNode:
		return x.IRI
	case rdf.Literal:
		return x.Lexical
	case rdf.BlankNode:
		return x.ID
	default:
		return ""
	}
}

// residualJoin performs a hash join (spec §4.7 step 4) of the
// static solution mapping against one VQ's materialized Table, on the
// shared identifier variable. Every other column of the table is copied
// into the merged row under its own name — a Table's column names are
// always the SPARQL variables they are bound to, whether the VQ is a
// plain column scan or a Grouped aggregation. Grounded on the teacher's
// symmetric_hash_join.go: build a hash side (here, always the VQ table,
// whatever its size) then probe with the static rows, rather than a
// nested-loop join.
func residualJoin(staticRows []backend.Row, identifierVar string, table backend.Table) []joinedRow {
	idCol := table.ColumnByName(identifierVar)
	if idCol == nil {
		return nil
	}

	// Build side: hash VQ table rows by identifier value.
	hashIndex := make(map[string][]int, table.Len)
	for i := 0; i < table.Len; i++ {
		key, ok := idCol.Rows[i].(string)
		if !ok {
			continue
		}
		hashIndex[key] = append(hashIndex[key], i)
	}

	var out []joinedRow
	for _, sr := range staticRows {
		term, ok := sr[identifierVar]
		if !ok {
			continue
		}
		rt, ok := term.(rdf.Term)
		if !ok {
			continue
		}
		key := identifierKey(rt)
		matches, ok := hashIndex[key]
		if !ok {
			continue
		}
		for _, rowIdx := range matches {
			merged := make(joinedRow, len(sr)+len(table.Columns))
			for k, v := range sr {
				merged[k] = v
			}
			for _, col := range table.Columns {
				if col.Name == identifierVar {
					continue
				}
				merged[col.Name] = col.Rows[rowIdx]
			}
			out = append(out, merged)
		}
	}
	return out
}
