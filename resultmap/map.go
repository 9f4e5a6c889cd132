// Package resultmap implements the Result Mapper (spec component C8):
// converting native tabular backend results back into RDF-typed columnar
// solution mappings, carrying datatype metadata. Grounded on the teacher's
// DatomToTuple column-order reconstruction (datalog/query/types.go).
package resultmap

import (
	"fmt"
	"time"

	"github.com/chrontext/chrontext/rdf"
)

// ColumnType declares the RDF datatype a result column is retyped into.
// IsIRI distinguishes an IRI-valued column (e.g. the identifier column,
// when identifiers are resource IRIs rather than opaque strings) from a
// literal column carrying XSDDatatype.
type ColumnType struct {
	Variable    string
	XSDDatatype string
	IsIRI       bool
}

// SolutionMapping is the engine's final result: an ordered sequence of
// named columns with per-column RDF datatype, plus row data (spec §3:
// "Ordered sequence of named columns with per-column RDF datatype. Rows
// are tuples of optional RDF terms").
type SolutionMapping struct {
	Columns      []string
	RDFDatatypes map[string]string // variable -> xsd datatype IRI ("" for IRI-valued columns)
	Rows         [][]rdf.Term      // nil entry at a position means unbound
}

// FromNativeColumns builds a SolutionMapping from backend-native column
// data (spec §4.8: "C8 converts native columns... to RDF-typed columns
// using the VQ's declared parameter RDFTypes"). columns maps a variable
// name to its native row values, in the order types lists them.
func FromNativeColumns(types []ColumnType, columns map[string][]interface{}, rowCount int) (SolutionMapping, error) {
	sm := SolutionMapping{
		RDFDatatypes: make(map[string]string, len(types)),
		Rows:         make([][]rdf.Term, rowCount),
	}
	for _, ct := range types {
		sm.Columns = append(sm.Columns, ct.Variable)
		if ct.IsIRI {
			sm.RDFDatatypes[ct.Variable] = ""
		} else {
			sm.RDFDatatypes[ct.Variable] = ct.XSDDatatype
		}
	}

	for row := 0; row < rowCount; row++ {
		terms := make([]rdf.Term, len(types))
		for col, ct := range types {
			values, ok := columns[ct.Variable]
			if !ok || row >= len(values) || values[row] == nil {
				continue // unbound in this row
			}
			term, err := retype(values[row], ct)
			if err != nil {
				return SolutionMapping{}, fmt.Errorf("resultmap: column %q row %d: %w", ct.Variable, row, err)
			}
			terms[col] = term
		}
		sm.Rows[row] = terms
	}
	return sm, nil
}

// retype converts one native backend scalar to an rdf.Term, per the
// column's declared type (spec §4.8: "Timestamps are normalized to UTC
// and emitted as xsd:dateTime").
func retype(v interface{}, ct ColumnType) (rdf.Term, error) {
	if ct.IsIRI {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for IRI column, got %T", v)
		}
		return rdf.NamedNode{IRI: s}, nil
	}

	if ct.XSDDatatype == rdf.XSDDateTime {
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected time.Time for xsd:dateTime column, got %T", v)
		}
		return rdf.Literal{Lexical: rdf.FormatDateTimeUTC(t), Datatype: rdf.XSDDateTime}, nil
	}

	native, err := toRDFNative(v)
	if err != nil {
		return nil, err
	}
	return rdf.FromNative(native, ct.XSDDatatype), nil
}

// toRDFNative adapts a Go native value into the rdf.Native set FromNative
// expects, covering the scalar kinds the virtualized backend contract
// promises (spec §6.2: "bool/integer/float/string/timestamp").
func toRDFNative(v interface{}) (rdf.Native, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		return x, nil
	case string:
		return x, nil
	case time.Time:
		return x, nil
	default:
		return nil, fmt.Errorf("resultmap: unsupported native value type %T", v)
	}
}
