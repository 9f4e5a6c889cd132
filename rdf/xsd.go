package rdf

// XSD datatype IRIs recognized by this engine. Grounded on the teacher's
// typed-value helpers (datalog/value.go: String/Int/Float/Bool/Time) but
// expressed as the XSD schema URIs chrontext's term model actually carries.
const (
	xsdNS = "http://www.w3.org/2001/XMLSchema#"

	XSDString   = xsdNS + "string"
	XSDBoolean  = xsdNS + "boolean"
	XSDInteger  = xsdNS + "integer"
	XSDLong     = xsdNS + "long"
	XSDInt      = xsdNS + "int"
	XSDDecimal  = xsdNS + "decimal"
	XSDDouble   = xsdNS + "double"
	XSDFloat    = xsdNS + "float"
	XSDDateTime = xsdNS + "dateTime"

	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// numericRank implements the XSD casting hierarchy integer ⊂ decimal ⊂
// double (spec §4.1(b)): a lower rank casts cleanly into any higher rank.
func numericRank(datatype string) (rank int, ok bool) {
	switch datatype {
	case XSDInteger, XSDInt, XSDLong:
		return 0, true
	case XSDDecimal:
		return 1, true
	case XSDFloat:
		return 2, true
	case XSDDouble:
		return 3, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether datatype participates in the numeric casting
// hierarchy.
func IsNumeric(datatype string) bool {
	_, ok := numericRank(datatype)
	return ok
}

// WidestNumeric returns the wider of two numeric XSD datatypes under the
// integer ⊂ decimal ⊂ float ⊂ double ordering used for cast promotion.
// (float and double are both wider than decimal; double is treated as the
// widest since it is the SPARQL built-in default for mixed arithmetic.)
func WidestNumeric(a, b string) (string, bool) {
	ra, aok := numericRank(a)
	rb, bok := numericRank(b)
	if !aok || !bok {
		return "", false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}
