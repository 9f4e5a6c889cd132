package rdf

import (
	"strconv"
	"time"
)

// FromNative builds the canonical Literal for a native scalar and target
// datatype — the inverse of ToNative, used by the result mapper (C8) when
// retyping backend-native columns back into RDF terms.
func FromNative(v Native, datatype string) Literal {
	switch datatype {
	case XSDDateTime:
		if t, ok := v.(time.Time); ok {
			return Literal{Lexical: FormatDateTimeUTC(t), Datatype: XSDDateTime}
		}
	case XSDBoolean:
		if b, ok := v.(bool); ok {
			return Literal{Lexical: strconv.FormatBool(b), Datatype: XSDBoolean}
		}
	case XSDInteger, XSDInt, XSDLong:
		if i, ok := v.(int64); ok {
			return Literal{Lexical: strconv.FormatInt(i, 10), Datatype: datatype}
		}
	case XSDDecimal:
		if d, ok := v.(*Decimal); ok {
			return Literal{Lexical: d.Lexical, Datatype: XSDDecimal}
		}
	case XSDFloat, XSDDouble:
		if f, ok := v.(float64); ok {
			return Literal{Lexical: strconv.FormatFloat(f, 'g', -1, 64), Datatype: datatype}
		}
	}
	// Fallback: best-effort string form, still tagged with the requested
	// datatype so callers can see the mismatch rather than silently
	// dropping type information.
	return Literal{Lexical: toLexical(v), Datatype: datatype}
}

// FormatDateTimeUTC renders a timestamp as a canonical xsd:dateTime lexical
// form, always normalized to UTC (spec §4.8: "Timestamps are normalized to
// UTC and emitted as xsd:dateTime").
func FormatDateTimeUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z")
}

func toLexical(v Native) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *Decimal:
		return x.Lexical
	case time.Time:
		return FormatDateTimeUTC(x)
	default:
		return ""
	}
}
