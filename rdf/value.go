package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Native is a host scalar produced by coercing a Literal: bool, int64,
// float64, string, time.Time (always carrying an explicit UTC zone) or
// *Decimal.
type Native interface{}

// Decimal is a minimal arbitrary-precision decimal: XSD xsd:decimal values
// are kept as their original lexical form plus a parsed float64 for
// comparisons, since the engine never performs decimal arithmetic itself
// (it only compares, casts and passes values through to the backend).
type Decimal struct {
	Lexical string
	Approx  float64
}

// TypeError is raised when a requested coercion between datatypes is
// undefined (spec §4.1).
type TypeError struct {
	From, To string
	Reason   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: cannot coerce %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *TypeError) Kind() string { return "TypeError" }

// LexicalError is raised when a lexical form is invalid for its declared
// datatype (spec §4.1).
type LexicalError struct {
	Lexical  string
	Datatype string
	Cause    error
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error: %q is not a valid %s: %v", e.Lexical, e.Datatype, e.Cause)
}

func (e *LexicalError) Kind() string { return "LexicalError" }
func (e *LexicalError) Unwrap() error { return e.Cause }

// ToNative coerces a Literal to a host scalar per its declared datatype.
func ToNative(l Literal) (Native, error) {
	switch l.Datatype {
	case XSDString, RDFLangString, "":
		return l.Lexical, nil
	case XSDBoolean:
		v, err := strconv.ParseBool(l.Lexical)
		if err != nil {
			return nil, &LexicalError{Lexical: l.Lexical, Datatype: l.Datatype, Cause: err}
		}
		return v, nil
	case XSDInteger, XSDInt, XSDLong:
		v, err := strconv.ParseInt(strings.TrimSpace(l.Lexical), 10, 64)
		if err != nil {
			return nil, &LexicalError{Lexical: l.Lexical, Datatype: l.Datatype, Cause: err}
		}
		return v, nil
	case XSDDecimal:
		v, err := strconv.ParseFloat(strings.TrimSpace(l.Lexical), 64)
		if err != nil {
			return nil, &LexicalError{Lexical: l.Lexical, Datatype: l.Datatype, Cause: err}
		}
		return &Decimal{Lexical: l.Lexical, Approx: v}, nil
	case XSDFloat, XSDDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(l.Lexical), 64)
		if err != nil {
			return nil, &LexicalError{Lexical: l.Lexical, Datatype: l.Datatype, Cause: err}
		}
		return v, nil
	case XSDDateTime:
		t, err := parseDateTime(l.Lexical)
		if err != nil {
			return nil, &LexicalError{Lexical: l.Lexical, Datatype: l.Datatype, Cause: err}
		}
		return t, nil
	default:
		return nil, &TypeError{From: l.Datatype, To: "native", Reason: "no coercion defined for this datatype"}
	}
}

// parseDateTime parses an xsd:dateTime lexical form. A lexical form with no
// explicit offset is treated as UTC (spec §4.1(c): "naive datetimes are
// treated as UTC").
func parseDateTime(lexical string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, lexical)
		if err == nil {
			if t.Location() == time.UTC || strings.HasSuffix(lexical, "Z") || hasOffset(lexical) {
				return t.UTC(), nil
			}
			// No zone info in the layout at all -> naive, assume UTC.
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func hasOffset(lexical string) bool {
	// Anything after the time-of-day with a +HH:MM or -HH:MM suffix.
	if idx := strings.IndexAny(lexical, "T"); idx >= 0 {
		rest := lexical[idx:]
		return strings.ContainsAny(rest, "+") || strings.Count(rest, "-") > 0
	}
	return false
}

// Cast attempts an XSD-style cast of a native value to a target datatype,
// following the integer ⊂ decimal ⊂ double hierarchy (spec §4.1(b)).
func Cast(v Native, target string) (Native, error) {
	switch target {
	case XSDInteger, XSDInt, XSDLong:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		case *Decimal:
			return int64(x.Approx), nil
		}
	case XSDDecimal:
		switch x := v.(type) {
		case int64:
			return &Decimal{Lexical: strconv.FormatInt(x, 10), Approx: float64(x)}, nil
		case float64:
			return &Decimal{Lexical: strconv.FormatFloat(x, 'f', -1, 64), Approx: x}, nil
		case *Decimal:
			return x, nil
		}
	case XSDFloat, XSDDouble:
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case *Decimal:
			return x.Approx, nil
		}
	case XSDDateTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	}
	return nil, &TypeError{From: fmt.Sprintf("%T", v), To: target, Reason: "no coercion defined for this datatype"}
}

// Compare orders two native scalars, following the same numeric-promotion
// and type-mismatch rules as the teacher's CompareValues (datalog/compare.go),
// generalized to rdf.Native's scalar set.
func Compare(left, right Native) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	lf, lIsNum := asFloat(left)
	rf, rIsNum := asFloat(right)
	if lIsNum && rIsNum {
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}

	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
	case bool:
		if r, ok := right.(bool); ok {
			if l == r {
				return 0
			}
			if !l {
				return -1
			}
			return 1
		}
	case time.Time:
		if r, ok := right.(time.Time); ok {
			switch {
			case l.Before(r):
				return -1
			case l.After(r):
				return 1
			default:
				return 0
			}
		}
	}
	return -1 // type mismatch: treat as unordered/less, mirrors teacher's CompareValues
}

func asFloat(v Native) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case *Decimal:
		return x.Approx, true
	default:
		return 0, false
	}
}
