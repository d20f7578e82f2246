package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the stored type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDate
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Value is a single typed property value.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	t    time.Time
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number builds a number value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Date builds a temporal value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Any infers a Value from a native Go value. Unknown kinds are stored as their
// fmt.Sprint form.
func Any(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case time.Time:
		return Date(x)
	case int:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case fmt.Stringer:
		return String(x.String())
	default:
		return String(fmt.Sprint(v))
	}
}

// Values converts native values into a slice of Values.
func Values(vs ...any) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Any(v)
	}
	return out
}

// Kind returns the stored kind.
func (v Value) Kind() Kind { return v.kind }

// Equal reports value equality; values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindNumber:
		// NaN equals NaN so repeated NaNs collapse
		return v.n == other.n || (math.IsNaN(v.n) && math.IsNaN(other.n))
	case KindBoolean:
		return v.b == other.b
	case KindDate:
		return v.t.Equal(other.t)
	}
	return false
}

// Interface returns the native Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.n
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t
	default:
		return v.s
	}
}

// String renders the value as text. Dates use RFC3339 with nanoseconds.
func (v Value) String() string {
	s, _ := v.AsString()
	return s
}

// AsString converts the value to a string. Every kind converts.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), true
	case KindBoolean:
		return strconv.FormatBool(v.b), true
	case KindDate:
		return v.t.Format(time.RFC3339Nano), true
	default:
		return v.s, true
	}
}

// AsNumber converts the value to a number. Dates convert to unix seconds.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case KindDate:
		return float64(v.t.Unix()), true
	default:
		return 0, false
	}
}

// AsBool converts the value to a boolean.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBoolean:
		return v.b, true
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return false, false
		}
		return b, true
	case KindNumber:
		return v.n != 0, true
	default:
		return false, false
	}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// AsDate converts the value to a time. Numbers are read as unix seconds.
func (v Value) AsDate() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.t, true
	case KindNumber:
		return time.Unix(int64(v.n), 0).UTC(), true
	case KindString:
		s := strings.TrimSpace(v.s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
