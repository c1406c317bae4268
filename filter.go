package listcount

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// Kind is the scalar kind of a filter value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one filter field value: null, a string or a number.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Number returns a numeric value. -0 is stored as 0 so that equal numbers
// always derive the same identity.
func Number(n float64) Value {
	if n == 0 {
		n = 0
	}
	return Value{kind: KindNumber, n: n}
}

func Int(n int64) Value { return Number(float64(n)) }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string and true when v is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the number and true when v is a number.
func (v Value) Num() (float64, bool) { return v.n, v.kind == KindNumber }

// Equal reports whether v and o are the same effective value.
// NaN equals NaN here, matching Identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n))
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return nil, fmt.Errorf("listcount: %v is not representable in JSON", v.n)
		}
		return json.Marshal(v.n)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	nv, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = nv
	return nil
}

// ValueOf converts a loosely typed scalar (nil, string, any Go integer or
// float, json.Number, *string, *int64, *float64) into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case *string:
		if t == nil {
			return Null(), nil
		}
		return String(*t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case *int64:
		if t == nil {
			return Null(), nil
		}
		return Int(*t), nil
	case *float64:
		if t == nil {
			return Null(), nil
		}
		return Number(*t), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("listcount: bad number %q: %w", t.String(), err)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("listcount: unsupported filter value type %T", x)
	}
}

// FilterSet maps a filter field name to its value. Absent and null fields
// both mean "no filter".
type FilterSet map[string]Value

// FiltersOf builds a FilterSet from loosely typed values.
func FiltersOf(m map[string]any) (FilterSet, error) {
	out := make(FilterSet, len(m))
	for k, x := range m {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Normalize returns a copy without null fields. Never nil.
func (f FilterSet) Normalize() FilterSet {
	out := make(FilterSet, len(f))
	for k, v := range f {
		if !v.IsNull() {
			out[k] = v
		}
	}
	return out
}

// Equal reports whether a and b have the same effective values.
func Equal(a, b FilterSet) bool {
	for k, v := range a {
		if !v.Equal(b[k]) {
			return false
		}
	}
	for k, v := range b {
		if _, ok := a[k]; !ok && !v.IsNull() {
			return false
		}
	}
	return true
}

var identityEnc = mustIdentityEncMode()

func mustIdentityEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Identity derives the cache identity of f: null fields are dropped, the rest
// is encoded as an RFC 8949 core deterministic CBOR map and hex encoded.
// Same effective values give the same identity; the encoding is injective,
// so different effective values give different identities.
func Identity(f FilterSet) string {
	m := make(map[string]any, len(f))
	for k, v := range f {
		switch v.kind {
		case KindString:
			m[k] = v.s
		case KindNumber:
			m[k] = v.n
		}
	}
	b, err := identityEnc.Marshal(m)
	if err != nil {
		// map[string]{string,float64} always encodes
		panic(fmt.Sprintf("listcount: identity encode: %v", err))
	}
	return hex.EncodeToString(b)
}
