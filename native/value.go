// Package native describes the argument slots exchanged with an Automation
// server and the Dispatcher boundary that performs the actual named call.
package native

import (
	"errors"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Kind and Mode
// ---------------------------------------------------------------------------

// Kind identifies the primitive type carried by a slot.
type Kind uint8

const (
	Int    Kind = iota + 1 // 32-bit signed integer
	Double                 // 64-bit float
	Bool
	String
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Double:
		return "double"
	case Bool:
		return "bool"
	case String:
		return "string"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return Int, nil
	case "double":
		return Double, nil
	case "bool":
		return Bool, nil
	case "string":
		return String, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Mode says how a slot is passed to the server.
type Mode uint8

const (
	// ByVal slots are inputs only.
	ByVal Mode = iota
	// ByRef slots are in/out; the dispatcher writes the final value back.
	ByRef
	// Discard slots are outputs nobody asked for. The dispatcher hands the
	// server a typed throwaway location and never reads it back.
	Discard
)

func (m Mode) String() string {
	switch m {
	case ByVal:
		return "val"
	case ByRef:
		return "ref"
	case Discard:
		return "discard"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ---------------------------------------------------------------------------
// Slot: one positional argument
// ---------------------------------------------------------------------------

// Slot is one positional argument of a single invocation.
//
// Value holds int32, float64, bool or string for scalars and the matching
// slice type when Array is set. A nil Value in an array slot means "let the
// server size it".
type Slot struct {
	Mode  Mode `cbor:"1,keyasint"`
	Kind  Kind `cbor:"2,keyasint"`
	Array bool `cbor:"3,keyasint,omitempty"`
	Value any  `cbor:"4,keyasint,omitempty"`
}

// Zero returns the zero value of the slot's type.
func (s Slot) Zero() any {
	if s.Array {
		switch s.Kind {
		case Int:
			return []int32{}
		case Double:
			return []float64{}
		case Bool:
			return []bool{}
		case String:
			return []string{}
		}
		return nil
	}
	switch s.Kind {
	case Int:
		return int32(0)
	case Double:
		return float64(0)
	case Bool:
		return false
	case String:
		return ""
	}
	return nil
}

// Len reports the element count of an array slot, 0 otherwise.
func (s Slot) Len() int {
	switch v := s.Value.(type) {
	case []int32:
		return len(v)
	case []float64:
		return len(v)
	case []bool:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

func (s Slot) String() string {
	shape := s.Kind.String()
	if s.Array {
		shape = "[]" + shape
	}
	return s.Mode.String() + " " + shape
}

// ---------------------------------------------------------------------------
// Coercion
// ---------------------------------------------------------------------------

// ErrType reports a value whose Go type cannot represent the slot's kind.
var ErrType = errors.New("incompatible native type")

// Coerce converts v, as produced by a native layer or a wire decoder, into
// the canonical Go type for kind (and the slice type when array is set).
// nil coerces to the zero value.
func Coerce(kind Kind, array bool, v any) (any, error) {
	if array {
		return coerceArray(kind, v)
	}
	if v == nil {
		return Slot{Kind: kind}.Zero(), nil
	}
	switch kind {
	case Int:
		return toInt32(v)
	case Double:
		return toFloat64(v)
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int16:
			// VARIANT_BOOL
			return b != 0, nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s", ErrType, v, kind)
}

func coerceArray(kind Kind, v any) (any, error) {
	if v == nil {
		return Slot{Kind: kind, Array: true}.Zero(), nil
	}
	switch a := v.(type) {
	case []int32:
		if kind == Int {
			return a, nil
		}
	case []float64:
		if kind == Double {
			return a, nil
		}
	case []bool:
		if kind == Bool {
			return a, nil
		}
	case []string:
		if kind == String {
			return a, nil
		}
	case []any:
		return coerceEach(kind, a)
	}
	return nil, fmt.Errorf("%w: %T for []%s", ErrType, v, kind)
}

func coerceEach(kind Kind, elems []any) (any, error) {
	switch kind {
	case Int:
		return coerceSlice[int32](kind, elems)
	case Double:
		return coerceSlice[float64](kind, elems)
	case Bool:
		return coerceSlice[bool](kind, elems)
	case String:
		return coerceSlice[string](kind, elems)
	}
	return nil, fmt.Errorf("%w: unknown kind %s", ErrType, kind)
}

func coerceSlice[T any](kind Kind, elems []any) (any, error) {
	out := make([]T, len(elems))
	for i, e := range elems {
		c, err := Coerce(kind, false, e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = c.(T)
	}
	return out, nil
}

func toInt32(v any) (int32, error) {
	var n int64
	switch x := v.(type) {
	case int32:
		return x, nil
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d overflows int32", ErrType, x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("%w: %T for int", ErrType, v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d overflows int32", ErrType, n)
	}
	return int32(n), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%w: %T for double", ErrType, v)
}
