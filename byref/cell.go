// Package byref provides the in/out parameter holders passed to the invoker:
// single-value cells, array cells, and the "not needed" sentinels that fill
// an output slot the caller does not care about.
package byref

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/oapi/native"
)

var (
	// ErrInvalidState is returned when reading a value that was never requested.
	ErrInvalidState = errors.New("byref: output was marked not needed")
	// ErrOverflow is returned when an int does not fit the native 32-bit slot.
	ErrOverflow = errors.New("byref: value overflows native int")
)

// Scalar is the set of Go types a cell can hold.
type Scalar interface {
	int | int32 | float64 | bool | string
}

// Param is anything the invoker passes by reference.
type Param interface {
	// Slot returns the native representation to pass to the server.
	Slot() (native.Slot, error)
	// Load copies the server's final value back. Sentinels ignore it.
	Load(native.Slot) error
	// Stage converts the server's final value without storing it; the
	// returned commit stores it. Sentinels return a no-op commit.
	Stage(native.Slot) (commit func(), err error)
	// Needed is false for sentinels.
	Needed() bool
}

// Out is an in/out scalar parameter: either a *Cell or a NotNeeded sentinel.
type Out[T Scalar] interface {
	Param
	Get() (T, error)
	Set(T)
}

// ---------------------------------------------------------------------------
// Cell
// ---------------------------------------------------------------------------

// Cell holds one value of T standing in for a by-reference argument.
type Cell[T Scalar] struct {
	v T
}

// NewCell returns a cell holding v.
func NewCell[T Scalar](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Value returns the held value.
func (c *Cell[T]) Value() T { return c.v }

func (c *Cell[T]) Get() (T, error) { return c.v, nil }

func (c *Cell[T]) Set(v T) { c.v = v }

func (c *Cell[T]) Needed() bool { return true }

func (c *Cell[T]) Slot() (native.Slot, error) {
	if c == nil {
		return native.Slot{}, nilParam(c)
	}
	v, err := toNative(c.v)
	if err != nil {
		return native.Slot{}, err
	}
	return native.Slot{Mode: native.ByRef, Kind: kindOf[T](), Value: v}, nil
}

func (c *Cell[T]) Load(s native.Slot) error {
	commit, err := c.Stage(s)
	if err != nil {
		return err
	}
	commit()
	return nil
}

func (c *Cell[T]) Stage(s native.Slot) (func(), error) {
	if c == nil {
		return nil, nilParam(c)
	}
	v, err := fromNative[T](s.Value)
	if err != nil {
		return nil, err
	}
	return func() { c.v = v }, nil
}

func (c *Cell[T]) String() string { return fmt.Sprint(c.v) }

// ---------------------------------------------------------------------------
// Sentinel
// ---------------------------------------------------------------------------

// notNeeded has no fields, so there is nothing to mutate: every copy is the
// same read-only value and may be shared freely between goroutines.
type notNeeded[T Scalar] struct{}

// NotNeeded returns the sentinel for an output of type T the caller does not want.
func NotNeeded[T Scalar]() Out[T] { return notNeeded[T]{} }

var (
	NoInt    = NotNeeded[int]()
	NoInt32  = NotNeeded[int32]()
	NoDouble = NotNeeded[float64]()
	NoBool   = NotNeeded[bool]()
	NoString = NotNeeded[string]()
)

func (notNeeded[T]) Get() (T, error) {
	var zero T
	return zero, ErrInvalidState
}

func (notNeeded[T]) Set(T) {}

func (notNeeded[T]) Needed() bool { return false }

func (notNeeded[T]) Slot() (native.Slot, error) {
	return native.Slot{Mode: native.Discard, Kind: kindOf[T]()}, nil
}

func (notNeeded[T]) Load(native.Slot) error { return nil }

func (notNeeded[T]) Stage(native.Slot) (func(), error) { return func() {}, nil }

func (notNeeded[T]) String() string { return "<not needed>" }

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// nilParam reports a nil *Cell or *Array passed where a holder is required.
func nilParam(p any) error {
	return fmt.Errorf("%w: nil %T", native.ErrType, p)
}

func kindOf[T Scalar]() native.Kind {
	var zero T
	switch any(zero).(type) {
	case int, int32:
		return native.Int
	case float64:
		return native.Double
	case bool:
		return native.Bool
	default:
		return native.String
	}
}

func toNative[T Scalar](v T) (any, error) {
	if n, ok := any(v).(int); ok {
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d", ErrOverflow, n)
		}
		return int32(n), nil
	}
	return v, nil
}

func fromNative[T Scalar](v any) (T, error) {
	var zero T
	c, err := native.Coerce(kindOf[T](), false, v)
	if err != nil {
		return zero, err
	}
	if _, ok := any(zero).(int); ok {
		return any(int(c.(int32))).(T), nil
	}
	return c.(T), nil
}
