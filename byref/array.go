package byref

import (
	"errors"
	"fmt"

	"github.com/chazu/oapi/native"
)

// ErrIndexOutOfRange matches every *IndexOutOfRangeError.
var ErrIndexOutOfRange = errors.New("byref: index out of range")

// IndexOutOfRangeError reports an array access outside [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("byref: index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// ArrayOut is an in/out array parameter: either an *Array or a NotNeededArray sentinel.
type ArrayOut[T Scalar] interface {
	Param
	Len() int
	At(i int) (T, error)
	SetAt(i int, v T) error
	Values() []T
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// Array holds a sequence of T standing in for a by-reference array argument.
//
// An empty array lets the server choose the length. A preallocated one is
// sent with its current length. After a call the length is whatever the
// server reported.
type Array[T Scalar] struct {
	elems []T
}

// NewArray returns an empty array for the server to size and fill.
func NewArray[T Scalar]() *Array[T] { return &Array[T]{} }

// MakeArray returns an array preallocated to n zero elements.
func MakeArray[T Scalar](n int) *Array[T] {
	return &Array[T]{elems: make([]T, n)}
}

// ArrayOf returns an array preallocated with vals.
func ArrayOf[T Scalar](vals ...T) *Array[T] {
	return &Array[T]{elems: append([]T(nil), vals...)}
}

func (a *Array[T]) Len() int { return len(a.elems) }

func (a *Array[T]) At(i int) (T, error) {
	if i < 0 || i >= len(a.elems) {
		var zero T
		return zero, &IndexOutOfRangeError{Index: i, Len: len(a.elems)}
	}
	return a.elems[i], nil
}

func (a *Array[T]) SetAt(i int, v T) error {
	if i < 0 || i >= len(a.elems) {
		return &IndexOutOfRangeError{Index: i, Len: len(a.elems)}
	}
	a.elems[i] = v
	return nil
}

// Values returns a copy of the elements.
func (a *Array[T]) Values() []T { return append([]T(nil), a.elems...) }

func (a *Array[T]) Needed() bool { return true }

func (a *Array[T]) Slot() (native.Slot, error) {
	if a == nil {
		return native.Slot{}, nilParam(a)
	}
	v, err := sliceToNative(a.elems)
	if err != nil {
		return native.Slot{}, err
	}
	return native.Slot{Mode: native.ByRef, Kind: kindOf[T](), Array: true, Value: v}, nil
}

func (a *Array[T]) Load(s native.Slot) error {
	commit, err := a.Stage(s)
	if err != nil {
		return err
	}
	commit()
	return nil
}

func (a *Array[T]) Stage(s native.Slot) (func(), error) {
	if a == nil {
		return nil, nilParam(a)
	}
	elems, err := sliceFromNative[T](s.Value)
	if err != nil {
		return nil, err
	}
	return func() { a.elems = elems }, nil
}

func (a *Array[T]) String() string { return fmt.Sprint(a.elems) }

// ---------------------------------------------------------------------------
// Sentinel
// ---------------------------------------------------------------------------

type notNeededArray[T Scalar] struct{}

// NotNeededArray returns the sentinel for an array output the caller does not want.
func NotNeededArray[T Scalar]() ArrayOut[T] { return notNeededArray[T]{} }

var (
	NoInts    = NotNeededArray[int]()
	NoInt32s  = NotNeededArray[int32]()
	NoDoubles = NotNeededArray[float64]()
	NoBools   = NotNeededArray[bool]()
	NoStrings = NotNeededArray[string]()
)

func (notNeededArray[T]) Len() int { return 0 }

func (notNeededArray[T]) At(int) (T, error) {
	var zero T
	return zero, ErrInvalidState
}

func (notNeededArray[T]) SetAt(int, T) error { return nil }

func (notNeededArray[T]) Values() []T { return nil }

func (notNeededArray[T]) Needed() bool { return false }

func (notNeededArray[T]) Slot() (native.Slot, error) {
	return native.Slot{Mode: native.Discard, Kind: kindOf[T](), Array: true}, nil
}

func (notNeededArray[T]) Load(native.Slot) error { return nil }

func (notNeededArray[T]) Stage(native.Slot) (func(), error) { return func() {}, nil }

func (notNeededArray[T]) String() string { return "<not needed>" }

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func sliceToNative[T Scalar](elems []T) (any, error) {
	if ints, ok := any(elems).([]int); ok {
		out := make([]int32, len(ints))
		for i, n := range ints {
			v, err := toNative(n)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v.(int32)
		}
		return out, nil
	}
	return append([]T{}, elems...), nil
}

func sliceFromNative[T Scalar](v any) ([]T, error) {
	c, err := native.Coerce(kindOf[T](), true, v)
	if err != nil {
		return nil, err
	}
	if _, ok := any([]T(nil)).([]int); ok {
		src := c.([]int32)
		out := make([]int, len(src))
		for i, n := range src {
			out[i] = int(n)
		}
		return any(out).([]T), nil
	}
	return append([]T{}, c.([]T)...), nil
}
