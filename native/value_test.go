package native

import (
	"errors"
	"reflect"
	"testing"
)

func TestCoerceScalars(t *testing.T) {
	tests := []struct {
		kind Kind
		in   any
		want any
	}{
		{Int, int32(7), int32(7)},
		{Int, int64(-3), int32(-3)},
		{Int, uint64(42), int32(42)},
		{Int, nil, int32(0)},
		{Double, float32(1.5), float64(1.5)},
		{Double, int32(2), float64(2)},
		{Bool, true, true},
		{Bool, int16(-1), true},
		{String, "W14X90", "W14X90"},
		{String, nil, ""},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.kind, false, tt.in)
		if err != nil {
			t.Errorf("Coerce(%s, %v): %v", tt.kind, tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Coerce(%s, %v) = %#v, want %#v", tt.kind, tt.in, got, tt.want)
		}
	}
}

func TestCoerceRejects(t *testing.T) {
	tests := []struct {
		kind Kind
		in   any
	}{
		{Int, int64(1) << 40},
		{Int, "5"},
		{Double, "5"},
		{Bool, 1.0},
		{String, 3},
	}
	for _, tt := range tests {
		if _, err := Coerce(tt.kind, false, tt.in); !errors.Is(err, ErrType) {
			t.Errorf("Coerce(%s, %#v) error = %v, want ErrType", tt.kind, tt.in, err)
		}
	}
}

func TestCoerceArrays(t *testing.T) {
	got, err := Coerce(Double, true, []any{float64(1), float32(2), int32(3)})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{1, 2, 3}) {
		t.Errorf("got %#v", got)
	}

	got, err = Coerce(String, true, []any{"a", "b"})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %#v", got)
	}

	got, err = Coerce(Int, true, nil)
	if err != nil {
		t.Fatalf("Coerce nil: %v", err)
	}
	if v, ok := got.([]int32); !ok || len(v) != 0 {
		t.Errorf("nil array coerced to %#v", got)
	}

	if _, err := Coerce(Int, true, []float64{1}); !errors.Is(err, ErrType) {
		t.Errorf("mismatched slice type: err = %v", err)
	}
	if _, err := Coerce(Bool, true, []any{true, "x"}); !errors.Is(err, ErrType) {
		t.Errorf("bad element: err = %v", err)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		in   any
		want Code
		err  bool
	}{
		{nil, CodeOK, false},
		{int32(0), CodeOK, false},
		{int32(1), 1, false},
		{int64(-1), CodeFailed, false},
		{true, 0, true},
		{"0", 0, true},
	}
	for _, tt := range tests {
		got, err := CodeOf(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("CodeOf(%#v) error = %v", tt.in, err)
			continue
		}
		if !tt.err && got != tt.want {
			t.Errorf("CodeOf(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlotHelpers(t *testing.T) {
	s := Slot{Mode: ByRef, Kind: String, Array: true, Value: []string{"a", "b", "c"}}
	if s.Len() != 3 {
		t.Errorf("Len = %d", s.Len())
	}
	if s.String() != "ref []string" {
		t.Errorf("String = %q", s.String())
	}
	if z := (Slot{Kind: Bool}).Zero(); z != false {
		t.Errorf("Zero = %#v", z)
	}
	for _, k := range []Kind{Int, Double, Bool, String} {
		back, err := ParseKind(k.String())
		if err != nil || back != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), back, err)
		}
	}
}
