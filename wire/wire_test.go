package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/chazu/oapi/native"
)

func TestCallSurvivesCBOR(t *testing.T) {
	in := []native.Slot{
		{Mode: native.ByVal, Kind: native.String, Value: "F1"},
		{Mode: native.ByRef, Kind: native.Int, Value: int32(-7)},
		{Mode: native.ByRef, Kind: native.Double, Array: true, Value: []float64{1.5, 2.5}},
		{Mode: native.Discard, Kind: native.String, Array: true},
	}
	data, err := Marshal(Call{Method: "FrameObj.GetPoints", In: in, Code: 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Call
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := Normalize(got.In); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !reflect.DeepEqual(got.In, in) {
		t.Errorf("In = %#v, want %#v", got.In, in)
	}
	if got.Method != "FrameObj.GetPoints" || got.Code != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	c := Call{Method: "X", In: []native.Slot{{Mode: native.ByVal, Kind: native.Bool, Value: true}}}
	a, _ := Marshal(c)
	b, _ := Marshal(c)
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	vals := []int32{1, 2}
	slots := []native.Slot{{Mode: native.ByRef, Kind: native.Int, Array: true, Value: vals}}
	c := Clone(slots)
	vals[0] = 99
	if c[0].Value.([]int32)[0] != 1 {
		t.Error("clone shares the array")
	}
}

func TestCopyBack(t *testing.T) {
	slots := []native.Slot{
		{Mode: native.ByVal, Kind: native.Int, Value: int32(1)},
		{Mode: native.ByRef, Kind: native.Int},
		{Mode: native.ByRef, Kind: native.String, Array: true},
	}
	out := []native.Slot{
		{Value: uint64(5)},
		{Value: int64(42)},
		{Value: []any{"a", "b"}},
	}
	if err := CopyBack(slots, out); err != nil {
		t.Fatalf("CopyBack: %v", err)
	}
	if slots[0].Value != int32(1) {
		t.Error("by-value slot overwritten")
	}
	if slots[1].Value != int32(42) {
		t.Errorf("ref int = %#v", slots[1].Value)
	}
	if !reflect.DeepEqual(slots[2].Value, []string{"a", "b"}) {
		t.Errorf("ref []string = %#v", slots[2].Value)
	}
	if err := CopyBack(slots, out[:1]); err == nil {
		t.Error("CopyBack accepted mismatched lengths")
	}
}
