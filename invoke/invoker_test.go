package invoke

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/byref"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

// echo leaves every slot unchanged and succeeds; Fail reports code 1.
func echo(method string, slots []native.Slot) (native.Code, error) {
	if method == "Fail" {
		return 1, nil
	}
	return native.CodeOK, nil
}

func TestEchoCellKeepsValue(t *testing.T) {
	inv := New(native.DispatcherFunc(echo))
	cell := byref.NewCell(5)
	code, err := inv.Invoke("Echo", cell)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if code != native.CodeOK {
		t.Errorf("code = %d, want 0", code)
	}
	if cell.Value() != 5 {
		t.Errorf("cell = %d, want 5", cell.Value())
	}
}

func TestFailReturnsCodeWithoutError(t *testing.T) {
	inv := New(native.DispatcherFunc(echo))
	code, err := inv.Invoke("Fail")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if code.OK() {
		t.Error("Fail returned code 0")
	}
}

func TestScalarRoundTrip(t *testing.T) {
	inv := New(native.DispatcherFunc(echo))
	tests := []struct {
		name  string
		cell byref.Param
		want any
	}{
		{"int", byref.NewCell(-42), -42},
		{"int32", byref.NewCell(int32(7)), int32(7)},
		{"double", byref.NewCell(3.25), 3.25},
		{"bool", byref.NewCell(true), true},
		{"string", byref.NewCell("W14X90"), "W14X90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := inv.Invoke("Echo", tt.cell); err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			// Each cell is a *byref.Cell[T]; Value is reached by reflection.
			got := reflect.ValueOf(tt.cell).MethodByName("Value").Call(nil)[0].Interface()
			if got != tt.want {
				t.Errorf("after round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNeverBootstrappedHandle(t *testing.T) {
	h := bridge.Open(bridge.Options{})
	defer h.Close()
	inv := New(h)

	code, err := inv.Invoke("SapModel.InitializeNewModel", 6)
	var nie *NativeInvocationError
	if !errors.As(err, &nie) {
		t.Fatalf("error = %v, want *NativeInvocationError", err)
	}
	if code == native.CodeOK {
		t.Error("failed invocation returned code 0")
	}
	if !errors.Is(err, bridge.ErrNotLoaded) {
		t.Errorf("error does not wrap ErrNotLoaded: %v", err)
	}
	if nie.Method != "SapModel.InitializeNewModel" || nie.Args != 1 {
		t.Errorf("error = %+v", nie)
	}
}

func TestNilTarget(t *testing.T) {
	var nie *NativeInvocationError
	if _, err := New(nil).Invoke("Echo"); !errors.As(err, &nie) {
		t.Errorf("error = %v", err)
	}
}

func TestOutputsCopiedBackOnlyIntoNeededCells(t *testing.T) {
	var seen []native.Slot
	srv := native.DispatcherFunc(func(method string, slots []native.Slot) (native.Code, error) {
		seen = append([]native.Slot(nil), slots...)
		slots[1].Value = int32(3)
		slots[2].Value = []string{"A", "B", "C"}
		slots[3].Value = []float64{9, 9}
		return 2, nil
	})
	inv := New(srv)

	n := byref.NewCell(0)
	names := byref.NewArray[string]()
	code, err := inv.Invoke("FrameObj.GetNameList", "All", n, names, byref.NoDoubles)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	// Copied back whatever the code.
	if code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
	if n.Value() != 3 || !reflect.DeepEqual(names.Values(), []string{"A", "B", "C"}) {
		t.Errorf("outputs = %d, %v", n.Value(), names.Values())
	}
	if byref.NoDoubles.Len() != 0 {
		t.Error("sentinel received values")
	}

	wantModes := []native.Mode{native.ByVal, native.ByRef, native.ByRef, native.Discard}
	for i, s := range seen {
		if s.Mode != wantModes[i] {
			t.Errorf("slot %d mode = %s, want %s", i, s.Mode, wantModes[i])
		}
	}
	if seen[0].Value != "All" {
		t.Errorf("input slot = %#v", seen[0].Value)
	}
}

func TestCopyBackFailureIsInvocationError(t *testing.T) {
	srv := native.DispatcherFunc(func(method string, slots []native.Slot) (native.Code, error) {
		slots[0].Value = "not a number"
		return 0, nil
	})
	var nie *NativeInvocationError
	if _, err := New(srv).Invoke("Echo", byref.NewCell(1)); !errors.As(err, &nie) {
		t.Errorf("error = %v", err)
	}
}

func TestUnsupportedArgument(t *testing.T) {
	called := false
	srv := native.DispatcherFunc(func(string, []native.Slot) (native.Code, error) {
		called = true
		return 0, nil
	})
	_, err := New(srv).Invoke("Echo", struct{}{})
	if !errors.Is(err, native.ErrType) {
		t.Errorf("error = %v, want ErrType", err)
	}
	if called {
		t.Error("server called with an unsupported argument")
	}
}

func TestCallChecksSignature(t *testing.T) {
	tab := optable.New()
	tab.Add(&optable.Op{
		Name: "PropFrame.GetNameList",
		Params: []optable.Param{
			{Name: "NumberNames", Mode: native.ByRef, Kind: native.Int, Optional: true},
			{Name: "MyName", Mode: native.ByRef, Kind: native.String, Array: true, Optional: true},
		},
	})
	calls := 0
	srv := native.DispatcherFunc(func(string, []native.Slot) (native.Code, error) {
		calls++
		return 0, nil
	})
	inv := New(srv, WithTable(tab))

	if _, err := inv.Call("PropFrame.GetNameList", byref.NoInt, byref.NoStrings); err != nil {
		t.Errorf("Call with sentinels: %v", err)
	}

	var se *optable.SignatureError
	if _, err := inv.Call("PropFrame.GetNameList", byref.NoInt); !errors.As(err, &se) {
		t.Errorf("short argument list error = %v", err)
	}
	if _, err := inv.Call("PropFrame.GetNameList", 5, byref.NoStrings); !errors.As(err, &se) {
		t.Errorf("value for output error = %v", err)
	}
	if _, err := inv.Call("Nope"); !errors.Is(err, optable.ErrUnknownOp) {
		t.Errorf("unknown op error = %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}

	if _, err := New(srv).Call("PropFrame.GetNameList"); err == nil {
		t.Error("Call without a table succeeded")
	}
}

type failingJournal struct{ entries []Entry }

func (j *failingJournal) Record(e Entry) error {
	j.entries = append(j.entries, e)
	return errors.New("disk full")
}

func TestJournalFailureDoesNotChangeOutcome(t *testing.T) {
	j := &failingJournal{}
	inv := New(native.DispatcherFunc(echo), WithJournal(j))
	code, err := inv.Invoke("Fail", "x")
	if err != nil || code != 1 {
		t.Errorf("Invoke = %v, %v", code, err)
	}
	if len(j.entries) != 1 || j.entries[0].Method != "Fail" || j.entries[0].Code != 1 || j.entries[0].Args != 1 {
		t.Errorf("journal entries = %+v", j.entries)
	}
}

func TestNilCellIsInvocationError(t *testing.T) {
	reached := false
	srv := native.DispatcherFunc(func(string, []native.Slot) (native.Code, error) {
		reached = true
		return native.CodeOK, nil
	})
	var cell *byref.Cell[int]
	code, err := New(srv).Invoke("Echo", cell)
	var nie *NativeInvocationError
	if !errors.As(err, &nie) || !errors.Is(err, native.ErrType) || code != native.CodeFailed {
		t.Errorf("Invoke(nil cell) = %v, %v", code, err)
	}
	if reached {
		t.Error("server called with a nil cell")
	}
}
