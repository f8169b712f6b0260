package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/oapi/byref"
	"github.com/chazu/oapi/invoke"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

func TestArgsFromSyntax(t *testing.T) {
	args, outs, err := argsFromSyntax([]string{
		"int:5", "double:2.5", "bool:true", "string:F1", "plain",
		"[]double:1,2.5", "[]int:3,4", "[]string:",
		"&int", "&double=1.25", "_[]string", "_bool",
	})
	if err != nil {
		t.Fatalf("argsFromSyntax: %v", err)
	}
	want := []any{5, 2.5, true, "F1", "plain", []float64{1, 2.5}, []int32{3, 4}, []string{}}
	if !reflect.DeepEqual(args[:len(want)], want) {
		t.Errorf("values = %#v, want %#v", args[:len(want)], want)
	}
	if len(outs) != 2 || outs[0].name != "#8" || outs[1].name != "#9" {
		t.Fatalf("outs = %+v", outs)
	}
	if c, ok := args[9].(*byref.Cell[float64]); !ok || c.Value() != 1.25 {
		t.Errorf("initialized cell = %#v", args[9])
	}
	if args[10] != byref.NoStrings || args[11] != byref.NoBool {
		t.Errorf("sentinels = %#v, %#v", args[10], args[11])
	}
}

func TestArgsFromSyntaxErrors(t *testing.T) {
	for _, tok := range []string{"int:x", "&float", "_word", "&int=1.5", "[]bool:true,maybe"} {
		if _, _, err := argsFromSyntax([]string{tok}); err == nil {
			t.Errorf("%q accepted", tok)
		}
	}
}

func TestArgsFromTable(t *testing.T) {
	op := &optable.Op{
		Name: "PointObj.GetCoordCartesian",
		Params: []optable.Param{
			{Name: "Name", Mode: native.ByVal, Kind: native.String},
			{Name: "X", Mode: native.ByRef, Kind: native.Double},
			{Name: "Y", Mode: native.ByRef, Kind: native.Double},
			{Name: "Z", Mode: native.ByRef, Kind: native.Double, Optional: true},
		},
	}

	args, outs, err := argsFromTable(op, []string{"P1"}, map[string]bool{"Z": true, "X": true})
	if err != nil {
		t.Fatalf("argsFromTable: %v", err)
	}
	if len(args) != 4 || args[0] != "P1" || args[3] != byref.NoDouble {
		t.Errorf("args = %#v", args)
	}
	// Only optional outputs may be skipped.
	if len(outs) != 2 || outs[0].name != "X" || outs[1].name != "Y" {
		t.Errorf("outs = %+v", outs)
	}

	if _, _, err := argsFromTable(op, nil, nil); err == nil || !strings.Contains(err.Error(), "missing value for Name") {
		t.Errorf("missing input error = %v", err)
	}
	if _, _, err := argsFromTable(op, []string{"P1", "extra"}, nil); err == nil {
		t.Error("extra input accepted")
	}
}

func TestCallPrintsOutputs(t *testing.T) {
	srv := native.DispatcherFunc(func(method string, slots []native.Slot) (native.Code, error) {
		slots[1].Value = int32(2)
		slots[2].Value = []string{"A", "B"}
		return native.CodeOK, nil
	})
	args, outs, err := argsFromSyntax([]string{"string:G1", "&int", "&[]string"})
	if err != nil {
		t.Fatal(err)
	}
	code, err := invoke.New(srv).Invoke("GroupDef.GetNameList", args...)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	printResult(&buf, "GroupDef.GetNameList", code, outs)
	want := "GroupDef.GetNameList: 0\n  #1 = 2\n  #2 = [A B]\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestDegradedCallPrintsFailure(t *testing.T) {
	inv := invoke.New(nil)
	code, err := inv.Invoke("File.Save", "a.sdb")
	var nie *invoke.NativeInvocationError
	if !errors.As(err, &nie) {
		t.Fatalf("error = %v", err)
	}
	var buf bytes.Buffer
	printResult(&buf, "File.Save", code, nil)
	if buf.String() != "File.Save: -1\n" {
		t.Errorf("output = %q", buf.String())
	}
}
