package optable

import (
	"testing"

	"github.com/chazu/oapi/native"
)

func TestIntrospect(t *testing.T) {
	tab, err := Introspect(".", "./testdata/sapapi")
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}

	want := map[string]string{
		"InitializeNewModel":    "InitializeNewModel(units val int)",
		"ApplicationExit":       "ApplicationExit(fileSave val bool)",
		"PropFrame.GetNameList": "PropFrame.GetNameList(numberNames ref int, myName ref []string)",
		"PropFrame.SetRectangle": "PropFrame.SetRectangle(name val string, matProp val string, " +
			"t3 val double, t2 val double)",
		"Results.Setup.DeselectAllCasesAndCombosForOutput": "Results.Setup.DeselectAllCasesAndCombosForOutput()",
		"FrameObj.GetPoints":         "FrameObj.GetPoints(name val string, point1 ref string, point2 ref string)",
		"FrameObj.SetLoadDistributed": "FrameObj.SetLoadDistributed(name val string, values val []double, dist ref []double)",
	}
	for name, sig := range want {
		op := tab.Lookup(name)
		if op == nil {
			t.Errorf("missing %s", name)
			continue
		}
		if op.String() != sig {
			t.Errorf("%s = %s, want %s", name, op, sig)
		}
	}
	if tab.Lookup("Hidden") != nil || tab.Lookup("internal.Hidden") != nil {
		t.Error("unexported interface was introspected")
	}

	gnl := tab.Lookup("PropFrame.GetNameList")
	for _, p := range gnl.Params {
		if !p.Optional {
			t.Errorf("%s: byref.Out parameter not optional", p.Name)
		}
	}
	pts := tab.Lookup("FrameObj.GetPoints")
	if pts.Params[1].Optional || pts.Params[1].Mode != native.ByRef {
		t.Errorf("point1 = %+v, want required output", pts.Params[1])
	}
}

func TestParamFromTypeRejectsUnknown(t *testing.T) {
	if _, err := Introspect(".", "./testdata/badapi"); err == nil {
		t.Error("Introspect accepted an unsupported parameter type")
	}
}
