package optable

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/chazu/oapi/native"
)

const byrefPath = "github.com/chazu/oapi/byref"

// Introspect loads the Go package matched by pattern and builds a table from
// its exported interfaces. Each explicit method of an interface becomes one
// operation named by NativeName. Parameters map as follows:
//
//	int, int32, float64, bool, string and slices of them   input
//	*byref.Cell[T], *byref.Array[T]                         output
//	byref.Out[T], byref.ArrayOut[T]                         optional output
//
// dir, when non-empty, is the directory the pattern is resolved in.
func Introspect(dir, pattern string) (*Table, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", pattern)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", pattern)
	}

	t := New()
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() {
			continue
		}
		iface, ok := tn.Type().Underlying().(*types.Interface)
		if !ok {
			continue
		}
		ops, err := interfaceOps(tn.Name(), iface)
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			if err := t.Add(op); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func interfaceOps(name string, iface *types.Interface) ([]*Op, error) {
	var ops []*Op
	for i := 0; i < iface.NumExplicitMethods(); i++ {
		fn := iface.ExplicitMethod(i)
		if !fn.Exported() {
			continue
		}
		op := &Op{Name: NativeName(name, fn.Name())}
		params := fn.Type().(*types.Signature).Params()
		for j := 0; j < params.Len(); j++ {
			v := params.At(j)
			p, err := paramFromType(v.Type())
			if err != nil {
				return nil, fmt.Errorf("%s.%s: parameter %d: %w", name, fn.Name(), j, err)
			}
			p.Name = v.Name()
			if p.Name == "" || p.Name == "_" {
				p.Name = fmt.Sprintf("p%d", j)
			}
			op.Params = append(op.Params, p)
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops, nil
}

func paramFromType(t types.Type) (Param, error) {
	if kind, ok := basicKind(t); ok {
		return Param{Mode: native.ByVal, Kind: kind}, nil
	}
	if s, ok := t.(*types.Slice); ok {
		if kind, ok := basicKind(s.Elem()); ok {
			return Param{Mode: native.ByVal, Kind: kind, Array: true}, nil
		}
	}

	optional := true
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
		optional = false
	}
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() == nil || named.Obj().Pkg().Path() != byrefPath || named.TypeArgs().Len() != 1 {
		return Param{}, fmt.Errorf("unsupported type %s", t)
	}
	kind, ok := basicKind(named.TypeArgs().At(0))
	if !ok {
		return Param{}, fmt.Errorf("unsupported element type in %s", t)
	}

	p := Param{Mode: native.ByRef, Kind: kind}
	switch name := named.Obj().Name(); {
	case name == "Out" && optional, name == "Cell" && !optional:
	case name == "ArrayOut" && optional, name == "Array" && !optional:
		p.Array = true
	default:
		return Param{}, fmt.Errorf("unsupported type %s", t)
	}
	p.Optional = optional
	return p, nil
}

func basicKind(t types.Type) (native.Kind, bool) {
	b, ok := t.(*types.Basic)
	if !ok {
		return 0, false
	}
	switch b.Kind() {
	case types.Int, types.Int32:
		return native.Int, true
	case types.Float64:
		return native.Double, true
	case types.Bool:
		return native.Bool, true
	case types.String:
		return native.String, true
	}
	return 0, false
}
