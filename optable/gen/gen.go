// Package gen emits typed Go wrappers for an operation table.
//
// Each operation becomes a method on a generated Client. Inputs are plain Go
// parameters, required outputs are *byref.Cell / *byref.Array parameters and
// trailing optional outputs are gathered into a per-operation Outputs struct
// whose nil fields are passed to the server as NotNeeded sentinels.
package gen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

const (
	byrefPkg  = "github.com/chazu/oapi/byref"
	invokePkg = "github.com/chazu/oapi/invoke"
	nativePkg = "github.com/chazu/oapi/native"
)

// Generate renders the wrapper source for every operation in t into a file
// of package pkg.
func Generate(t *optable.Table, pkg string) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by oapi gen. DO NOT EDIT.")
	f.ImportName(byrefPkg, "byref")
	f.ImportName(invokePkg, "invoke")
	f.ImportName(nativePkg, "native")

	f.Comment("Client calls server operations through an Invoker.")
	f.Type().Id("Client").Struct(
		jen.Id("Invoker").Op("*").Qual(invokePkg, "Invoker"),
	)

	for _, op := range t.Ops() {
		if err := generateOp(f, op); err != nil {
			return nil, fmt.Errorf("%s: %w", op.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateOp(f *jen.File, op *optable.Op) error {
	goName := optable.GoName(op.Name)
	if goName == "" {
		return fmt.Errorf("no Go name for %q", op.Name)
	}

	// Trailing optional outputs go into the Outputs struct.
	split := len(op.Params)
	for split > 0 && op.Params[split-1].Optional {
		split--
	}
	leading, trailing := op.Params[:split], op.Params[split:]

	names := make(map[string]bool)
	local := func(name string) string {
		n := optable.ParamName(name)
		for n == "c" || n == "out" || names[n] {
			n += "_"
		}
		names[n] = true
		return n
	}

	var (
		sig  []jen.Code
		args []jen.Code
		body []jen.Code
	)
	for _, p := range leading {
		n := local(p.Name)
		typ, err := paramType(p)
		if err != nil {
			return err
		}
		sig = append(sig, jen.Id(n).Add(typ))
		args = append(args, jen.Id(n))
	}

	outputs := goName + "Outputs"
	if len(trailing) > 0 {
		fields := make([]jen.Code, len(trailing))
		for i, p := range trailing {
			fields[i] = jen.Id(optable.GoName(p.Name)).Add(cellType(p))
		}
		f.Commentf("%s holds the optional outputs of %s.", outputs, op.Name)
		f.Comment("A nil field is not requested from the server.")
		f.Type().Id(outputs).Struct(fields...)

		sig = append(sig, jen.Id("out").Op("*").Id(outputs))
		body = append(body, jen.If(jen.Id("out").Op("==").Nil()).Block(
			jen.Id("out").Op("=").Op("&").Id(outputs).Values(),
		))
		for _, p := range trailing {
			n := local(p.Name)
			field := jen.Id("out").Dot(optable.GoName(p.Name))
			body = append(body,
				jen.Var().Id(n).Qual(byrefPkg, "Param").Op("=").Add(sentinel(p)),
				jen.If(field.Clone().Op("!=").Nil()).Block(
					jen.Id(n).Op("=").Add(field.Clone()),
				),
			)
			args = append(args, jen.Id(n))
		}
	}

	call := append([]jen.Code{jen.Lit(op.Name)}, args...)
	body = append(body, jen.Return(jen.Id("c").Dot("Invoker").Dot("Invoke").Call(call...)))

	f.Commentf("%s calls %s.", goName, op.Name)
	if op.Doc != "" {
		f.Comment(op.Doc)
	}
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id(goName).Params(sig...).
		Params(jen.Qual(nativePkg, "Code"), jen.Error()).
		Block(body...)
	return nil
}

// paramType is the Go parameter type of a leading parameter.
func paramType(p optable.Param) (*jen.Statement, error) {
	if p.Mode == native.ByVal {
		if p.Array {
			if p.Kind == native.Int {
				return jen.Index().Int32(), nil
			}
			return jen.Index().Add(elemType(p.Kind)), nil
		}
		return elemType(p.Kind), nil
	}
	if p.Optional {
		if p.Array {
			return jen.Qual(byrefPkg, "ArrayOut").Types(elemType(p.Kind)), nil
		}
		return jen.Qual(byrefPkg, "Out").Types(elemType(p.Kind)), nil
	}
	return cellType(p), nil
}

func cellType(p optable.Param) *jen.Statement {
	if p.Array {
		return jen.Op("*").Qual(byrefPkg, "Array").Types(elemType(p.Kind))
	}
	return jen.Op("*").Qual(byrefPkg, "Cell").Types(elemType(p.Kind))
}

func sentinel(p optable.Param) *jen.Statement {
	if p.Array {
		return jen.Qual(byrefPkg, "NotNeededArray").Types(elemType(p.Kind)).Call()
	}
	return jen.Qual(byrefPkg, "NotNeeded").Types(elemType(p.Kind)).Call()
}

func elemType(k native.Kind) *jen.Statement {
	switch k {
	case native.Double:
		return jen.Float64()
	case native.Bool:
		return jen.Bool()
	case native.String:
		return jen.String()
	}
	return jen.Int()
}
