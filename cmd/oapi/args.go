package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/oapi/byref"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

// output is a by-reference argument whose value is printed after the call.
type output struct {
	name  string
	param byref.Param
}

// argsFromTable builds the argument list of op from the input values given
// on the command line. Every output gets a fresh cell; optional outputs
// named in skip get a NotNeeded sentinel instead.
func argsFromTable(op *optable.Op, inputs []string, skip map[string]bool) ([]any, []output, error) {
	var (
		args []any
		outs []output
		next int
	)
	for _, p := range op.Params {
		if p.Mode == native.ByVal {
			if next >= len(inputs) {
				return nil, nil, fmt.Errorf("%s: missing value for %s (%s)", op.Name, p.Name, p.Type())
			}
			v, err := parseValue(p.Kind, p.Array, inputs[next])
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %s: %w", op.Name, p.Name, err)
			}
			next++
			args = append(args, v)
			continue
		}
		if p.Optional && skip[p.Name] {
			args = append(args, sentinel(p.Kind, p.Array))
			continue
		}
		cell := newCell(p.Kind, p.Array)
		args = append(args, cell)
		outs = append(outs, output{name: p.Name, param: cell})
	}
	if next < len(inputs) {
		return nil, nil, fmt.Errorf("%s: %d extra values", op.Name, len(inputs)-next)
	}
	return args, outs, nil
}

// argsFromSyntax builds an argument list from self-describing tokens:
//
//	int:5  double:2.5  bool:true  string:F1  []double:1,2,3   by value
//	&int  &[]string  &double=2.5                              by reference
//	_int  _[]string                                           not needed
//
// A token without a type prefix is a string.
func argsFromSyntax(tokens []string) ([]any, []output, error) {
	var (
		args []any
		outs []output
	)
	for i, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "&"):
			typ, init, hasInit := strings.Cut(tok[1:], "=")
			kind, array, err := optable.ParseType(typ)
			if err != nil {
				return nil, nil, fmt.Errorf("argument %d: %w", i, err)
			}
			cell := newCell(kind, array)
			if hasInit {
				if err := initCell(cell, kind, array, init); err != nil {
					return nil, nil, fmt.Errorf("argument %d: %w", i, err)
				}
			}
			args = append(args, cell)
			outs = append(outs, output{name: fmt.Sprintf("#%d", i), param: cell})
		case strings.HasPrefix(tok, "_"):
			kind, array, err := optable.ParseType(tok[1:])
			if err != nil {
				return nil, nil, fmt.Errorf("argument %d: %w", i, err)
			}
			args = append(args, sentinel(kind, array))
		default:
			typ, text, ok := strings.Cut(tok, ":")
			kind, array, err := optable.ParseType(typ)
			if !ok || err != nil {
				args = append(args, tok)
				continue
			}
			v, err := parseValue(kind, array, text)
			if err != nil {
				return nil, nil, fmt.Errorf("argument %d: %w", i, err)
			}
			args = append(args, v)
		}
	}
	return args, outs, nil
}

func parseValue(kind native.Kind, array bool, text string) (any, error) {
	if !array {
		return parseScalar(kind, text)
	}
	parts := []string{}
	if text != "" {
		parts = strings.Split(text, ",")
	}
	switch kind {
	case native.Int:
		return parseSlice(parts, func(s string) (int32, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			return int32(n), err
		})
	case native.Double:
		return parseSlice(parts, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	case native.Bool:
		return parseSlice(parts, strconv.ParseBool)
	}
	return parts, nil
}

func parseScalar(kind native.Kind, text string) (any, error) {
	switch kind {
	case native.Int:
		n, err := strconv.ParseInt(text, 10, 32)
		return int(n), err
	case native.Double:
		return strconv.ParseFloat(text, 64)
	case native.Bool:
		return strconv.ParseBool(text)
	}
	return text, nil
}

func parseSlice[T any](parts []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, len(parts))
	for i, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func newCell(kind native.Kind, array bool) byref.Param {
	if array {
		switch kind {
		case native.Int:
			return byref.NewArray[int]()
		case native.Double:
			return byref.NewArray[float64]()
		case native.Bool:
			return byref.NewArray[bool]()
		}
		return byref.NewArray[string]()
	}
	switch kind {
	case native.Int:
		return byref.NewCell(0)
	case native.Double:
		return byref.NewCell(0.0)
	case native.Bool:
		return byref.NewCell(false)
	}
	return byref.NewCell("")
}

// initCell gives a by-reference argument its value before the call. The
// value is installed through the cell's own Load so it is checked the same
// way a server result would be.
func initCell(cell byref.Param, kind native.Kind, array bool, text string) error {
	v, err := parseValue(kind, array, text)
	if err != nil {
		return err
	}
	return cell.Load(native.Slot{Mode: native.ByRef, Kind: kind, Array: array, Value: v})
}

func sentinel(kind native.Kind, array bool) byref.Param {
	if array {
		switch kind {
		case native.Int:
			return byref.NoInts
		case native.Double:
			return byref.NoDoubles
		case native.Bool:
			return byref.NoBools
		}
		return byref.NoStrings
	}
	switch kind {
	case native.Int:
		return byref.NoInt
	case native.Double:
		return byref.NoDouble
	case native.Bool:
		return byref.NoBool
	}
	return byref.NoString
}
