package optable

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"

	"github.com/chazu/oapi/native"
)

//go:embed schema.cue
var schemaSrc string

// Table files are TOML:
//
//	[[op]]
//	name = "PropFrame.GetNameList"
//	params = [
//	  { name = "NumberNames", type = "int", mode = "ref", optional = true },
//	  { name = "MyName", type = "[]string", mode = "ref", optional = true },
//	]
type file struct {
	Op []fileOp `json:"op"`
}

type fileOp struct {
	Name   string      `json:"name"`
	Doc    string      `json:"doc"`
	Params []fileParam `json:"params"`
}

type fileParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Optional bool   `json:"optional"`
}

// LoadFile reads a table file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a table file and validates it against the table schema.
func Parse(data []byte) (*Table, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	f, err := validate(raw)
	if err != nil {
		return nil, err
	}

	t := New()
	for _, fo := range f.Op {
		op, err := fo.op()
		if err != nil {
			return nil, err
		}
		if err := t.Add(op); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func validate(raw map[string]any) (*file, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("table schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#File")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, errors.New(strings.TrimSpace(cueerrors.Details(err, nil)))
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}
	return &f, nil
}

func (fo fileOp) op() (*Op, error) {
	op := &Op{Name: fo.Name, Doc: fo.Doc}
	for _, fp := range fo.Params {
		kind, array, err := ParseType(fp.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fo.Name, fp.Name, err)
		}
		mode := native.ByVal
		if fp.Mode == "ref" {
			mode = native.ByRef
		}
		op.Params = append(op.Params, Param{
			Name:     fp.Name,
			Mode:     mode,
			Kind:     kind,
			Array:    array,
			Optional: fp.Optional,
		})
	}
	return op, nil
}

// ParseType parses "double" or "[]double" style parameter types.
func ParseType(s string) (native.Kind, bool, error) {
	elem, array := strings.CutPrefix(s, "[]")
	kind, err := native.ParseKind(elem)
	return kind, array, err
}

// Encode renders t in table file form.
func Encode(t *Table) ([]byte, error) {
	var f struct {
		Op []tomlOp `toml:"op"`
	}
	for _, op := range t.Ops() {
		to := tomlOp{Name: op.Name, Doc: op.Doc}
		for _, p := range op.Params {
			tp := tomlParam{Name: p.Name, Type: p.Type(), Mode: p.Mode.String(), Optional: p.Optional}
			to.Params = append(to.Params, tp)
		}
		f.Op = append(f.Op, to)
	}
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(f); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

type tomlOp struct {
	Name   string      `toml:"name"`
	Doc    string      `toml:"doc,omitempty"`
	Params []tomlParam `toml:"params"`
}

type tomlParam struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Mode     string `toml:"mode"`
	Optional bool   `toml:"optional,omitempty"`
}
