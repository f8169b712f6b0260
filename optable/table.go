// Package optable is the enumerated operation table: the typed signature of
// every server operation the facade knows, used to check argument lists
// before they reach the server and to generate typed wrappers.
package optable

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/oapi/native"
)

// ErrUnknownOp is returned for an operation name missing from the table.
var ErrUnknownOp = errors.New("unknown operation")

// Param is one positional parameter of an operation.
type Param struct {
	Name  string
	Mode  native.Mode // ByVal or ByRef
	Kind  native.Kind
	Array bool
	// Optional outputs may be passed as a NotNeeded sentinel; the wrapper
	// generator collects trailing optional outputs into an options struct.
	Optional bool
}

// Type renders the parameter type as it is written in table files.
func (p Param) Type() string {
	if p.Array {
		return "[]" + p.Kind.String()
	}
	return p.Kind.String()
}

func (p Param) String() string {
	return fmt.Sprintf("%s %s %s", p.Name, p.Mode, p.Type())
}

// Op is the signature of one server operation.
type Op struct {
	// Name is the native method name, dotted for sub-objects
	// ("PropFrame.GetNameList").
	Name   string
	Doc    string
	Params []Param
}

func (op *Op) String() string {
	parts := make([]string, len(op.Params))
	for i, p := range op.Params {
		parts[i] = p.String()
	}
	return op.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Table maps operation names to signatures.
type Table struct {
	ops map[string]*Op
}

// New returns an empty table.
func New() *Table {
	return &Table{ops: make(map[string]*Op)}
}

// Add registers op, replacing any earlier operation of the same name.
func (t *Table) Add(op *Op) error {
	if op.Name == "" {
		return errors.New("optable: operation without a name")
	}
	seen := make(map[string]bool, len(op.Params))
	for _, p := range op.Params {
		if seen[p.Name] {
			return fmt.Errorf("optable: %s: duplicate parameter %q", op.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Optional && p.Mode != native.ByRef {
			return fmt.Errorf("optable: %s: input parameter %q cannot be optional", op.Name, p.Name)
		}
	}
	t.ops[op.Name] = op
	return nil
}

// Lookup returns the operation named name, or nil.
func (t *Table) Lookup(name string) *Op {
	return t.ops[name]
}

// Len returns the number of operations.
func (t *Table) Len() int { return len(t.ops) }

// Names returns the operation names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.ops))
	for name := range t.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ops returns the operations sorted by name.
func (t *Table) Ops() []*Op {
	names := t.Names()
	ops := make([]*Op, len(names))
	for i, name := range names {
		ops[i] = t.ops[name]
	}
	return ops
}

// SignatureError reports an argument list that does not match an operation.
type SignatureError struct {
	Op     string
	Index  int // -1 when the error is not about one argument
	Reason string
	err    error
}

func (e *SignatureError) Unwrap() error { return e.err }

func (e *SignatureError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: argument %d: %s", e.Op, e.Index, e.Reason)
}

// Check verifies that marshaled slots fit the signature of the named
// operation: same count, and per position the same kind, shape and mode.
// Only an optional output may be filled with a NotNeeded sentinel.
func (t *Table) Check(name string, slots []native.Slot) error {
	op := t.ops[name]
	if op == nil {
		return &SignatureError{Op: name, Index: -1, Reason: ErrUnknownOp.Error(), err: ErrUnknownOp}
	}
	if len(slots) != len(op.Params) {
		return &SignatureError{
			Op:     name,
			Index:  -1,
			Reason: fmt.Sprintf("got %d arguments, want %d", len(slots), len(op.Params)),
		}
	}
	for i, p := range op.Params {
		s := slots[i]
		if s.Kind != p.Kind || s.Array != p.Array {
			return &SignatureError{Op: name, Index: i, Reason: fmt.Sprintf("%s: got %s, want %s", p.Name, s, p.Type())}
		}
		switch p.Mode {
		case native.ByVal:
			if s.Mode != native.ByVal {
				return &SignatureError{Op: name, Index: i, Reason: fmt.Sprintf("%s is an input, got %s", p.Name, s.Mode)}
			}
		case native.ByRef:
			if s.Mode == native.ByVal {
				return &SignatureError{Op: name, Index: i, Reason: fmt.Sprintf("%s is by reference, got a value", p.Name)}
			}
			if s.Mode == native.Discard && !p.Optional {
				return &SignatureError{Op: name, Index: i, Reason: fmt.Sprintf("%s is required, got a not-needed sentinel", p.Name)}
			}
		}
	}
	return nil
}
