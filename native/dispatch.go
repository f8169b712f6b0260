package native

import (
	"errors"
	"fmt"
)

// Code is the status every server operation returns: 0 on success, anything
// else on failure. It carries no further detail.
type Code int32

const (
	CodeOK Code = 0
	// CodeFailed accompanies an error when the server produced no code at all.
	CodeFailed Code = -1
)

// OK reports whether c signals success.
func (c Code) OK() bool { return c == CodeOK }

func (c Code) String() string {
	if c.OK() {
		return "ok"
	}
	return fmt.Sprintf("failed(%d)", int32(c))
}

// CodeOf converts a server method's raw return value into a Code. A method
// with no return value (nil) counts as success.
func CodeOf(ret any) (Code, error) {
	if ret == nil {
		return CodeOK, nil
	}
	if b, ok := ret.(bool); ok {
		return 0, fmt.Errorf("%w: bool return %v is not a status code", ErrType, b)
	}
	n, err := toInt32(ret)
	if err != nil {
		return 0, fmt.Errorf("return value: %w", err)
	}
	return Code(n), nil
}

// Dispatcher performs a call by name against a live server object.
//
// Arguments are passed positionally in slot order. For ByRef slots the
// dispatcher replaces slots[i].Value with the value the server left there.
// Discard slots may be overwritten with anything. An error means no result
// code could be produced.
type Dispatcher interface {
	Dispatch(method string, slots []Slot) (Code, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(method string, slots []Slot) (Code, error)

func (f DispatcherFunc) Dispatch(method string, slots []Slot) (Code, error) {
	return f(method, slots)
}

// ErrUnsupported is returned when the platform has no Automation runtime.
var ErrUnsupported = errors.New("automation is not supported on this platform")

// ServerOptions selects the server object to connect to.
type ServerOptions struct {
	// ProgID names the server class, e.g. "CSI.SAP2000.API.SapObject".
	ProgID string
	// Attach connects to an already running instance instead of creating one.
	Attach bool
	// Root is a dotted property path walked from the created object to the
	// object methods are invoked on. Empty means the object itself.
	Root string
}
