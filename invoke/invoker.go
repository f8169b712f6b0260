// Package invoke is the dynamic invoker: it marshals an ordered argument
// list into native slots, calls a server method by name and copies the
// server's outputs back into the caller's cells.
package invoke

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

// NativeInvocationError means the call could not produce a result code:
// the server was not loaded, rejected the method or an argument, or was in
// a bad state.
type NativeInvocationError struct {
	Method string
	Args   int
	Err    error
}

func (e *NativeInvocationError) Error() string {
	return fmt.Sprintf("invoke %s (%d args): %v", e.Method, e.Args, e.Err)
}

func (e *NativeInvocationError) Unwrap() error { return e.Err }

// Journal receives one entry per completed invocation.
type Journal interface {
	Record(Entry) error
}

// Entry describes one invocation for a Journal.
type Entry struct {
	At      time.Time
	Method  string
	Args    int
	Code    native.Code
	Err     error
	Elapsed time.Duration
}

// Invoker calls server methods through a Dispatcher. One call is in flight
// at a time; failed calls are never retried.
type Invoker struct {
	mu      sync.Mutex
	target  native.Dispatcher
	table   *optable.Table
	journal Journal
	log     commonlog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTable enables Call, which checks arguments against the table.
func WithTable(t *optable.Table) Option {
	return func(inv *Invoker) { inv.table = t }
}

// WithJournal records every invocation.
func WithJournal(j Journal) Option {
	return func(inv *Invoker) { inv.journal = j }
}

// WithLogger replaces the default "oapi.invoke" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(inv *Invoker) { inv.log = log }
}

// New returns an Invoker that dispatches to target.
func New(target native.Dispatcher, opts ...Option) *Invoker {
	inv := &Invoker{target: target}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.log == nil {
		inv.log = commonlog.GetLogger("oapi.invoke")
	}
	return inv
}

// Table returns the operation table, or nil.
func (inv *Invoker) Table() *optable.Table { return inv.table }

// Invoke calls method with args in order and returns the server's result
// code unchanged. Each arg is a scalar or slice passed by value, or a
// byref.Param passed by reference.
//
// A nonzero code is an ordinary outcome and comes with a nil error. The
// error is a *NativeInvocationError only when no code could be produced, in
// which case the code is native.CodeFailed.
func (inv *Invoker) Invoke(method string, args ...any) (native.Code, error) {
	return inv.run(method, args, false)
}

// Call checks args against the signature of op in the operation table and
// then invokes it. Signature mismatches return an *optable.SignatureError
// without reaching the server.
func (inv *Invoker) Call(op string, args ...any) (native.Code, error) {
	if inv.table == nil {
		return native.CodeFailed, errors.New("invoke: no operation table")
	}
	return inv.run(op, args, true)
}

func (inv *Invoker) run(method string, args []any, check bool) (native.Code, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	slots, err := Marshal(args)
	if err == nil && check {
		if err := inv.table.Check(method, slots); err != nil {
			return native.CodeFailed, err
		}
	}

	start := time.Now()
	code := native.CodeFailed
	if err == nil {
		code, err = inv.dispatch(method, args, slots)
	}
	if err != nil {
		code = native.CodeFailed
		err = &NativeInvocationError{Method: method, Args: len(args), Err: err}
		inv.log.Errorf("%s", err)
	} else if !code.OK() {
		inv.log.Debugf("%s returned %d", method, int32(code))
	}

	if inv.journal != nil {
		jerr := inv.journal.Record(Entry{
			At:      start,
			Method:  method,
			Args:    len(args),
			Code:    code,
			Err:     err,
			Elapsed: time.Since(start),
		})
		if jerr != nil {
			inv.log.Warningf("journal: %s", jerr)
		}
	}
	return code, err
}

func (inv *Invoker) dispatch(method string, args []any, slots []native.Slot) (native.Code, error) {
	if inv.target == nil {
		return native.CodeFailed, errors.New("no native handle")
	}
	code, err := inv.target.Dispatch(method, slots)
	if err != nil {
		return native.CodeFailed, err
	}
	// Outputs are copied back whatever the code; only the server-reported
	// part of an array is meaningful after a failure.
	if err := Unmarshal(args, slots); err != nil {
		return native.CodeFailed, err
	}
	return code, nil
}
