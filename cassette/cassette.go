// Package cassette records dispatches to a stream and plays them back,
// standing in for the Automation server in offline tooling and tests.
package cassette

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/wire"
)

var (
	// ErrExhausted is returned by a Player with no records left.
	ErrExhausted = errors.New("cassette: no more recorded calls")
	// ErrMismatch is returned when a call does not match the next record.
	ErrMismatch = errors.New("cassette: call does not match recording")
)

// Record is one recorded dispatch.
type Record = wire.Call

// Recorder is a Dispatcher that forwards to a target and appends one CBOR
// record per call to a writer.
type Recorder struct {
	mu     sync.Mutex
	target native.Dispatcher
	enc    *cbor.Encoder
	n      int
}

// NewRecorder records the calls dispatched to target into w.
func NewRecorder(target native.Dispatcher, w io.Writer) *Recorder {
	return &Recorder{target: target, enc: wire.NewEncoder(w)}
}

// Dispatch implements native.Dispatcher. A failure to write the record is
// reported only when the call itself succeeded.
func (r *Recorder) Dispatch(method string, slots []native.Slot) (native.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{Method: method, In: wire.Clone(slots)}
	code, err := r.target.Dispatch(method, slots)
	rec.Code = code
	if err != nil {
		rec.Err = err.Error()
	} else {
		rec.Out = wire.Clone(slots)
	}
	if werr := r.enc.Encode(rec); werr != nil {
		if err == nil {
			return code, fmt.Errorf("cassette: recording %s: %w", method, werr)
		}
		return code, err
	}
	r.n++
	return code, err
}

// Len returns the number of calls recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Load reads every record from r.
func Load(r io.Reader) ([]Record, error) {
	dec := wire.NewDecoder(r)
	var recs []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("cassette: record %d: %w", len(recs), err)
		}
		if err := wire.Normalize(rec.In); err != nil {
			return nil, fmt.Errorf("cassette: record %d: %w", len(recs), err)
		}
		if err := wire.Normalize(rec.Out); err != nil {
			return nil, fmt.Errorf("cassette: record %d: %w", len(recs), err)
		}
		recs = append(recs, rec)
	}
}

// Player is a Dispatcher that replays records in order.
type Player struct {
	mu      sync.Mutex
	records []Record
	pos     int
}

// NewPlayer replays records.
func NewPlayer(records []Record) *Player {
	return &Player{records: records}
}

// Dispatch implements native.Dispatcher. The method and slot shapes must
// match the next record; outputs are copied from the record.
func (p *Player) Dispatch(method string, slots []native.Slot) (native.Code, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pos >= len(p.records) {
		return native.CodeFailed, ErrExhausted
	}
	rec := p.records[p.pos]
	if rec.Method != method {
		return native.CodeFailed, fmt.Errorf("%w: call %d is %s, recorded %s", ErrMismatch, p.pos, method, rec.Method)
	}
	if len(rec.In) != len(slots) {
		return native.CodeFailed, fmt.Errorf("%w: %s with %d slots, recorded %d", ErrMismatch, method, len(slots), len(rec.In))
	}
	for i, s := range slots {
		if r := rec.In[i]; r.Kind != s.Kind || r.Array != s.Array {
			return native.CodeFailed, fmt.Errorf("%w: %s slot %d is %s, recorded %s", ErrMismatch, method, i, s, r)
		}
	}
	p.pos++

	if rec.Err != "" {
		return native.CodeFailed, errors.New(rec.Err)
	}
	if err := wire.CopyBack(slots, rec.Out); err != nil {
		return native.CodeFailed, fmt.Errorf("cassette: %s: %w", method, err)
	}
	return rec.Code, nil
}

// Remaining returns the number of records not yet replayed.
func (p *Player) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records) - p.pos
}
