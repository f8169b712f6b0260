// Package wire is the CBOR encoding of invocation data shared by cassettes
// and the remote transport.
package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/oapi/native"
)

// cborEncMode is canonical so equal records encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes v to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Unmarshal deserializes CBOR bytes into v.
func Unmarshal(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

// NewEncoder returns a stream encoder writing canonical CBOR to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return cborEncMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return cbor.NewDecoder(r)
}

// Call is one dispatch as it travels or is stored: the method, its slots
// before the call, and for completed calls the slots after it.
type Call struct {
	Method string        `cbor:"1,keyasint"`
	In     []native.Slot `cbor:"2,keyasint"`
	Out    []native.Slot `cbor:"3,keyasint,omitempty"`
	Code   native.Code   `cbor:"4,keyasint"`
	Err    string        `cbor:"5,keyasint,omitempty"`
}

// Normalize restores the canonical Go type of every decoded slot value.
// CBOR carries integers as 64-bit and arrays as []any; nil values are left
// alone.
func Normalize(slots []native.Slot) error {
	for i := range slots {
		if slots[i].Value == nil {
			continue
		}
		v, err := native.Coerce(slots[i].Kind, slots[i].Array, slots[i].Value)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		slots[i].Value = v
	}
	return nil
}

// Clone copies slots, including array values, so later writes by a
// dispatcher do not alias the copy.
func Clone(slots []native.Slot) []native.Slot {
	out := make([]native.Slot, len(slots))
	for i, s := range slots {
		switch v := s.Value.(type) {
		case []int32:
			s.Value = append([]int32(nil), v...)
		case []float64:
			s.Value = append([]float64(nil), v...)
		case []bool:
			s.Value = append([]bool(nil), v...)
		case []string:
			s.Value = append([]string(nil), v...)
		}
		out[i] = s
	}
	return out
}

// CopyBack writes the ByRef and Discard values of out into slots, coerced
// to each slot's kind. The slot lists must line up.
func CopyBack(slots, out []native.Slot) error {
	if len(slots) != len(out) {
		return fmt.Errorf("wire: got %d slots back for %d", len(out), len(slots))
	}
	for i := range slots {
		if slots[i].Mode == native.ByVal {
			continue
		}
		v, err := native.Coerce(slots[i].Kind, slots[i].Array, out[i].Value)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		slots[i].Value = v
	}
	return nil
}
