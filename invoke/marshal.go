package invoke

import (
	"fmt"
	"math"

	"github.com/chazu/oapi/byref"
	"github.com/chazu/oapi/native"
)

// Marshal converts an argument list into native slots, one per argument,
// in order. Scalars and slices become ByVal slots, byref.Params supply
// their own (ByRef or Discard) slots.
func Marshal(args []any) ([]native.Slot, error) {
	slots := make([]native.Slot, len(args))
	for i, arg := range args {
		s, err := marshalArg(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		slots[i] = s
	}
	return slots, nil
}

func marshalArg(arg any) (native.Slot, error) {
	if p, ok := arg.(byref.Param); ok {
		return p.Slot()
	}

	val := func(kind native.Kind, v any) (native.Slot, error) {
		return native.Slot{Mode: native.ByVal, Kind: kind, Value: v}, nil
	}
	arr := func(kind native.Kind, v any) (native.Slot, error) {
		return native.Slot{Mode: native.ByVal, Kind: kind, Array: true, Value: v}, nil
	}

	switch v := arg.(type) {
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return native.Slot{}, fmt.Errorf("%w: %d", byref.ErrOverflow, v)
		}
		return val(native.Int, int32(v))
	case int32:
		return val(native.Int, v)
	case float64:
		return val(native.Double, v)
	case float32:
		return val(native.Double, float64(v))
	case bool:
		return val(native.Bool, v)
	case string:
		return val(native.String, v)
	case []int32:
		return arr(native.Int, append([]int32{}, v...))
	case []float64:
		return arr(native.Double, append([]float64{}, v...))
	case []bool:
		return arr(native.Bool, append([]bool{}, v...))
	case []string:
		return arr(native.String, append([]string{}, v...))
	case nil:
		return native.Slot{}, fmt.Errorf("%w: nil argument", native.ErrType)
	}
	return native.Slot{}, fmt.Errorf("%w: unsupported argument type %T", native.ErrType, arg)
}

// Unmarshal copies ByRef slot values back into the byref.Params among args.
// Sentinels and by-value arguments are left alone. Every value is converted
// before any is stored, so a failure leaves all holders unchanged.
func Unmarshal(args []any, slots []native.Slot) error {
	if len(args) != len(slots) {
		return fmt.Errorf("server returned %d slots for %d arguments", len(slots), len(args))
	}
	var commits []func()
	for i, arg := range args {
		p, ok := arg.(byref.Param)
		if !ok || !p.Needed() || slots[i].Mode != native.ByRef {
			continue
		}
		commit, err := p.Stage(slots[i])
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		commits = append(commits, commit)
	}
	for _, commit := range commits {
		commit()
	}
	return nil
}
