//go:build !windows

package bridge

import (
	"fmt"

	"github.com/chazu/oapi/native"
)

type stubRuntime struct {
	path string
}

// NewRuntime returns a loader that records the registered path but cannot
// load Windows libraries.
func NewRuntime(entry string) Runtime {
	return &stubRuntime{}
}

func (r *stubRuntime) Register(path string) error {
	r.path = path
	return nil
}

func (r *stubRuntime) Load() error {
	return fmt.Errorf("%w: cannot load %s", native.ErrUnsupported, r.path)
}
