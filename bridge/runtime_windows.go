//go:build windows

package bridge

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

type dllRuntime struct {
	entry string
	path  string
	dll   *windows.DLL
}

// NewRuntime returns the Windows loader. entry, when set, names a
// zero-argument export called once after the library is mapped; a nonzero
// return is a load failure.
func NewRuntime(entry string) Runtime {
	return &dllRuntime{entry: entry}
}

func (r *dllRuntime) Register(path string) error {
	r.path = path
	// Dependencies shipped next to the bridge resolve from its directory.
	return windows.SetDllDirectory(filepath.Dir(path))
}

func (r *dllRuntime) Load() error {
	if r.path == "" {
		return errors.New("no bridge library registered")
	}
	dll, err := windows.LoadDLL(r.path)
	if err != nil {
		return err
	}
	if r.entry != "" {
		proc, err := dll.FindProc(r.entry)
		if err != nil {
			dll.Release()
			return err
		}
		if ret, _, _ := proc.Call(); ret != 0 {
			dll.Release()
			return fmt.Errorf("%s returned %#x", r.entry, ret)
		}
	}
	r.dll = dll
	return nil
}
