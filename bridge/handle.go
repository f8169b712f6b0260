// Package bridge owns the connection to the Automation server: it installs
// and loads the native bridge library, instantiates the server object, and
// runs every native call on a single dedicated thread.
package bridge

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/oapi/native"
)

// ErrNotLoaded is returned by Dispatch when no server object is connected,
// either because EnsureLoaded was never called or because it failed.
var ErrNotLoaded = errors.New("bridge: automation server not loaded")

// BootstrapError records which bootstrap step failed.
type BootstrapError struct {
	Step string // locate, copy, register, load, connect
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bridge bootstrap: %s: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// Runtime is the bridge loader the installed library is handed to.
type Runtime interface {
	Register(path string) error
	Load() error
}

// Server is a connected server object.
type Server interface {
	native.Dispatcher
	Release()
}

// Connector instantiates the server object. It runs on the handle's thread.
type Connector func() (Server, error)

// OLEConnector connects through COM with the given options.
func OLEConnector(opts native.ServerOptions) Connector {
	return func() (Server, error) {
		return native.Connect(opts)
	}
}

// Options configures a Handle.
type Options struct {
	// Artifacts locates the bridge library. A nil FS skips the install,
	// register and load steps and connects directly.
	Artifacts Artifacts
	Runtime   Runtime
	Connect   Connector
	// TempDir receives the installed library; empty means os.TempDir.
	TempDir string
	Logger  commonlog.Logger
}

// Handle is the single owner of a server connection. Create it with Open,
// bootstrap it with EnsureLoaded and release it with Close.
type Handle struct {
	opts   Options
	log    commonlog.Logger
	worker *worker

	loadOnce sync.Once
	loadErr  error

	// Touched only on the worker goroutine until Close.
	server   Server
	artifact string

	closeOnce sync.Once
	closeErr  error
}

// Open creates an unloaded handle and starts its worker thread.
func Open(opts Options) *Handle {
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("oapi.bridge")
	}
	return &Handle{
		opts:   opts,
		log:    log,
		worker: newWorker(),
	}
}

// EnsureLoaded bootstraps the handle on first call; later calls return the
// first call's result without repeating any step. A failure is logged and
// leaves the handle degraded: every Dispatch then fails with ErrNotLoaded.
func (h *Handle) EnsureLoaded() error {
	h.loadOnce.Do(func() {
		err := h.worker.Do(h.bootstrap)
		if err != nil {
			var be *BootstrapError
			if !errors.As(err, &be) {
				err = &BootstrapError{Step: "connect", Err: err}
			}
			h.log.Errorf("%s; continuing without a server connection", err)
		}
		h.loadErr = err
	})
	return h.loadErr
}

func (h *Handle) bootstrap() error {
	if h.opts.Artifacts.FS != nil {
		arch := HostArch()
		name, ok := h.opts.Artifacts.Names[arch]
		if !ok || name == "" {
			return &BootstrapError{Step: "locate", Err: fmt.Errorf("no bridge library for %s", arch)}
		}
		path, err := h.opts.Artifacts.install(name, h.opts.TempDir)
		if err != nil {
			return &BootstrapError{Step: "copy", Err: err}
		}
		h.artifact = path
		h.log.Debugf("installed %s bridge %s to %s", arch, name, path)

		if h.opts.Runtime == nil {
			return &BootstrapError{Step: "register", Err: errors.New("no bridge runtime configured")}
		}
		if err := h.opts.Runtime.Register(path); err != nil {
			return &BootstrapError{Step: "register", Err: err}
		}
		if err := h.opts.Runtime.Load(); err != nil {
			return &BootstrapError{Step: "load", Err: err}
		}
	}

	if h.opts.Connect == nil {
		return &BootstrapError{Step: "connect", Err: errors.New("no connector configured")}
	}
	srv, err := h.opts.Connect()
	if err != nil {
		return &BootstrapError{Step: "connect", Err: err}
	}
	h.server = srv
	h.log.Info("automation server connected")
	return nil
}

// Loaded reports whether EnsureLoaded has completed successfully.
func (h *Handle) Loaded() bool {
	var loaded bool
	h.worker.Do(func() error {
		loaded = h.server != nil
		return nil
	})
	return loaded
}

// Dispatch implements native.Dispatcher. Calls run one at a time on the
// handle's thread.
func (h *Handle) Dispatch(method string, slots []native.Slot) (native.Code, error) {
	var code native.Code
	err := h.worker.Do(func() error {
		if h.server == nil {
			return ErrNotLoaded
		}
		var err error
		code, err = h.server.Dispatch(method, slots)
		return err
	})
	if err != nil {
		return native.CodeFailed, err
	}
	return code, nil
}

// Close releases the server object, stops the worker and deletes the
// installed bridge library. It is safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.worker.Do(func() error {
			if h.server != nil {
				h.server.Release()
				h.server = nil
			}
			return nil
		})
		h.worker.Stop()
		if h.artifact != "" {
			if err := os.Remove(h.artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
				h.closeErr = err
			}
		}
	})
	return h.closeErr
}
