package bridge

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrClosed is returned for work submitted after the handle was closed.
var ErrClosed = errors.New("bridge: handle closed")

// job is a unit of native work executed on the worker goroutine.
type job struct {
	fn   func() error
	done chan error
}

// worker serializes all native work through a single goroutine pinned to
// one OS thread. COM objects belong to the apartment of the thread that
// created them, so creation, every call and release must happen here.
type worker struct {
	jobs    chan job
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newWorker() *worker {
	w := &worker{
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes jobs sequentially on a dedicated OS thread.
func (w *worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.stopped)

	for {
		select {
		case j := <-w.jobs:
			j.done <- w.execute(j.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics raised by the native layer.
func (w *worker) execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native panic: %v", r)
		}
	}()
	return fn()
}

// Do runs fn on the worker goroutine and blocks until it completes.
func (w *worker) Do(fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case w.jobs <- j:
	case <-w.stopped:
		return ErrClosed
	}
	return <-j.done
}

// Stop shuts the worker down and waits for it to exit.
func (w *worker) Stop() {
	w.once.Do(func() { close(w.quit) })
	<-w.stopped
}
