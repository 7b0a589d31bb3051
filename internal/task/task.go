// Package task provides the cooperative unit of work underlying the picker
// pipeline. A Task runs a body on its own goroutine; the body can park
// itself awaiting an external event (Suspend) and is woken by exactly one
// matching Resume. Abort is idempotent, releases registered cleanup
// callbacks synchronously, and permanently prevents a later Resume from
// reviving the task.
//
// One Task instance represents one producer cycle or one scoring pass.
// Instances are never reused across cancellation; a restart always spawns
// a fresh Task.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// State is the lifecycle state of a Task.
type State int

const (
	// StateRunning means the body is executing.
	StateRunning State = iota
	// StateSuspended means the body is parked awaiting a Resume.
	StateSuspended
	// StateDone means the body returned (possibly with an error).
	StateDone
	// StateAborted means Abort won; the body's eventual return is ignored.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAborted is the error observed by a suspended body, and reported to
// done callbacks, when a task is aborted.
var ErrAborted = errors.New("task: aborted")

// Task is a cooperative unit of work. All methods are safe for concurrent
// use; the body itself is a single logical thread of control.
type Task struct {
	mu       sync.Mutex
	name     string
	state    State
	resumeCh chan any // one-slot buffer; a resume may land just before the suspend
	abortCh  chan struct{}
	doneCh   chan struct{}
	abortFns []func()
	doneFns  []func(error)
	finished bool
	err      error
	logger   *slog.Logger
}

// Handle is the body-side view of a task. It is only valid inside the
// body function passed to Spawn.
type Handle struct {
	t *Task
}

// Spawn starts body on its own goroutine and returns the controlling Task.
// A body that panics is reported through done callbacks as an error; it is
// never retried here.
func Spawn(logger *slog.Logger, name string, body func(*Handle) error) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Task{
		name:     name,
		state:    StateRunning,
		resumeCh: make(chan any, 1),
		abortCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
	h := &Handle{t: t}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Warn("task body panicked", "task", t.name, "panic", r)
				t.finish(fmt.Errorf("task %q: body panic: %v", t.name, r))
			}
		}()
		t.finish(body(h))
	}()

	return t
}

// Suspend parks the body until exactly one Resume delivers a value, or
// until the task is aborted, in which case it returns ErrAborted. A resume
// that raced ahead of the suspension (its callback fired immediately) is
// consumed without parking, so wakeups are never lost.
func (h *Handle) Suspend() (any, error) {
	t := h.t

	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return nil, ErrAborted
	}
	t.state = StateSuspended
	t.mu.Unlock()

	select {
	case v := <-t.resumeCh:
		t.mu.Lock()
		if !t.finished {
			t.state = StateRunning
		}
		t.mu.Unlock()
		return v, nil
	case <-t.abortCh:
		return nil, ErrAborted
	}
}

// Yield gives the scheduler a chance to run other work between scoring
// slices. It returns ErrAborted if the task has been aborted, so slice
// loops stop promptly.
func (h *Handle) Yield() error {
	select {
	case <-h.t.abortCh:
		return ErrAborted
	default:
		runtime.Gosched()
		return nil
	}
}

// Aborted exposes the abort signal for select loops inside the body.
func (h *Handle) Aborted() <-chan struct{} { return h.t.abortCh }

// Task returns the controlling task, letting the body hand it to the
// goroutine responsible for resuming it.
func (h *Handle) Task() *Task { return h.t }

// Resume wakes the task with a value. Exactly one resume is consumed per
// suspension; a resume may arrive slightly before the body parks and is
// then consumed without parking. A resume racing an abort, or duplicating
// an undelivered earlier resume, is a guarded no-op returning false, never
// an error.
func (t *Task) Resume(v any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return false
	}
	select {
	case t.resumeCh <- v:
		return true
	default:
		return false
	}
}

// Abort cancels the task. It is idempotent and synchronous: all registered
// abort callbacks run before Abort returns, even if the body is currently
// suspended, and no later Resume can revive the task. Done callbacks fire
// with ErrAborted.
func (t *Task) Abort() {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.state = StateAborted
	t.err = ErrAborted
	aborts := t.abortFns
	dones := t.doneFns
	t.abortFns = nil
	t.doneFns = nil
	close(t.abortCh)
	close(t.doneCh)
	t.mu.Unlock()

	for _, fn := range aborts {
		fn()
	}
	for _, fn := range dones {
		fn(ErrAborted)
	}
}

// finish records the body's return value unless an abort already won.
func (t *Task) finish(err error) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.state = StateDone
	t.err = err
	dones := t.doneFns
	t.doneFns = nil
	close(t.doneCh)
	t.mu.Unlock()

	for _, fn := range dones {
		fn(err)
	}
}

// OnAbort registers a cleanup callback (cancel an outstanding request,
// close a stream) run synchronously by Abort. If the task is already
// aborted the callback runs immediately; if it already completed normally
// the callback is dropped.
func (t *Task) OnAbort(fn func()) {
	t.mu.Lock()
	if t.finished {
		aborted := t.state == StateAborted
		t.mu.Unlock()
		if aborted {
			fn()
		}
		return
	}
	t.abortFns = append(t.abortFns, fn)
	t.mu.Unlock()
}

// OnDone registers a completion callback. It fires exactly once, with the
// body's error (nil on success) or ErrAborted. Registering after completion
// invokes the callback immediately.
func (t *Task) OnDone(fn func(error)) {
	t.mu.Lock()
	if t.finished {
		err := t.err
		t.mu.Unlock()
		fn(err)
		return
	}
	t.doneFns = append(t.doneFns, fn)
	t.mu.Unlock()
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the task is still in flight (running or
// suspended).
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.finished
}

// Err returns the completion error, nil while in flight or on success.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done returns a channel closed when the task completes or is aborted.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

// Wait blocks until the task completes, the task is aborted, or ctx
// expires.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.doneCh:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
