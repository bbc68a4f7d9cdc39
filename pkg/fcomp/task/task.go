// Package task provides a minimal future for lifecycle work that may settle
// later on the event loop.
//
// A Task settles exactly once with a value or an error. Continuations
// registered with Then, ThenTask or OnSettled always run as microtasks on the
// task's Scheduler, never synchronously inside the call that settled it.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Scheduler is the subset of the event loop a Task needs.
type Scheduler interface {
	// Microtask queues fn to run on the loop goroutine.
	Microtask(fn func())

	// Post queues fn as a macrotask. Safe for concurrent use.
	Post(fn func()) bool
}

// PanicError is the rejection reason of a Task whose function panicked.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Task is a single-assignment result.
type Task[T any] struct {
	sched Scheduler

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
	done      chan struct{}
}

func newTask[T any](s Scheduler) *Task[T] {
	return &Task[T]{sched: s, done: make(chan struct{})}
}

// New returns a pending task together with its resolve and reject functions.
// Only the first call to either has an effect.
func New[T any](s Scheduler) (t *Task[T], resolve func(T), reject func(error)) {
	t = newTask[T](s)
	return t, func(v T) { t.settle(v, nil) }, func(err error) {
		var zero T
		t.settle(zero, err)
	}
}

// Resolved returns a task already settled with v.
func Resolved[T any](s Scheduler, v T) *Task[T] {
	t := newTask[T](s)
	t.settle(v, nil)
	return t
}

// Rejected returns a task already settled with err.
func Rejected[T any](s Scheduler, err error) *Task[T] {
	t := newTask[T](s)
	var zero T
	t.settle(zero, err)
	return t
}

// Try calls fn synchronously and wraps its outcome. A panic becomes a
// rejection with *PanicError.
func Try[T any](s Scheduler, fn func() (T, error)) (t *Task[T]) {
	defer func() {
		if r := recover(); r != nil {
			t = Rejected[T](s, &PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()
	v, err := fn()
	if err != nil {
		return Rejected[T](s, err)
	}
	return Resolved(s, v)
}

// Await calls fn, which returns a task, normalizing a nil task and a
// synchronous panic into settled tasks.
func Await[T any](s Scheduler, fn func() *Task[T]) (t *Task[T]) {
	defer func() {
		if r := recover(); r != nil {
			t = Rejected[T](s, &PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()
	t = fn()
	if t == nil {
		var zero T
		t = Resolved(s, zero)
	}
	return t
}

// Go runs fn on a new goroutine and settles the task on the loop through
// Post, so continuations still run on the loop goroutine.
func Go[T any](ctx context.Context, s Scheduler, fn func(context.Context) (T, error)) *Task[T] {
	t := newTask[T](s)
	go func() {
		var (
			v   T
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: string(debug.Stack())}
				}
			}()
			v, err = fn(ctx)
		}()
		if s == nil || !s.Post(func() { t.settle(v, err) }) {
			t.settle(v, err)
		}
	}()
	return t
}

// Then returns a task settled with fn's result once t resolves. If t rejects,
// fn is skipped and the returned task rejects with the same error.
func Then[T, U any](t *Task[T], fn func(T) (U, error)) *Task[U] {
	next := newTask[U](t.sched)
	t.OnSettled(func(v T, err error) {
		if err != nil {
			var zero U
			next.settle(zero, err)
			return
		}
		r := Try(t.sched, func() (U, error) { return fn(v) })
		r.OnSettled(next.settle)
	})
	return next
}

// ThenTask is Then for continuations that return a task.
func ThenTask[T, U any](t *Task[T], fn func(T) *Task[U]) *Task[U] {
	next := newTask[U](t.sched)
	t.OnSettled(func(v T, err error) {
		if err != nil {
			var zero U
			next.settle(zero, err)
			return
		}
		Await(t.sched, func() *Task[U] { return fn(v) }).OnSettled(next.settle)
	})
	return next
}

// Catch returns a task that resolves with fn's result when t rejects and
// passes t's value through otherwise.
func Catch[T any](t *Task[T], fn func(error) (T, error)) *Task[T] {
	next := newTask[T](t.sched)
	t.OnSettled(func(v T, err error) {
		if err == nil {
			next.settle(v, nil)
			return
		}
		Try(t.sched, func() (T, error) { return fn(err) }).OnSettled(next.settle)
	})
	return next
}

// OnSettled registers fn to run as a microtask once t settles.
func (t *Task[T]) OnSettled(fn func(T, error)) {
	t.mu.Lock()
	if !t.settled {
		t.callbacks = append(t.callbacks, fn)
		t.mu.Unlock()
		return
	}
	v, err := t.value, t.err
	t.mu.Unlock()
	t.schedule(func() { fn(v, err) })
}

// Settled reports whether the task has a result.
func (t *Task[T]) Settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

// Result returns the settled value and error. Before settlement it returns
// the zero value and a nil error; check Settled or Done first.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Err returns the rejection reason, if any.
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the task settles.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

func (t *Task[T]) settle(v T, err error) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	t.settled = true
	t.value, t.err = v, err
	callbacks := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range callbacks {
		t.schedule(func() { fn(v, err) })
	}
}

func (t *Task[T]) schedule(fn func()) {
	if t.sched == nil {
		fn()
		return
	}
	t.sched.Microtask(fn)
}
