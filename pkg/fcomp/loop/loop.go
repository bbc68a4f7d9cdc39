// Package loop provides the single-threaded event loop that drives fcomp
// components: macrotasks, microtasks, and a frame clock for batched renders.
//
// All component work runs on the goroutine that drives the loop, either
// Run or a test calling RunPending/RunFrame directly. Other goroutines hand
// work to the loop with Post.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrLoopStopped is returned by Run when Stop was called before it started.
var ErrLoopStopped = errors.New("loop stopped")

// FrameID identifies a pending frame callback.
type FrameID uint64

// FrameFunc runs on the next frame. now is the frame timestamp.
type FrameFunc func(now time.Time)

// Loop is a cooperative scheduler.
//
// Ordering follows the usual host model: a macrotask runs to completion,
// then every queued microtask drains (including microtasks queued by
// microtasks), then the next macrotask runs. Frame callbacks run in request
// order when a frame fires; microtasks drain after each one.
type Loop struct {
	mu        sync.Mutex
	tasks     []func()
	micro     []func()
	frames    map[FrameID]FrameFunc
	nextFrame FrameID
	stopped   bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once

	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithFrameInterval sets the frame period used by Run.
// Non-positive values are ignored.
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger used to report recovered task panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithClock overrides the clock used for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a loop. The loop does nothing until Run, RunPending or
// RunFrame is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		frames:   make(map[FrameID]FrameFunc),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		interval: DefaultFrameInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn as a macrotask. Safe for concurrent use.
// Returns false if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// Microtask queues fn to run before the next macrotask or frame.
func (l *Loop) Microtask(fn func()) {
	l.mu.Lock()
	l.micro = append(l.micro, fn)
	l.mu.Unlock()
	l.signal()
}

// RequestFrame schedules fn for the next frame.
func (l *Loop) RequestFrame(fn FrameFunc) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextFrame++
	l.frames[l.nextFrame] = fn
	return l.nextFrame
}

// CancelFrame removes a pending frame callback. Unknown ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	delete(l.frames, id)
	l.mu.Unlock()
}

// PendingFrames reports the number of frame callbacks waiting for a frame.
func (l *Loop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.now()
}

// RunPending runs macrotasks and microtasks until both queues are empty.
// Frame callbacks are not run. Returns the number of callbacks executed.
func (l *Loop) RunPending() int {
	n := l.drainMicro()
	for {
		fn, ok := l.popTask()
		if !ok {
			return n
		}
		l.call("task", fn)
		n++
		n += l.drainMicro()
	}
}

// RunFrame fires one frame: every callback requested before the call runs
// in request order, then pending tasks drain. Callbacks requested during the
// frame wait for the next one.
func (l *Loop) RunFrame() int {
	n := l.RunPending()

	l.mu.Lock()
	ids := make([]FrameID, 0, len(l.frames))
	for id := range l.frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	due := make([]FrameFunc, 0, len(ids))
	for _, id := range ids {
		due = append(due, l.frames[id])
		delete(l.frames, id)
	}
	l.mu.Unlock()

	now := l.now()
	for _, fn := range due {
		l.call("frame", func() { fn(now) })
		n++
		n += l.drainMicro()
	}
	return n + l.RunPending()
}

// Run drives the loop on the calling goroutine until ctx is done or Stop is
// called. Frames fire on the configured interval while callbacks are pending.
func (l *Loop) Run(ctx context.Context) error {
	select {
	case <-l.stopCh:
		return ErrLoopStopped
	default:
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			l.RunPending()
			return nil
		case <-l.wake:
		case <-ticker.C:
			if l.PendingFrames() > 0 {
				l.RunFrame()
			}
		}
	}
}

// Stop makes Run return after draining queued tasks. Post fails afterwards.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.stopCh)
	})
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) popTask() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) drainMicro() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.micro) == 0 {
			l.mu.Unlock()
			return n
		}
		batch := l.micro
		l.micro = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.call("microtask", fn)
			n++
		}
	}
}

// call runs fn, logging and swallowing a panic so one bad callback cannot
// take the loop down.
func (l *Loop) call(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil && l.logger != nil {
			l.logger.Error("loop callback panicked",
				slog.String("kind", kind),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
