package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPending_MicrotasksDrainBetweenTasks(t *testing.T) {
	l := New()
	var order []string

	l.Post(func() {
		order = append(order, "task1")
		l.Microtask(func() {
			order = append(order, "micro1")
			l.Microtask(func() { order = append(order, "micro2") })
		})
	})
	l.Post(func() { order = append(order, "task2") })

	n := l.RunPending()

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"task1", "micro1", "micro2", "task2"}, order)
}

func TestRunFrame_RunsInRequestOrder(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New(WithClock(func() time.Time { return fixed }))

	var order []int
	var seen time.Time
	l.RequestFrame(func(now time.Time) { order = append(order, 1); seen = now })
	l.RequestFrame(func(time.Time) { order = append(order, 2) })

	assert.Equal(t, 2, l.PendingFrames())
	l.RunFrame()

	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, fixed, seen)
	assert.Zero(t, l.PendingFrames())
}

func TestRunFrame_RequestsDuringFrameWaitForNextFrame(t *testing.T) {
	l := New()
	calls := 0

	l.RequestFrame(func(time.Time) {
		calls++
		l.RequestFrame(func(time.Time) { calls++ })
	})

	l.RunFrame()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, l.PendingFrames())

	l.RunFrame()
	assert.Equal(t, 2, calls)
}

func TestCancelFrame(t *testing.T) {
	l := New()
	called := false

	id := l.RequestFrame(func(time.Time) { called = true })
	l.CancelFrame(id)
	l.CancelFrame(id + 100)
	l.RunFrame()

	assert.False(t, called)
}

func TestCall_RecoversPanics(t *testing.T) {
	l := New(WithLogger(nil))
	after := false

	l.Post(func() { panic("boom") })
	l.Post(func() { after = true })

	require.NotPanics(t, func() { l.RunPending() })
	assert.True(t, after)
}

func TestRun_ProcessesPostedWorkAndFrames(t *testing.T) {
	l := New(WithFrameInterval(time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Post(func() {
			l.RequestFrame(func(time.Time) {
				close(done)
			})
		})
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("frame never fired")
	}

	l.Stop()
	require.NoError(t, <-errCh)
	assert.False(t, l.Post(func() {}))
}

func TestRun_StoppedBeforeStart(t *testing.T) {
	l := New()
	l.Stop()

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestRun_ContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
