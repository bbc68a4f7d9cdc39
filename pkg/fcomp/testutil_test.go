package fcomp

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// Helpers shared across the package tests.

// recorder is a render function that remembers every state it was given.
type recorder struct {
	states []State
}

func (r *recorder) render(_ *Element, s State) {
	r.states = append(r.states, s)
}

func (r *recorder) count() int { return len(r.states) }

func (r *recorder) last() State {
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

// testRuntime creates a runtime that logs nowhere.
func testRuntime(opts ...Option) *Runtime {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

// flush drives one frame: pending callbacks, every requested frame, then
// whatever those queued.
func flush(rt *Runtime) {
	rt.Loop().RunFrame()
}

// flushUntil keeps driving frames until cond holds. Use it when work
// settles on another goroutine.
func flushUntil(t *testing.T, rt *Runtime, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		flush(rt)
		return cond()
	}, 2*time.Second, 5*time.Millisecond)
}

// mount registers typ in a fresh document and connects a new instance
// with the given attributes.
func mount(t *testing.T, typ *Type, attrs map[string]string) (*dom.Document, *Element) {
	t.Helper()
	doc := dom.NewDocument()
	require.NoError(t, typ.Register(doc))
	host, err := doc.CreateElement(typ.Name())
	require.NoError(t, err)
	for k, v := range attrs {
		host.SetAttribute(k, v)
	}
	require.NoError(t, doc.Body().AppendChild(host))
	el, err := From(host)
	require.NoError(t, err)
	return doc, el
}

// settle drives the loop until tk settles and returns its outcome.
func settle[T any](t *testing.T, rt *Runtime, tk *task.Task[T]) (T, error) {
	t.Helper()
	require.NotNil(t, tk)
	flushUntil(t, rt, tk.Settled)
	return tk.Result()
}

// events collects the details of DOM events of one type.
func events(el *Element, typ string) *[]any {
	var out []any
	el.AddEventListener(typ, func(evt *dom.Event) { out = append(out, evt.Detail) })
	return &out
}
