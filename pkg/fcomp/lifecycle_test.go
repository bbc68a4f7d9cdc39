package fcomp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

func TestUseCallbacks_AllSlots(t *testing.T) {
	rt := testRuntime()
	var calls []Slot
	record := func(_ *Element, _ AsyncRenderer, call Call) (State, error) {
		calls = append(calls, call.Slot)
		return nil, nil
	}
	typ, err := rt.Define("x-cb", func(*Element, State) {}, nil,
		UseAttributes(nil, map[string]Coercer{"value": String}),
		UseCallbacks(Callbacks{
			Connected:        record,
			Disconnected:     record,
			Adopted:          record,
			AttributeChanged: record,
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	flush(rt)
	el.SetAttribute("value", "x")
	flush(rt)
	el.Remove()
	flush(rt)
	dom.NewDocument().Adopt(el.Element)
	flush(rt)

	assert.ElementsMatch(t, []Slot{SlotConnected, SlotAttributeChanged, SlotDisconnected, SlotAdopted}, calls)
	assert.Len(t, calls, 4)
}

func TestUseCallbacks_ConnectedStateReachesRender(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	typ, err := rt.Define("x-cbstate", rec.render, State{"a": 1},
		UseCallbacks(Callbacks{
			Connected: func(*Element, AsyncRenderer, Call) (State, error) {
				return State{"b": 2}, nil
			},
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	flush(rt)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, State{"a": 1, "b": 2}, rec.last())

	s, err := settle(t, rt, el.Lifecycle(SlotConnected))
	require.NoError(t, err)
	assert.Equal(t, State{"a": 1, "b": 2}, s)
}

func TestChain_Order(t *testing.T) {
	rt := testRuntime()
	var order []string
	link := func(name string) Extension {
		return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
			factorize(func(b *Builder, _ Renderer) error {
				b.Wrap(SlotConnected, Link(func(*Element, Call, State) *task.Task[State] {
					order = append(order, name)
					return nil
				}))
				return nil
			})
		}
	}
	around := func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			b.Wrap(SlotConnected, func(prev Handler) Handler {
				return func(el *Element, call Call) *task.Task[State] {
					order = append(order, "around:before")
					return task.Then(Next(prev, el, call), func(s State) (State, error) {
						order = append(order, "around:after")
						return s, nil
					})
				}
			})
			return nil
		})
	}

	typ, err := rt.Define("x-order", func(*Element, State) {}, nil, link("first"), link("second"), around)
	require.NoError(t, err)
	mount(t, typ, nil)
	flush(rt)

	assert.Equal(t, []string{"around:before", "first", "second", "around:after"}, order)
}

func TestLifecycle_ErrorYieldsNoRender(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	sentinel := errors.New("connect failed")
	typ, err := rt.Define("x-lcerr", rec.render, nil,
		UseCallbacks(Callbacks{
			Connected: func(*Element, AsyncRenderer, Call) (State, error) { return nil, sentinel },
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	_, err = settle(t, rt, el.Lifecycle(SlotConnected))
	flush(rt)

	var lcErr *LifecycleError
	require.ErrorAs(t, err, &lcErr)
	assert.Equal(t, "x-lcerr", lcErr.Component)
	assert.Equal(t, el.ID(), lcErr.Element)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, rec.count())

	el.SetState(State{"later": true})
	flush(rt)
	assert.Equal(t, 1, rec.count(), "element keeps working after a failed chain")
}

func TestUseAsyncCallback_ConnectWaits(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	release := make(chan struct{})
	typ, err := rt.Define("x-async", rec.render, nil,
		UseAsyncCallback(SlotConnected, func(el *Element, _ AsyncRenderer, _ Call) *task.Task[State] {
			return task.Go(el.Context(), el.Type().Runtime().Loop(), func(ctx context.Context) (State, error) {
				select {
				case <-release:
					return State{"loaded": true}, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			})
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	flush(rt)
	assert.Equal(t, 0, rec.count())

	close(release)
	flushUntil(t, rt, func() bool { return rec.count() == 1 })
	assert.Equal(t, true, rec.last()["loaded"])
	assert.Equal(t, true, el.State()["loaded"])
}

func TestDisconnect_CancelsPendingRender(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	typ, err := rt.Define("x-disc", rec.render, nil)
	require.NoError(t, err)

	doc, el := mount(t, typ, nil)
	flush(rt)
	require.Equal(t, 1, rec.count())

	el.SetState(State{"count": 1})
	el.Remove()
	flush(rt)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, rt.Loop().PendingFrames())
	assert.Error(t, el.Context().Err())

	el.SetState(State{"count": 2})
	flush(rt)
	assert.Equal(t, 1, rec.count(), "disconnected elements ignore patches")
	assert.Equal(t, 2, el.State()["count"])

	require.NoError(t, doc.Body().AppendChild(el.Element))
	flush(rt)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, 2, rec.last()["count"])
	assert.NoError(t, el.Context().Err())
}

func TestDisconnect_DuringAsyncConnect(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	release := make(chan struct{})
	typ, err := rt.Define("x-slow", rec.render, nil,
		UseAsyncCallback(SlotConnected, func(el *Element, _ AsyncRenderer, _ Call) *task.Task[State] {
			return task.Go(context.Background(), el.Type().Runtime().Loop(), func(context.Context) (State, error) {
				<-release
				return State{"late": true}, nil
			})
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	flush(rt)
	el.Remove()
	close(release)

	_, err = settle(t, rt, el.Lifecycle(SlotConnected))
	require.NoError(t, err)
	flush(rt)
	assert.Equal(t, 0, rec.count())
	assert.NotContains(t, el.State(), "late")
}

func TestChain_AsyncLinkSettlesBeforeNext(t *testing.T) {
	rt := testRuntime()
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), order...)
	}

	release := make(chan struct{})
	typ, err := rt.Define("x-async-order", func(*Element, State) {}, nil,
		UseAsyncCallback(SlotConnected, func(el *Element, _ AsyncRenderer, _ Call) *task.Task[State] {
			record("async:start")
			return task.Go(el.Context(), el.Type().Runtime().Loop(), func(context.Context) (State, error) {
				<-release
				record("async:done")
				return State{"loaded": true}, nil
			})
		}),
		UseCallbacks(Callbacks{
			Connected: func(*Element, AsyncRenderer, Call) (State, error) {
				record("second")
				return State{"second": true}, nil
			},
		}),
	)
	require.NoError(t, err)

	_, el := mount(t, typ, nil)
	flush(rt)
	assert.Equal(t, []string{"async:start"}, snapshot())

	close(release)
	s, err := settle(t, rt, el.Lifecycle(SlotConnected))
	require.NoError(t, err)
	assert.Equal(t, []string{"async:start", "async:done", "second"}, snapshot())
	assert.Equal(t, true, s["loaded"])
	assert.Equal(t, true, s["second"])
}

func TestReconnect_KeepsCurrentState(t *testing.T) {
	rt := testRuntime()
	rec := &recorder{}
	connects := 0
	typ, err := rt.Define("x-reconnect", rec.render, State{"count": 0},
		UseAttributes(nil, map[string]Coercer{"value": Number}),
		UseCallbacks(Callbacks{
			Connected: func(*Element, AsyncRenderer, Call) (State, error) {
				connects++
				return State{"connects": connects}, nil
			},
		}),
	)
	require.NoError(t, err)

	doc, el := mount(t, typ, map[string]string{"value": "5"})
	flush(rt)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, State{"count": 0, "value": 5.0, "connects": 1}, rec.last())

	el.SetState(State{"count": 3, "value": 9.0})
	flush(rt)

	el.Remove()
	flush(rt)
	require.NoError(t, doc.Body().AppendChild(el.Element))
	flush(rt)

	require.Equal(t, 3, rec.count())
	assert.Equal(t, State{"count": 3, "value": 9.0, "connects": 2}, rec.last(),
		"reconnect merges into the current state and skips the attribute sync")
}
