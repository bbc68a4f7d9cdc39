package fcomp

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/event"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// Element is an instance of a component type. It embeds the host DOM
// element and implements dom.Hooks.
//
// Its state is private: State returns a copy, and writes go through
// SetState, properties, the attribute reconciler or the render scheduler.
// Like the DOM it lives in, an Element belongs to its runtime's loop.
type Element struct {
	*dom.Element

	typ    *Type
	id     string
	store  State
	logger *slog.Logger

	// Connection token, replaced on every connect and cancelled on
	// disconnect.
	conn   context.Context
	cancel context.CancelFunc

	refs     map[string]*dom.Element
	stamped  bool
	last     [slotCount]*task.Task[State]
	extState map[any]any
}

var _ dom.Hooks = (*Element)(nil)

// From returns the component element upgraded onto el.
func From(el *dom.Element) (*Element, error) {
	if el == nil {
		return nil, ErrNotComponent
	}
	c, ok := el.Hooks().(*Element)
	if !ok {
		return nil, fmt.Errorf("%w: <%s>", ErrNotComponent, el.TagName())
	}
	return c, nil
}

// ID returns the element's unique id.
func (el *Element) ID() string { return el.id }

// Type returns the element's component type.
func (el *Element) Type() *Type { return el.typ }

// Logger returns a logger carrying the component name and element id.
func (el *Element) Logger() *slog.Logger { return el.logger }

// Context returns the connection context. It is cancelled when the element
// disconnects; before the first connection it is the runtime context.
func (el *Element) Context() context.Context {
	if el.conn == nil {
		return el.typ.rt.ctx
	}
	return el.conn
}

// State returns a copy of the current state.
func (el *Element) State() State { return el.store.Clone() }

// SetState merges patch into the state and queues a render of the result.
func (el *Element) SetState(patch State) {
	el.typ.queue(el, patch, Meta{Name: MetaState})
}

// RequestRender queues a render of the current state.
func (el *Element) RequestRender(meta Meta) {
	el.typ.sched.enqueue(el, meta)
}

// Property returns a declared property's value.
func (el *Element) Property(name string) (any, error) {
	if !slices.Contains(el.typ.properties, name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return el.store[name], nil
}

// SetProperty sets a declared property and queues a render of the whole
// state.
func (el *Element) SetProperty(name string, v any) error {
	if !slices.Contains(el.typ.properties, name) {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	el.store[name] = v
	el.typ.sched.enqueue(el, Meta{Name: MetaProperty, Data: name})
	return nil
}

// Ref returns the template node stored under name, or nil.
func (el *Element) Ref(name string) *dom.Element { return el.refs[name] }

// Refs returns a copy of the template node map.
func (el *Element) Refs() map[string]*dom.Element { return maps.Clone(el.refs) }

// Lifecycle returns the task of the most recent invocation of slot, or nil.
// For SlotConnected it settles after the connection render is queued.
func (el *Element) Lifecycle(slot Slot) *task.Task[State] {
	if slot < 0 || slot >= slotCount {
		return nil
	}
	return el.last[slot]
}

// ObservedAttributes implements dom.Hooks.
func (el *Element) ObservedAttributes() []string { return el.typ.observed }

// ConnectedCallback implements dom.Hooks.
func (el *Element) ConnectedCallback() {
	if el.cancel != nil {
		el.cancel()
	}
	el.conn, el.cancel = context.WithCancel(el.typ.rt.ctx)
	conn := el.conn

	t := el.typ
	el.last[SlotConnected] = task.Then(t.invoke(el, Call{Slot: SlotConnected}), func(s State) (State, error) {
		if conn.Err() != nil {
			return el.store.Clone(), nil
		}
		el.store = DeepMerge(el.store, s)
		t.sched.enqueue(el, Meta{Name: MetaConnected})
		return el.store.Clone(), nil
	})
}

// DisconnectedCallback implements dom.Hooks. It cancels the connection
// context and any render still waiting for a frame.
func (el *Element) DisconnectedCallback() {
	if el.cancel != nil {
		el.cancel()
	}
	el.typ.sched.cancel(el)
	el.last[SlotDisconnected] = el.typ.invoke(el, Call{Slot: SlotDisconnected})
}

// AdoptedCallback implements dom.Hooks.
func (el *Element) AdoptedCallback(oldDoc, newDoc *dom.Document) {
	el.last[SlotAdopted] = el.typ.invoke(el, Call{Slot: SlotAdopted, OldDocument: oldDoc, NewDocument: newDoc})
}

// AttributeChangedCallback implements dom.Hooks.
func (el *Element) AttributeChangedCallback(name string, oldValue, newValue *string) {
	el.last[SlotAttributeChanged] = el.typ.invoke(el, Call{
		Slot:     SlotAttributeChanged,
		Name:     name,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// invoke runs the chain for call.Slot. A rejection is logged, counted and
// returned as *LifecycleError; it never reaches the caller of the DOM
// mutation that triggered it.
func (t *Type) invoke(el *Element, call Call) *task.Task[State] {
	slot := call.Slot.String()
	ctx, span := t.rt.spans.StartLifecycleSpan(t.rt.ctx, t.name, slot, el.id)
	start := time.Now()

	h := t.chains[call.Slot]
	res := task.Catch(
		task.Await(t.rt.loop, func() *task.Task[State] { return h(el, call) }),
		func(err error) (State, error) {
			return nil, &LifecycleError{Component: t.name, Element: el.id, Slot: call.Slot, Err: err}
		},
	)
	res.OnSettled(func(_ State, err error) {
		t.rt.metrics.RecordLifecycle(ctx, t.name, slot, time.Since(start), err)
		t.rt.spans.EndSpanWithError(span, err)
		if err == nil {
			return
		}
		observability.LogLifecycleError(el.logger, slot, err)
		t.rt.publish(event.New(event.TypeLifecycleFailed, t.name, el.id,
			event.LifecycleFailedPayload{Slot: slot, Error: err.Error()}), el.logger)
	})
	return res
}
