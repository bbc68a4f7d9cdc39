package fcomp

import (
	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// Slot identifies a lifecycle entry point.
type Slot int

// Lifecycle slots.
const (
	SlotConnected Slot = iota
	SlotDisconnected
	SlotAdopted
	SlotAttributeChanged
	slotCount
)

// String returns the callback name of the slot.
func (s Slot) String() string {
	switch s {
	case SlotConnected:
		return "connectedCallback"
	case SlotDisconnected:
		return "disconnectedCallback"
	case SlotAdopted:
		return "adoptedCallback"
	case SlotAttributeChanged:
		return "attributeChangedCallback"
	}
	return "unknownCallback"
}

// Slots lists every lifecycle slot.
var Slots = []Slot{SlotConnected, SlotDisconnected, SlotAdopted, SlotAttributeChanged}

// Call carries the arguments of one lifecycle invocation.
type Call struct {
	Slot Slot

	// Attribute changes.
	Name     string
	OldValue *string
	NewValue *string

	// Adoption.
	OldDocument *dom.Document
	NewDocument *dom.Document
}

// Handler is one lifecycle chain. The task resolves with the partial state
// the chain contributes; for SlotConnected it is merged into the store
// before the connection render.
type Handler func(el *Element, call Call) *task.Task[State]

// Middleware wraps the previous handler of a chain.
type Middleware func(prev Handler) Handler

// Next calls prev, turning a panic or a nil task into a settled task so
// synchronous and asynchronous links compose the same way.
func Next(prev Handler, el *Element, call Call) *task.Task[State] {
	return task.Await(el.typ.rt.loop, func() *task.Task[State] { return prev(el, call) })
}

// Link builds a middleware that waits for prev, then runs fn with prev's
// result. fn's own partial state is merged over prev's. A rejected prev
// skips fn.
func Link(fn func(el *Element, call Call, prev State) *task.Task[State]) Middleware {
	return func(prev Handler) Handler {
		return func(el *Element, call Call) *task.Task[State] {
			return task.ThenTask(Next(prev, el, call), func(s State) *task.Task[State] {
				own := task.Await(el.typ.rt.loop, func() *task.Task[State] { return fn(el, call, s) })
				return task.Then(own, func(o State) (State, error) {
					if o == nil {
						return s, nil
					}
					return Merge(s, o), nil
				})
			})
		}
	}
}

func baseHandler(el *Element, _ Call) *task.Task[State] {
	return task.Resolved[State](el.typ.rt.loop, nil)
}
