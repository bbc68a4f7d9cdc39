package fcomp

import (
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// LifecycleFunc is a synchronous lifecycle callback. render builds event
// listeners whose patches go through the attribute gate. The returned
// state is merged into the chain's result; an error rejects the chain.
type LifecycleFunc func(el *Element, render AsyncRenderer, call Call) (State, error)

// AsyncLifecycleFunc is a lifecycle callback that settles later. Work that
// leaves the loop should use task.Go so the result lands back on it.
type AsyncLifecycleFunc func(el *Element, render AsyncRenderer, call Call) *task.Task[State]

// Callbacks holds plain lifecycle callbacks. Nil fields are skipped.
type Callbacks struct {
	Connected        LifecycleFunc
	Disconnected     LifecycleFunc
	Adopted          LifecycleFunc
	AttributeChanged LifecycleFunc
}

// UseCallbacks adds cb's callbacks as links of their slots' chains. Each
// runs after the links registered before it.
func UseCallbacks(cb Callbacks) Extension {
	return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			for slot, fn := range map[Slot]LifecycleFunc{
				SlotConnected:        cb.Connected,
				SlotDisconnected:     cb.Disconnected,
				SlotAdopted:          cb.Adopted,
				SlotAttributeChanged: cb.AttributeChanged,
			} {
				if fn == nil {
					continue
				}
				b.Wrap(slot, Link(func(el *Element, call Call, _ State) *task.Task[State] {
					return task.Try(el.typ.rt.loop, func() (State, error) {
						return fn(el, el.AsyncRender, call)
					})
				}))
			}
			return nil
		})
	}
}

// UseAsyncCallback adds fn as a link of slot's chain. The chain, and for
// SlotConnected the connection render, waits for fn's task.
func UseAsyncCallback(slot Slot, fn AsyncLifecycleFunc) Extension {
	return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			if fn == nil {
				return nil
			}
			b.Wrap(slot, Link(func(el *Element, call Call, _ State) *task.Task[State] {
				return fn(el, el.AsyncRender, call)
			}))
			return nil
		})
	}
}
