package fcomp

import (
	"slices"
	"strings"
)

// Extension contributes behavior to a component type. It is called once,
// during Define, with two registrars: callbacks passed to factorize run once
// for the type, callbacks passed to construct run once per element.
// Registrations accumulate in call order across all extensions.
type Extension func(factorize FactorizeRegistrar, construct ConstructRegistrar)

// FactorizeRegistrar queues a type-construction callback.
type FactorizeRegistrar func(FactorizeFunc)

// ConstructRegistrar queues an element-construction callback.
type ConstructRegistrar func(ConstructFunc)

// FactorizeFunc shapes a type under construction. render queues patches
// on the type's render scheduler.
type FactorizeFunc func(b *Builder, render Renderer) error

// ConstructFunc initializes a new element. It runs after the element's
// state is initialized and before the element can connect.
type ConstructFunc func(el *Element) error

// Renderer merges patch into el's state and queues a render.
type Renderer func(el *Element, patch State, meta Meta)

// RenderFunc draws an element from its state. It runs on the loop, at most
// once per frame per element, and receives a copy it may keep.
type RenderFunc func(el *Element, state State)

// Builder is the component type under construction, as seen by factorize
// callbacks. It is only valid during Define.
type Builder struct {
	name       string
	initial    State
	rt         *Runtime
	wrappers   [slotCount][]Middleware
	observed   []string
	hasObs     bool
	properties []string
}

// Name returns the custom element name.
func (b *Builder) Name() string { return b.name }

// Initial returns a copy of the initial state.
func (b *Builder) Initial() State { return b.initial.Clone() }

// Runtime returns the runtime the type is defined on.
func (b *Builder) Runtime() *Runtime { return b.rt }

// Wrap adds a link to the lifecycle chain of slot. The link registered
// first wraps the runtime's base handler, so it is innermost and its work
// happens first when every link calls prev before doing its own.
func (b *Builder) Wrap(slot Slot, mw Middleware) {
	b.wrappers[slot] = append(b.wrappers[slot], mw)
}

// Observe fixes the observed attribute list. It may be called once per type.
func (b *Builder) Observe(attrs ...string) error {
	if b.hasObs {
		return ErrReconcilerInstalled
	}
	b.hasObs = true
	for _, a := range attrs {
		b.observed = append(b.observed, strings.ToLower(a))
	}
	return nil
}

// Observed returns the observed attribute list so far.
func (b *Builder) Observed() []string { return slices.Clone(b.observed) }

// DefineProperty declares element properties backed by state keys.
func (b *Builder) DefineProperty(names ...string) {
	for _, n := range names {
		if !slices.Contains(b.properties, n) {
			b.properties = append(b.properties, n)
		}
	}
}

func (b *Builder) chains(base Handler) [slotCount]Handler {
	var out [slotCount]Handler
	for slot := range out {
		h := base
		for _, mw := range b.wrappers[slot] {
			h = mw(h)
		}
		out[slot] = h
	}
	return out
}
