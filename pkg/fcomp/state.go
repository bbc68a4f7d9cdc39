package fcomp

import (
	"maps"
	"time"
)

// State is the key/value data a component renders from.
type State map[string]any

// Clone returns a shallow copy. A nil State clones to an empty one.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge combines patches left to right into a new State; later keys win.
func Merge(patches ...State) State {
	n := 0
	for _, p := range patches {
		n += len(p)
	}
	out := make(State, n)
	for _, p := range patches {
		maps.Copy(out, p)
	}
	return out
}

// DeepMerge returns base with patch merged in. Nested maps present on both
// sides are merged recursively instead of replaced. Neither input is
// modified.
func DeepMerge(base, patch State) State {
	out := base.Clone()
	for k, v := range patch {
		if pm, ok := asMap(v); ok {
			if bm, ok := asMap(out[k]); ok {
				out[k] = map[string]any(DeepMerge(bm, pm))
				continue
			}
		}
		out[k] = v
	}
	return out
}

func asMap(v any) (State, bool) {
	switch m := v.(type) {
	case State:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// Meta describes what triggered a render. It is passed through to the
// "render" event.
type Meta struct {
	Name string
	Data any
}

// Render trigger names used by the runtime.
const (
	MetaConnected   = "connectedCallback"
	MetaAttributes  = "attributes"
	MetaAsyncRender = "asyncRender"
	MetaState       = "state"
	MetaProperty    = "property"
)

// RenderDetail is the Detail of the "render" event.
type RenderDetail struct {
	// State is a copy of the state passed to the render function.
	State State
	// Time is how long the render function took.
	Time time.Duration
	// Meta comes from the first patch queued in the batch.
	Meta Meta
	// BatchSize is the number of render requests the flush covered.
	BatchSize int
}

// DOM event types dispatched on component elements.
const (
	EventRender          = "render"
	EventAttributeChange = "change:attribute"
)
