package fcomp

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"

	"github.com/google/uuid"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
)

// Type is a defined component type. It is immutable after Define returns.
type Type struct {
	rt         *Runtime
	name       string
	render     RenderFunc
	initial    State
	constructs []ConstructFunc
	chains     [slotCount]Handler
	observed   []string
	properties []string
	sched      *scheduler
	logger     *slog.Logger
}

// Define defines a component type on the default runtime.
func Define(name string, render RenderFunc, initial State, exts ...Extension) (*Type, error) {
	return Default().Define(name, render, initial, exts...)
}

// Define runs every extension's factorize phase and returns the resulting
// component type. Errors from extensions, including panics, abort the
// definition and are returned as *DefineError.
func (rt *Runtime) Define(name string, render RenderFunc, initial State, exts ...Extension) (typ *Type, err error) {
	_, span := rt.spans.StartDefineSpan(rt.ctx, name)
	timer := observability.TimedOperation()
	defer func() {
		rt.spans.EndSpanWithError(span, err)
		if err != nil {
			observability.LogDefineError(rt.logger, name, err)
		}
	}()

	if !dom.ValidCustomName(name) {
		return nil, &DefineError{Component: name, Phase: "name", Index: -1, Err: fmt.Errorf("%w: %q", dom.ErrInvalidName, name)}
	}
	if render == nil {
		return nil, &DefineError{Component: name, Phase: "render", Index: -1, Err: ErrNilRender}
	}

	var (
		factorizers []FactorizeFunc
		constructs  []ConstructFunc
	)
	for i, ext := range exts {
		if ext == nil {
			continue
		}
		perr := protect("extension", func() error {
			ext(
				func(f FactorizeFunc) { factorizers = append(factorizers, f) },
				func(c ConstructFunc) { constructs = append(constructs, c) },
			)
			return nil
		})
		if perr != nil {
			return nil, &DefineError{Component: name, Phase: "extension", Index: i, Err: perr}
		}
	}

	t := &Type{
		rt:      rt,
		name:    name,
		render:  render,
		initial: initial.Clone(),
		logger:  rt.logger,
	}
	t.sched = newScheduler(t)

	b := &Builder{name: name, initial: t.initial, rt: rt}
	for i, f := range factorizers {
		if f == nil {
			continue
		}
		if ferr := protect("factorize", func() error { return f(b, t.queue) }); ferr != nil {
			return nil, &DefineError{Component: name, Phase: "factorize", Index: i, Err: ferr}
		}
	}

	t.chains = b.chains(baseHandler)
	t.observed = b.observed
	t.properties = b.properties
	t.constructs = slices.DeleteFunc(constructs, func(c ConstructFunc) bool { return c == nil })

	observability.LogDefine(rt.logger, name, len(t.observed), len(exts), timer())
	return t, nil
}

// Name returns the custom element name.
func (t *Type) Name() string { return t.name }

// Runtime returns the runtime the type was defined on.
func (t *Type) Runtime() *Runtime { return t.rt }

// ObservedAttributes returns a copy of the observed attribute list.
func (t *Type) ObservedAttributes() []string { return slices.Clone(t.observed) }

// Properties returns a copy of the declared property names.
func (t *Type) Properties() []string { return slices.Clone(t.properties) }

// Initial returns a copy of the initial state.
func (t *Type) Initial() State { return t.initial.Clone() }

// Register makes doc upgrade elements with the type's tag, including
// elements created from parsed templates.
func (t *Type) Register(doc *dom.Document) error {
	return doc.Define(t.name, func(host *dom.Element) (dom.Hooks, error) {
		return t.construct(host)
	})
}

// New creates a detached element of this type in doc. The document does
// not need a registration.
func (t *Type) New(doc *dom.Document) (*Element, error) {
	host := doc.NewElement(t.name)
	el, err := t.construct(host)
	if err != nil {
		return nil, err
	}
	host.Upgrade(el)
	return el, nil
}

func (t *Type) construct(host *dom.Element) (*Element, error) {
	id := uuid.NewString()
	el := &Element{
		Element: host,
		typ:     t,
		id:      id,
		store:   t.initial.Clone(),
		logger:  observability.EnrichLogger(t.logger, t.name, id),
	}
	for i, c := range t.constructs {
		if err := protect("construct", func() error { return c(el) }); err != nil {
			return nil, &DefineError{Component: t.name, Phase: "construct", Index: i, Err: err}
		}
	}
	return el, nil
}

// queue merges patch into el's store and queues a render. It is the
// Renderer handed to factorize callbacks.
func (t *Type) queue(el *Element, patch State, meta Meta) {
	el.store = Merge(el.store, patch)
	t.sched.enqueue(el, meta)
}

// protect runs fn, converting a panic into *PanicError.
func protect(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: op, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}
