/*
Package fcomp builds custom elements from a render function and a list of
extensions.

# Overview

A component type is defined once from three things: a custom element name,
a render function that draws the element from its state, and the initial
state. Everything else, such as observed attributes, templates, callbacks
and persistence, is contributed by extensions.

Elements live in a headless DOM (package dom) and all of their work runs on
a cooperative event loop (package loop) owned by a Runtime.

# Basic Usage

	rt := fcomp.New()

	counter, err := rt.Define("x-counter",
	    func(el *fcomp.Element, s fcomp.State) {
	        el.Ref("out").SetTextContent(fmt.Sprint(s["value"]))
	    },
	    fcomp.State{"value": 0.0},
	    fcomp.UseShadow(),
	    fcomp.UseTemplate(fcomp.InlineTemplate(`<span id="out"></span>`), refs),
	    fcomp.UseAttributes(fcomp.RejectUnchanged, map[string]fcomp.Coercer{
	        "value": fcomp.Number,
	    }),
	)
	if err != nil {
	    log.Fatal(err)
	}

	doc := dom.NewDocument()
	counter.Register(doc)
	el, _ := doc.CreateElement("x-counter")
	el.SetAttribute("value", "3")
	doc.Body().AppendChild(el)

	go rt.Loop().Run(ctx)

# Extensions

An Extension receives two registrars. Factorize callbacks run once, inside
Define, and may wrap lifecycle chains, fix the observed attribute list and
declare properties through the Builder. Construct callbacks run once per
element before it can connect.

	func UseClicks() fcomp.Extension {
	    return func(factorize fcomp.FactorizeRegistrar, construct fcomp.ConstructRegistrar) {
	        construct(func(el *fcomp.Element) error {
	            el.AddEventListener("click", el.AsyncRender(
	                func(el *fcomp.Element, s fcomp.State, _ *dom.Event) fcomp.State {
	                    return fcomp.State{"clicks": s["clicks"].(int) + 1}
	                }))
	            return nil
	        })
	    }
	}

# Lifecycle Chains

Each lifecycle slot has one chain, built at Define. Links are added with
Builder.Wrap; the first link registered is innermost. A link returns a
*task.Task[State] and may settle later. For the connected slot the
resolved state is merged into the element's state before the connection
render.

A rejected chain is logged and reported as *LifecycleError through
Element.Lifecycle. It never panics into the DOM mutation that triggered it.

# Attributes

UseAttributes observes attributes, coerces their values and passes every
change through a Validator. An accepted change updates state and queues a
render. A Patch verdict may write values back to observed attributes;
write-backs that would not change the attribute are skipped. Every
processed change dispatches a "change:attribute" event.

# Rendering

Patches queued for an element within one frame are merged and rendered
once. After every render the element dispatches a "render" event carrying
a RenderDetail. A disconnected element drops its pending render and
ignores patches until it connects again.

# Persistence

UsePersistence restores state from a snapshot.Store on first connection
and saves it after every render:

	store, err := snapshot.NewSQLiteStore("./state.db")
	typ, err := rt.Define("x-note", render, nil, fcomp.UsePersistence(store))

# Observability

	rt := fcomp.New(
	    fcomp.WithLogger(logger),
	    fcomp.WithMetrics(observability.NewMetricsRecorder()),
	    fcomp.WithSpanManager(observability.NewSpanManager()),
	    fcomp.WithEventBus(event.NewBus(event.DefaultBusConfig)),
	)

Logs carry component and element_id fields. Renders, lifecycle
invocations and attribute changes are recorded as OpenTelemetry metrics
and spans, and mirrored onto the event bus.

# Thread Safety

  - Runtime and Type are safe to share once defined
  - Element, like the DOM, must only be used on its runtime's loop
  - snapshot.Store implementations are safe for concurrent use

# Subpackages

  - dom: headless DOM, templates and selectors
  - loop: cooperative event loop with frames and microtasks
  - task: futures settled on the loop
  - snapshot: state snapshot codecs and stores (memory, SQLite)
  - event: event bus for render and attribute notifications
  - config: YAML/JSON configuration and component manifests
  - observability: logging, metrics and tracing helpers
*/
package fcomp
