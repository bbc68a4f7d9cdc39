// Package event publishes component notifications to code running outside
// the event loop.
//
// Inside the loop, "render" and "change:attribute" are DOM events dispatched
// on the element. A Runtime configured with an event Bus mirrors them as
// TypeRender and TypeAttributeChange events, and adds TypeLifecycleFailed
// when a lifecycle chain rejects:
//
//	bus := event.NewBus(event.BusConfig{NonBlocking: true})
//	rt := fcomp.New(fcomp.WithEventBus(bus))
//
//	bus.Subscribe([]string{event.TypeRender}, event.ChainMiddleware(
//	    event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
//	        p := evt.Data().(event.RenderPayload)
//	        log.Printf("%s rendered %v", evt.Element(), p.State)
//	        return nil
//	    }),
//	    event.Recover(),
//	    event.ForComponent("x-counter"),
//	))
package event
