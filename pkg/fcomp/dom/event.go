package dom

// Event is dispatched through an element's listeners. Detail carries the
// payload for custom events such as "render".
type Event struct {
	Type    string
	Detail  any
	Bubbles bool

	// Target is the element DispatchEvent was called on.
	Target *Element
	// CurrentTarget is the element whose listener is running.
	CurrentTarget *Element

	stopped bool
}

// NewEvent creates a non-bubbling custom event.
func NewEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail}
}

// StopPropagation prevents the event from reaching further ancestors.
// Listeners on the current element still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles a dispatched event.
type Listener func(*Event)

type listener struct {
	fn Listener
}

// AddEventListener registers fn for events of the given type and returns a
// function that removes the registration.
func (e *Element) AddEventListener(typ string, fn Listener) (remove func()) {
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)
	return func() {
		ls := e.listeners[typ]
		for i, x := range ls {
			if x == l {
				e.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of listeners registered for typ.
func (e *Element) ListenerCount(typ string) int {
	return len(e.listeners[typ])
}

// DispatchEvent runs the listeners for evt on e, then, for bubbling events,
// on each ancestor. A shadow root bubbles to its host.
func (e *Element) DispatchEvent(evt *Event) {
	evt.Target = e
	for cur := e; cur != nil; cur = cur.propagationParent() {
		evt.CurrentTarget = cur
		// Listeners added during dispatch wait for the next event.
		ls := append([]*listener(nil), cur.listeners[evt.Type]...)
		for _, l := range ls {
			l.fn(evt)
		}
		if !evt.Bubbles || evt.stopped {
			break
		}
	}
	evt.CurrentTarget = nil
}

func (e *Element) propagationParent() *Element {
	if e.parent != nil {
		return e.parent
	}
	return e.host
}
