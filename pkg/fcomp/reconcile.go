package fcomp

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/randalmurphal/fcomp/pkg/fcomp/dom"
	"github.com/randalmurphal/fcomp/pkg/fcomp/event"
	"github.com/randalmurphal/fcomp/pkg/fcomp/observability"
	"github.com/randalmurphal/fcomp/pkg/fcomp/task"
)

// AttributeChange is an observed attribute mutation with both values
// already coerced.
type AttributeChange struct {
	Name     string
	OldValue any
	NewValue any
}

// Verdict is a validator's answer to an attribute change.
type Verdict struct {
	accept bool
	patch  State
}

// Accept takes the coerced new value under the attribute's state key.
func Accept() Verdict { return Verdict{accept: true} }

// Reject drops the change. Nothing is written and nothing renders.
func Reject() Verdict { return Verdict{} }

// Patch accepts the change but writes s instead of the new value. Keys that
// name observed attributes are written back to the element.
func Patch(s State) Verdict {
	if s == nil {
		s = State{}
	}
	return Verdict{accept: true, patch: s}
}

// Accepted reports whether the change was accepted.
func (v Verdict) Accepted() bool { return v.accept }

// State returns the patch of a Patch verdict, or nil.
func (v Verdict) State() State { return v.patch.cloneOrNil() }

func (s State) cloneOrNil() State {
	if s == nil {
		return nil
	}
	return s.Clone()
}

// Validator gates attribute changes. It receives a copy of the state.
//
// Writing a patch back to an attribute triggers another change for that
// attribute, so a validator must reject changes whose old and new values
// are equal. RejectUnchanged does exactly that.
type Validator func(change AttributeChange, el *Element, state State) Verdict

// RejectUnchanged accepts every change except one whose old and new values
// are equal.
func RejectUnchanged(change AttributeChange, _ *Element, _ State) Verdict {
	if valuesEqual(change.OldValue, change.NewValue) {
		return Reject()
	}
	return Accept()
}

// Coercer converts a raw attribute value (nil when absent) into a state value.
type Coercer func(raw *string) any

// Number parses a float64. An absent or blank attribute is 0 and an
// unparsable one is NaN.
func Number(raw *string) any {
	if raw == nil {
		return float64(0)
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return float64(0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Integer parses an int, truncating decimals. Absent or unparsable
// attributes are 0.
func Integer(raw *string) any {
	f, _ := Number(raw).(float64)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// Boolean is true when the attribute is present, unless its value is
// "false".
func Boolean(raw *string) any {
	return raw != nil && !strings.EqualFold(strings.TrimSpace(*raw), "false")
}

// String passes the raw value through; an absent attribute is nil.
func String(raw *string) any {
	if raw == nil {
		return nil
	}
	return *raw
}

// CoercerByName returns the built-in coercer named "number", "integer",
// "boolean" or "string".
func CoercerByName(name string) (Coercer, error) {
	switch name {
	case "number":
		return Number, nil
	case "integer":
		return Integer, nil
	case "boolean":
		return Boolean, nil
	case "string", "":
		return String, nil
	}
	return nil, fmt.Errorf("unknown coercer %q", name)
}

// AttributeChangeDetail is the Detail of the "change:attribute" event.
type AttributeChangeDetail struct {
	Attribute AttributeChange
	Verdict   Verdict
	// State is a copy of the state after the change was processed.
	State State
}

// UseAttributes binds observed attributes to state. coercers names every
// observed attribute (dataset entries in their "data-x" form) and its
// coercer; a nil coercer means String. A nil validate accepts everything.
//
// On connection, attributes already present are coerced into state
// without validation. A type may use UseAttributes once.
func UseAttributes(validate Validator, coercers map[string]Coercer) Extension {
	return func(factorize FactorizeRegistrar, _ ConstructRegistrar) {
		factorize(func(b *Builder, _ Renderer) error {
			r := &reconciler{validate: validate, coercers: make(map[string]Coercer, len(coercers))}
			for name, c := range coercers {
				if c == nil {
					c = String
				}
				r.coercers[strings.ToLower(name)] = c
			}
			names := make([]string, 0, len(r.coercers))
			for name := range r.coercers {
				names = append(names, name)
			}
			slices.Sort(names)
			if err := b.Observe(names...); err != nil {
				return err
			}
			r.observed = names

			b.Wrap(SlotAttributeChanged, r.attributeChanged)
			b.Wrap(SlotConnected, Link(r.connected))
			return nil
		})
	}
}

type reconciler struct {
	validate Validator
	coercers map[string]Coercer
	observed []string
}

func (r *reconciler) coerce(name string, raw *string) any {
	if c, ok := r.coercers[name]; ok {
		return c(raw)
	}
	return String(raw)
}

// attributeChanged runs the previous link first, then reconciles. The
// previous link's result passes through untouched.
func (r *reconciler) attributeChanged(prev Handler) Handler {
	return func(el *Element, call Call) *task.Task[State] {
		return task.Then(Next(prev, el, call), func(s State) (State, error) {
			if _, ok := r.coercers[call.Name]; ok {
				if err := protect("validate", func() error {
					r.apply(el, call.Name, call.OldValue, call.NewValue)
					return nil
				}); err != nil {
					return nil, err
				}
			}
			return s, nil
		})
	}
}

func (r *reconciler) apply(el *Element, name string, oldRaw, newRaw *string) {
	t := el.typ
	change := AttributeChange{
		Name:     name,
		OldValue: r.coerce(name, oldRaw),
		NewValue: r.coerce(name, newRaw),
	}

	verdict := Accept()
	if r.validate != nil {
		verdict = r.validate(change, el, el.store.Clone())
	}

	meta := Meta{Name: MetaAttributes, Data: change}
	switch {
	case !verdict.accept:
		observability.LogAttributeRejected(el.logger, name)
	case verdict.patch == nil:
		el.store[dom.StateKey(name)] = change.NewValue
		t.sched.enqueue(el, meta)
	default:
		t.applyPatch(el, verdict.patch, meta)
	}

	t.rt.metrics.RecordAttributeChange(t.rt.ctx, t.name, name, verdict.accept)
	state := el.store.Clone()
	el.DispatchEvent(dom.NewEvent(EventAttributeChange, AttributeChangeDetail{
		Attribute: change,
		Verdict:   Verdict{accept: verdict.accept, patch: verdict.patch.cloneOrNil()},
		State:     state,
	}))
	t.rt.publish(event.New(event.TypeAttributeChange, t.name, el.id, event.AttributeChangePayload{
		Attribute: name,
		OldValue:  change.OldValue,
		NewValue:  change.NewValue,
		Accepted:  verdict.accept,
		State:     state,
	}), el.logger)
}

// connected copies present observed attributes into the result of the
// element's first connection. Later changes arrive through
// attributeChanged even while the element is detached.
func (r *reconciler) connected(el *Element, _ Call, _ State) *task.Task[State] {
	if el.extState == nil {
		el.extState = make(map[any]any)
	}
	if el.extState[r] != nil {
		return nil
	}
	el.extState[r] = true

	patch := State{}
	for _, name := range r.observed {
		if raw := el.Attribute(name); raw != nil {
			patch[dom.StateKey(name)] = r.coerce(name, raw)
		}
	}
	return task.Resolved(el.typ.rt.loop, patch)
}

// observedAttribute maps a patch key to the observed attribute it binds:
// the key itself, its dataset form or its spine-case form.
func (t *Type) observedAttribute(key string) (string, bool) {
	for _, candidate := range []string{
		strings.ToLower(key),
		dom.DatasetAttribute(key),
		dom.PascalToSpine(key),
	} {
		if slices.Contains(t.observed, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// applyPatch writes patch into the store. Keys bound to observed
// attributes are written back to the element, which re-enters the
// reconciler; a write-back that would not change the attribute is
// skipped. Other keys, and skipped write-backs that changed the store,
// queue one render.
func (t *Type) applyPatch(el *Element, patch State, meta Meta) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	dirty := false
	for _, k := range keys {
		v := patch[k]
		attr, observed := t.observedAttribute(k)
		if !observed {
			el.store[k] = v
			dirty = true
			continue
		}

		key := dom.StateKey(attr)
		changed := !valuesEqual(el.store[key], v)
		el.store[key] = v
		if writeAttribute(el, attr, v) {
			continue
		}
		if changed {
			dirty = true
		}
	}
	if dirty {
		t.sched.enqueue(el, meta)
	}
}

// writeAttribute sets attr to the string form of v, removing it for nil.
// Returns false when the attribute already held that value.
func writeAttribute(el *Element, attr string, v any) bool {
	current := el.Attribute(attr)
	if v == nil {
		if current == nil {
			return false
		}
		el.RemoveAttribute(attr)
		return true
	}
	s := stringify(v)
	if current != nil && *current == s {
		return false
	}
	el.SetAttribute(attr, s)
	return true
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

func valuesEqual(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
		}
	}
	return reflect.DeepEqual(a, b)
}

// StateFunc computes a patch from an event. A nil result changes nothing.
type StateFunc func(el *Element, state State, evt *dom.Event) State

// AsyncRenderer turns a StateFunc into an event listener.
type AsyncRenderer func(f StateFunc) dom.Listener

// AsyncRender returns a listener that applies f's patch through the same
// attribute gate as the reconciler, without validation: observed keys are
// written back to attributes and the rest queue a render.
func (el *Element) AsyncRender(f StateFunc) dom.Listener {
	return func(evt *dom.Event) {
		patch := f(el, el.store.Clone(), evt)
		if len(patch) == 0 {
			return
		}
		var typ string
		if evt != nil {
			typ = evt.Type
		}
		el.typ.applyPatch(el, patch, Meta{Name: MetaAsyncRender, Data: typ})
	}
}
