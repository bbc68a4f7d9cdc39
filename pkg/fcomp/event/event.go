package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the component runtime.
const (
	// TypeRender follows every render flush. Payload: RenderPayload.
	TypeRender = "fcomp.render"

	// TypeAttributeChange follows every observed attribute mutation,
	// accepted or not. Payload: AttributeChangePayload.
	TypeAttributeChange = "fcomp.change.attribute"

	// TypeLifecycleFailed follows a rejected lifecycle chain. Payload: LifecycleFailedPayload.
	TypeLifecycleFailed = "fcomp.lifecycle.failed"
)

// Event is a notification about one component instance.
// Events are immutable once created.
type Event interface {
	ID() string
	Type() string

	// Component is the custom element name of the emitting type.
	Component() string
	// Element is the emitting instance's id.
	Element() string

	CorrelationID() string
	CausationID() string

	Timestamp() time.Time

	Data() any
	DataBytes() []byte
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	Component     string    `json:"component"`
	Element       string    `json:"element"`
	CorrelationID string    `json:"correlation_id"`
	CausationID   string    `json:"causation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// BaseEvent is the generic Event implementation. T is the payload type.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`

	cachedBytes []byte
}

func (e *BaseEvent[T]) ID() string            { return e.Meta.EventID }
func (e *BaseEvent[T]) Type() string          { return e.Meta.EventType }
func (e *BaseEvent[T]) Component() string     { return e.Meta.Component }
func (e *BaseEvent[T]) Element() string       { return e.Meta.Element }
func (e *BaseEvent[T]) CorrelationID() string { return e.Meta.CorrelationID }
func (e *BaseEvent[T]) CausationID() string   { return e.Meta.CausationID }
func (e *BaseEvent[T]) Timestamp() time.Time  { return e.Meta.Timestamp }
func (e *BaseEvent[T]) Data() any             { return e.Payload }

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// DataBytes returns the JSON payload, computed once.
func (e *BaseEvent[T]) DataBytes() []byte {
	if e.cachedBytes == nil {
		// Payloads are plain state maps; errors only come from
		// unsupported values such as channels, which yield nil.
		e.cachedBytes, _ = json.Marshal(e.Payload)
	}
	return e.cachedBytes
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	causationID   string
	timestamp     time.Time
}

// WithEventID sets a specific event ID (default: a random UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) { cfg.id = id }
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) Option {
	return func(cfg *eventConfig) { cfg.correlationID = id }
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) Option {
	return func(cfg *eventConfig) { cfg.causationID = id }
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) { cfg.timestamp = t }
}

// New creates an event emitted by element of component.
func New[T any](eventType, component, element string, payload T, opts ...Option) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.NewString(),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	// An event without a correlation ID starts its own chain.
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventType:     eventType,
			Component:     component,
			Element:       element,
			CorrelationID: cfg.correlationID,
			CausationID:   cfg.causationID,
			Timestamp:     cfg.timestamp,
		},
		Payload: payload,
	}
}

// NewFromParent creates an event caused by parent on the same element.
func NewFromParent[T any](parent Event, eventType string, payload T, opts ...Option) *BaseEvent[T] {
	all := append([]Option{
		WithCorrelationID(parent.CorrelationID()),
		WithCausationID(parent.ID()),
	}, opts...)
	return New(eventType, parent.Component(), parent.Element(), payload, all...)
}

// NewAny creates an event with an untyped payload.
func NewAny(eventType, component, element string, payload any, opts ...Option) *BaseEvent[any] {
	return New(eventType, component, element, payload, opts...)
}

// RenderPayload is the payload of TypeRender.
type RenderPayload struct {
	State      map[string]any `json:"state"`
	DurationMs float64        `json:"duration_ms"`
	Meta       string         `json:"meta"`
	BatchSize  int            `json:"batch_size"`
}

// AttributeChangePayload is the payload of TypeAttributeChange.
type AttributeChangePayload struct {
	Attribute string         `json:"attribute"`
	OldValue  any            `json:"old_value"`
	NewValue  any            `json:"new_value"`
	Accepted  bool           `json:"accepted"`
	State     map[string]any `json:"state"`
}

// LifecycleFailedPayload is the payload of TypeLifecycleFailed.
type LifecycleFailedPayload struct {
	Slot  string `json:"slot"`
	Error string `json:"error"`
}

// Handler processes events delivered by a Bus.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// MiddlewareFunc wraps handlers to add cross-cutting concerns.
type MiddlewareFunc func(next Handler) Handler

// ChainMiddleware applies middleware in order, with first middleware outermost.
func ChainMiddleware(handler Handler, middleware ...MiddlewareFunc) Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// ForComponent passes only events emitted by the named component types.
func ForComponent(names ...string) MiddlewareFunc {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, evt Event) error {
			if !allowed[evt.Component()] {
				return nil
			}
			return next.Handle(ctx, evt)
		})
	}
}

// Recover turns a handler panic into an *EventError.
func Recover() MiddlewareFunc {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, evt Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &EventError{Event: evt, Message: "handler panicked", Panic: r}
				}
			}()
			return next.Handle(ctx, evt)
		})
	}
}
