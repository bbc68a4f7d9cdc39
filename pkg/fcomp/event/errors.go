package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus closed")

// EventError represents an error during event delivery or handling.
type EventError struct {
	Event   Event
	Message string
	Err     error
	// Panic holds the recovered value when a handler panicked.
	Panic any
}

// Error implements error interface.
func (e *EventError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("event %s (%s): %s: %v", e.Event.ID(), e.Event.Type(), e.Message, e.Err)
	case e.Panic != nil:
		return fmt.Sprintf("event %s (%s): %s: %v", e.Event.ID(), e.Event.Type(), e.Message, e.Panic)
	}
	return fmt.Sprintf("event %s (%s): %s", e.Event.ID(), e.Event.Type(), e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
