package fcomp

import (
	"errors"
	"fmt"
)

// Sentinel errors for component definition.
var (
	// ErrReconcilerInstalled indicates a second attribute reconciler on one type.
	ErrReconcilerInstalled = errors.New("attribute reconciler already installed")

	// ErrNilRender indicates Define was called without a render function.
	ErrNilRender = errors.New("render function cannot be nil")

	// ErrNoRender indicates a manifest component with no registered render function.
	ErrNoRender = errors.New("no render function for component")
)

// Sentinel errors for element access.
var (
	// ErrUnknownProperty indicates a property that was not declared with UseProperties.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrNotComponent indicates a DOM element that is not an upgraded component.
	ErrNotComponent = errors.New("element is not a component")
)

// DefineError reports a failure while defining a component type.
type DefineError struct {
	// Component is the custom element name.
	Component string
	// Phase is "name", "render", "manifest", "extension", "factorize"
	// or "construct".
	Phase string
	// Index is the position of the failing extension or callback, or -1.
	Index int
	Err   error
}

// Error implements the error interface.
func (e *DefineError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("define %s: %s #%d: %v", e.Component, e.Phase, e.Index, e.Err)
	}
	return fmt.Sprintf("define %s: %s: %v", e.Component, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *DefineError) Unwrap() error {
	return e.Err
}

// LifecycleError reports a rejected lifecycle chain. The element keeps
// working; only the render for that invocation is lost.
type LifecycleError struct {
	Component string
	Element   string
	Slot      Slot
	Err       error
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Component, e.Element, e.Slot, e.Err)
}

// Unwrap returns the underlying error.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic from user code run by the runtime.
type PanicError struct {
	// Op names what was running ("render", "validate", "factorize", ...).
	Op string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Op, e.Value)
}
