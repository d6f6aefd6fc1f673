package provider

import "fmt"

// Lifecycle tracks adapter initialization state. Adapters embed it and call
// MustBeReady at the top of every data operation; misuse is a caller bug and
// panics by contract.
type Lifecycle struct {
	id          string
	initialized bool
}

// NewLifecycle creates lifecycle state for the given provider id.
func NewLifecycle(id string) Lifecycle {
	return Lifecycle{id: id}
}

// MarkInitialized records a completed Initialize call. Calling it twice
// panics.
func (l *Lifecycle) MarkInitialized() {
	if l.initialized {
		panic(fmt.Sprintf("provider %s: Initialize called twice", l.id))
	}
	l.initialized = true
}

// MarkDisposed records a Dispose call. Dispose is idempotent.
func (l *Lifecycle) MarkDisposed() {
	l.initialized = false
}

// MustBeReady panics when the adapter has not been initialized.
func (l *Lifecycle) MustBeReady() {
	if !l.initialized {
		panic(fmt.Sprintf("provider %s: operation invoked before Initialize", l.id))
	}
}

// Ready reports whether Initialize has completed.
func (l *Lifecycle) Ready() bool {
	return l.initialized
}
