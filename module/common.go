package module

import (
	"errors"

	"github.com/bounzy/bounzy-go/module/irrecoverable"
)

// ErrMultipleStartup is returned when Start is called on a component more than once.
var ErrMultipleStartup = errors.New("component may only be started once")

// Startable provides an interface to start a component. Once started, the component
// can be stopped by cancelling the given context.
type Startable interface {
	// Start starts the component. Any irrecoverable errors encountered while the component is running
	// will be thrown with the given context.
	// Panics with ErrMultipleStartup if called more than once.
	Start(irrecoverable.SignalerContext)
}

// ReadyDoneAware provides an interface to wait for component startup and shutdown.
// Components only support a single start-stop cycle.
type ReadyDoneAware interface {
	// Ready returns a channel that is closed once startup has completed.
	Ready() <-chan struct{}

	// Done returns a channel that is closed once shutdown has completed.
	Done() <-chan struct{}
}
