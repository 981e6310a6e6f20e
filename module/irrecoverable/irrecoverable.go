package irrecoverable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
)

// Signaler sends irrecoverable errors to a single consumer.
type Signaler struct {
	errors chan error
}

// NewSignaler returns a signaler and the channel that receives the first thrown error.
func NewSignaler() (*Signaler, <-chan error) {
	errChan := make(chan error, 1)
	return &Signaler{errors: errChan}, errChan
}

// Throw is a narrow drop-in replacement for panic or log.Fatal. Only the first
// error is delivered; the calling goroutine always exits.
func (s *Signaler) Throw(err error) {
	select {
	case s.errors <- err:
	default:
	}
	runtime.Goexit()
}

// SignalerContext is a context.Context that can also throw irrecoverable errors.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed() // constrains construction to WithSignaler
}

type signalerCtx struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler wraps the context with a new signaler and returns the channel
// that receives the thrown error.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return signalerCtx{parent, sig}, errChan
}

// Throw throws the error on the context if it is a SignalerContext, and
// terminates the process otherwise.
func Throw(ctx context.Context, err error) {
	if sc, ok := ctx.(SignalerContext); ok {
		sc.Throw(err)
	}
	log.Fatalf("irrecoverable error signaler not found for context, unhandled irrecoverable error: %v", err)
}

// exception marks an unexpected error that no caller is able to handle.
type exception struct {
	err error
}

func (e exception) Error() string {
	return fmt.Sprintf("[exception!] %s", e.err.Error())
}

func (e exception) Unwrap() error {
	return e.err
}

// NewException wraps the error as an exception.
func NewException(err error) error {
	return exception{err: err}
}

// NewExceptionf formats an error and wraps it as an exception.
func NewExceptionf(msg string, args ...interface{}) error {
	return NewException(fmt.Errorf(msg, args...))
}

// IsException returns true if any error in the chain is an exception.
func IsException(err error) bool {
	var e exception
	return errors.As(err, &e)
}
