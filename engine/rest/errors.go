package rest

import (
	"errors"
	"net/http"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/module/contract"
)

// StatusError provides custom error with http status.
type StatusError interface {
	error                // this is the actual error that occurred
	Status() int         // the HTTP status code to return
	UserMessage() string // the error message to return to the client
	Kind() lifecycle.Kind
}

// NewRestError creates an error returned to user with provided status
// user displayed message and internal error
func NewRestError(status int, msg string, err error) *Error {
	return &Error{
		status:      status,
		userMessage: msg,
		err:         err,
	}
}

// NewBadRequestError creates a new bad request rest error.
func NewBadRequestError(err error) *Error {
	return &Error{
		status:      http.StatusBadRequest,
		userMessage: err.Error(),
		kind:        lifecycle.KindInput,
		err:         err,
	}
}

// NewNotFoundError creates a new not found rest error.
func NewNotFoundError(msg string, err error) *Error {
	return &Error{
		status:      http.StatusNotFound,
		userMessage: msg,
		kind:        lifecycle.KindInput,
		err:         err,
	}
}

// Error is implementation of status error.
type Error struct {
	status      int
	userMessage string
	kind        lifecycle.Kind
	err         error
}

func (e *Error) UserMessage() string {
	return e.userMessage
}

// Status returns error http status code.
func (e *Error) Status() int {
	return e.status
}

func (e *Error) Kind() lifecycle.Kind {
	return e.kind
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// toStatusError maps an error returned by the lifecycle to the HTTP status
// matching its kind.
func toStatusError(err error) StatusError {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	kind := lifecycle.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case lifecycle.KindConflict:
		status = http.StatusConflict
	case lifecycle.KindNotReady:
		status = http.StatusAccepted
	case lifecycle.KindInput:
		status = http.StatusBadRequest
		// view calls revert for ids the contract does not know
		if errors.Is(err, contract.ErrRead) && errors.Is(err, contract.ErrReverted) {
			status = http.StatusNotFound
		}
	case lifecycle.KindTransaction:
		status = http.StatusUnprocessableEntity
	case lifecycle.KindInitialization:
		status = http.StatusServiceUnavailable
	case lifecycle.KindRead, lifecycle.KindEncryption:
		status = http.StatusBadGateway
	case lifecycle.KindCanceled:
		status = http.StatusRequestTimeout
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return &Error{
		status:      status,
		userMessage: msg,
		kind:        kind,
		err:         err,
	}
}
