package lifecycle

import (
	"context"
	"errors"

	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
)

var (
	// ErrActionInFlight is returned when another state changing flow for the
	// same evidence item has not finished yet. Nothing was done.
	ErrActionInFlight = errors.New("another action for this evidence is in flight")

	// ErrDecryptionRequested is returned when a decryption request for the field
	// was already confirmed and the oracle has not flagged it yet. No
	// transaction was sent.
	ErrDecryptionRequested = errors.New("decryption already requested")

	// ErrActionNotAllowed is returned when the action is not available in the
	// current phase of the evidence item.
	ErrActionNotAllowed = errors.New("action not allowed in current phase")

	// ErrNotDecryptable is returned when a field is not publicly decryptable yet.
	// It is a normal state: request decryption, then wait.
	ErrNotDecryptable = errors.New("field not decryptable yet")

	// ErrPollExhausted is returned when a field did not become decryptable
	// within the configured number of polls.
	ErrPollExhausted = errors.New("gave up waiting for decryption")

	// ErrInvalidInput is returned for arguments rejected before any call.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind is the category of a failure, deciding how a caller should react.
type Kind string

const (
	// KindInitialization is fatal for the session.
	KindInitialization Kind = "initialization"
	// KindEncryption aborts the flow; retry from scratch.
	KindEncryption Kind = "encryption"
	// KindNotReady is not a failure; request decryption and wait.
	KindNotReady Kind = "not_ready"
	// KindTransaction covers reverts, wallet rejections and unconfirmed
	// transactions; the action can be retried.
	KindTransaction Kind = "transaction"
	// KindRead covers RPC failures of view calls and relayer reads.
	KindRead Kind = "read"
	// KindConflict covers actions refused because of the evidence state.
	KindConflict Kind = "conflict"
	// KindInput covers malformed or out of range arguments.
	KindInput Kind = "input"
	// KindCanceled is returned when the caller gave up.
	KindCanceled Kind = "canceled"
	KindUnknown  Kind = "unknown"
)

// Classify maps an error returned by the orchestrator to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fhe.ErrInitialization):
		return KindInitialization
	case errors.Is(err, ErrNotDecryptable), errors.Is(err, ErrPollExhausted):
		return KindNotReady
	case errors.Is(err, ErrActionInFlight),
		errors.Is(err, ErrDecryptionRequested),
		errors.Is(err, ErrActionNotAllowed):
		return KindConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, fhe.ErrInvalidInput):
		return KindInput
	case errors.Is(err, fhe.ErrEncryption):
		return KindEncryption
	case errors.Is(err, contract.ErrRead):
		// a view call reverting means the id does not exist
		if errors.Is(err, contract.ErrReverted) {
			return KindInput
		}
		return KindRead
	case errors.Is(err, fhe.ErrDecryption):
		return KindRead
	case errors.Is(err, contract.ErrReverted),
		errors.Is(err, contract.ErrSignatureRejected),
		errors.Is(err, contract.ErrNoSigner),
		errors.Is(err, contract.ErrConfirmationTimeout),
		errors.Is(err, contract.ErrTransactionFailed):
		return KindTransaction
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
