package bounzy

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidTransition is returned when two observations of the same evidence
// item cannot be ordered by any sequence of contract transitions.
var ErrInvalidTransition = errors.New("invalid evidence transition")

// Evidence is an evidence item as reported by the contract.
type Evidence struct {
	ID         uint32
	CampaignID uint32
	Submitter  common.Address
	Status     Status
	Timestamp  time.Time

	SeverityDecryptable    bool
	BountyDecryptable      bool
	DescriptionDecryptable bool
}

// Decryptable returns whether the given field was flagged publicly decryptable.
func (e *Evidence) Decryptable(field Field) bool {
	switch field {
	case FieldSeverity:
		return e.SeverityDecryptable
	case FieldDescription:
		return e.DescriptionDecryptable
	case FieldBounty:
		return e.BountyDecryptable
	default:
		return false
	}
}

// SubmittedBy returns true if the account submitted the evidence.
func (e *Evidence) SubmittedBy(account common.Address) bool {
	return e.Submitter == account
}

// Observe merges a fresh read of an evidence item into the previous observation.
//
// Decryptable flags only ever move from false to true, so they are merged with
// a logical or: a lagging RPC node can return an older state but the merged
// observation never regresses. The same holds for the status; an older status
// is ignored. Observations that no sequence of contract transitions can connect
// return ErrInvalidTransition.
func Observe(prev *Evidence, next Evidence) (Evidence, error) {
	if !next.Status.Valid() {
		return Evidence{}, fmt.Errorf("evidence %d reported with %s: %w", next.ID, next.Status, ErrInvalidTransition)
	}
	if prev == nil {
		return next, nil
	}
	if prev.ID != next.ID {
		return Evidence{}, fmt.Errorf("cannot merge evidence %d into %d: %w", next.ID, prev.ID, ErrInvalidTransition)
	}
	if prev.CampaignID != next.CampaignID || prev.Submitter != next.Submitter {
		return Evidence{}, fmt.Errorf("evidence %d changed campaign or submitter: %w", next.ID, ErrInvalidTransition)
	}

	merged := next
	switch {
	case reachable(prev.Status, next.Status):
		// reads may skip intermediate states, e.g. pending straight to claimed
	case reachable(next.Status, prev.Status):
		// stale read, keep what we already observed
		merged.Status = prev.Status
	default:
		return Evidence{}, fmt.Errorf("evidence %d moved from %s to %s: %w", next.ID, prev.Status, next.Status, ErrInvalidTransition)
	}

	merged.SeverityDecryptable = prev.SeverityDecryptable || next.SeverityDecryptable
	merged.BountyDecryptable = prev.BountyDecryptable || next.BountyDecryptable
	merged.DescriptionDecryptable = prev.DescriptionDecryptable || next.DescriptionDecryptable
	if merged.Timestamp.IsZero() {
		merged.Timestamp = prev.Timestamp
	}
	return merged, nil
}

// reachable returns true if to can be reached from from in one or more transitions.
func reachable(from, to Status) bool {
	if from == to {
		return true
	}
	for next := StatusPending; next <= StatusClaimed; next++ {
		if next != from && from.CanTransitionTo(next) && reachable(next, to) {
			return true
		}
	}
	return false
}
