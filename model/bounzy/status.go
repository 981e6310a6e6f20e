package bounzy

import (
	"fmt"
)

// Status is the on-chain review status of an evidence item.
type Status uint8

const (
	StatusPending Status = iota
	StatusValidated
	StatusDeclined
	StatusClaimed
)

// ParseStatus converts the raw uint8 returned by the contract into a Status.
func ParseStatus(raw uint8) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown evidence status %d", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	return s <= StatusClaimed
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusValidated:
		return "validated"
	case StatusDeclined:
		return "declined"
	case StatusClaimed:
		return "claimed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal returns true for statuses with no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusClaimed
}

// CanTransitionTo returns true if the contract can move an evidence item from
// status s to next. Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return s.Valid()
	}
	switch s {
	case StatusPending:
		return next == StatusValidated || next == StatusDeclined
	case StatusValidated:
		return next == StatusClaimed
	default:
		return false
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown evidence status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status from its name.
func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusPending; candidate <= StatusClaimed; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown evidence status %q", string(text))
}
