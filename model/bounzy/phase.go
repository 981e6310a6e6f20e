package bounzy

import (
	"fmt"
)

// Phase is the client-observable lifecycle state of an evidence item. It is
// derived from the status and the decryptable flags reported by the contract.
type Phase uint8

const (
	PhaseAwaitingSeverityDecryption Phase = iota + 1
	PhaseUnderReview
	PhaseAwaitingBountyDecryption
	PhaseClaimable
	PhaseDeclined
	PhaseClaimed
)

// PhaseOf derives the lifecycle phase of an evidence item.
func PhaseOf(ev *Evidence) (Phase, error) {
	switch ev.Status {
	case StatusPending:
		if ev.SeverityDecryptable {
			return PhaseUnderReview, nil
		}
		return PhaseAwaitingSeverityDecryption, nil
	case StatusValidated:
		if ev.BountyDecryptable {
			return PhaseClaimable, nil
		}
		return PhaseAwaitingBountyDecryption, nil
	case StatusDeclined:
		return PhaseDeclined, nil
	case StatusClaimed:
		return PhaseClaimed, nil
	default:
		return 0, fmt.Errorf("evidence %d has %s: %w", ev.ID, ev.Status, ErrInvalidTransition)
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSeverityDecryption:
		return "awaiting_severity_decryption"
	case PhaseUnderReview:
		return "under_review"
	case PhaseAwaitingBountyDecryption:
		return "awaiting_bounty_decryption"
	case PhaseClaimable:
		return "claimable"
	case PhaseDeclined:
		return "declined"
	case PhaseClaimed:
		return "claimed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseAwaitingSeverityDecryption; candidate <= PhaseClaimed; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Terminal returns true once no state-changing action is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDeclined || p == PhaseClaimed
}

// Action is something a client can do with an evidence item.
type Action uint8

const (
	ActionRequestSeverityDecryption Action = iota + 1
	ActionRequestDescriptionDecryption
	ActionRequestBountyDecryption
	ActionPreviewSeverity
	ActionPreviewDescription
	ActionPreviewBounty
	ActionValidate
	ActionDecline
	ActionClaim
	ActionFetchDeclinedReason
)

func (a Action) String() string {
	switch a {
	case ActionRequestSeverityDecryption:
		return "request_severity_decryption"
	case ActionRequestDescriptionDecryption:
		return "request_description_decryption"
	case ActionRequestBountyDecryption:
		return "request_bounty_decryption"
	case ActionPreviewSeverity:
		return "preview_severity"
	case ActionPreviewDescription:
		return "preview_description"
	case ActionPreviewBounty:
		return "preview_bounty"
	case ActionValidate:
		return "validate"
	case ActionDecline:
		return "decline"
	case ActionClaim:
		return "claim"
	case ActionFetchDeclinedReason:
		return "fetch_declined_reason"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	for candidate := ActionRequestSeverityDecryption; candidate <= ActionFetchDeclinedReason; candidate++ {
		if candidate.String() == string(text) {
			*a = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

// Transacts returns true for actions that submit a transaction.
func (a Action) Transacts() bool {
	switch a {
	case ActionRequestSeverityDecryption,
		ActionRequestDescriptionDecryption,
		ActionRequestBountyDecryption,
		ActionValidate,
		ActionDecline,
		ActionClaim:
		return true
	default:
		return false
	}
}

// Actions returns the actions available for the evidence item in its current
// phase, in a stable order.
func Actions(ev *Evidence) []Action {
	phase, err := PhaseOf(ev)
	if err != nil {
		return nil
	}

	var actions []Action
	switch phase {
	case PhaseAwaitingSeverityDecryption:
		actions = append(actions, ActionRequestSeverityDecryption)
	case PhaseUnderReview:
		actions = append(actions, ActionPreviewSeverity)
		if !ev.DescriptionDecryptable {
			actions = append(actions, ActionRequestDescriptionDecryption)
		}
		actions = append(actions, ActionValidate, ActionDecline)
	case PhaseAwaitingBountyDecryption:
		actions = append(actions, ActionRequestBountyDecryption)
	case PhaseClaimable:
		actions = append(actions, ActionPreviewBounty, ActionClaim)
	case PhaseDeclined:
		actions = append(actions, ActionFetchDeclinedReason)
	case PhaseClaimed:
		actions = append(actions, ActionPreviewBounty)
	}

	// reading an already decryptable description never changes state
	if ev.DescriptionDecryptable {
		actions = append(actions, ActionPreviewDescription)
	}
	return actions
}

// Allows returns true if the action is available for the evidence item.
func Allows(ev *Evidence, action Action) bool {
	for _, a := range Actions(ev) {
		if a == action {
			return true
		}
	}
	return false
}
