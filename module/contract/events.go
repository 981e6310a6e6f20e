package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event is a decoded contract event. Field names follow the ABI argument names
// so logs can be unpacked directly.
type Event interface {
	EventName() string
	// EvidenceID returns the evidence the event refers to, or 0.
	EvidenceID() uint32
	// Log returns the raw log the event was decoded from.
	Log() types.Log
}

const (
	EventCampaignCreated   = "CampaignCreated"
	EventEvidenceSubmitted = "EvidenceSubmitted"
	EventEvidenceValidated = "EvidenceValidated"
	EventEvidenceDeclined  = "EvidenceDeclined"
	EventBountyClaimed     = "BountyClaimed"
)

type CampaignCreated struct {
	CampaignId uint32
	Owner      common.Address
	Name       string
	BountyPool *big.Int
	ExpiryDate *big.Int
	Raw        types.Log
}

func (e *CampaignCreated) EventName() string  { return EventCampaignCreated }
func (e *CampaignCreated) EvidenceID() uint32 { return 0 }
func (e *CampaignCreated) Log() types.Log     { return e.Raw }

type EvidenceSubmitted struct {
	EvidenceId uint32
	CampaignId uint32
	Submitter  common.Address
	Timestamp  *big.Int
	Raw        types.Log
}

func (e *EvidenceSubmitted) EventName() string  { return EventEvidenceSubmitted }
func (e *EvidenceSubmitted) EvidenceID() uint32 { return e.EvidenceId }
func (e *EvidenceSubmitted) Log() types.Log     { return e.Raw }

type EvidenceValidated struct {
	EvidenceId uint32
	CampaignId uint32
	Raw        types.Log
}

func (e *EvidenceValidated) EventName() string  { return EventEvidenceValidated }
func (e *EvidenceValidated) EvidenceID() uint32 { return e.EvidenceId }
func (e *EvidenceValidated) Log() types.Log     { return e.Raw }

type EvidenceDeclined struct {
	EvidenceId uint32
	CampaignId uint32
	Reason     string
	Raw        types.Log
}

func (e *EvidenceDeclined) EventName() string  { return EventEvidenceDeclined }
func (e *EvidenceDeclined) EvidenceID() uint32 { return e.EvidenceId }
func (e *EvidenceDeclined) Log() types.Log     { return e.Raw }

type BountyClaimed struct {
	EvidenceId uint32
	Submitter  common.Address
	Amount     *big.Int
	Raw        types.Log
}

func (e *BountyClaimed) EventName() string  { return EventBountyClaimed }
func (e *BountyClaimed) EvidenceID() uint32 { return e.EvidenceId }
func (e *BountyClaimed) Log() types.Log     { return e.Raw }

func newEvent(name string) (Event, error) {
	switch name {
	case EventCampaignCreated:
		return new(CampaignCreated), nil
	case EventEvidenceSubmitted:
		return new(EvidenceSubmitted), nil
	case EventEvidenceValidated:
		return new(EvidenceValidated), nil
	case EventEvidenceDeclined:
		return new(EvidenceDeclined), nil
	case EventBountyClaimed:
		return new(BountyClaimed), nil
	default:
		return nil, fmt.Errorf("unknown event %s", name)
	}
}

func setRaw(ev Event, log types.Log) {
	switch e := ev.(type) {
	case *CampaignCreated:
		e.Raw = log
	case *EvidenceSubmitted:
		e.Raw = log
	case *EvidenceValidated:
		e.Raw = log
	case *EvidenceDeclined:
		e.Raw = log
	case *BountyClaimed:
		e.Raw = log
	}
}
