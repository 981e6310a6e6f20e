package bounzy

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ActivityStatus tracks a transaction submitted by this client.
type ActivityStatus string

const (
	ActivitySubmitted ActivityStatus = "submitted"
	ActivityConfirmed ActivityStatus = "confirmed"
	ActivityFailed    ActivityStatus = "failed"
)

// Activity is a journal entry for a state-changing flow started by this client.
// It is informational only; lifecycle state is always read from the contract.
type Activity struct {
	ID         uuid.UUID
	EvidenceID uint32
	CampaignID uint32
	Action     string
	Account    common.Address
	TxHash     common.Hash
	Status     ActivityStatus
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewActivity creates a journal entry for an action that is about to run.
func NewActivity(evidenceID, campaignID uint32, action string, account common.Address, now time.Time) *Activity {
	return &Activity{
		ID:         uuid.New(),
		EvidenceID: evidenceID,
		CampaignID: campaignID,
		Action:     action,
		Account:    account,
		Status:     ActivitySubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Confirm marks the activity as mined successfully.
func (a *Activity) Confirm(tx common.Hash, now time.Time) {
	a.TxHash = tx
	a.Status = ActivityConfirmed
	a.Error = ""
	a.UpdatedAt = now
}

// Fail marks the activity as failed.
func (a *Activity) Fail(tx common.Hash, err error, now time.Time) {
	a.TxHash = tx
	a.Status = ActivityFailed
	if err != nil {
		a.Error = err.Error()
	}
	a.UpdatedAt = now
}
