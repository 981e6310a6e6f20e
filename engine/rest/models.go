package rest

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
)

// ModelError is the body of every error response.
type ModelError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Amounts are wei as decimal strings, with the ether value alongside for display.

type Campaign struct {
	ID               uint32    `json:"id"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	BountyPool       string    `json:"bounty_pool"`
	BountyPoolEther  string    `json:"bounty_pool_ether"`
	ExpiryDate       time.Time `json:"expiry_date"`
	EvidenceCount    uint32    `json:"evidence_count"`
	Active           bool      `json:"active"`
	OwnedByRequester bool      `json:"owned_by_requester"`
}

func (c *Campaign) Build(campaign *bounzy.Campaign, account common.Address) {
	c.ID = campaign.ID
	c.Owner = campaign.Owner.Hex()
	c.Name = campaign.Name
	c.BountyPool = weiString(campaign.BountyPool)
	c.BountyPoolEther = bounzy.FormatEther(campaign.BountyPool)
	c.ExpiryDate = campaign.ExpiryDate.UTC()
	c.EvidenceCount = campaign.EvidenceCount
	c.Active = campaign.Active
	c.OwnedByRequester = campaign.Owner == account
}

type Evidence struct {
	ID                     uint32        `json:"id"`
	CampaignID             uint32        `json:"campaign_id"`
	Submitter              string        `json:"submitter"`
	Status                 bounzy.Status `json:"status"`
	Phase                  string        `json:"phase,omitempty"`
	Timestamp              time.Time     `json:"timestamp"`
	SeverityDecryptable    bool          `json:"severity_decryptable"`
	BountyDecryptable      bool          `json:"bounty_decryptable"`
	DescriptionDecryptable bool          `json:"description_decryptable"`
}

func (e *Evidence) Build(ev *bounzy.Evidence) {
	e.ID = ev.ID
	e.CampaignID = ev.CampaignID
	e.Submitter = ev.Submitter.Hex()
	e.Status = ev.Status
	if phase, err := bounzy.PhaseOf(ev); err == nil {
		e.Phase = phase.String()
	}
	e.Timestamp = ev.Timestamp.UTC()
	e.SeverityDecryptable = ev.SeverityDecryptable
	e.BountyDecryptable = ev.BountyDecryptable
	e.DescriptionDecryptable = ev.DescriptionDecryptable
}

// View is the evidence item as seen by the account of this client.
type View struct {
	Evidence     Evidence                  `json:"evidence"`
	Phase        bounzy.Phase              `json:"phase"`
	Actions      []bounzy.Action           `json:"actions"`
	InFlight     string                    `json:"in_flight,omitempty"`
	Requested    []bounzy.Field            `json:"requested"`
	Previews     map[bounzy.Field]*Preview `json:"previews"`
	LastActivity *Activity                 `json:"last_activity,omitempty"`
	IsOwner      bool                      `json:"is_owner"`
	IsSubmitter  bool                      `json:"is_submitter"`
}

func (v *View) Build(view *lifecycle.View) {
	v.Evidence.Build(&view.Evidence)
	v.Phase = view.Phase
	v.Actions = view.Actions
	if view.InFlight != 0 {
		v.InFlight = view.InFlight.String()
	}
	v.Requested = view.Requested
	if v.Requested == nil {
		v.Requested = []bounzy.Field{}
	}
	v.Previews = make(map[bounzy.Field]*Preview, len(view.Previews))
	for field, preview := range view.Previews {
		var p Preview
		p.Build(preview)
		v.Previews[field] = &p
	}
	if view.LastActivity != nil {
		var a Activity
		a.Build(view.LastActivity)
		v.LastActivity = &a
	}
	v.IsOwner = view.IsOwner
	v.IsSubmitter = view.IsSubmitter
}

type Preview struct {
	EvidenceID uint32        `json:"evidence_id"`
	Field      bounzy.Field  `json:"field"`
	Handle     bounzy.Handle `json:"handle"`
	Value      string        `json:"value"`
	Display    string        `json:"display"`
	Cached     bool          `json:"cached"`
}

func (p *Preview) Build(preview *lifecycle.Preview) {
	p.EvidenceID = preview.EvidenceID
	p.Field = preview.Field
	p.Handle = preview.Handle
	p.Value = weiString(preview.Value)
	p.Display = preview.Display
	p.Cached = preview.Cached
}

type Activity struct {
	ID         string                `json:"id"`
	EvidenceID uint32                `json:"evidence_id,omitempty"`
	CampaignID uint32                `json:"campaign_id,omitempty"`
	Action     string                `json:"action"`
	Account    string                `json:"account"`
	TxHash     string                `json:"tx_hash,omitempty"`
	Status     bounzy.ActivityStatus `json:"status"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (a *Activity) Build(activity *bounzy.Activity) {
	a.ID = activity.ID.String()
	a.EvidenceID = activity.EvidenceID
	a.CampaignID = activity.CampaignID
	a.Action = activity.Action
	a.Account = activity.Account.Hex()
	if activity.TxHash != (common.Hash{}) {
		a.TxHash = activity.TxHash.Hex()
	}
	a.Status = activity.Status
	a.Error = activity.Error
	a.CreatedAt = activity.CreatedAt.UTC()
	a.UpdatedAt = activity.UpdatedAt.UTC()
}

// Receipt is returned by every endpoint that sends a transaction.
type Receipt struct {
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	GasUsed     uint64   `json:"gas_used"`
	Events      []string `json:"events"`
	CampaignID  uint32   `json:"campaign_id,omitempty"`
	EvidenceID  uint32   `json:"evidence_id,omitempty"`
}

func (r *Receipt) Build(receipt *contract.Receipt) {
	r.TxHash = receipt.TxHash.Hex()
	r.BlockNumber = receipt.BlockNumber
	r.GasUsed = receipt.GasUsed
	r.Events = make([]string, 0, len(receipt.Events))
	for _, ev := range receipt.Events {
		r.Events = append(r.Events, ev.EventName())
	}
}

type DeclinedReason struct {
	EvidenceID uint32 `json:"evidence_id"`
	Reason     string `json:"reason"`
}

// PhaseUpdate is pushed to websocket subscribers.
type PhaseUpdate struct {
	EvidenceID uint32    `json:"evidence_id"`
	CampaignID uint32    `json:"campaign_id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Evidence   Evidence  `json:"evidence"`
	ObservedAt time.Time `json:"observed_at"`
}

func (u *PhaseUpdate) Build(change lifecycle.PhaseChange) {
	u.EvidenceID = change.EvidenceID
	u.CampaignID = change.CampaignID
	if change.From != 0 {
		u.From = change.From.String()
	}
	u.To = change.To.String()
	u.Evidence.Build(&change.Evidence)
	u.ObservedAt = change.ObservedAt.UTC()
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
