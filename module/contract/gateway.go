package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// Reader exposes the view functions of the Bounzy contract.
type Reader interface {
	// Account returns the address the gateway reads and writes as.
	Account() common.Address

	Campaign(ctx context.Context, campaignID uint32) (*bounzy.Campaign, error)
	Evidence(ctx context.Context, evidenceID uint32) (*bounzy.Evidence, error)
	CampaignCounter(ctx context.Context) (uint32, error)
	EvidenceCounter(ctx context.Context) (uint32, error)
	// SubmitterEvidenceIDs returns an empty list for unknown submitters.
	SubmitterEvidenceIDs(ctx context.Context, submitter common.Address) ([]uint32, error)
	// CampaignEvidenceIDs returns an empty list for unknown campaigns.
	CampaignEvidenceIDs(ctx context.Context, campaignID uint32) ([]uint32, error)
	ActiveCampaigns(ctx context.Context) ([]uint32, error)
	EvidenceSeverityHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error)
	EvidenceBountyHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error)
	DescriptionHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error)
	DeclinedReason(ctx context.Context, evidenceID uint32) (string, error)

	// SubscribeEvents delivers decoded contract events to sink until the
	// subscription is closed or fails.
	SubscribeEvents(ctx context.Context, sink chan<- Event) (event.Subscription, error)
}

// Writer submits state changing transactions to the Bounzy contract. Every
// method returns once the transaction was mined.
//
// When a transaction was sent but did not succeed, the returned receipt is
// non-nil and carries the transaction hash alongside the error.
type Writer interface {
	CreateCampaign(ctx context.Context, minSeverity bounzy.Handle, inputProof []byte, name string, durationDays uint64, bountyPool *big.Int) (*Receipt, error)
	FundCampaign(ctx context.Context, campaignID uint32, amount *big.Int) (*Receipt, error)
	DeactivateCampaign(ctx context.Context, campaignID uint32) (*Receipt, error)
	WithdrawCampaignFunds(ctx context.Context, campaignID uint32) (*Receipt, error)
	SubmitEvidence(ctx context.Context, campaignID uint32, hash, severity, description bounzy.Handle, inputProof []byte) (*Receipt, error)

	RequestSeverityDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error)
	RequestDescriptionDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error)
	RequestBountyDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error)

	ValidateEvidence(ctx context.Context, evidenceID uint32, severityClear uint8, bounty bounzy.Handle, inputProof []byte, decryptionProof []byte) (*Receipt, error)
	DeclineEvidence(ctx context.Context, evidenceID uint32, reason string) (*Receipt, error)
	ClaimBounty(ctx context.Context, evidenceID uint32, bountyClear uint64, decryptionProof []byte) (*Receipt, error)
}

// Gateway is the full contract surface.
type Gateway interface {
	Reader
	Writer
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
	Events      []Event
}

// CampaignCreated returns the first CampaignCreated event of the receipt.
func (r *Receipt) CampaignCreated() (*CampaignCreated, bool) {
	for _, ev := range r.Events {
		if created, ok := ev.(*CampaignCreated); ok {
			return created, true
		}
	}
	return nil, false
}

// EvidenceSubmitted returns the first EvidenceSubmitted event of the receipt.
func (r *Receipt) EvidenceSubmitted() (*EvidenceSubmitted, bool) {
	for _, ev := range r.Events {
		if submitted, ok := ev.(*EvidenceSubmitted); ok {
			return submitted, true
		}
	}
	return nil, false
}
