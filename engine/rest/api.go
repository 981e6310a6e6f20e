package rest

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
)

// API is the lifecycle surface served over HTTP.
type API interface {
	Account() common.Address

	Campaign(ctx context.Context, campaignID uint32) (*bounzy.Campaign, error)
	ActiveCampaigns(ctx context.Context) ([]*bounzy.Campaign, error)
	AllCampaigns(ctx context.Context) ([]*bounzy.Campaign, error)
	CampaignEvidence(ctx context.Context, campaignID uint32) ([]bounzy.Evidence, error)
	SubmitterEvidence(ctx context.Context, submitter common.Address) ([]bounzy.Evidence, error)

	CreateCampaign(ctx context.Context, campaign lifecycle.NewCampaign) (uint32, *contract.Receipt, error)
	FundCampaign(ctx context.Context, campaignID uint32, amount *big.Int) (*contract.Receipt, error)
	DeactivateCampaign(ctx context.Context, campaignID uint32) (*contract.Receipt, error)
	WithdrawCampaignFunds(ctx context.Context, campaignID uint32) (*contract.Receipt, error)

	SubmitEvidence(ctx context.Context, evidence lifecycle.NewEvidence) (uint32, *contract.Receipt, error)
	Refresh(ctx context.Context, evidenceID uint32) (*lifecycle.View, error)
	RequestDecryption(ctx context.Context, evidenceID uint32, field bounzy.Field) (*contract.Receipt, error)
	Preview(ctx context.Context, evidenceID uint32, field bounzy.Field) (*lifecycle.Preview, error)
	Validate(ctx context.Context, evidenceID uint32, bounty *big.Int) (*contract.Receipt, error)
	Decline(ctx context.Context, evidenceID uint32, reason string) (*contract.Receipt, error)
	Claim(ctx context.Context, evidenceID uint32) (*contract.Receipt, error)
	DeclinedReason(ctx context.Context, evidenceID uint32) (string, error)
	Activities(evidenceID uint32) ([]*bounzy.Activity, error)
}

var _ API = (*lifecycle.Orchestrator)(nil)
