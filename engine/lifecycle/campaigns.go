package lifecycle

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
)

// journal action names of campaign level flows
const (
	actionCreateCampaign     = "create_campaign"
	actionFundCampaign       = "fund_campaign"
	actionDeactivateCampaign = "deactivate_campaign"
	actionWithdrawCampaign   = "withdraw_campaign_funds"
	actionSubmitEvidence     = "submit_evidence"
)

// NewCampaign describes a campaign to create.
type NewCampaign struct {
	Name string
	// MinSeverity is encrypted; submissions below it cannot be validated.
	MinSeverity uint8
	Duration    time.Duration
	// BountyPool is sent along in wei.
	BountyPool *big.Int
}

func (c NewCampaign) validate() error {
	if c.Name == "" {
		return fmt.Errorf("campaign name must not be empty: %w", ErrInvalidInput)
	}
	if err := checkSeverity(c.MinSeverity); err != nil {
		return err
	}
	if bounzy.DurationDays(c.Duration) == 0 {
		return fmt.Errorf("campaign duration must be positive: %w", ErrInvalidInput)
	}
	if c.BountyPool != nil && c.BountyPool.Sign() < 0 {
		return fmt.Errorf("bounty pool must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

func checkSeverity(severity uint8) error {
	if severity < bounzy.MinSeverity || severity > bounzy.MaxSeverity {
		return fmt.Errorf("severity %d outside [%d, %d]: %w", severity, bounzy.MinSeverity, bounzy.MaxSeverity, ErrInvalidInput)
	}
	return nil
}

// CreateCampaign encrypts the minimum severity and creates the campaign. It
// returns the id assigned by the contract.
func (o *Orchestrator) CreateCampaign(ctx context.Context, campaign NewCampaign) (uint32, *contract.Receipt, error) {
	if err := campaign.validate(); err != nil {
		return 0, nil, err
	}
	pool := campaign.BountyPool
	if pool == nil {
		pool = new(big.Int)
	}

	handle, proof, err := o.encryptor.EncryptSeverity(ctx, o.Account(), campaign.MinSeverity)
	if err != nil {
		o.metrics.TransactionFailed(actionCreateCampaign, string(Classify(err)))
		return 0, nil, fmt.Errorf("could not encrypt minimum severity: %w", err)
	}

	receipt, err := o.transact(0, 0, actionCreateCampaign, func() (*contract.Receipt, error) {
		return o.gateway.CreateCampaign(ctx, handle, proof, campaign.Name, bounzy.DurationDays(campaign.Duration), pool)
	})
	if err != nil {
		return 0, receipt, err
	}
	created, ok := receipt.CampaignCreated()
	if !ok {
		return 0, receipt, fmt.Errorf("transaction %s emitted no CampaignCreated event", receipt.TxHash.Hex())
	}
	o.owners.Add(created.CampaignId, o.Account())
	return created.CampaignId, receipt, nil
}

func (o *Orchestrator) FundCampaign(ctx context.Context, campaignID uint32, amount *big.Int) (*contract.Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("funding amount must be positive: %w", ErrInvalidInput)
	}
	return o.transact(0, campaignID, actionFundCampaign, func() (*contract.Receipt, error) {
		return o.gateway.FundCampaign(ctx, campaignID, amount)
	})
}

func (o *Orchestrator) DeactivateCampaign(ctx context.Context, campaignID uint32) (*contract.Receipt, error) {
	return o.transact(0, campaignID, actionDeactivateCampaign, func() (*contract.Receipt, error) {
		return o.gateway.DeactivateCampaign(ctx, campaignID)
	})
}

func (o *Orchestrator) WithdrawCampaignFunds(ctx context.Context, campaignID uint32) (*contract.Receipt, error) {
	return o.transact(0, campaignID, actionWithdrawCampaign, func() (*contract.Receipt, error) {
		return o.gateway.WithdrawCampaignFunds(ctx, campaignID)
	})
}

// NewEvidence describes a submission.
type NewEvidence struct {
	CampaignID uint32
	// Hash is the digest of the evidence file, see fhe.HashEvidence.
	Hash     *uint256.Int
	Severity uint8
	// Description is limited to bounzy.DescriptionLength bytes.
	Description string
}

func (e NewEvidence) validate() error {
	if e.CampaignID == 0 {
		return fmt.Errorf("campaign ids start at 1: %w", ErrInvalidInput)
	}
	if e.Hash == nil {
		return fmt.Errorf("evidence hash is required: %w", ErrInvalidInput)
	}
	if err := checkSeverity(e.Severity); err != nil {
		return err
	}
	if len(e.Description) > bounzy.DescriptionLength {
		return fmt.Errorf("description is %d bytes, at most %d fit: %w", len(e.Description), bounzy.DescriptionLength, ErrInvalidInput)
	}
	if strings.IndexByte(e.Description, 0) >= 0 {
		return fmt.Errorf("description must not contain zero bytes: %w", ErrInvalidInput)
	}
	return nil
}

// SubmitEvidence encrypts hash, severity and description in one batch and
// submits them. It returns the evidence id assigned by the contract.
func (o *Orchestrator) SubmitEvidence(ctx context.Context, evidence NewEvidence) (uint32, *contract.Receipt, error) {
	if err := evidence.validate(); err != nil {
		return 0, nil, err
	}

	inputs, err := o.encryptor.EncryptEvidenceInputs(ctx, o.Account(), evidence.Hash, evidence.Severity, evidence.Description)
	if err != nil {
		o.metrics.TransactionFailed(actionSubmitEvidence, string(Classify(err)))
		return 0, nil, fmt.Errorf("could not encrypt evidence: %w", err)
	}

	receipt, err := o.transact(0, evidence.CampaignID, actionSubmitEvidence, func() (*contract.Receipt, error) {
		return o.gateway.SubmitEvidence(ctx, evidence.CampaignID, inputs.Hash, inputs.Severity, inputs.Description, inputs.InputProof)
	})
	if err != nil {
		return 0, receipt, err
	}
	submitted, ok := receipt.EvidenceSubmitted()
	if !ok {
		return 0, receipt, fmt.Errorf("transaction %s emitted no EvidenceSubmitted event", receipt.TxHash.Hex())
	}
	return submitted.EvidenceId, receipt, nil
}

// SubmitEvidenceFile hashes the evidence file and submits it.
func (o *Orchestrator) SubmitEvidenceFile(ctx context.Context, campaignID uint32, file io.Reader, severity uint8, description string) (uint32, *contract.Receipt, error) {
	hash, err := fhe.HashEvidence(file)
	if err != nil {
		return 0, nil, err
	}
	return o.SubmitEvidence(ctx, NewEvidence{
		CampaignID:  campaignID,
		Hash:        hash,
		Severity:    severity,
		Description: description,
	})
}

// Campaign reads a single campaign.
func (o *Orchestrator) Campaign(ctx context.Context, campaignID uint32) (*bounzy.Campaign, error) {
	if campaignID == 0 {
		return nil, fmt.Errorf("campaign ids start at 1: %w", ErrInvalidInput)
	}
	campaign, err := o.gateway.Campaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("could not read campaign %d: %w", campaignID, err)
	}
	o.owners.Add(campaignID, campaign.Owner)
	return campaign, nil
}

// The listings below read every item separately. Items that fail to load are
// left out and their errors collected; the returned error is then a
// *multierror.Error next to the items that did load. Only a failure to read
// the id list itself returns no items.

// ActiveCampaigns lists the campaigns that accept submissions.
func (o *Orchestrator) ActiveCampaigns(ctx context.Context) ([]*bounzy.Campaign, error) {
	ids, err := o.gateway.ActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list active campaigns: %w", err)
	}
	return o.campaigns(ctx, ids)
}

// AllCampaigns lists every campaign ever created.
func (o *Orchestrator) AllCampaigns(ctx context.Context) ([]*bounzy.Campaign, error) {
	counter, err := o.gateway.CampaignCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read campaign counter: %w", err)
	}
	ids := make([]uint32, 0, counter)
	for id := uint32(1); id <= counter; id++ {
		ids = append(ids, id)
	}
	return o.campaigns(ctx, ids)
}

func (o *Orchestrator) campaigns(ctx context.Context, ids []uint32) ([]*bounzy.Campaign, error) {
	var errs *multierror.Error
	campaigns := make([]*bounzy.Campaign, 0, len(ids))
	for _, id := range ids {
		campaign, err := o.Campaign(ctx, id)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, errs.ErrorOrNil()
}

// CampaignEvidence lists the evidence submitted to a campaign.
func (o *Orchestrator) CampaignEvidence(ctx context.Context, campaignID uint32) ([]bounzy.Evidence, error) {
	ids, err := o.gateway.CampaignEvidenceIDs(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("could not list evidence of campaign %d: %w", campaignID, err)
	}
	return o.evidence(ctx, ids)
}

// SubmitterEvidence lists the evidence submitted by an account.
func (o *Orchestrator) SubmitterEvidence(ctx context.Context, submitter common.Address) ([]bounzy.Evidence, error) {
	ids, err := o.gateway.SubmitterEvidenceIDs(ctx, submitter)
	if err != nil {
		return nil, fmt.Errorf("could not list evidence of %s: %w", submitter.Hex(), err)
	}
	return o.evidence(ctx, ids)
}

func (o *Orchestrator) evidence(ctx context.Context, ids []uint32) ([]bounzy.Evidence, error) {
	var errs *multierror.Error
	evidence := make([]bounzy.Evidence, 0, len(ids))
	for _, id := range ids {
		ev, err := o.observe(ctx, id)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		evidence = append(evidence, *ev)
	}
	return evidence, errs.ErrorOrNil()
}
