package lifecycle

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
)

var maxBounty = new(big.Int).SetUint64(math.MaxUint64)

// Validate accepts the evidence with the given bounty in wei. The bounty is
// encrypted and the severity freshly decrypted concurrently; the transaction
// carries exactly the cleartext and proof of that decryption, never a cached
// preview. A failure at any step sends nothing.
func (o *Orchestrator) Validate(ctx context.Context, evidenceID uint32, bounty *big.Int) (*contract.Receipt, error) {
	if bounty == nil || bounty.Sign() < 0 || bounty.Cmp(maxBounty) > 0 {
		return nil, fmt.Errorf("bounty must be between 0 and %s wei: %w", maxBounty, ErrInvalidInput)
	}
	release, err := o.acquire(evidenceID, bounzy.ActionValidate)
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := o.checkAllowed(ctx, evidenceID, bounzy.ActionValidate)
	if err != nil {
		return nil, err
	}
	severityHandle, err := o.handle(ctx, evidenceID, bounzy.FieldSeverity)
	if err != nil {
		return nil, err
	}

	var (
		bountyHandle    bounzy.Handle
		inputProof      []byte
		severity        *Preview
		decryptionProof []byte
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		bountyHandle, inputProof, err = o.encryptor.EncryptBountyAmount(groupCtx, o.Account(), bounty)
		if err != nil {
			return fmt.Errorf("could not encrypt bounty: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		severity, decryptionProof, err = o.decrypt(groupCtx, evidenceID, bounzy.FieldSeverity, severityHandle)
		return err
	})
	if err := group.Wait(); err != nil {
		o.metrics.TransactionFailed(bounzy.ActionValidate.String(), string(Classify(err)))
		return nil, fmt.Errorf("could not prepare validation of evidence %d: %w", evidenceID, err)
	}
	if !severity.Value.IsUint64() || severity.Value.Uint64() > math.MaxUint8 {
		return nil, fmt.Errorf("decrypted severity %s out of range: %w", severity.Value, ErrInvalidInput)
	}
	severityClear := uint8(severity.Value.Uint64())

	return o.transact(evidenceID, ev.CampaignID, bounzy.ActionValidate.String(), func() (*contract.Receipt, error) {
		return o.gateway.ValidateEvidence(ctx, evidenceID, severityClear, bountyHandle, inputProof, decryptionProof)
	})
}

// Decline rejects the evidence. An empty reason is replaced with the default.
func (o *Orchestrator) Decline(ctx context.Context, evidenceID uint32, reason string) (*contract.Receipt, error) {
	if reason == "" {
		reason = bounzy.DefaultDeclineReason
	}
	release, err := o.acquire(evidenceID, bounzy.ActionDecline)
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := o.checkAllowed(ctx, evidenceID, bounzy.ActionDecline)
	if err != nil {
		return nil, err
	}
	receipt, err := o.transact(evidenceID, ev.CampaignID, bounzy.ActionDecline.String(), func() (*contract.Receipt, error) {
		return o.gateway.DeclineEvidence(ctx, evidenceID, reason)
	})
	if err != nil {
		return receipt, err
	}
	o.reasons.Add(evidenceID, reason)
	return receipt, nil
}

// Claim pays out the bounty of a validated evidence item to its submitter,
// using a fresh decryption of the bounty amount.
func (o *Orchestrator) Claim(ctx context.Context, evidenceID uint32) (*contract.Receipt, error) {
	release, err := o.acquire(evidenceID, bounzy.ActionClaim)
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := o.checkAllowed(ctx, evidenceID, bounzy.ActionClaim)
	if err != nil {
		return nil, err
	}
	handle, err := o.handle(ctx, evidenceID, bounzy.FieldBounty)
	if err != nil {
		return nil, err
	}
	amount, proof, err := o.decrypt(ctx, evidenceID, bounzy.FieldBounty, handle)
	if err != nil {
		o.metrics.TransactionFailed(bounzy.ActionClaim.String(), string(Classify(err)))
		return nil, fmt.Errorf("could not prepare claim of evidence %d: %w", evidenceID, err)
	}
	if !amount.Value.IsUint64() {
		return nil, fmt.Errorf("decrypted bounty %s out of range: %w", amount.Value, ErrInvalidInput)
	}
	bountyClear := amount.Value.Uint64()

	return o.transact(evidenceID, ev.CampaignID, bounzy.ActionClaim.String(), func() (*contract.Receipt, error) {
		return o.gateway.ClaimBounty(ctx, evidenceID, bountyClear, proof)
	})
}

// DeclinedReason returns the reason a declined evidence item was declined
// with. The reason cannot change, so it is read once and cached.
func (o *Orchestrator) DeclinedReason(ctx context.Context, evidenceID uint32) (string, error) {
	if reason, ok := o.reasons.Get(evidenceID); ok {
		return reason, nil
	}
	if _, err := o.checkAllowed(ctx, evidenceID, bounzy.ActionFetchDeclinedReason); err != nil {
		return "", err
	}
	reason, err := o.gateway.DeclinedReason(ctx, evidenceID)
	if err != nil {
		return "", fmt.Errorf("could not read declined reason of evidence %d: %w", evidenceID, err)
	}
	o.reasons.Add(evidenceID, reason)
	return reason, nil
}
