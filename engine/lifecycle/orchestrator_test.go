package lifecycle_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/suite"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

func TestLifecycle(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) TestCreateCampaign() {
	ctx := context.Background()
	start := s.chain.Now()

	id := s.createCampaign()
	s.Equal(uint32(1), id)

	campaign, err := s.submitter.Campaign(ctx, id)
	s.Require().NoError(err)
	s.True(campaign.Active)
	s.Equal(uint32(0), campaign.EvidenceCount)
	s.Equal(0, campaign.BountyPool.Cmp(tenthEther))
	s.WithinDuration(start.Add(30*24*time.Hour), campaign.ExpiryDate, time.Minute)
	s.Equal(s.owner.Account(), campaign.Owner)

	activities, err := s.journal.ByCampaign(0)
	s.Require().NoError(err)
	s.Require().Len(activities, 1)
	s.Equal("create_campaign", activities[0].Action)
	s.Equal(bounzy.ActivityConfirmed, activities[0].Status)
}

func (s *LifecycleSuite) TestCreateCampaign_InvalidInput() {
	ctx := context.Background()
	cases := []lifecycle.NewCampaign{
		{Name: "", MinSeverity: 5, Duration: time.Hour},
		{Name: "x", MinSeverity: 0, Duration: time.Hour},
		{Name: "x", MinSeverity: 11, Duration: time.Hour},
		{Name: "x", MinSeverity: 5, Duration: 0},
		{Name: "x", MinSeverity: 5, Duration: time.Hour, BountyPool: big.NewInt(-1)},
	}
	for _, c := range cases {
		_, _, err := s.owner.CreateCampaign(ctx, c)
		s.ErrorIs(err, lifecycle.ErrInvalidInput)
		s.Equal(lifecycle.KindInput, lifecycle.Classify(err))
	}
	s.Equal(0, s.relayer.EncryptCount())
}

func (s *LifecycleSuite) TestSubmitEvidence() {
	id := s.submitEvidence(s.createCampaign(), 7)
	s.Equal(uint32(1), id)

	view, err := s.submitter.Refresh(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(bounzy.StatusPending, view.Evidence.Status)
	s.False(view.Evidence.SeverityDecryptable)
	s.False(view.Evidence.BountyDecryptable)
	s.False(view.Evidence.DescriptionDecryptable)
	s.Equal(bounzy.PhaseAwaitingSeverityDecryption, view.Phase)
	s.True(view.IsSubmitter)
	s.False(view.IsOwner)
	// only the campaign owner can request the severity
	s.Empty(view.Actions)

	view, err = s.owner.Refresh(context.Background(), id)
	s.Require().NoError(err)
	s.Equal([]bounzy.Action{bounzy.ActionRequestSeverityDecryption}, view.Actions)
}

func (s *LifecycleSuite) TestSubmitEvidence_DescriptionTooLong() {
	_, _, err := s.submitter.SubmitEvidence(context.Background(), lifecycle.NewEvidence{
		CampaignID:  1,
		Hash:        unittest.Uint256Fixture(),
		Severity:    5,
		Description: "this description is longer than thirty-two bytes",
	})
	s.ErrorIs(err, lifecycle.ErrInvalidInput)
}

func (s *LifecycleSuite) TestSubmitEvidence_DescriptionWithZeroByte() {
	campaignID := s.createCampaign()
	encrypts := s.relayer.EncryptCount()
	_, _, err := s.submitter.SubmitEvidence(context.Background(), lifecycle.NewEvidence{
		CampaignID:  campaignID,
		Hash:        unittest.Uint256Fixture(),
		Severity:    5,
		Description: "ledger\x00manipulation",
	})
	s.ErrorIs(err, lifecycle.ErrInvalidInput)
	s.Equal(encrypts, s.relayer.EncryptCount(), "rejected input must not be encrypted")
}

func (s *LifecycleSuite) TestSubmitEvidence_CampaignNotActive() {
	ctx := context.Background()
	campaignID := s.createCampaign()
	s.chain.AdvanceTime(31 * 24 * time.Hour)

	_, _, err := s.submitter.SubmitEvidence(ctx, lifecycle.NewEvidence{
		CampaignID: campaignID,
		Hash:       unittest.Uint256Fixture(),
		Severity:   5,
	})
	s.ErrorIs(err, contract.ErrCampaignNotActive)
	s.Equal(lifecycle.KindTransaction, lifecycle.Classify(err))
}

// TestFullLifecycle walks one evidence item from submission to claim.
func (s *LifecycleSuite) TestFullLifecycle() {
	ctx := context.Background()
	s.chain.Oracle().SetManual(true)

	campaignID := s.createCampaign()
	id := s.submitEvidence(campaignID, 7)

	// validator requests the severity
	_, err := s.owner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)

	view, err := s.owner.Refresh(ctx, id)
	s.Require().NoError(err)
	s.Equal(bounzy.PhaseAwaitingSeverityDecryption, view.Phase)
	s.Equal([]bounzy.Field{bounzy.FieldSeverity}, view.Requested)
	s.Empty(view.Actions)

	_, err = s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, lifecycle.ErrNotDecryptable)

	s.Require().NoError(s.chain.Oracle().Reveal(id, bounzy.FieldSeverity))
	ev, err := s.owner.WaitDecryptable(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.True(ev.SeverityDecryptable)

	preview, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.Equal(int64(7), preview.Value.Int64())
	s.Equal("7", preview.Display)

	view, err = s.owner.Refresh(ctx, id)
	s.Require().NoError(err)
	s.Equal(bounzy.PhaseUnderReview, view.Phase)
	s.Empty(view.Requested)
	s.Equal([]bounzy.Action{
		bounzy.ActionPreviewSeverity,
		bounzy.ActionRequestDescriptionDecryption,
		bounzy.ActionValidate,
		bounzy.ActionDecline,
	}, view.Actions)
	s.Contains(view.Previews, bounzy.FieldSeverity)

	_, err = s.owner.Validate(ctx, id, hundredthEther)
	s.Require().NoError(err)
	s.Equal(bounzy.StatusValidated, s.status(id))

	// submitter requests and previews the bounty
	s.chain.Oracle().SetManual(false)
	_, err = s.submitter.RequestDecryption(ctx, id, bounzy.FieldBounty)
	s.Require().NoError(err)

	bounty, err := s.submitter.Preview(ctx, id, bounzy.FieldBounty)
	s.Require().NoError(err)
	s.Equal(0, bounty.Value.Cmp(hundredthEther))
	s.Equal("0.01", bounty.Display)

	_, err = s.submitter.Claim(ctx, id)
	s.Require().NoError(err)
	s.Equal(bounzy.StatusClaimed, s.status(id))
	s.Equal(0, s.chain.Balance(s.submitter.Account()).Cmp(hundredthEther))

	// claimed is terminal
	_, err = s.submitter.Claim(ctx, id)
	s.ErrorIs(err, lifecycle.ErrActionNotAllowed)
	s.Equal(lifecycle.KindConflict, lifecycle.Classify(err))

	activities, err := s.owner.Activities(id)
	s.Require().NoError(err)
	var actions []string
	for _, a := range activities {
		actions = append(actions, a.Action)
		s.Equal(bounzy.ActivityConfirmed, a.Status)
	}
	s.Equal([]string{"request_severity_decryption", "validate", "request_bounty_decryption", "claim"}, actions)
}

func (s *LifecycleSuite) TestDecline() {
	ctx := context.Background()
	id := s.underReview(3)

	_, err := s.owner.Decline(ctx, id, "insufficient proof")
	s.Require().NoError(err)
	s.Equal(bounzy.StatusDeclined, s.status(id))

	reason, err := s.submitter.DeclinedReason(ctx, id)
	s.Require().NoError(err)
	s.Equal("insufficient proof", reason)

	_, err = s.owner.Validate(ctx, id, hundredthEther)
	s.ErrorIs(err, lifecycle.ErrActionNotAllowed)
}

func (s *LifecycleSuite) TestDecline_DefaultReason() {
	ctx := context.Background()
	id := s.underReview(3)

	_, err := s.owner.Decline(ctx, id, "")
	s.Require().NoError(err)

	// a fresh orchestrator has no cached reason and reads it from the contract
	reason, err := s.orchestrator(s.submitterAccount.Signer()).DeclinedReason(ctx, id)
	s.Require().NoError(err)
	s.Equal(bounzy.DefaultDeclineReason, reason)
}

func (s *LifecycleSuite) TestDeclinedReason_NotDeclined() {
	id := s.submitEvidence(s.createCampaign(), 5)
	_, err := s.owner.DeclinedReason(context.Background(), id)
	s.ErrorIs(err, lifecycle.ErrActionNotAllowed)
}

func (s *LifecycleSuite) TestRequestDecryption_Idempotent() {
	ctx := context.Background()
	s.chain.Oracle().SetManual(true)
	id := s.submitEvidence(s.createCampaign(), 6)

	_, err := s.owner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)

	_, err = s.owner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, lifecycle.ErrDecryptionRequested)
	s.Equal(lifecycle.KindConflict, lifecycle.Classify(err))
	s.Equal(1, s.chain.Oracle().Pending())

	activities, err := s.owner.Activities(id)
	s.Require().NoError(err)
	s.Len(activities, 1, "the second request must not send a transaction")

	s.Require().NoError(s.chain.Oracle().Reveal(id, bounzy.FieldSeverity))
	_, err = s.owner.WaitDecryptable(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)

	// once decryptable the request is no longer offered
	_, err = s.owner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, lifecycle.ErrActionNotAllowed)
}

func (s *LifecycleSuite) TestRequestDecryption_InFlight() {
	ctx := context.Background()
	id := s.submitEvidence(s.createCampaign(), 6)

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := contract.NewConfirmingSigner(s.ownerAccount.Signer(), func(context.Context, *types.Transaction) bool {
		close(entered)
		<-release
		return true
	})
	slowOwner := s.orchestrator(blocking)

	done := make(chan error, 1)
	go func() {
		_, err := slowOwner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
		done <- err
	}()
	unittest.RequireCloseBefore(s.T(), entered, time.Second, "signer not reached")

	view, err := slowOwner.Refresh(ctx, id)
	s.Require().NoError(err)
	s.Equal(bounzy.ActionRequestSeverityDecryption, view.InFlight)
	s.Empty(view.Actions)

	_, err = slowOwner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, lifecycle.ErrActionInFlight)
	_, err = slowOwner.Decline(ctx, id, "")
	s.ErrorIs(err, lifecycle.ErrActionInFlight)

	close(release)
	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(time.Second):
		s.FailNow("request did not finish")
	}
}

func (s *LifecycleSuite) TestSignatureRejected() {
	ctx := context.Background()
	id := s.submitEvidence(s.createCampaign(), 6)

	rejecting := s.orchestrator(contract.NewConfirmingSigner(s.ownerAccount.Signer(), func(context.Context, *types.Transaction) bool {
		return false
	}))
	_, err := rejecting.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, contract.ErrSignatureRejected)
	s.Equal(lifecycle.KindTransaction, lifecycle.Classify(err))

	// the action is offered again
	view, err := rejecting.Refresh(ctx, id)
	s.Require().NoError(err)
	s.Equal([]bounzy.Action{bounzy.ActionRequestSeverityDecryption}, view.Actions)
	s.Require().NotNil(view.LastActivity)
	s.Equal(bounzy.ActivityFailed, view.LastActivity.Status)
}

func (s *LifecycleSuite) TestPreview_CachedAfterFirstSuccess() {
	ctx := context.Background()
	id := s.underReview(8)

	first, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.False(first.Cached)
	decrypts := s.relayer.DecryptCount()

	second, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.True(second.Cached)
	s.Equal(0, first.Value.Cmp(second.Value))
	s.Equal(decrypts, s.relayer.DecryptCount())
}

func (s *LifecycleSuite) TestPreview_RelayerFailureIsNotCached() {
	ctx := context.Background()
	id := s.underReview(8)

	s.relayer.FailDecrypt(errors.New("gateway timeout"))
	_, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().Error(err)
	s.Equal(lifecycle.KindRead, lifecycle.Classify(err))

	s.relayer.FailDecrypt(nil)
	preview, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.False(preview.Cached)
	s.Equal(int64(8), preview.Value.Int64())
}

func (s *LifecycleSuite) TestPreview_Description() {
	ctx := context.Background()
	id := s.underReview(8)

	_, err := s.owner.RequestDecryption(ctx, id, bounzy.FieldDescription)
	s.Require().NoError(err)
	preview, err := s.owner.Preview(ctx, id, bounzy.FieldDescription)
	s.Require().NoError(err)
	s.Equal("ledger manipulation", preview.Display)

	view, err := s.owner.Refresh(ctx, id)
	s.Require().NoError(err)
	s.Contains(view.Actions, bounzy.ActionPreviewDescription)
	s.NotContains(view.Actions, bounzy.ActionRequestDescriptionDecryption)
}

func (s *LifecycleSuite) TestValidate_UsesFreshDecryption() {
	ctx := context.Background()
	id := s.underReview(7)

	_, err := s.owner.Preview(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	decrypts := s.relayer.DecryptCount()

	_, err = s.owner.Validate(ctx, id, hundredthEther)
	s.Require().NoError(err)
	s.Equal(decrypts+1, s.relayer.DecryptCount(), "validation must decrypt again")
}

func (s *LifecycleSuite) TestValidate_EncryptionFailureSendsNothing() {
	ctx := context.Background()
	id := s.underReview(7)

	s.relayer.FailEncrypt(errors.New("sdk crashed"))
	_, err := s.owner.Validate(ctx, id, hundredthEther)
	s.Require().Error(err)
	s.Equal(lifecycle.KindEncryption, lifecycle.Classify(err))
	s.Equal(bounzy.StatusPending, s.status(id))

	s.relayer.FailEncrypt(nil)
	_, err = s.owner.Validate(ctx, id, hundredthEther)
	s.Require().NoError(err)
}

func (s *LifecycleSuite) TestValidate_BelowMinimumSeverity() {
	ctx := context.Background()
	id := s.underReview(2)

	_, err := s.owner.Validate(ctx, id, hundredthEther)
	s.ErrorIs(err, contract.ErrReverted)
	s.Equal(lifecycle.KindTransaction, lifecycle.Classify(err))
	s.Equal(bounzy.StatusPending, s.status(id))
}

func (s *LifecycleSuite) TestValidate_InvalidBounty() {
	ctx := context.Background()
	id := s.underReview(7)

	_, err := s.owner.Validate(ctx, id, big.NewInt(-1))
	s.ErrorIs(err, lifecycle.ErrInvalidInput)
	_, err = s.owner.Validate(ctx, id, new(big.Int).Lsh(big.NewInt(1), 64))
	s.ErrorIs(err, lifecycle.ErrInvalidInput)
}

func (s *LifecycleSuite) TestValidate_NotOwner() {
	ctx := context.Background()
	id := s.underReview(7)

	_, err := s.submitter.Validate(ctx, id, hundredthEther)
	s.ErrorIs(err, contract.ErrNotCampaignOwner)
}

func (s *LifecycleSuite) TestClaim_InsufficientPool() {
	ctx := context.Background()
	id := s.underReview(9)

	_, err := s.owner.Validate(ctx, id, new(big.Int).Mul(tenthEther, big.NewInt(2)))
	s.Require().NoError(err)
	_, err = s.submitter.RequestDecryption(ctx, id, bounzy.FieldBounty)
	s.Require().NoError(err)

	_, err = s.submitter.Claim(ctx, id)
	s.ErrorIs(err, contract.ErrInsufficientBountyPool)

	// funding the campaign makes the claim succeed
	ev, ok := s.owner.Observed(id)
	s.Require().True(ok)
	_, err = s.owner.FundCampaign(ctx, ev.CampaignID, tenthEther)
	s.Require().NoError(err)
	_, err = s.submitter.Claim(ctx, id)
	s.Require().NoError(err)
}

func (s *LifecycleSuite) TestWaitDecryptable_Exhausted() {
	s.config.MaxPollAttempts = 3
	owner := s.orchestrator(s.ownerAccount.Signer())
	id := s.submitEvidence(s.createCampaign(), 5)

	_, err := owner.WaitDecryptable(context.Background(), id, bounzy.FieldSeverity)
	s.ErrorIs(err, lifecycle.ErrPollExhausted)
	s.Equal(lifecycle.KindNotReady, lifecycle.Classify(err))
}

func (s *LifecycleSuite) TestWaitDecryptable_Canceled() {
	ctx, cancel := context.WithCancel(context.Background())
	id := s.submitEvidence(s.createCampaign(), 5)
	cancel()

	_, err := s.owner.WaitDecryptable(ctx, id, bounzy.FieldSeverity)
	s.ErrorIs(err, context.Canceled)
}

func (s *LifecycleSuite) TestListings() {
	ctx := context.Background()
	first := s.createCampaign()
	second := s.createCampaign()
	s.submitEvidence(first, 5)
	s.submitEvidence(second, 6)
	s.submitEvidence(second, 7)

	_, err := s.owner.DeactivateCampaign(ctx, first)
	s.Require().NoError(err)

	active, err := s.submitter.ActiveCampaigns(ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(second, active[0].ID)

	all, err := s.submitter.AllCampaigns(ctx)
	s.Require().NoError(err)
	s.Len(all, 2)

	evidence, err := s.owner.CampaignEvidence(ctx, second)
	s.Require().NoError(err)
	s.Len(evidence, 2)

	mine, err := s.submitter.SubmitterEvidence(ctx, s.submitter.Account())
	s.Require().NoError(err)
	s.Len(mine, 3)

	none, err := s.submitter.SubmitterEvidence(ctx, unittest.AddressFixture())
	s.Require().NoError(err)
	s.Empty(none)
}

// flakyGateway fails reads of one campaign.
type flakyGateway struct {
	contract.Gateway
	failing uint32
}

func (g *flakyGateway) Campaign(ctx context.Context, id uint32) (*bounzy.Campaign, error) {
	if id == g.failing {
		return nil, errors.Join(contract.ErrRead, errors.New("connection reset"))
	}
	return g.Gateway.Campaign(ctx, id)
}

func (s *LifecycleSuite) TestListings_PartialFailure() {
	s.createCampaign()
	failing := s.createCampaign()
	s.createCampaign()

	flaky := &flakyGateway{Gateway: s.gateway(s.submitterAccount.Signer()), failing: failing}
	o := s.orchestratorWith(flaky, s.adapter())

	campaigns, err := o.AllCampaigns(context.Background())
	s.Require().Error(err)
	s.Equal(lifecycle.KindRead, lifecycle.Classify(err))
	s.Len(campaigns, 2)
}

func (s *LifecycleSuite) TestRelayerInitializationFailure() {
	s.relayer.FailInit(errors.New("no network"))
	o := s.orchestrator(s.ownerAccount.Signer())

	_, _, err := o.CreateCampaign(context.Background(), lifecycle.NewCampaign{
		Name:        "x",
		MinSeverity: 5,
		Duration:    time.Hour,
	})
	s.Require().Error(err)
	s.Equal(lifecycle.KindInitialization, lifecycle.Classify(err))
}

func (s *LifecycleSuite) TestIndependentEvidence() {
	ctx := context.Background()
	campaignID := s.createCampaign()
	first := s.submitEvidence(campaignID, 6)
	second := s.submitEvidence(campaignID, 7)

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := contract.NewConfirmingSigner(s.ownerAccount.Signer(), func(context.Context, *types.Transaction) bool {
		close(entered)
		<-release
		return true
	})
	slowOwner := s.orchestrator(blocking)

	done := make(chan error, 1)
	go func() {
		_, err := slowOwner.RequestDecryption(ctx, first, bounzy.FieldSeverity)
		done <- err
	}()
	unittest.RequireCloseBefore(s.T(), entered, time.Second, "signer not reached")

	// a flow for another evidence item is not blocked by the first one
	_, err := slowOwner.Decline(ctx, second, "")
	s.Require().ErrorIs(err, lifecycle.ErrActionNotAllowed)
	close(release)
	s.Require().NoError(<-done)
}
