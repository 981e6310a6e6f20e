package contracttest

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

type campaignState struct {
	owner       common.Address
	name        string
	pool        *big.Int
	expiry      time.Time
	active      bool
	minSeverity bounzy.Handle
	evidenceIDs []uint32
}

type evidenceState struct {
	campaignID uint32
	submitter  common.Address
	status     bounzy.Status
	timestamp  time.Time

	hash        bounzy.Handle
	severity    bounzy.Handle
	description bounzy.Handle
	bounty      bounzy.Handle

	severityDecryptable    bool
	bountyDecryptable      bool
	descriptionDecryptable bool

	declinedReason string
}

// call is the execution context of one contract call.
type call struct {
	from   common.Address
	value  *big.Int
	now    time.Time
	commit bool
	logs   []*types.Log
}

func (c *call) emit(chain *Chain, name string, args ...interface{}) {
	ev := chain.abi.Events[name]

	topics := []common.Hash{ev.ID}
	var data []interface{}
	var indexed [][]interface{}
	for i, input := range ev.Inputs {
		if input.Indexed {
			indexed = append(indexed, []interface{}{args[i]})
		} else {
			data = append(data, args[i])
		}
	}
	if len(indexed) > 0 {
		rules, err := abi.MakeTopics(indexed...)
		if err != nil {
			panic(fmt.Sprintf("could not make topics for %s: %v", name, err))
		}
		for _, rule := range rules {
			topics = append(topics, rule[0])
		}
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("could not pack %s: %v", name, err))
	}

	c.logs = append(c.logs, &types.Log{
		Address: chain.address,
		Topics:  topics,
		Data:    packed,
	})
}

// state holds the Bounzy contract state. Handlers check every precondition before
// mutating anything, so a revert leaves the state untouched.
type state struct {
	chain     *Chain
	campaigns map[uint32]*campaignState
	evidence  map[uint32]*evidenceState
	// zero means none yet; ids start at 1
	campaignCounter uint32
	evidenceCounter uint32
	submitted       map[common.Address][]uint32
	balance         *big.Int
}

func newState(chain *Chain) *state {
	return &state{
		chain:     chain,
		campaigns: make(map[uint32]*campaignState),
		evidence:  make(map[uint32]*evidenceState),
		submitted: make(map[common.Address][]uint32),
		balance:   new(big.Int),
	}
}

func (b *state) execute(c *call, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "createCampaign":
		return b.createCampaign(c, args[0].([32]byte), args[1].([]byte), args[2].(string), args[3].(*big.Int))
	case "fundCampaign":
		return nil, b.fundCampaign(c, args[0].(uint32))
	case "deactivateCampaign":
		return nil, b.deactivateCampaign(c, args[0].(uint32))
	case "withdrawCampaignFunds":
		return nil, b.withdrawCampaignFunds(c, args[0].(uint32))
	case "submitEvidence":
		return b.submitEvidence(c, args[0].(uint32), args[1].([32]byte), args[2].([32]byte), args[3].([32]byte), args[4].([]byte))
	case "requestSeverityDecryption":
		return nil, b.requestDecryption(c, args[0].(uint32), bounzy.FieldSeverity)
	case "requestDescriptionDecryption":
		return nil, b.requestDecryption(c, args[0].(uint32), bounzy.FieldDescription)
	case "requestBountyDecryption":
		return nil, b.requestDecryption(c, args[0].(uint32), bounzy.FieldBounty)
	case "validateEvidence":
		return nil, b.validateEvidence(c, args[0].(uint32), args[1].(uint8), args[2].([32]byte), args[3].([]byte), args[4].([]byte))
	case "declineEvidence":
		return nil, b.declineEvidence(c, args[0].(uint32), args[1].(string))
	case "claimBounty":
		return nil, b.claimBounty(c, args[0].(uint32), args[1].(uint64), args[2].([]byte))

	case "getCampaign":
		return b.getCampaign(c, args[0].(uint32))
	case "getEvidence":
		return b.getEvidence(args[0].(uint32))
	case "campaignCounter":
		return []interface{}{b.campaignCounter}, nil
	case "evidenceCounter":
		return []interface{}{b.evidenceCounter}, nil
	case "getSubmitterEvidenceIds":
		return []interface{}{append([]uint32{}, b.submitted[args[0].(common.Address)]...)}, nil
	case "getCampaignEvidenceIds":
		ids := []uint32{}
		if campaign, ok := b.campaigns[args[0].(uint32)]; ok {
			ids = append(ids, campaign.evidenceIDs...)
		}
		return []interface{}{ids}, nil
	case "getActiveCampaigns":
		ids := []uint32{}
		for id := uint32(1); id <= b.campaignCounter; id++ {
			if b.campaigns[id].isActive(c.now) {
				ids = append(ids, id)
			}
		}
		return []interface{}{ids}, nil
	case "getEvidenceSeverityHandle":
		return b.handle(args[0].(uint32), func(e *evidenceState) bounzy.Handle { return e.severity })
	case "getEvidenceBountyHandle":
		return b.handle(args[0].(uint32), func(e *evidenceState) bounzy.Handle { return e.bounty })
	case "getDescriptionHandle":
		return b.handle(args[0].(uint32), func(e *evidenceState) bounzy.Handle { return e.description })
	case "getDeclinedReason":
		e, err := b.lookupEvidence(args[0].(uint32))
		if err != nil {
			return nil, err
		}
		return []interface{}{e.declinedReason}, nil
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
}

func (s *campaignState) isActive(now time.Time) bool {
	return s.active && now.Before(s.expiry)
}

func (b *state) lookupCampaign(id uint32) (*campaignState, error) {
	campaign, ok := b.campaigns[id]
	if !ok {
		return nil, b.chain.customError("InvalidCampaignId")
	}
	return campaign, nil
}

func (b *state) lookupEvidence(id uint32) (*evidenceState, error) {
	e, ok := b.evidence[id]
	if !ok {
		return nil, b.chain.reasonError("Invalid evidence ID")
	}
	return e, nil
}

func (b *state) ownerOf(c *call, e *evidenceState) error {
	if b.campaigns[e.campaignID].owner != c.from {
		return b.chain.customError("NotCampaignOwner")
	}
	return nil
}

func (b *state) createCampaign(c *call, minSeverity [32]byte, proof []byte, name string, durationDays *big.Int) ([]interface{}, error) {
	if durationDays.Sign() <= 0 {
		return nil, b.chain.reasonError("Duration must be positive")
	}
	if !b.chain.relayer.VerifyInputProof(b.chain.address, c.from, []bounzy.Handle{minSeverity}, proof) {
		return nil, b.chain.reasonError("Invalid input proof")
	}
	id := b.campaignCounter + 1
	if !c.commit {
		return []interface{}{id}, nil
	}

	b.campaignCounter = id
	expiry := c.now.Add(time.Duration(durationDays.Int64()) * 24 * time.Hour)
	b.campaigns[id] = &campaignState{
		owner:       c.from,
		name:        name,
		pool:        new(big.Int).Set(c.value),
		expiry:      expiry,
		active:      true,
		minSeverity: minSeverity,
	}
	b.balance.Add(b.balance, c.value)
	c.emit(b.chain, "CampaignCreated", id, c.from, name, new(big.Int).Set(c.value), big.NewInt(expiry.Unix()))
	return []interface{}{id}, nil
}

func (b *state) fundCampaign(c *call, id uint32) error {
	campaign, err := b.lookupCampaign(id)
	if err != nil {
		return err
	}
	if !campaign.isActive(c.now) {
		return b.chain.customError("CampaignNotActive")
	}
	if c.value.Sign() <= 0 {
		return b.chain.reasonError("Must send ETH")
	}
	if !c.commit {
		return nil
	}
	campaign.pool.Add(campaign.pool, c.value)
	b.balance.Add(b.balance, c.value)
	return nil
}

func (b *state) deactivateCampaign(c *call, id uint32) error {
	campaign, err := b.lookupCampaign(id)
	if err != nil {
		return err
	}
	if campaign.owner != c.from {
		return b.chain.customError("NotCampaignOwner")
	}
	if c.commit {
		campaign.active = false
	}
	return nil
}

func (b *state) withdrawCampaignFunds(c *call, id uint32) error {
	campaign, err := b.lookupCampaign(id)
	if err != nil {
		return err
	}
	if campaign.owner != c.from {
		return b.chain.customError("NotCampaignOwner")
	}
	if campaign.isActive(c.now) {
		return b.chain.reasonError("Campaign still active")
	}
	if campaign.pool.Sign() == 0 {
		return b.chain.reasonError("No funds to withdraw")
	}
	if !c.commit {
		return nil
	}
	b.chain.credit(c.from, campaign.pool)
	b.balance.Sub(b.balance, campaign.pool)
	campaign.pool = new(big.Int)
	return nil
}

func (b *state) submitEvidence(c *call, campaignID uint32, hash, severity, description [32]byte, proof []byte) ([]interface{}, error) {
	campaign, err := b.lookupCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.isActive(c.now) {
		return nil, b.chain.customError("CampaignNotActive")
	}
	handles := []bounzy.Handle{hash, severity, description}
	if !b.chain.relayer.VerifyInputProof(b.chain.address, c.from, handles, proof) {
		return nil, b.chain.reasonError("Invalid input proof")
	}
	id := b.evidenceCounter + 1
	if !c.commit {
		return []interface{}{id}, nil
	}

	b.evidenceCounter = id
	b.evidence[id] = &evidenceState{
		campaignID:  campaignID,
		submitter:   c.from,
		status:      bounzy.StatusPending,
		timestamp:   c.now,
		hash:        hash,
		severity:    severity,
		description: description,
	}
	campaign.evidenceIDs = append(campaign.evidenceIDs, id)
	b.submitted[c.from] = append(b.submitted[c.from], id)
	c.emit(b.chain, "EvidenceSubmitted", id, campaignID, c.from, big.NewInt(c.now.Unix()))
	return []interface{}{id}, nil
}

// requestDecryption accepts repeated requests for a field without effect.
func (b *state) requestDecryption(c *call, id uint32, field bounzy.Field) error {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return err
	}
	switch field {
	case bounzy.FieldSeverity:
		if err := b.ownerOf(c, e); err != nil {
			return err
		}
		if e.status != bounzy.StatusPending {
			return b.chain.reasonError("Evidence not pending")
		}
	case bounzy.FieldDescription:
		if err := b.ownerOf(c, e); err != nil {
			return err
		}
	case bounzy.FieldBounty:
		if e.submitter != c.from {
			return b.chain.reasonError("Not the submitter")
		}
		if e.status != bounzy.StatusValidated && e.status != bounzy.StatusClaimed {
			return b.chain.reasonError("Evidence not validated")
		}
	}
	if c.commit {
		b.chain.oracle.request(id, field)
	}
	return nil
}

func (b *state) validateEvidence(c *call, id uint32, severityClear uint8, bounty [32]byte, inputProof []byte, decryptionProof []byte) error {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return err
	}
	if err := b.ownerOf(c, e); err != nil {
		return err
	}
	if e.status != bounzy.StatusPending {
		return b.chain.reasonError("Evidence not pending")
	}
	if !e.severityDecryptable {
		return b.chain.reasonError("Severity not decrypted")
	}
	relayer := b.chain.relayer
	if !relayer.VerifyDecryption([]bounzy.Handle{e.severity}, []*big.Int{big.NewInt(int64(severityClear))}, decryptionProof) {
		return b.chain.reasonError("Invalid decryption proof")
	}
	if min, ok := relayer.Value(b.campaigns[e.campaignID].minSeverity); ok && uint64(severityClear) < min.Value.Uint64() {
		return b.chain.reasonError("Severity below campaign minimum")
	}
	if !relayer.VerifyInputProof(b.chain.address, c.from, []bounzy.Handle{bounty}, inputProof) {
		return b.chain.reasonError("Invalid input proof")
	}
	if !c.commit {
		return nil
	}
	e.status = bounzy.StatusValidated
	e.bounty = bounty
	c.emit(b.chain, "EvidenceValidated", id, e.campaignID)
	return nil
}

func (b *state) declineEvidence(c *call, id uint32, reason string) error {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return err
	}
	if err := b.ownerOf(c, e); err != nil {
		return err
	}
	if e.status != bounzy.StatusPending {
		return b.chain.reasonError("Evidence not pending")
	}
	if !c.commit {
		return nil
	}
	e.status = bounzy.StatusDeclined
	e.declinedReason = reason
	c.emit(b.chain, "EvidenceDeclined", id, e.campaignID, reason)
	return nil
}

func (b *state) claimBounty(c *call, id uint32, bountyClear uint64, decryptionProof []byte) error {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return err
	}
	if e.submitter != c.from {
		return b.chain.reasonError("Not the submitter")
	}
	if e.status != bounzy.StatusValidated {
		return b.chain.reasonError("Evidence not validated")
	}
	if !e.bountyDecryptable {
		return b.chain.reasonError("Bounty not decrypted")
	}
	amount := new(big.Int).SetUint64(bountyClear)
	if !b.chain.relayer.VerifyDecryption([]bounzy.Handle{e.bounty}, []*big.Int{amount}, decryptionProof) {
		return b.chain.reasonError("Invalid decryption proof")
	}
	campaign := b.campaigns[e.campaignID]
	if campaign.pool.Cmp(amount) < 0 {
		return b.chain.customError("InsufficientBountyPool")
	}
	if !c.commit {
		return nil
	}
	e.status = bounzy.StatusClaimed
	campaign.pool.Sub(campaign.pool, amount)
	b.balance.Sub(b.balance, amount)
	b.chain.credit(c.from, amount)
	c.emit(b.chain, "BountyClaimed", id, c.from, amount)
	return nil
}

func (b *state) getCampaign(c *call, id uint32) ([]interface{}, error) {
	campaign, err := b.lookupCampaign(id)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		campaign.owner,
		campaign.name,
		new(big.Int).Set(campaign.pool),
		big.NewInt(campaign.expiry.Unix()),
		uint32(len(campaign.evidenceIDs)),
		campaign.isActive(c.now),
	}, nil
}

func (b *state) getEvidence(id uint32) ([]interface{}, error) {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		e.campaignID,
		e.submitter,
		uint8(e.status),
		big.NewInt(e.timestamp.Unix()),
		e.severityDecryptable,
		e.bountyDecryptable,
		e.descriptionDecryptable,
	}, nil
}

func (b *state) handle(id uint32, get func(*evidenceState) bounzy.Handle) ([]interface{}, error) {
	e, err := b.lookupEvidence(id)
	if err != nil {
		return nil, err
	}
	return []interface{}{[32]byte(get(e))}, nil
}
