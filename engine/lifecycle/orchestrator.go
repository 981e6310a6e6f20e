package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
	"github.com/bounzy/bounzy-go/storage"
)

// Encryptor is the FHE surface the orchestrator uses. *fhe.Adapter implements it.
type Encryptor interface {
	EncryptSeverity(ctx context.Context, user common.Address, severity uint8) (bounzy.Handle, []byte, error)
	EncryptBountyAmount(ctx context.Context, user common.Address, wei *big.Int) (bounzy.Handle, []byte, error)
	EncryptEvidenceInputs(ctx context.Context, user common.Address, hash *uint256.Int, severity uint8, description string) (*fhe.EvidenceInputs, error)
	PublicDecrypt(ctx context.Context, handle bounzy.Handle) (*fhe.Decryption, error)
}

var _ Encryptor = (*fhe.Adapter)(nil)

// Orchestrator sequences the evidence lifecycle flows of one account. It owns
// no authoritative state: every decision is made on a fresh contract read,
// and the only local state is the in-flight guard and caches of values that
// can never change once known.
type Orchestrator struct {
	log       zerolog.Logger
	config    Config
	gateway   contract.Gateway
	encryptor Encryptor
	journal   storage.Activities
	metrics   module.LifecycleMetrics
	now       func() time.Time

	guard    *guard
	previews *lru.Cache[bounzy.Handle, *Preview]
	reasons  *lru.Cache[uint32, string]
	owners   *lru.Cache[uint32, common.Address]
	handles  *lru.Cache[requestKey, bounzy.Handle]
	decrypts singleflight.Group

	mu       sync.Mutex
	observed map[uint32]*bounzy.Evidence
}

func New(
	log zerolog.Logger,
	config Config,
	gateway contract.Gateway,
	encryptor Encryptor,
	journal storage.Activities,
	metrics module.LifecycleMetrics,
) (*Orchestrator, error) {
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", config.PollInterval)
	}
	if config.PreviewTimeout <= 0 {
		return nil, fmt.Errorf("preview timeout must be positive, got %s", config.PreviewTimeout)
	}
	previews, err := lru.New[bounzy.Handle, *Preview](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create preview cache: %w", err)
	}
	reasons, err := lru.New[uint32, string](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create declined reason cache: %w", err)
	}
	owners, err := lru.New[uint32, common.Address](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create campaign owner cache: %w", err)
	}
	handles, err := lru.New[requestKey, bounzy.Handle](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create handle cache: %w", err)
	}

	return &Orchestrator{
		log: log.With().
			Str("component", "lifecycle").
			Str("account", gateway.Account().Hex()).
			Logger(),
		config:    config,
		gateway:   gateway,
		encryptor: encryptor,
		journal:   journal,
		metrics:   metrics,
		now:       time.Now,
		guard:     newGuard(),
		previews:  previews,
		reasons:   reasons,
		owners:    owners,
		handles:   handles,
		observed:  make(map[uint32]*bounzy.Evidence),
	}, nil
}

// Account returns the account the orchestrator acts as.
func (o *Orchestrator) Account() common.Address {
	return o.gateway.Account()
}

// View is the client-side picture of an evidence item.
type View struct {
	Evidence bounzy.Evidence
	Phase    bounzy.Phase
	// Actions lists what this account can do right now. It is empty while a
	// flow for the item is in flight.
	Actions []bounzy.Action
	// InFlight is the action currently running for the item, or zero.
	InFlight bounzy.Action
	// Requested lists fields whose decryption request was confirmed and is
	// waiting for the oracle.
	Requested []bounzy.Field
	// Previews holds the cleartexts already known for this item.
	Previews map[bounzy.Field]*Preview
	// LastActivity is the latest journaled action of this client, if any.
	LastActivity *bounzy.Activity

	IsOwner     bool
	IsSubmitter bool
}

// Refresh reads the evidence item from the contract and derives its view.
func (o *Orchestrator) Refresh(ctx context.Context, evidenceID uint32) (*View, error) {
	ev, err := o.observe(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	owner, err := o.campaignOwner(ctx, ev.CampaignID)
	if err != nil {
		return nil, err
	}
	phase, err := bounzy.PhaseOf(ev)
	if err != nil {
		return nil, err
	}

	account := o.Account()
	view := &View{
		Evidence:    *ev,
		Phase:       phase,
		Previews:    make(map[bounzy.Field]*Preview),
		IsOwner:     owner == account,
		IsSubmitter: ev.SubmittedBy(account),
	}

	if action, ok := o.guard.inFlightAction(evidenceID); ok {
		view.InFlight = action
	}
	for _, field := range bounzy.Fields {
		if o.guard.isRequested(evidenceID, field) {
			view.Requested = append(view.Requested, field)
		}
	}
	view.Actions = o.available(ev, view)

	for _, field := range bounzy.Fields {
		if preview, ok := o.cachedPreview(ev, field); ok {
			view.Previews[field] = preview
		}
	}

	latest, err := o.journal.LatestByEvidence(evidenceID)
	switch {
	case err == nil:
		view.LastActivity = latest
	case errors.Is(err, storage.ErrNotFound):
	default:
		o.log.Warn().Err(err).Uint32("evidence_id", evidenceID).Msg("could not read journal")
	}
	return view, nil
}

// available filters the actions of the phase down to what this account may do.
func (o *Orchestrator) available(ev *bounzy.Evidence, view *View) []bounzy.Action {
	actions := []bounzy.Action{}
	for _, action := range bounzy.Actions(ev) {
		if action.Transacts() && view.InFlight != 0 {
			continue
		}
		switch action {
		case bounzy.ActionRequestSeverityDecryption, bounzy.ActionRequestDescriptionDecryption,
			bounzy.ActionValidate, bounzy.ActionDecline:
			if !view.IsOwner {
				continue
			}
		case bounzy.ActionRequestBountyDecryption, bounzy.ActionClaim:
			if !view.IsSubmitter {
				continue
			}
		}
		if field, ok := requestedField(action); ok && o.guard.isRequested(ev.ID, field) {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

func requestedField(action bounzy.Action) (bounzy.Field, bool) {
	for _, field := range bounzy.Fields {
		if field.RequestAction() == action {
			return field, true
		}
	}
	return 0, false
}

// observe reads an evidence item and merges it into the last observation, so
// a lagging node never makes status or flags regress.
func (o *Orchestrator) observe(ctx context.Context, evidenceID uint32) (*bounzy.Evidence, error) {
	if evidenceID == 0 {
		return nil, fmt.Errorf("evidence ids start at 1: %w", ErrInvalidInput)
	}
	fresh, err := o.gateway.Evidence(ctx, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("could not read evidence %d: %w", evidenceID, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	merged, err := bounzy.Observe(o.observed[evidenceID], *fresh)
	if err != nil {
		return nil, err
	}
	o.observed[evidenceID] = &merged
	o.guard.observe(&merged)

	result := merged
	return &result, nil
}

// Observed returns the last observation of an evidence item without reading
// the contract.
func (o *Orchestrator) Observed(evidenceID uint32) (bounzy.Evidence, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ev, ok := o.observed[evidenceID]
	if !ok {
		return bounzy.Evidence{}, false
	}
	return *ev, true
}

func (o *Orchestrator) campaignOwner(ctx context.Context, campaignID uint32) (common.Address, error) {
	if owner, ok := o.owners.Get(campaignID); ok {
		return owner, nil
	}
	campaign, err := o.gateway.Campaign(ctx, campaignID)
	if err != nil {
		return common.Address{}, fmt.Errorf("could not read campaign %d: %w", campaignID, err)
	}
	o.owners.Add(campaignID, campaign.Owner)
	return campaign.Owner, nil
}

// checkAllowed refreshes the evidence item and checks that the phase allows
// the action.
func (o *Orchestrator) checkAllowed(ctx context.Context, evidenceID uint32, action bounzy.Action) (*bounzy.Evidence, error) {
	ev, err := o.observe(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if !bounzy.Allows(ev, action) {
		phase, _ := bounzy.PhaseOf(ev)
		o.metrics.ActionRejected(action.String(), "phase")
		return nil, fmt.Errorf("cannot %s evidence %d in phase %s: %w", action, evidenceID, phase, ErrActionNotAllowed)
	}
	return ev, nil
}

// acquire reserves the evidence item for a state changing flow.
func (o *Orchestrator) acquire(evidenceID uint32, action bounzy.Action) (func(), error) {
	release, err := o.guard.acquire(evidenceID, action)
	if err != nil {
		o.metrics.ActionRejected(action.String(), "in_flight")
		return nil, fmt.Errorf("cannot %s evidence %d: %w", action, evidenceID, err)
	}
	return release, nil
}

// transact journals and runs a state changing call.
func (o *Orchestrator) transact(evidenceID, campaignID uint32, action string, send func() (*contract.Receipt, error)) (*contract.Receipt, error) {
	log := o.log.With().
		Uint32("evidence_id", evidenceID).
		Uint32("campaign_id", campaignID).
		Str("action", action).
		Logger()

	activity := bounzy.NewActivity(evidenceID, campaignID, action, o.Account(), o.now())
	journaled := true
	if err := o.journal.Store(activity); err != nil {
		journaled = false
		log.Warn().Err(err).Msg("could not journal activity")
	}

	start := time.Now()
	receipt, err := send()
	if receipt != nil {
		o.metrics.TransactionSubmitted(action)
	}

	if err != nil {
		var txHash common.Hash
		if receipt != nil {
			txHash = receipt.TxHash
		}
		activity.Fail(txHash, err, o.now())
		kind := Classify(err)
		o.metrics.TransactionFailed(action, string(kind))
		log.Warn().Err(err).Str("kind", string(kind)).Str("tx_hash", txHash.Hex()).Msg("action failed")
	} else {
		activity.Confirm(receipt.TxHash, o.now())
		o.metrics.TransactionConfirmed(action, time.Since(start))
		log.Info().Str("tx_hash", receipt.TxHash.Hex()).Msg("action confirmed")
	}

	if journaled {
		if jerr := o.journal.Update(activity); jerr != nil {
			log.Warn().Err(jerr).Msg("could not update journaled activity")
		}
	}
	return receipt, err
}

// Activities returns the journaled actions for an evidence item, oldest first.
func (o *Orchestrator) Activities(evidenceID uint32) ([]*bounzy.Activity, error) {
	return o.journal.ByEvidence(evidenceID)
}
