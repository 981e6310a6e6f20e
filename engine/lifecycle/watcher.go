package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/component"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
)

// PhaseChange is emitted when the watcher observes an evidence item in a new
// phase. From is zero the first time an item is observed.
type PhaseChange struct {
	EvidenceID uint32
	CampaignID uint32
	From       bounzy.Phase
	To         bounzy.Phase
	Evidence   bounzy.Evidence
	ObservedAt time.Time
}

// PhaseConsumer receives phase changes. Implementations must not block.
type PhaseConsumer interface {
	OnPhaseChange(change PhaseChange)
}

// Watcher keeps the observations of the orchestrator fresh. It refreshes the
// evidence submitted by the account plus explicitly tracked items every
// RefreshInterval, and immediately for items named by contract events when
// SubscribeEvents is set. An observed flag is thus at most RefreshInterval
// old, and usually as old as event delivery.
type Watcher struct {
	component.Component
	cm *component.ComponentManager

	log          zerolog.Logger
	config       Config
	orchestrator *Orchestrator
	gateway      contract.Reader
	metrics      module.LifecycleMetrics

	refreshes chan uint32
	publishMu sync.Mutex

	mu        sync.Mutex
	tracked   map[uint32]struct{}
	phases    map[uint32]bounzy.Phase
	consumers []PhaseConsumer
}

func NewWatcher(
	log zerolog.Logger,
	config Config,
	orchestrator *Orchestrator,
	gateway contract.Reader,
	metrics module.LifecycleMetrics,
) *Watcher {
	w := &Watcher{
		log:          log.With().Str("component", "lifecycle_watcher").Logger(),
		config:       config,
		orchestrator: orchestrator,
		gateway:      gateway,
		metrics:      metrics,
		refreshes:    make(chan uint32, 64),
		tracked:      make(map[uint32]struct{}),
		phases:       make(map[uint32]bounzy.Phase),
	}

	builder := component.NewComponentManagerBuilder().
		AddWorker(w.refreshLoop)
	if config.SubscribeEvents {
		builder.AddWorker(w.eventLoop)
	}
	w.cm = builder.Build()
	w.Component = w.cm

	return w
}

// AddConsumer registers a consumer for phase changes. Not safe to call after
// the watcher started.
func (w *Watcher) AddConsumer(consumer PhaseConsumer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consumers = append(w.consumers, consumer)
}

// Track adds an evidence item to every refresh round and refreshes it soon.
func (w *Watcher) Track(evidenceID uint32) {
	w.mu.Lock()
	w.tracked[evidenceID] = struct{}{}
	w.mu.Unlock()
	w.requestRefresh(evidenceID)
}

// Untrack removes an explicitly tracked evidence item.
func (w *Watcher) Untrack(evidenceID uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracked, evidenceID)
}

// Phase returns the last phase observed for an evidence item.
func (w *Watcher) Phase(evidenceID uint32) (bounzy.Phase, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	phase, ok := w.phases[evidenceID]
	return phase, ok
}

func (w *Watcher) requestRefresh(evidenceID uint32) {
	select {
	case w.refreshes <- evidenceID:
	default:
		// the next round picks it up
	}
}

// refreshLoop owns the worker pool; nothing else submits to it.
func (w *Watcher) refreshLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	workers := w.config.RefreshWorkers
	if workers < 1 {
		workers = 1
	}
	pool := workerpool.New(workers)
	defer pool.StopWait()

	ready()

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	w.refreshAll(ctx, pool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshAll(ctx, pool)
		case id := <-w.refreshes:
			pool.Submit(func() {
				w.refresh(ctx, id)
			})
		}
	}
}

// refreshAll refreshes every watched item and waits for the round to finish.
func (w *Watcher) refreshAll(ctx context.Context, pool *workerpool.WorkerPool) {
	start := time.Now()
	ids := w.watched(ctx)
	w.metrics.EvidenceTracked(len(ids))

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		id := id
		pool.Submit(func() {
			defer wg.Done()
			w.refresh(ctx, id)
		})
	}
	wg.Wait()
	w.metrics.RefreshDuration(time.Since(start))
}

func (w *Watcher) watched(ctx context.Context) []uint32 {
	submitted, err := w.gateway.SubmitterEvidenceIDs(ctx, w.orchestrator.Account())
	if err != nil && ctx.Err() == nil {
		w.log.Warn().Err(err).Msg("could not list own submissions")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[uint32]struct{}, len(submitted)+len(w.tracked))
	ids := make([]uint32, 0, len(submitted)+len(w.tracked))
	for _, id := range submitted {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for id := range w.tracked {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (w *Watcher) refresh(ctx context.Context, evidenceID uint32) {
	if ctx.Err() != nil {
		return
	}
	_, err := w.orchestrator.observe(ctx, evidenceID)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Uint32("evidence_id", evidenceID).Msg("could not refresh evidence")
		}
		return
	}
	w.publish(evidenceID)
}

// publish notifies consumers when the latest observation of the evidence item
// is in a new phase. Observations only move forward, and publications are
// serialized, so consumers never see a phase regress.
func (w *Watcher) publish(evidenceID uint32) {
	w.publishMu.Lock()
	defer w.publishMu.Unlock()

	ev, ok := w.orchestrator.Observed(evidenceID)
	if !ok {
		return
	}
	phase, err := bounzy.PhaseOf(&ev)
	if err != nil {
		w.log.Error().Err(err).Uint32("evidence_id", evidenceID).Msg("evidence in unknown phase")
		return
	}

	w.mu.Lock()
	previous, known := w.phases[evidenceID]
	if known && previous == phase {
		w.mu.Unlock()
		return
	}
	w.phases[evidenceID] = phase
	consumers := w.consumers
	w.mu.Unlock()

	if known {
		w.metrics.PhaseChanged(previous.String(), phase.String())
		w.log.Info().
			Uint32("evidence_id", evidenceID).
			Str("from", previous.String()).
			Str("to", phase.String()).
			Msg("evidence phase changed")
	}

	change := PhaseChange{
		EvidenceID: evidenceID,
		CampaignID: ev.CampaignID,
		From:       previous,
		To:         phase,
		Evidence:   ev,
		ObservedAt: time.Now(),
	}
	for _, consumer := range consumers {
		consumer.OnPhaseChange(change)
	}
}

// eventLoop refreshes evidence items as soon as an event mentions them. When
// the subscription fails the watcher keeps polling only.
func (w *Watcher) eventLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	events := make(chan contract.Event, 64)
	sub, err := w.gateway.SubscribeEvents(ctx, events)
	ready()
	if err != nil {
		w.log.Warn().Err(err).Msg("could not subscribe to contract events, relying on polling")
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				w.log.Warn().Err(err).Msg("event subscription failed, relying on polling")
			}
			return
		case ev := <-events:
			id := ev.EvidenceID()
			if id == 0 {
				continue
			}
			if submitted, ok := ev.(*contract.EvidenceSubmitted); ok && submitted.Submitter == w.orchestrator.Account() {
				w.Track(id)
				continue
			}
			if w.isWatched(id) {
				w.requestRefresh(id)
			}
		}
	}
}

func (w *Watcher) isWatched(evidenceID uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tracked[evidenceID]; ok {
		return true
	}
	_, ok := w.phases[evidenceID]
	return ok
}
