package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
	"github.com/bounzy/bounzy-go/module/metrics"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

// phaseRecorder collects phase changes.
type phaseRecorder struct {
	mu      sync.Mutex
	changes []lifecycle.PhaseChange
}

func (r *phaseRecorder) OnPhaseChange(change lifecycle.PhaseChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *phaseRecorder) reached(evidenceID uint32, phase bounzy.Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.EvidenceID == evidenceID && c.To == phase {
			return true
		}
	}
	return false
}

func (r *phaseRecorder) count(evidenceID uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.changes {
		if c.EvidenceID == evidenceID {
			n++
		}
	}
	return n
}

// startWatcher runs a watcher for the orchestrator until the test ends.
func (s *LifecycleSuite) startWatcher(o *lifecycle.Orchestrator, config lifecycle.Config, recorder *phaseRecorder) *lifecycle.Watcher {
	w := lifecycle.NewWatcher(unittest.Logger(), config, o, s.gateway(s.submitterAccount.Signer()), metrics.NewNoopCollector())
	w.AddConsumer(recorder)
	s.run(w)
	return w
}

// run starts the watcher and stops it when the test ends.
func (s *LifecycleSuite) run(w *lifecycle.Watcher) {
	ctx, cancel := context.WithCancel(context.Background())
	signalerCtx, errs := irrecoverable.WithSignaler(ctx)
	w.Start(signalerCtx)
	unittest.RequireCloseBefore(s.T(), w.Ready(), time.Second, "watcher not ready")

	s.stops = append(s.stops, func() {
		cancel()
		unittest.RequireCloseBefore(s.T(), w.Done(), time.Second, "watcher did not stop")
		select {
		case err := <-errs:
			s.Failf("watcher threw", "%v", err)
		default:
		}
	})
}

func (s *LifecycleSuite) TestWatcher_OwnSubmissions() {
	recorder := &phaseRecorder{}
	s.startWatcher(s.submitter, s.config, recorder)

	id := s.submitEvidence(s.createCampaign(), 7)
	s.Eventually(func() bool {
		return recorder.reached(id, bounzy.PhaseAwaitingSeverityDecryption)
	}, time.Second, 5*time.Millisecond)

	_, err := s.owner.RequestDecryption(context.Background(), id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.Eventually(func() bool {
		return recorder.reached(id, bounzy.PhaseUnderReview)
	}, time.Second, 5*time.Millisecond)

	_, err = s.owner.Decline(context.Background(), id, "")
	s.Require().NoError(err)
	s.Eventually(func() bool {
		return recorder.reached(id, bounzy.PhaseDeclined)
	}, time.Second, 5*time.Millisecond)

	// the submitter's orchestrator sees the new state without a refresh call
	ev, ok := s.submitter.Observed(id)
	s.Require().True(ok)
	s.Equal(bounzy.StatusDeclined, ev.Status)
}

func (s *LifecycleSuite) TestWatcher_Tracked() {
	config := s.config
	config.SubscribeEvents = false
	recorder := &phaseRecorder{}
	w := s.startWatcher(s.owner, config, recorder)

	id := s.submitEvidence(s.createCampaign(), 7)
	w.Track(id)
	s.Eventually(func() bool {
		phase, ok := w.Phase(id)
		return ok && phase == bounzy.PhaseAwaitingSeverityDecryption
	}, time.Second, 5*time.Millisecond)

	_, err := s.owner.RequestDecryption(context.Background(), id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	s.Eventually(func() bool {
		return recorder.reached(id, bounzy.PhaseUnderReview)
	}, time.Second, 5*time.Millisecond)

	// unchanged phases are not reported again
	time.Sleep(5 * config.RefreshInterval)
	s.Equal(2, recorder.count(id))

	w.Untrack(id)
}

// unsubscribable fails every event subscription.
type unsubscribable struct {
	contract.Reader
}

func (unsubscribable) SubscribeEvents(context.Context, chan<- contract.Event) (event.Subscription, error) {
	return nil, errors.New("notifications not supported")
}

func (s *LifecycleSuite) TestWatcher_SubscriptionFailureFallsBackToPolling() {
	recorder := &phaseRecorder{}
	w := lifecycle.NewWatcher(unittest.Logger(), s.config, s.submitter,
		unsubscribable{Reader: s.gateway(s.submitterAccount.Signer())}, metrics.NewNoopCollector())
	w.AddConsumer(recorder)
	s.run(w)

	id := s.submitEvidence(s.createCampaign(), 4)
	s.Eventually(func() bool {
		return recorder.reached(id, bounzy.PhaseAwaitingSeverityDecryption)
	}, time.Second, 5*time.Millisecond)
}
