package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/metrics"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

type changeLog struct {
	mu      sync.Mutex
	changes []PhaseChange
}

func (l *changeLog) OnPhaseChange(change PhaseChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, change)
}

// TestWatcher_PublishNeverRegresses publishes the same evidence item from many
// refreshes at once while the observation moves forward.
func TestWatcher_PublishNeverRegresses(t *testing.T) {
	o := &Orchestrator{observed: make(map[uint32]*bounzy.Evidence)}
	w := NewWatcher(unittest.Logger(), Config{}, o, nil, metrics.NewNoopCollector())
	log := &changeLog{}
	w.AddConsumer(log)

	observe := func(ev *bounzy.Evidence) {
		o.mu.Lock()
		defer o.mu.Unlock()
		merged, err := bounzy.Observe(o.observed[ev.ID], *ev)
		require.NoError(t, err)
		o.observed[ev.ID] = &merged
	}

	underReview := unittest.EvidenceFixture(unittest.WithEvidenceID(1))
	underReview.SeverityDecryptable = true
	observe(underReview)
	w.publish(1)

	claimable := *underReview
	claimable.Status = bounzy.StatusValidated
	claimable.BountyDecryptable = true

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 8 {
				observe(&claimable)
			}
			w.publish(1)
		}(i)
	}
	wg.Wait()
	// a refresh that read the chain before the validation landed
	observe(underReview)
	w.publish(1)

	phase, ok := w.Phase(1)
	require.True(t, ok)
	assert.Equal(t, bounzy.PhaseClaimable, phase)

	log.mu.Lock()
	defer log.mu.Unlock()
	require.Len(t, log.changes, 2)
	assert.Equal(t, bounzy.PhaseUnderReview, log.changes[0].To)
	assert.Equal(t, bounzy.PhaseUnderReview, log.changes[1].From)
	assert.Equal(t, bounzy.PhaseClaimable, log.changes[1].To)
}

// TestWatcher_PublishUnobserved ignores items the orchestrator never read.
func TestWatcher_PublishUnobserved(t *testing.T) {
	o := &Orchestrator{observed: make(map[uint32]*bounzy.Evidence)}
	w := NewWatcher(unittest.Logger(), Config{}, o, nil, metrics.NewNoopCollector())

	w.publish(7)
	_, ok := w.Phase(7)
	assert.False(t, ok)
}
