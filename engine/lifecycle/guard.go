package lifecycle

import (
	"sync"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// guard serializes state changing flows per evidence item and remembers
// decryption requests that were confirmed but not yet answered by the oracle.
// Its state is in memory only; after a restart every action is available
// again and the contract accepts repeated requests.
type guard struct {
	mu        sync.Mutex
	inFlight  map[uint32]bounzy.Action
	requested map[requestKey]struct{}
}

type requestKey struct {
	evidenceID uint32
	field      bounzy.Field
}

func newGuard() *guard {
	return &guard{
		inFlight:  make(map[uint32]bounzy.Action),
		requested: make(map[requestKey]struct{}),
	}
}

// acquire reserves the evidence item for the action. The returned release
// function must be called once the flow finished.
func (g *guard) acquire(evidenceID uint32, action bounzy.Action) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[evidenceID]; busy {
		return nil, ErrActionInFlight
	}
	g.inFlight[evidenceID] = action

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inFlight, evidenceID)
		})
	}, nil
}

// inFlightAction returns the action currently running for the evidence item.
func (g *guard) inFlightAction(evidenceID uint32) (bounzy.Action, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	action, ok := g.inFlight[evidenceID]
	return action, ok
}

func (g *guard) markRequested(evidenceID uint32, field bounzy.Field) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requested[requestKey{evidenceID, field}] = struct{}{}
}

func (g *guard) isRequested(evidenceID uint32, field bounzy.Field) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.requested[requestKey{evidenceID, field}]
	return ok
}

// observe drops requests that were answered, as seen in a fresh read.
func (g *guard) observe(ev *bounzy.Evidence) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, field := range bounzy.Fields {
		if ev.Decryptable(field) {
			delete(g.requested, requestKey{ev.ID, field})
		}
	}
}
