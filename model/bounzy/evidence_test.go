package bounzy

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func evidenceFixture(status Status) Evidence {
	return Evidence{
		ID:         7,
		CampaignID: 1,
		Submitter:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Status:     status,
		Timestamp:  time.Unix(1700000000, 0),
	}
}

func TestObserve(t *testing.T) {
	t.Run("first observation", func(t *testing.T) {
		ev := evidenceFixture(StatusPending)
		merged, err := Observe(nil, ev)
		require.NoError(t, err)
		assert.Equal(t, ev, merged)
	})

	t.Run("flags never regress", func(t *testing.T) {
		prev := evidenceFixture(StatusPending)
		prev.SeverityDecryptable = true

		merged, err := Observe(&prev, evidenceFixture(StatusPending))
		require.NoError(t, err)
		assert.True(t, merged.SeverityDecryptable)
	})

	t.Run("stale status is ignored", func(t *testing.T) {
		prev := evidenceFixture(StatusValidated)
		merged, err := Observe(&prev, evidenceFixture(StatusPending))
		require.NoError(t, err)
		assert.Equal(t, StatusValidated, merged.Status)
	})

	t.Run("skipped states are accepted", func(t *testing.T) {
		prev := evidenceFixture(StatusPending)
		merged, err := Observe(&prev, evidenceFixture(StatusClaimed))
		require.NoError(t, err)
		assert.Equal(t, StatusClaimed, merged.Status)
	})

	t.Run("declined cannot become validated", func(t *testing.T) {
		prev := evidenceFixture(StatusDeclined)
		_, err := Observe(&prev, evidenceFixture(StatusValidated))
		require.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("different item", func(t *testing.T) {
		prev := evidenceFixture(StatusPending)
		next := evidenceFixture(StatusPending)
		next.ID = 8
		_, err := Observe(&prev, next)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := Observe(nil, evidenceFixture(Status(9)))
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// contractTrace produces the sequence of states an evidence item moves through
// on chain. Only the transitions the contract can perform are generated.
func contractTrace(t *rapid.T) []Evidence {
	ev := evidenceFixture(StatusPending)
	trace := []Evidence{ev}
	steps := rapid.IntRange(0, 12).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		switch rapid.IntRange(0, 5).Draw(t, "op") {
		case 0:
			ev.SeverityDecryptable = true
		case 1:
			ev.DescriptionDecryptable = true
		case 2:
			if ev.Status == StatusValidated {
				ev.BountyDecryptable = true
			}
		case 3:
			if ev.Status == StatusPending {
				ev.Status = StatusValidated
			}
		case 4:
			if ev.Status == StatusPending {
				ev.Status = StatusDeclined
			}
		case 5:
			if ev.Status == StatusValidated && ev.BountyDecryptable {
				ev.Status = StatusClaimed
			}
		}
		trace = append(trace, ev)
	}
	return trace
}

// Reads of the trace may arrive out of order from lagging nodes, yet the merged
// observation must only move forward.
func TestObserve_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		trace := contractTrace(t)
		reads := rapid.SliceOfN(rapid.IntRange(0, len(trace)-1), 1, 20).Draw(t, "reads")

		var current *Evidence
		for _, idx := range reads {
			merged, err := Observe(current, trace[idx])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if current != nil {
				if !reachable(current.Status, merged.Status) {
					t.Fatalf("status regressed from %s to %s", current.Status, merged.Status)
				}
				for _, f := range Fields {
					if current.Decryptable(f) && !merged.Decryptable(f) {
						t.Fatalf("%s flag regressed", f)
					}
				}
			}
			current = &merged
		}
	})
}
