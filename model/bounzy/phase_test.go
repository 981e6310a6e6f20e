package bounzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseOf(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Evidence)
		expected Phase
	}{
		{"fresh submission", func(*Evidence) {}, PhaseAwaitingSeverityDecryption},
		{"severity decryptable", func(e *Evidence) { e.SeverityDecryptable = true }, PhaseUnderReview},
		{"validated", func(e *Evidence) { e.Status = StatusValidated }, PhaseAwaitingBountyDecryption},
		{"bounty decryptable", func(e *Evidence) {
			e.Status = StatusValidated
			e.BountyDecryptable = true
		}, PhaseClaimable},
		{"declined", func(e *Evidence) { e.Status = StatusDeclined }, PhaseDeclined},
		{"claimed", func(e *Evidence) { e.Status = StatusClaimed }, PhaseClaimed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ev := evidenceFixture(StatusPending)
			c.mutate(&ev)
			phase, err := PhaseOf(&ev)
			require.NoError(t, err)
			assert.Equal(t, c.expected, phase)
		})
	}

	ev := evidenceFixture(Status(5))
	_, err := PhaseOf(&ev)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestActions(t *testing.T) {
	t.Run("only the severity request before review", func(t *testing.T) {
		ev := evidenceFixture(StatusPending)
		assert.Equal(t, []Action{ActionRequestSeverityDecryption}, Actions(&ev))
		assert.False(t, Allows(&ev, ActionValidate))
		assert.False(t, Allows(&ev, ActionPreviewSeverity))
	})

	t.Run("review", func(t *testing.T) {
		ev := evidenceFixture(StatusPending)
		ev.SeverityDecryptable = true
		assert.Equal(t, []Action{
			ActionPreviewSeverity,
			ActionRequestDescriptionDecryption,
			ActionValidate,
			ActionDecline,
		}, Actions(&ev))

		ev.DescriptionDecryptable = true
		assert.False(t, Allows(&ev, ActionRequestDescriptionDecryption))
		assert.True(t, Allows(&ev, ActionPreviewDescription))
	})

	t.Run("claim requires bounty decryption", func(t *testing.T) {
		ev := evidenceFixture(StatusValidated)
		assert.False(t, Allows(&ev, ActionClaim))
		assert.True(t, Allows(&ev, ActionRequestBountyDecryption))

		ev.BountyDecryptable = true
		assert.True(t, Allows(&ev, ActionClaim))
		assert.False(t, Allows(&ev, ActionRequestBountyDecryption))
	})

	t.Run("terminal phases", func(t *testing.T) {
		declined := evidenceFixture(StatusDeclined)
		assert.Equal(t, []Action{ActionFetchDeclinedReason}, Actions(&declined))

		claimed := evidenceFixture(StatusClaimed)
		claimed.BountyDecryptable = true
		for _, a := range Actions(&claimed) {
			assert.False(t, a.Transacts(), a.String())
		}
	})
}

func TestPhaseAndAction_Text(t *testing.T) {
	for phase := PhaseAwaitingSeverityDecryption; phase <= PhaseClaimed; phase++ {
		text, err := phase.MarshalText()
		require.NoError(t, err)
		var parsed Phase
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, phase, parsed)
	}
	for action := ActionRequestSeverityDecryption; action <= ActionFetchDeclinedReason; action++ {
		text, err := action.MarshalText()
		require.NoError(t, err)
		var parsed Action
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, action, parsed)
	}

	var phase Phase
	assert.Error(t, phase.UnmarshalText([]byte("pending")))
	var action Action
	assert.Error(t, action.UnmarshalText([]byte("withdraw")))
}
