package bounzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusPending, StatusValidated, StatusDeclined},
		StatusValidated: {StatusValidated, StatusClaimed},
		StatusDeclined:  {StatusDeclined},
		StatusClaimed:   {StatusClaimed},
	}

	for from := StatusPending; from <= StatusClaimed; from++ {
		for to := StatusPending; to <= StatusClaimed; to++ {
			expected := false
			for _, s := range allowed[from] {
				if s == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(3)
	require.NoError(t, err)
	assert.Equal(t, StatusClaimed, s)

	_, err = ParseStatus(4)
	require.Error(t, err)
}

func TestStatus_Text(t *testing.T) {
	for s := StatusPending; s <= StatusClaimed; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var decoded Status
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, s, decoded)
	}

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("archived")))
}
