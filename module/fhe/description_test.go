package fhe

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDescription(t *testing.T) {
	packed := EncodeDescription("ab")
	value := new(big.Int).SetBytes(packed[:])
	// big-endian, zero padded on the right
	assert.Equal(t, byte('a'), packed[0])
	assert.Equal(t, "ab", DecodeDescription(value))

	long := strings.Repeat("x", 40)
	packed = EncodeDescription(long)
	assert.Equal(t, long[:32], DecodeDescription(new(big.Int).SetBytes(packed[:])))

	assert.Equal(t, "", DecodeDescription(nil))
	assert.Equal(t, "", DecodeDescription(big.NewInt(0)))
}

func TestDescription_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 .,:-]{0,32}`).Draw(t, "text")
		packed := EncodeDescription(text)
		decoded := DecodeDescription(new(big.Int).SetBytes(packed[:]))
		if decoded != text {
			t.Fatalf("expected %q, got %q", text, decoded)
		}
	})
}

func TestHashEvidence(t *testing.T) {
	a, err := HashEvidence(bytes.NewReader([]byte("evidence")))
	require.NoError(t, err)
	b, err := HashEvidence(bytes.NewReader([]byte("evidence")))
	require.NoError(t, err)
	c, err := HashEvidence(bytes.NewReader([]byte("other")))
	require.NoError(t, err)

	assert.True(t, a.Eq(b))
	assert.False(t, a.Eq(c))
	assert.LessOrEqual(t, a.BitLen(), 256)
}

func TestPlaintext_Fits(t *testing.T) {
	assert.True(t, Uint8(255).Fits())
	assert.True(t, Uint64(^uint64(0)).Fits())

	p, err := FromBig(KindUint64, new(big.Int).Lsh(big.NewInt(1), 64))
	require.NoError(t, err)
	assert.False(t, p.Fits())

	_, err = FromBig(KindUint256, new(big.Int).Lsh(big.NewInt(1), 256))
	require.ErrorIs(t, err, ErrInvalidInput)
}
