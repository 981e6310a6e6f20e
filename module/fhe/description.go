package fhe

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// EncodeDescription packs the first 32 bytes of the UTF-8 description into a
// fixed length byte string, zero padded on the right.
func EncodeDescription(description string) [bounzy.DescriptionLength]byte {
	var packed [bounzy.DescriptionLength]byte
	copy(packed[:], description)
	return packed
}

// DecodeDescription reverses EncodeDescription for a decrypted 256-bit value.
// Decoding stops at the first zero byte.
func DecodeDescription(value *big.Int) string {
	if value == nil || value.Sign() <= 0 {
		return ""
	}
	v, overflow := uint256.FromBig(value)
	if overflow {
		return ""
	}
	packed := v.Bytes32()
	for i, c := range packed {
		if c == 0 {
			return string(packed[:i])
		}
	}
	return string(packed[:])
}

// HashEvidence hashes the evidence file with SHA-256 and returns the digest as
// a 256-bit integer, ready to be encrypted.
func HashEvidence(r io.Reader) (*uint256.Int, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("could not hash evidence: %w", err)
	}
	return new(uint256.Int).SetBytes(hasher.Sum(nil)), nil
}
