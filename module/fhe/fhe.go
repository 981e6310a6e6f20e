package fhe

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

var (
	// ErrInitialization is returned when the relayer client could not be
	// created. It is fatal for the session: every later call fails with it.
	ErrInitialization = errors.New("fhe relayer initialization failed")

	// ErrEncryption is returned when a batch could not be encrypted. Nothing
	// was committed and the caller may retry from scratch.
	ErrEncryption = errors.New("fhe encryption failed")

	// ErrInvalidInput is returned when the relayer rejected a plaintext, e.g.
	// because it does not fit the requested bit width.
	ErrInvalidInput = errors.New("invalid fhe input")

	// ErrDecryption is returned when a public decryption request failed. A
	// handle that is not yet decryptable does not produce this error but an
	// empty Decryption.
	ErrDecryption = errors.New("fhe public decryption failed")
)

// Client is the boundary to the external FHE relayer.
type Client interface {
	// Encrypt encrypts all values as one batch for the (contract, user) pair and
	// returns one handle per value, in order, plus a single proof covering the batch.
	Encrypt(ctx context.Context, contract common.Address, user common.Address, values []Plaintext) (*Ciphertexts, error)

	// PublicDecrypt resolves handles that were flagged publicly decryptable.
	// Handles that are not yet decryptable yield an empty result, not an error.
	PublicDecrypt(ctx context.Context, handles []bounzy.Handle) (*Decryption, error)
}

// Factory creates a relayer client. It is called at most once per Adapter.
type Factory func(ctx context.Context) (Client, error)

// Ciphertexts is the result of encrypting a batch.
type Ciphertexts struct {
	Handles    []bounzy.Handle
	InputProof []byte
}

// Decryption is the result of a public decryption.
type Decryption struct {
	// ClearValues holds the decrypted value of each handle.
	ClearValues map[bounzy.Handle]*big.Int
	// AbiEncodedClearValues is the ABI encoding of the clear values, in the
	// order the handles were requested. The contract checks the proof against it.
	AbiEncodedClearValues []byte
	// DecryptionProof authorizes a transaction that uses the clear values.
	DecryptionProof []byte
}

// Empty returns true if no value was decrypted.
func (d *Decryption) Empty() bool {
	return d == nil || len(d.ClearValues) == 0
}

// Value returns the clear value of a handle.
func (d *Decryption) Value(handle bounzy.Handle) (*big.Int, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.ClearValues[handle]
	if !ok || v == nil {
		return nil, false
	}
	return new(big.Int).Set(v), true
}
