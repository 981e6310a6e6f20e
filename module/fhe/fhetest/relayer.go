// Package fhetest provides an in-memory FHE relayer. Values are not encrypted;
// handles are opaque identifiers and proofs are keyed hashes that only this
// relayer can produce and verify.
package fhetest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/atomic"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/fhe"
)

var _ fhe.Client = (*Relayer)(nil)

type Relayer struct {
	mu          sync.Mutex
	secret      []byte
	nonce       uint64
	values      map[bounzy.Handle]fhe.Plaintext
	decryptable map[bounzy.Handle]bool

	initErr    error
	encryptErr error
	decryptErr error
	initDelay  time.Duration

	inits    *atomic.Int64
	encrypts *atomic.Int64
	decrypts *atomic.Int64
}

func New() *Relayer {
	return &Relayer{
		secret:      crypto.Keccak256([]byte(time.Now().String())),
		values:      make(map[bounzy.Handle]fhe.Plaintext),
		decryptable: make(map[bounzy.Handle]bool),
		inits:       atomic.NewInt64(0),
		encrypts:    atomic.NewInt64(0),
		decrypts:    atomic.NewInt64(0),
	}
}

// Factory returns a factory that hands out this relayer.
func (r *Relayer) Factory() fhe.Factory {
	return func(ctx context.Context) (fhe.Client, error) {
		r.inits.Inc()
		r.mu.Lock()
		delay, err := r.initDelay, r.initErr
		r.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// FailInit makes the factory fail with err.
func (r *Relayer) FailInit(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initErr = err
}

// SetInitDelay delays the factory.
func (r *Relayer) SetInitDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDelay = d
}

// FailEncrypt makes encryption fail with err until reset with nil.
func (r *Relayer) FailEncrypt(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encryptErr = err
}

// FailDecrypt makes public decryption fail with err until reset with nil.
func (r *Relayer) FailDecrypt(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decryptErr = err
}

func (r *Relayer) InitCount() int {
	return int(r.inits.Load())
}

func (r *Relayer) EncryptCount() int {
	return int(r.encrypts.Load())
}

func (r *Relayer) DecryptCount() int {
	return int(r.decrypts.Load())
}

func (r *Relayer) Encrypt(ctx context.Context, contract common.Address, user common.Address, values []fhe.Plaintext) (*fhe.Ciphertexts, error) {
	r.encrypts.Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encryptErr != nil {
		return nil, r.encryptErr
	}
	for i, v := range values {
		if !v.Fits() {
			return nil, fmt.Errorf("value %d does not fit %s: %w", i, v.Kind, fhe.ErrInvalidInput)
		}
	}

	handles := make([]bounzy.Handle, 0, len(values))
	for i, v := range values {
		r.nonce++
		h := r.newHandle(contract, user, r.nonce, i, v.Kind)
		r.values[h] = fhe.Plaintext{Kind: v.Kind, Value: new(uint256.Int).Set(v.Value)}
		handles = append(handles, h)
	}

	return &fhe.Ciphertexts{
		Handles:    handles,
		InputProof: r.inputProof(contract, user, handles),
	}, nil
}

func (r *Relayer) newHandle(contract, user common.Address, nonce uint64, index int, kind fhe.Kind) bounzy.Handle {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], uint64(index))

	var h bounzy.Handle
	copy(h[:], crypto.Keccak256(r.secret, []byte("handle"), contract[:], user[:], buf[:]))
	h[30] = byte(kind)
	return h
}

func (r *Relayer) inputProof(contract, user common.Address, handles []bounzy.Handle) []byte {
	data := [][]byte{r.secret, []byte("input"), contract[:], user[:]}
	for i := range handles {
		data = append(data, handles[i][:])
	}
	return crypto.Keccak256(data...)
}

// VerifyInputProof checks that the proof was issued for exactly these handles,
// encrypted for the given contract and user.
func (r *Relayer) VerifyInputProof(contract, user common.Address, handles []bounzy.Handle, proof []byte) bool {
	return string(r.inputProof(contract, user, handles)) == string(proof)
}

// AllowPublicDecryption flags a handle publicly decryptable. This is what the
// decryption oracle does after a decryption request was mined.
func (r *Relayer) AllowPublicDecryption(handle bounzy.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[handle]; !ok {
		return fmt.Errorf("unknown handle %s", handle)
	}
	r.decryptable[handle] = true
	return nil
}

// Value returns the plaintext behind a handle.
func (r *Relayer) Value(handle bounzy.Handle) (fhe.Plaintext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[handle]
	return v, ok
}

// PublicDecrypt returns an empty result unless every handle is decryptable.
func (r *Relayer) PublicDecrypt(ctx context.Context, handles []bounzy.Handle) (*fhe.Decryption, error) {
	r.decrypts.Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.decryptErr != nil {
		return nil, r.decryptErr
	}
	for _, h := range handles {
		if !r.decryptable[h] {
			return &fhe.Decryption{}, nil
		}
	}

	clear := make(map[bounzy.Handle]*big.Int, len(handles))
	values := make([]*big.Int, 0, len(handles))
	for _, h := range handles {
		v := r.values[h].Big()
		clear[h] = v
		values = append(values, v)
	}
	encoded := EncodeClearValues(values...)

	return &fhe.Decryption{
		ClearValues:           clear,
		AbiEncodedClearValues: encoded,
		DecryptionProof:       r.decryptionProof(handles, encoded),
	}, nil
}

func (r *Relayer) decryptionProof(handles []bounzy.Handle, encoded []byte) []byte {
	data := [][]byte{r.secret, []byte("decrypt")}
	for i := range handles {
		data = append(data, handles[i][:])
	}
	data = append(data, encoded)
	return crypto.Keccak256(data...)
}

// VerifyDecryption checks that the proof attests the clear values of the handles.
func (r *Relayer) VerifyDecryption(handles []bounzy.Handle, clearValues []*big.Int, proof []byte) bool {
	return string(r.decryptionProof(handles, EncodeClearValues(clearValues...))) == string(proof)
}

// EncodeClearValues ABI encodes the values as a sequence of uint256 words.
func EncodeClearValues(values ...*big.Int) []byte {
	encoded := make([]byte, 0, 32*len(values))
	for _, v := range values {
		encoded = append(encoded, common.LeftPadBytes(v.Bytes(), 32)...)
	}
	return encoded
}
