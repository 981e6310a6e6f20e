package fhe

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Input collects plaintexts that are encrypted together under one proof.
type Input struct {
	adapter *Adapter
	user    common.Address
	values  []Plaintext
}

// NewInput starts a batch for the user.
func (a *Adapter) NewInput(user common.Address) *Input {
	return &Input{adapter: a, user: user}
}

func (in *Input) Add(p Plaintext) *Input {
	in.values = append(in.values, p)
	return in
}

func (in *Input) Add8(v uint8) *Input {
	return in.Add(Uint8(v))
}

func (in *Input) Add64(v uint64) *Input {
	return in.Add(Uint64(v))
}

func (in *Input) Add256(v *uint256.Int) *Input {
	return in.Add(Uint256(v))
}

func (in *Input) AddBytes32(b [32]byte) *Input {
	return in.Add(Bytes32(b))
}

// Len returns the number of values in the batch.
func (in *Input) Len() int {
	return len(in.values)
}

// Encrypt encrypts the whole batch.
func (in *Input) Encrypt(ctx context.Context) (*Ciphertexts, error) {
	return in.adapter.Encrypt(ctx, in.user, in.values...)
}
