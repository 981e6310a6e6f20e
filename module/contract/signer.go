package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is the account that submits transactions.
type Signer interface {
	Address() common.Address
	// TransactOpts returns fresh transaction options bound to ctx.
	TransactOpts(ctx context.Context) *bind.TransactOpts
}

// KeyedSigner signs with an in-memory private key.
type KeyedSigner struct {
	opts *bind.TransactOpts
}

var _ Signer = (*KeyedSigner)(nil)

func NewKeyedSigner(key *ecdsa.PrivateKey, chainID *big.Int) (*KeyedSigner, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("could not create transactor: %w", err)
	}
	return &KeyedSigner{opts: opts}, nil
}

// NewHexSigner parses a hex encoded private key, with or without 0x prefix.
func NewHexSigner(hexKey string, chainID *big.Int) (*KeyedSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeyedSigner(key, chainID)
}

// NewKeystoreSigner decrypts a V3 keystore file.
func NewKeystoreSigner(path string, passphrase string, chainID *big.Int) (*KeyedSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read keystore %s: %w", path, err)
	}
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt keystore %s: %w", path, err)
	}
	return NewKeyedSigner(key.PrivateKey, chainID)
}

func (s *KeyedSigner) Address() common.Address {
	return s.opts.From
}

func (s *KeyedSigner) TransactOpts(ctx context.Context) *bind.TransactOpts {
	return &bind.TransactOpts{
		From:    s.opts.From,
		Signer:  s.opts.Signer,
		Context: ctx,
	}
}

// WatchOnlySigner has an address but refuses to sign. Reads still work.
type WatchOnlySigner struct {
	address common.Address
}

var _ Signer = (*WatchOnlySigner)(nil)

func NewWatchOnlySigner(address common.Address) *WatchOnlySigner {
	return &WatchOnlySigner{address: address}
}

func (s *WatchOnlySigner) Address() common.Address {
	return s.address
}

func (s *WatchOnlySigner) TransactOpts(ctx context.Context) *bind.TransactOpts {
	return &bind.TransactOpts{
		From: s.address,
		Signer: func(common.Address, *types.Transaction) (*types.Transaction, error) {
			return nil, ErrNoSigner
		},
		Context: ctx,
	}
}

// ConfirmFunc decides whether a transaction may be signed.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) bool

// ConfirmingSigner asks for confirmation before every signature, the way a
// wallet prompts its user. A refusal surfaces as ErrSignatureRejected.
type ConfirmingSigner struct {
	Signer
	confirm ConfirmFunc
}

func NewConfirmingSigner(inner Signer, confirm ConfirmFunc) *ConfirmingSigner {
	return &ConfirmingSigner{Signer: inner, confirm: confirm}
}

func (s *ConfirmingSigner) TransactOpts(ctx context.Context) *bind.TransactOpts {
	opts := s.Signer.TransactOpts(ctx)
	sign := opts.Signer
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if !s.confirm(ctx, tx) {
			return nil, ErrSignatureRejected
		}
		return sign(from, tx)
	}
	return opts
}
