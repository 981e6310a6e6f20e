package fhe

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module"
)

const (
	operationEncrypt = "encrypt"
	operationDecrypt = "public_decrypt"
)

// DefaultInitTimeout bounds the relayer initialization.
const DefaultInitTimeout = 30 * time.Second

// Adapter wraps the relayer client for one contract. The client is created
// lazily by the first call that needs it. Initialization runs exactly once;
// concurrent callers wait for the same result and a failure is cached for the
// lifetime of the adapter.
type Adapter struct {
	log         zerolog.Logger
	metrics     module.RelayerMetrics
	factory     Factory
	contract    common.Address
	initTimeout time.Duration

	once   sync.Once
	done   chan struct{}
	client Client
	err    error
}

func NewAdapter(log zerolog.Logger, metrics module.RelayerMetrics, factory Factory, contract common.Address, initTimeout time.Duration) *Adapter {
	if initTimeout <= 0 {
		initTimeout = DefaultInitTimeout
	}
	return &Adapter{
		log:         log.With().Str("component", "fhe").Logger(),
		metrics:     metrics,
		factory:     factory,
		contract:    contract,
		initTimeout: initTimeout,
		done:        make(chan struct{}),
	}
}

// Contract returns the contract address inputs are encrypted for.
func (a *Adapter) Contract() common.Address {
	return a.contract
}

// Init starts the initialization if needed and waits for its outcome.
// Cancelling ctx stops waiting but not the initialization itself.
func (a *Adapter) Init(ctx context.Context) error {
	_, err := a.get(ctx)
	return err
}

// Initialized returns a channel that closes once initialization finished,
// successfully or not.
func (a *Adapter) Initialized() <-chan struct{} {
	return a.done
}

// Err returns the initialization error, or nil if initialization has not
// finished or succeeded.
func (a *Adapter) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

func (a *Adapter) get(ctx context.Context) (Client, error) {
	a.once.Do(func() {
		go a.initialize()
	})

	select {
	case <-a.done:
		return a.client, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Adapter) initialize() {
	defer close(a.done)

	ctx, cancel := context.WithTimeout(context.Background(), a.initTimeout)
	defer cancel()

	start := time.Now()
	client, err := a.factory(ctx)
	if err == nil && client == nil {
		err = fmt.Errorf("factory returned no client")
	}
	a.metrics.RelayerInitialized(time.Since(start), err == nil)
	if err != nil {
		a.err = fmt.Errorf("%w: %w", ErrInitialization, err)
		a.log.Error().Err(err).Msg("could not initialize fhe relayer")
		return
	}

	a.client = client
	a.log.Info().Dur("duration", time.Since(start)).Msg("fhe relayer initialized")
}

// Encrypt encrypts the values as one batch for the user. The result holds one
// handle per value and a single proof.
func (a *Adapter) Encrypt(ctx context.Context, user common.Address, values ...Plaintext) (*Ciphertexts, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrEncryption)
	}
	client, err := a.get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ciphertexts, err := client.Encrypt(ctx, a.contract, user, values)
	a.metrics.RelayerRequest(operationEncrypt, time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	if len(ciphertexts.Handles) != len(values) {
		return nil, fmt.Errorf("%w: expected %d handles, got %d", ErrEncryption, len(values), len(ciphertexts.Handles))
	}
	if len(ciphertexts.InputProof) == 0 {
		return nil, fmt.Errorf("%w: missing input proof", ErrEncryption)
	}

	a.log.Debug().
		Str("user", user.Hex()).
		Int("values", len(values)).
		Msg("encrypted input batch")
	return ciphertexts, nil
}

// EncryptSeverity encrypts a severity as euint8.
func (a *Adapter) EncryptSeverity(ctx context.Context, user common.Address, severity uint8) (bounzy.Handle, []byte, error) {
	ct, err := a.NewInput(user).Add8(severity).Encrypt(ctx)
	if err != nil {
		return bounzy.Handle{}, nil, err
	}
	return ct.Handles[0], ct.InputProof, nil
}

// EncryptBountyAmount encrypts a bounty amount in wei as euint64.
func (a *Adapter) EncryptBountyAmount(ctx context.Context, user common.Address, wei *big.Int) (bounzy.Handle, []byte, error) {
	plaintext, err := FromBig(KindUint64, wei)
	if err != nil {
		return bounzy.Handle{}, nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	ct, err := a.Encrypt(ctx, user, plaintext)
	if err != nil {
		return bounzy.Handle{}, nil, err
	}
	return ct.Handles[0], ct.InputProof, nil
}

// EvidenceInputs are the encrypted inputs of an evidence submission. All three
// handles share the same proof.
type EvidenceInputs struct {
	Hash        bounzy.Handle
	Severity    bounzy.Handle
	Description bounzy.Handle
	InputProof  []byte
}

// EncryptEvidenceInputs encrypts the file hash (euint256), the severity
// (euint8) and the packed description (euint256) as a single batch.
func (a *Adapter) EncryptEvidenceInputs(ctx context.Context, user common.Address, hash *uint256.Int, severity uint8, description string) (*EvidenceInputs, error) {
	ct, err := a.NewInput(user).
		Add256(hash).
		Add8(severity).
		AddBytes32(EncodeDescription(description)).
		Encrypt(ctx)
	if err != nil {
		return nil, err
	}
	return &EvidenceInputs{
		Hash:        ct.Handles[0],
		Severity:    ct.Handles[1],
		Description: ct.Handles[2],
		InputProof:  ct.InputProof,
	}, nil
}

// PublicDecrypt decrypts a handle that was flagged publicly decryptable. An
// empty result means the handle is not decryptable yet.
func (a *Adapter) PublicDecrypt(ctx context.Context, handle bounzy.Handle) (*Decryption, error) {
	client, err := a.get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	decryption, err := client.PublicDecrypt(ctx, []bounzy.Handle{handle})
	a.metrics.RelayerRequest(operationDecrypt, time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	if decryption == nil {
		decryption = &Decryption{}
	}

	a.log.Debug().
		Str("handle", handle.TerminalString()).
		Bool("empty", decryption.Empty()).
		Msg("public decryption")
	return decryption, nil
}
