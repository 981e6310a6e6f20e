package fhe_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/fhe"
	"github.com/bounzy/bounzy-go/module/fhe/fhetest"
	"github.com/bounzy/bounzy-go/module/metrics"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

var contractAddress = common.HexToAddress("0x1af8c2c3ff2427223113ccd9a60cad027cf2fdd0")

func newAdapter(relayer *fhetest.Relayer) *fhe.Adapter {
	return fhe.NewAdapter(unittest.Logger(), metrics.NewNoopCollector(), relayer.Factory(), contractAddress, time.Second)
}

func TestAdapter_InitializesOnce(t *testing.T) {
	relayer := fhetest.New()
	relayer.SetInitDelay(20 * time.Millisecond)
	adapter := newAdapter(relayer)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, adapter.Init(context.Background()))
		}()
	}
	unittest.RequireReturnsBefore(t, wg.Wait, time.Second, "initialization did not finish")

	_, _, err := adapter.EncryptSeverity(context.Background(), unittest.AddressFixture(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, relayer.InitCount())
	unittest.RequireCloseBefore(t, adapter.Initialized(), time.Second, "initialized channel not closed")
}

func TestAdapter_InitFailureIsFatal(t *testing.T) {
	relayer := fhetest.New()
	relayer.FailInit(errors.New("network unreachable"))
	adapter := newAdapter(relayer)

	for i := 0; i < 3; i++ {
		_, _, err := adapter.EncryptSeverity(context.Background(), unittest.AddressFixture(), 5)
		require.ErrorIs(t, err, fhe.ErrInitialization)

		_, err = adapter.PublicDecrypt(context.Background(), unittest.HandleFixture())
		require.ErrorIs(t, err, fhe.ErrInitialization)
	}

	// the cached failure is not retried, even once the relayer recovered
	relayer.FailInit(nil)
	require.ErrorIs(t, adapter.Init(context.Background()), fhe.ErrInitialization)
	assert.Equal(t, 1, relayer.InitCount())
	assert.ErrorIs(t, adapter.Err(), fhe.ErrInitialization)
}

func TestAdapter_CallerCancellationDoesNotAbortInit(t *testing.T) {
	relayer := fhetest.New()
	relayer.SetInitDelay(50 * time.Millisecond)
	adapter := newAdapter(relayer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, adapter.Init(ctx), context.DeadlineExceeded)
	assert.NoError(t, adapter.Err())

	require.NoError(t, adapter.Init(context.Background()))
	assert.Equal(t, 1, relayer.InitCount())
}

func TestAdapter_EncryptEvidenceInputs(t *testing.T) {
	relayer := fhetest.New()
	adapter := newAdapter(relayer)
	user := unittest.AddressFixture()

	hash := uint256.NewInt(0).SetAllOne()
	inputs, err := adapter.EncryptEvidenceInputs(context.Background(), user, hash, 7, "leaked ledger")
	require.NoError(t, err)

	handles := []bounzy.Handle{inputs.Hash, inputs.Severity, inputs.Description}
	assert.True(t, relayer.VerifyInputProof(contractAddress, user, handles, inputs.InputProof))
	// a proof does not cover a different user or a subset of the batch
	assert.False(t, relayer.VerifyInputProof(contractAddress, unittest.AddressFixture(), handles, inputs.InputProof))
	assert.False(t, relayer.VerifyInputProof(contractAddress, user, handles[:2], inputs.InputProof))

	severity, ok := relayer.Value(inputs.Severity)
	require.True(t, ok)
	assert.Equal(t, fhe.KindUint8, severity.Kind)
	assert.Equal(t, uint64(7), severity.Value.Uint64())

	description, ok := relayer.Value(inputs.Description)
	require.True(t, ok)
	assert.Equal(t, "leaked ledger", fhe.DecodeDescription(description.Big()))
}

func TestAdapter_EncryptFailures(t *testing.T) {
	relayer := fhetest.New()
	adapter := newAdapter(relayer)
	user := unittest.AddressFixture()

	t.Run("out of range", func(t *testing.T) {
		tooLarge, err := fhe.FromBig(fhe.KindUint8, big.NewInt(256))
		require.NoError(t, err)

		_, err = adapter.Encrypt(context.Background(), user, tooLarge)
		require.ErrorIs(t, err, fhe.ErrEncryption)
		require.ErrorIs(t, err, fhe.ErrInvalidInput)
	})

	t.Run("bounty above 64 bits", func(t *testing.T) {
		wei := new(big.Int).Lsh(big.NewInt(1), 64)
		_, _, err := adapter.EncryptBountyAmount(context.Background(), user, wei)
		require.ErrorIs(t, err, fhe.ErrInvalidInput)
	})

	t.Run("negative bounty", func(t *testing.T) {
		_, _, err := adapter.EncryptBountyAmount(context.Background(), user, big.NewInt(-1))
		require.ErrorIs(t, err, fhe.ErrInvalidInput)
	})

	t.Run("relayer error is recoverable", func(t *testing.T) {
		relayer.FailEncrypt(errors.New("gateway timeout"))
		_, _, err := adapter.EncryptSeverity(context.Background(), user, 3)
		require.ErrorIs(t, err, fhe.ErrEncryption)
		require.NotErrorIs(t, err, fhe.ErrInitialization)

		relayer.FailEncrypt(nil)
		_, _, err = adapter.EncryptSeverity(context.Background(), user, 3)
		require.NoError(t, err)
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := adapter.NewInput(user).Encrypt(context.Background())
		require.ErrorIs(t, err, fhe.ErrEncryption)
	})
}

func TestAdapter_PublicDecryptNotReady(t *testing.T) {
	relayer := fhetest.New()
	adapter := newAdapter(relayer)

	handle, _, err := adapter.EncryptSeverity(context.Background(), unittest.AddressFixture(), 9)
	require.NoError(t, err)

	decryption, err := adapter.PublicDecrypt(context.Background(), handle)
	require.NoError(t, err)
	assert.True(t, decryption.Empty())

	relayer.FailDecrypt(errors.New("kms unavailable"))
	_, err = adapter.PublicDecrypt(context.Background(), handle)
	require.ErrorIs(t, err, fhe.ErrDecryption)
}

// Encrypting a value and publicly decrypting its handle yields the value.
func TestAdapter_RoundTrip(t *testing.T) {
	relayer := fhetest.New()
	adapter := newAdapter(relayer)
	user := unittest.AddressFixture()

	rapid.Check(t, func(t *rapid.T) {
		var plaintext fhe.Plaintext
		if rapid.Bool().Draw(t, "wide") {
			plaintext = fhe.Uint64(rapid.Uint64().Draw(t, "u64"))
		} else {
			plaintext = fhe.Uint8(rapid.Uint8().Draw(t, "u8"))
		}

		ct, err := adapter.Encrypt(context.Background(), user, plaintext)
		if err != nil {
			t.Fatalf("could not encrypt: %v", err)
		}
		handle := ct.Handles[0]
		if err := relayer.AllowPublicDecryption(handle); err != nil {
			t.Fatalf("could not allow decryption: %v", err)
		}

		decryption, err := adapter.PublicDecrypt(context.Background(), handle)
		if err != nil {
			t.Fatalf("could not decrypt: %v", err)
		}
		value, ok := decryption.Value(handle)
		if !ok {
			t.Fatalf("no value for handle")
		}
		if value.Cmp(plaintext.Big()) != 0 {
			t.Fatalf("expected %s, got %s", plaintext.Big(), value)
		}
		if !relayer.VerifyDecryption([]bounzy.Handle{handle}, []*big.Int{value}, decryption.DecryptionProof) {
			t.Fatalf("decryption proof does not verify")
		}
	})
}
