package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// Backend is the chain access the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config holds the transaction confirmation settings.
type Config struct {
	// ConfirmationTimeout bounds the wait for a sent transaction to be mined.
	ConfirmationTimeout time.Duration `mapstructure:"confirmation-timeout" validate:"gt=0"`
	// ReceiptPollInterval is the delay between receipt lookups.
	ReceiptPollInterval time.Duration `mapstructure:"receipt-poll-interval" validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		ConfirmationTimeout: 3 * time.Minute,
		ReceiptPollInterval: time.Second,
	}
}

// Client is the Gateway implementation over an Ethereum JSON-RPC backend.
type Client struct {
	log     zerolog.Logger
	config  Config
	backend Backend
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	signer  Signer
}

var _ Gateway = (*Client)(nil)

func NewClient(log zerolog.Logger, config Config, backend Backend, address common.Address, signer Signer) (*Client, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("could not parse contract abi: %w", err)
	}
	if config.ReceiptPollInterval <= 0 {
		return nil, fmt.Errorf("receipt poll interval must be positive, got %s", config.ReceiptPollInterval)
	}
	return &Client{
		log: log.With().
			Str("component", "contract_gateway").
			Str("contract", address.Hex()).
			Str("account", signer.Address().Hex()).
			Logger(),
		config:  config,
		backend: backend,
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		signer:  signer,
	}, nil
}

func (c *Client) Account() common.Address {
	return c.signer.Address()
}

// Address returns the contract address.
func (c *Client) Address() common.Address {
	return c.address
}

func (c *Client) CreateCampaign(ctx context.Context, minSeverity bounzy.Handle, inputProof []byte, name string, durationDays uint64, bountyPool *big.Int) (*Receipt, error) {
	return c.transact(ctx, bountyPool, "createCampaign", [32]byte(minSeverity), inputProof, name, new(big.Int).SetUint64(durationDays))
}

func (c *Client) FundCampaign(ctx context.Context, campaignID uint32, amount *big.Int) (*Receipt, error) {
	return c.transact(ctx, amount, "fundCampaign", campaignID)
}

func (c *Client) DeactivateCampaign(ctx context.Context, campaignID uint32) (*Receipt, error) {
	return c.transact(ctx, nil, "deactivateCampaign", campaignID)
}

func (c *Client) WithdrawCampaignFunds(ctx context.Context, campaignID uint32) (*Receipt, error) {
	return c.transact(ctx, nil, "withdrawCampaignFunds", campaignID)
}

func (c *Client) SubmitEvidence(ctx context.Context, campaignID uint32, hash, severity, description bounzy.Handle, inputProof []byte) (*Receipt, error) {
	return c.transact(ctx, nil, "submitEvidence", campaignID, [32]byte(hash), [32]byte(severity), [32]byte(description), inputProof)
}

func (c *Client) RequestSeverityDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error) {
	return c.transact(ctx, nil, "requestSeverityDecryption", evidenceID)
}

func (c *Client) RequestDescriptionDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error) {
	return c.transact(ctx, nil, "requestDescriptionDecryption", evidenceID)
}

func (c *Client) RequestBountyDecryption(ctx context.Context, evidenceID uint32) (*Receipt, error) {
	return c.transact(ctx, nil, "requestBountyDecryption", evidenceID)
}

func (c *Client) ValidateEvidence(ctx context.Context, evidenceID uint32, severityClear uint8, bounty bounzy.Handle, inputProof []byte, decryptionProof []byte) (*Receipt, error) {
	return c.transact(ctx, nil, "validateEvidence", evidenceID, severityClear, [32]byte(bounty), inputProof, decryptionProof)
}

func (c *Client) DeclineEvidence(ctx context.Context, evidenceID uint32, reason string) (*Receipt, error) {
	return c.transact(ctx, nil, "declineEvidence", evidenceID, reason)
}

func (c *Client) ClaimBounty(ctx context.Context, evidenceID uint32, bountyClear uint64, decryptionProof []byte) (*Receipt, error) {
	return c.transact(ctx, nil, "claimBounty", evidenceID, bountyClear, decryptionProof)
}

// transact simulates the call, sends it through the signer and waits for it to
// be mined. Reverts found during simulation are returned before any signature
// is requested.
func (c *Client) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*Receipt, error) {
	input, err := c.abi.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("could not pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		From:  c.signer.Address(),
		To:    &c.address,
		Value: value,
		Data:  input,
	}
	_, err = c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		if revert := decodeRevert(&c.abi, err); revert != nil {
			return nil, fmt.Errorf("%s would revert: %w", method, revert)
		}
		return nil, fmt.Errorf("could not simulate %s: %w", method, err)
	}

	opts := c.signer.TransactOpts(ctx)
	opts.Value = value
	tx, err := c.bound.RawTransact(opts, input)
	if err != nil {
		if errors.Is(err, ErrSignatureRejected) || errors.Is(err, ErrNoSigner) {
			return nil, fmt.Errorf("could not sign %s: %w", method, err)
		}
		if revert := decodeRevert(&c.abi, err); revert != nil {
			return nil, fmt.Errorf("%s reverted: %w", method, revert)
		}
		return nil, fmt.Errorf("could not send %s: %w", method, err)
	}

	log := c.log.With().Str("method", method).Str("tx_hash", tx.Hash().Hex()).Logger()
	log.Debug().Uint64("nonce", tx.Nonce()).Msg("transaction sent")

	mined, err := c.waitMined(ctx, tx)
	if err != nil {
		return &Receipt{TxHash: tx.Hash()}, fmt.Errorf("%s transaction %s not confirmed: %w", method, tx.Hash().Hex(), err)
	}

	receipt := &Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: mined.BlockNumber.Uint64(),
		GasUsed:     mined.GasUsed,
		Success:     mined.Status == types.ReceiptStatusSuccessful,
	}
	if !receipt.Success {
		// replay the call at the block it failed in to recover the reason
		_, replayErr := c.backend.CallContract(ctx, msg, mined.BlockNumber)
		if revert := decodeRevert(&c.abi, replayErr); revert != nil {
			return receipt, fmt.Errorf("%s transaction %s: %w", method, tx.Hash().Hex(), errors.Join(ErrTransactionFailed, revert))
		}
		return receipt, fmt.Errorf("%s transaction %s: %w", method, tx.Hash().Hex(), ErrTransactionFailed)
	}

	receipt.Events = c.parseLogs(mined.Logs)
	log.Info().
		Uint64("block", receipt.BlockNumber).
		Uint64("gas_used", receipt.GasUsed).
		Int("events", len(receipt.Events)).
		Msg("transaction confirmed")
	return receipt, nil
}

// waitMined polls for the transaction receipt until it is found or the
// confirmation timeout elapses.
func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.ConfirmationTimeout)
	defer cancel()

	backoff := retry.NewConstant(c.config.ReceiptPollInterval)

	var receipt *types.Receipt
	err := retry.Do(waitCtx, backoff, func(ctx context.Context) error {
		r, err := c.backend.TransactionReceipt(ctx, tx.Hash())
		if errors.Is(err, ethereum.NotFound) {
			return retry.RetryableError(err)
		}
		if err != nil {
			c.log.Warn().Err(err).Str("tx_hash", tx.Hash().Hex()).Msg("receipt lookup failed, retrying")
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if waitCtx.Err() != nil {
			return nil, ErrConfirmationTimeout
		}
		return nil, err
	}
	return receipt, nil
}

func (c *Client) parseLogs(logs []*types.Log) []Event {
	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		ev, err := c.parseLog(*l)
		if err != nil {
			c.log.Warn().Err(err).Str("tx_hash", l.TxHash.Hex()).Uint("index", l.Index).Msg("skipping undecodable log")
			continue
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

// parseLog decodes a log emitted by the contract. Logs of other contracts
// decode to nil.
func (c *Client) parseLog(l types.Log) (Event, error) {
	if l.Address != c.address || len(l.Topics) == 0 {
		return nil, nil
	}
	abiEvent, err := c.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("unknown event topic %s: %w", l.Topics[0].Hex(), err)
	}
	ev, err := newEvent(abiEvent.Name)
	if err != nil {
		return nil, err
	}
	if err := c.bound.UnpackLog(ev, abiEvent.Name, l); err != nil {
		return nil, fmt.Errorf("could not unpack %s: %w", abiEvent.Name, err)
	}
	setRaw(ev, l)
	return ev, nil
}

func (c *Client) SubscribeEvents(ctx context.Context, sink chan<- Event) (event.Subscription, error) {
	logs := make(chan types.Log, 64)
	query := ethereum.FilterQuery{Addresses: []common.Address{c.address}}
	sub, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to contract logs: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				ev, err := c.parseLog(l)
				if err != nil {
					c.log.Warn().Err(err).Msg("skipping undecodable log")
					continue
				}
				if ev == nil {
					continue
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}
