// Package contracttest provides an in-memory chain running the Bounzy contract
// behind its real ABI, for tests of the gateway and everything built on it.
package contracttest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe/fhetest"
)

// ChainID of the in-memory chain.
var ChainID = big.NewInt(1337)

var contractCode = []byte{0x60, 0x80, 0x60, 0x40}

var errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// Chain is an in-memory Ethereum backend hosting one Bounzy contract. It
// implements contract.Backend.
type Chain struct {
	mu       sync.Mutex
	abi      abi.ABI
	address  common.Address
	relayer  *fhetest.Relayer
	state    *state
	oracle   *Oracle
	now      time.Time

	block    uint64
	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	logs     []types.Log
	pending  []*types.Transaction
	autoMine bool

	// revert reasons of failed transactions by block, for replays
	failures map[uint64]error
	failNext string
	callErr  error
	sendErr  error
	calls    int
	subsMu   sync.Mutex
	subs     map[*logSub]struct{}
}

var _ contract.Backend = (*Chain)(nil)

type logSub struct {
	query ethereum.FilterQuery
	ch    chan<- types.Log
	quit  chan struct{}
}

// NewChain deploys the contract on a fresh chain. Encrypted inputs and
// decryption proofs are checked against the given relayer.
func NewChain(relayer *fhetest.Relayer) *Chain {
	c := &Chain{
		abi:      contract.MustParseABI(),
		address:  common.HexToAddress("0x1af8c2c3ff2427223113ccd9a60cad027cf2fdd0"),
		relayer:  relayer,
		now:      time.Unix(1_700_000_000, 0),
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		autoMine: true,
		failures: make(map[uint64]error),
		subs:     make(map[*logSub]struct{}),
	}
	c.state = newState(c)
	c.oracle = newOracle(c)
	return c
}

// Address returns the contract address.
func (c *Chain) Address() common.Address {
	return c.address
}

// Oracle returns the decryption oracle of the chain.
func (c *Chain) Oracle() *Oracle {
	return c.oracle
}

// Relayer returns the relayer the chain verifies proofs with.
func (c *Chain) Relayer() *fhetest.Relayer {
	return c.relayer
}

// Now returns the timestamp of the next block.
func (c *Chain) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AdvanceTime moves the chain clock forward.
func (c *Chain) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetAutoMine controls whether sent transactions are mined immediately. With
// auto mining off, transactions stay pending until Mine is called.
func (c *Chain) SetAutoMine(auto bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoMine = auto
}

// FailNextTransaction makes the next mined transaction revert with reason,
// even if it would succeed.
func (c *Chain) FailNextTransaction(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = reason
}

// FailCalls makes every eth_call fail with err until reset with nil.
func (c *Chain) FailCalls(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callErr = err
}

// FailSends makes every transaction submission fail with err until reset with nil.
func (c *Chain) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// CallCount returns the number of eth_call requests served.
func (c *Chain) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Balance returns the balance credited to an account by the contract.
func (c *Chain) Balance(account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// ContractBalance returns the ETH held by the contract.
func (c *Chain) ContractBalance() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.state.balance)
}

// PendingCount returns the number of sent transactions not mined yet.
func (c *Chain) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Chain) credit(account common.Address, amount *big.Int) {
	b, ok := c.balances[account]
	if !ok {
		b = new(big.Int)
		c.balances[account] = b
	}
	b.Add(b, amount)
}

// Mine mines all pending transactions into one block.
func (c *Chain) Mine() {
	c.mu.Lock()
	logs := c.mineLocked()
	c.mu.Unlock()
	c.publish(logs)
}

func (c *Chain) mineLocked() []types.Log {
	if len(c.pending) == 0 {
		return nil
	}
	c.block++
	var published []types.Log
	for i, tx := range c.pending {
		receipt := c.apply(tx, uint(i))
		for _, l := range receipt.Logs {
			published = append(published, *l)
		}
	}
	c.pending = nil
	c.now = c.now.Add(12 * time.Second)
	return published
}

func (c *Chain) apply(tx *types.Transaction, index uint) *types.Receipt {
	from, _ := types.Sender(types.LatestSignerForChainID(ChainID), tx)
	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		GasUsed:           21_000,
		CumulativeGasUsed: 21_000,
		BlockNumber:       new(big.Int).SetUint64(c.block),
		TransactionIndex:  index,
		Logs:              []*types.Log{},
	}

	value := tx.Value()
	if value == nil {
		value = new(big.Int)
	}
	cl := &call{from: from, value: value, now: c.now, commit: true}
	var err error
	if c.failNext != "" {
		err = c.reasonError(c.failNext)
		c.failNext = ""
	} else {
		_, err = c.run(cl, tx.Data())
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		c.failures[c.block] = err
	} else {
		for _, l := range cl.logs {
			l.BlockNumber = c.block
			l.TxHash = tx.Hash()
			l.TxIndex = index
			l.Index = uint(len(c.logs))
			c.logs = append(c.logs, *l)
			receipt.Logs = append(receipt.Logs, l)
		}
		c.oracle.afterBlock()
	}
	c.receipts[tx.Hash()] = receipt
	return receipt
}

// run dispatches calldata to the contract.
func (c *Chain) run(cl *call, data []byte) ([]byte, error) {
	if len(data) == 0 {
		// receive()
		if cl.commit {
			c.state.balance.Add(c.state.balance, cl.value)
		}
		return nil, nil
	}
	if len(data) < 4 {
		return nil, c.reasonError("invalid calldata")
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, c.reasonError("unknown selector")
	}
	if !method.IsPayable() && cl.value.Sign() != 0 {
		return nil, c.reasonError("non-payable method")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, c.reasonError(fmt.Sprintf("invalid arguments: %v", err))
	}
	out, err := c.state.execute(cl, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// RevertError is returned by the chain for reverted calls, the way a JSON-RPC
// node reports them.
type RevertError struct {
	reason string
	data   []byte
}

func (e *RevertError) Error() string {
	if e.reason != "" {
		return "execution reverted: " + e.reason
	}
	return "execution reverted"
}

func (e *RevertError) ErrorCode() int {
	return 3
}

func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}

func (c *Chain) customError(name string) error {
	e, ok := c.abi.Errors[name]
	if !ok {
		panic(fmt.Sprintf("unknown custom error %s", name))
	}
	return &RevertError{data: append([]byte{}, e.ID[:4]...)}
}

func (c *Chain) reasonError(reason string) error {
	stringType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &RevertError{reason: reason, data: append(append([]byte{}, errorSelector...), packed...)}
}

func (c *Chain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if account == c.address {
		return contractCode, nil
	}
	return nil, nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.callErr != nil {
		return nil, c.callErr
	}
	if blockNumber != nil {
		if err, ok := c.failures[blockNumber.Uint64()]; ok {
			return nil, err
		}
	}
	if msg.To == nil || *msg.To != c.address {
		return nil, nil
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	return c.run(&call{from: msg.From, value: value, now: c.now}, msg.Data)
}

func (c *Chain) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &types.Header{
		Number:   new(big.Int).SetUint64(c.block),
		Time:     uint64(c.now.Unix()),
		GasLimit: 30_000_000,
	}, nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (c *Chain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := types.Sender(types.LatestSignerForChainID(ChainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	c.mu.Lock()
	if c.sendErr != nil {
		c.mu.Unlock()
		return c.sendErr
	}
	if tx.Nonce() != c.nonces[from] {
		expected := c.nonces[from]
		c.mu.Unlock()
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), expected)
	}
	c.nonces[from]++
	c.pending = append(c.pending, tx)
	var logs []types.Log
	if c.autoMine {
		logs = c.mineLocked()
	}
	c.mu.Unlock()

	c.publish(logs)
	return nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *Chain) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []types.Log
	for _, l := range c.logs {
		if matches(query, l) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

func (c *Chain) SubscribeFilterLogs(_ context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub := &logSub{query: query, ch: ch, quit: make(chan struct{})}
	c.subsMu.Lock()
	c.subs[sub] = struct{}{}
	c.subsMu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		c.subsMu.Lock()
		delete(c.subs, sub)
		c.subsMu.Unlock()
		close(sub.quit)
		return nil
	}), nil
}

func (c *Chain) publish(logs []types.Log) {
	if len(logs) == 0 {
		return
	}
	c.subsMu.Lock()
	subs := make([]*logSub, 0, len(c.subs))
	for sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subsMu.Unlock()

	for _, sub := range subs {
		for _, l := range logs {
			if !matches(sub.query, l) {
				continue
			}
			select {
			case sub.ch <- l:
			case <-sub.quit:
			}
		}
	}
}

func matches(query ethereum.FilterQuery, l types.Log) bool {
	if query.FromBlock != nil && l.BlockNumber < query.FromBlock.Uint64() {
		return false
	}
	if query.ToBlock != nil && l.BlockNumber > query.ToBlock.Uint64() {
		return false
	}
	if len(query.Addresses) > 0 {
		found := false
		for _, a := range query.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range query.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, t := range alternatives {
			if t == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Account is a funded test account.
type Account struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewAccount generates a fresh account.
func NewAccount() Account {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return Account{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Signer returns a signer for the account on the in-memory chain.
func (a Account) Signer() *contract.KeyedSigner {
	signer, err := contract.NewKeyedSigner(a.Key, ChainID)
	if err != nil {
		panic(err)
	}
	return signer
}

// ErrUnknownEvidence is returned by the oracle for evidence ids never submitted.
var ErrUnknownEvidence = errors.New("unknown evidence")
