package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/fhe"
)

const (
	pathKeyURL        = "/v1/keyurl"
	pathEncrypt       = "/v1/input-proof"
	pathPublicDecrypt = "/v1/public-decrypt"

	maxResponseSize = 4 << 20
)

// Config configures the relayer gateway client.
type Config struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	APIKey  string        `mapstructure:"api-key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum number of requests per second, 0 disables limiting.
	RateLimit float64 `mapstructure:"rate-limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
	// BreakerFailures is the number of consecutive failures that open the circuit.
	BreakerFailures uint32 `mapstructure:"breaker-failures" validate:"gt=0"`
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration `mapstructure:"breaker-timeout" validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		URL:             "https://relayer.testnet.zama.cloud",
		Timeout:         30 * time.Second,
		RateLimit:       10,
		Burst:           5,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Client talks to a relayer gateway over HTTP.
type Client struct {
	log     zerolog.Logger
	base    *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ fhe.Client = (*Client)(nil)

// NewFactory returns a factory that creates a client and checks that the
// gateway serves the public key material before handing it out.
func NewFactory(log zerolog.Logger, config Config) fhe.Factory {
	return func(ctx context.Context) (fhe.Client, error) {
		client, err := New(log, config)
		if err != nil {
			return nil, err
		}
		err = client.checkKeys(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func New(log zerolog.Logger, config Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid relayer url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported relayer url scheme %q", base.Scheme)
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		log:     log.With().Str("component", "fhe_relayer").Logger(),
		base:    base,
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fhe_relayer",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("relayer circuit breaker state changed")
		},
	})
	return c, nil
}

func (c *Client) checkKeys(ctx context.Context) error {
	var resp keyURLResponse
	err := c.do(ctx, http.MethodGet, pathKeyURL, nil, &resp)
	if err != nil {
		return fmt.Errorf("could not fetch key material: %w", err)
	}
	if len(resp.Response.FheKeyInfo) == 0 {
		return errors.New("relayer did not return any public key")
	}
	return nil
}

func (c *Client) Encrypt(ctx context.Context, contract common.Address, user common.Address, values []fhe.Plaintext) (*fhe.Ciphertexts, error) {
	req := encryptRequest{
		ContractAddress: contract.Hex(),
		UserAddress:     user.Hex(),
		Values:          make([]plaintextValue, 0, len(values)),
	}
	for _, v := range values {
		req.Values = append(req.Values, plaintextValue{Type: v.Kind.String(), Value: v.Big().String()})
	}

	var resp encryptResponse
	err := c.do(ctx, http.MethodPost, pathEncrypt, req, &resp)
	if err != nil {
		return nil, err
	}

	handles, err := decodeHandles(resp.Handles)
	if err != nil {
		return nil, err
	}
	proof, err := hexutil.Decode(resp.InputProof)
	if err != nil {
		return nil, fmt.Errorf("invalid input proof: %w", err)
	}
	return &fhe.Ciphertexts{Handles: handles, InputProof: proof}, nil
}

func (c *Client) PublicDecrypt(ctx context.Context, handles []bounzy.Handle) (*fhe.Decryption, error) {
	req := publicDecryptRequest{CiphertextHandles: make([]string, 0, len(handles))}
	for _, h := range handles {
		req.CiphertextHandles = append(req.CiphertextHandles, h.Hex())
	}

	var resp publicDecryptResponse
	err := c.do(ctx, http.MethodPost, pathPublicDecrypt, req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.ClearValues) == 0 {
		return &fhe.Decryption{}, nil
	}

	decryption := &fhe.Decryption{ClearValues: make(map[bounzy.Handle]*big.Int, len(resp.ClearValues))}
	for rawHandle, rawValue := range resp.ClearValues {
		h, err := bounzy.HexToHandle(rawHandle)
		if err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(rawValue, 0)
		if !ok {
			return nil, fmt.Errorf("invalid clear value %q for handle %s", rawValue, rawHandle)
		}
		decryption.ClearValues[h] = v
	}
	decryption.AbiEncodedClearValues, err = hexutil.Decode(resp.AbiEncodedClearValues)
	if err != nil {
		return nil, fmt.Errorf("invalid abi encoded clear values: %w", err)
	}
	decryption.DecryptionProof, err = hexutil.Decode(resp.DecryptionProof)
	if err != nil {
		return nil, fmt.Errorf("invalid decryption proof: %w", err)
	}
	return decryption, nil
}

// clientError is a 4xx response. It is returned to the caller without
// counting as a breaker failure.
type clientError struct {
	status  int
	message string
}

func (e *clientError) Error() string {
	return fmt.Sprintf("relayer rejected request (%d): %s", e.status, e.message)
}

func (e *clientError) Unwrap() error {
	if e.status == http.StatusBadRequest || e.status == http.StatusUnprocessableEntity {
		return fhe.ErrInvalidInput
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
	}

	var rejected *clientError
	start := time.Now()
	_, err = c.breaker.Execute(func() (interface{}, error) {
		var reqErr error
		rejected, reqErr = c.roundTrip(ctx, method, path, payload, out)
		return nil, reqErr
	})
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("relayer request")
	if err != nil {
		return err
	}
	if rejected != nil {
		return rejected
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, payload []byte, out interface{}) (*clientError, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &clientError{status: resp.StatusCode, message: e.Message}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relayer returned status %d", resp.StatusCode)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return nil, nil
}

func decodeHandles(raw []string) ([]bounzy.Handle, error) {
	handles := make([]bounzy.Handle, 0, len(raw))
	for _, r := range raw {
		h, err := bounzy.HexToHandle(r)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
