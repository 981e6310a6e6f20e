package rest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// maxBodySize bounds request bodies. Evidence files are hashed in memory.
const maxBodySize = 8 << 20

var validate = validator.New()

// Request wraps an incoming request with accessors for its path variables.
type Request struct {
	*http.Request
	vars map[string]string
}

func newRequest(r *http.Request) *Request {
	return &Request{
		Request: r,
		vars:    mux.Vars(r),
	}
}

func (r *Request) GetVar(name string) string {
	return r.vars[name]
}

// ID parses the id path variable. Campaign and evidence ids start at 1.
func (r *Request) ID() (uint32, error) {
	return parseID(r.GetVar("id"))
}

func (r *Request) Field() (bounzy.Field, error) {
	return bounzy.ParseField(r.GetVar("field"))
}

func (r *Request) Address() (common.Address, error) {
	raw := r.GetVar("address")
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// Decode reads the JSON body into v and validates it.
func (r *Request) Decode(v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body must not be empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ID %q", raw)
	}
	return uint32(id), nil
}

// parseHash parses a hex encoded 256-bit evidence hash. Leading zero bytes
// are allowed.
func parseHash(raw string) (*uint256.Int, error) {
	raw = strings.TrimPrefix(raw, "0x")
	if len(raw) == 0 || len(raw) > 64 {
		return nil, fmt.Errorf("evidence hash must be 1 to 32 hex encoded bytes")
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("evidence hash is not hex encoded: %w", err)
	}
	return new(uint256.Int).SetBytes(b), nil
}

type CreateCampaignRequest struct {
	Name         string `json:"name" validate:"required,max=128"`
	MinSeverity  uint8  `json:"min_severity" validate:"min=1,max=10"`
	DurationDays uint64 `json:"duration_days" validate:"min=1"`
	// BountyPool is in ether, e.g. "0.1".
	BountyPool string `json:"bounty_pool"`
}

type FundCampaignRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// SubmitEvidenceRequest carries either the hash of the evidence file or the
// file itself, which is then hashed here.
type SubmitEvidenceRequest struct {
	CampaignID  uint32 `json:"campaign_id" validate:"min=1"`
	Hash        string `json:"hash" validate:"required_without=File"`
	File        []byte `json:"file" validate:"required_without=Hash"`
	Severity    uint8  `json:"severity" validate:"min=1,max=10"`
	Description string `json:"description" validate:"max=32"`
}

type DecryptionRequest struct {
	Field string `json:"field" validate:"required,oneof=severity description bounty"`
}

type ValidateRequest struct {
	// Bounty is in ether.
	Bounty string `json:"bounty" validate:"required"`
}

type DeclineRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}
