package contract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrReverted is wrapped by every RevertError.
	ErrReverted = errors.New("execution reverted")

	// custom errors declared by the contract
	ErrNotCampaignOwner       = errors.New("caller is not the campaign owner")
	ErrCampaignNotActive      = errors.New("campaign is not active")
	ErrInvalidCampaignId      = errors.New("invalid campaign id")
	ErrInsufficientBountyPool = errors.New("insufficient bounty pool")

	// ErrSignatureRejected is returned when the signer refused to sign. It is a
	// normal, recoverable outcome.
	ErrSignatureRejected = errors.New("signature rejected")

	// ErrNoSigner is returned for writes through a gateway without a key.
	ErrNoSigner = errors.New("no signing key configured")

	// ErrConfirmationTimeout is returned when a sent transaction was not mined
	// within the configured timeout. The transaction may still be mined later.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

	// ErrTransactionFailed is returned when a transaction was mined but failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrRead is wrapped by failures of view calls.
	ErrRead = errors.New("contract read failed")
)

var customErrors = map[string]error{
	"NotCampaignOwner":       ErrNotCampaignOwner,
	"CampaignNotActive":      ErrCampaignNotActive,
	"InvalidCampaignId":      ErrInvalidCampaignId,
	"InsufficientBountyPool": ErrInsufficientBountyPool,
}

// RevertError is a decoded contract revert.
type RevertError struct {
	// Name is the custom error name, "Error" for a revert reason string, or
	// empty if the revert data could not be decoded.
	Name string
	// Reason is the revert reason string, if any.
	Reason string
	Data   []byte

	sentinel error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s: %s", ErrReverted, e.Message())
}

// Message returns a human readable description of the revert.
func (e *RevertError) Message() string {
	switch {
	case e.sentinel != nil:
		return e.sentinel.Error()
	case e.Reason != "":
		return e.Reason
	case len(e.Data) > 0:
		return fmt.Sprintf("unknown revert data %s", hexutil.Encode(e.Data))
	default:
		return "no reason given"
	}
}

func (e *RevertError) Unwrap() []error {
	if e.sentinel != nil {
		return []error{ErrReverted, e.sentinel}
	}
	return []error{ErrReverted}
}

// decodeRevert extracts the revert from a call error. It returns nil if the
// error is not a revert, e.g. a network failure.
func decodeRevert(contractABI *abi.ABI, err error) *RevertError {
	if err == nil {
		return nil
	}
	var revert *RevertError
	if errors.As(err, &revert) {
		return revert
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := revertData(dataErr.ErrorData()); len(data) > 0 {
			return decodeRevertData(contractABI, data)
		}
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return &RevertError{Reason: strings.TrimSpace(strings.TrimPrefix(err.Error(), "execution reverted:"))}
	}
	return nil
}

func revertData(raw interface{}) []byte {
	switch v := raw.(type) {
	case string:
		data, err := hexutil.Decode(v)
		if err != nil {
			return nil
		}
		return data
	case []byte:
		return v
	default:
		return nil
	}
}

func decodeRevertData(contractABI *abi.ABI, data []byte) *RevertError {
	if len(data) < 4 {
		return &RevertError{Data: data}
	}
	for name, e := range contractABI.Errors {
		if bytes.Equal(e.ID[:4], data[:4]) {
			return &RevertError{Name: name, Data: data, sentinel: customErrors[name]}
		}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return &RevertError{Name: "Error", Reason: reason, Data: data}
	}
	return &RevertError{Data: data}
}
