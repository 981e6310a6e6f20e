package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

func (c *Client) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.signer.Address()}
	err := c.bound.Call(opts, &out, method, params...)
	if err != nil {
		if revert := decodeRevert(&c.abi, err); revert != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, method, revert)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, method, err)
	}
	return out, nil
}

func (c *Client) Campaign(ctx context.Context, campaignID uint32) (*bounzy.Campaign, error) {
	out, err := c.call(ctx, "getCampaign", campaignID)
	if err != nil {
		return nil, err
	}
	return &bounzy.Campaign{
		ID:            campaignID,
		Owner:         *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Name:          *abi.ConvertType(out[1], new(string)).(*string),
		BountyPool:    *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		ExpiryDate:    unixTime(*abi.ConvertType(out[3], new(*big.Int)).(**big.Int)),
		EvidenceCount: *abi.ConvertType(out[4], new(uint32)).(*uint32),
		Active:        *abi.ConvertType(out[5], new(bool)).(*bool),
	}, nil
}

func (c *Client) Evidence(ctx context.Context, evidenceID uint32) (*bounzy.Evidence, error) {
	out, err := c.call(ctx, "getEvidence", evidenceID)
	if err != nil {
		return nil, err
	}
	status, err := bounzy.ParseStatus(*abi.ConvertType(out[2], new(uint8)).(*uint8))
	if err != nil {
		return nil, fmt.Errorf("%w: evidence %d: %w", ErrRead, evidenceID, err)
	}
	return &bounzy.Evidence{
		ID:                     evidenceID,
		CampaignID:             *abi.ConvertType(out[0], new(uint32)).(*uint32),
		Submitter:              *abi.ConvertType(out[1], new(common.Address)).(*common.Address),
		Status:                 status,
		Timestamp:              unixTime(*abi.ConvertType(out[3], new(*big.Int)).(**big.Int)),
		SeverityDecryptable:    *abi.ConvertType(out[4], new(bool)).(*bool),
		BountyDecryptable:      *abi.ConvertType(out[5], new(bool)).(*bool),
		DescriptionDecryptable: *abi.ConvertType(out[6], new(bool)).(*bool),
	}, nil
}

func (c *Client) CampaignCounter(ctx context.Context) (uint32, error) {
	return c.callUint32(ctx, "campaignCounter")
}

func (c *Client) EvidenceCounter(ctx context.Context) (uint32, error) {
	return c.callUint32(ctx, "evidenceCounter")
}

func (c *Client) SubmitterEvidenceIDs(ctx context.Context, submitter common.Address) ([]uint32, error) {
	return c.callIDs(ctx, "getSubmitterEvidenceIds", submitter)
}

func (c *Client) CampaignEvidenceIDs(ctx context.Context, campaignID uint32) ([]uint32, error) {
	return c.callIDs(ctx, "getCampaignEvidenceIds", campaignID)
}

func (c *Client) ActiveCampaigns(ctx context.Context) ([]uint32, error) {
	return c.callIDs(ctx, "getActiveCampaigns")
}

func (c *Client) EvidenceSeverityHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error) {
	return c.callHandle(ctx, "getEvidenceSeverityHandle", evidenceID)
}

func (c *Client) EvidenceBountyHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error) {
	return c.callHandle(ctx, "getEvidenceBountyHandle", evidenceID)
}

func (c *Client) DescriptionHandle(ctx context.Context, evidenceID uint32) (bounzy.Handle, error) {
	return c.callHandle(ctx, "getDescriptionHandle", evidenceID)
}

func (c *Client) DeclinedReason(ctx context.Context, evidenceID uint32) (string, error) {
	out, err := c.call(ctx, "getDeclinedReason", evidenceID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (c *Client) callUint32(ctx context.Context, method string, params ...interface{}) (uint32, error) {
	out, err := c.call(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint32)).(*uint32), nil
}

func (c *Client) callIDs(ctx context.Context, method string, params ...interface{}) ([]uint32, error) {
	out, err := c.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	ids := *abi.ConvertType(out[0], new([]uint32)).(*[]uint32)
	if ids == nil {
		ids = []uint32{}
	}
	return ids, nil
}

func (c *Client) callHandle(ctx context.Context, method string, params ...interface{}) (bounzy.Handle, error) {
	out, err := c.call(ctx, method, params...)
	if err != nil {
		return bounzy.Handle{}, err
	}
	return bounzy.Handle(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func unixTime(seconds *big.Int) time.Time {
	if seconds == nil || !seconds.IsInt64() {
		return time.Time{}
	}
	return time.Unix(seconds.Int64(), 0)
}
