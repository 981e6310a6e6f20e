package rest

import (
	"math/big"
	"time"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
)

// GetCampaigns lists campaigns. With ?active=true only campaigns accepting
// submissions are returned. Campaigns that failed to load are left out as
// long as at least one loaded.
func GetCampaigns(r *Request, api API) (interface{}, error) {
	var (
		campaigns []*bounzy.Campaign
		err       error
	)
	if r.URL.Query().Get("active") == "true" {
		campaigns, err = api.ActiveCampaigns(r.Context())
	} else {
		campaigns, err = api.AllCampaigns(r.Context())
	}
	if err != nil && len(campaigns) == 0 {
		return nil, err
	}

	account := api.Account()
	response := make([]Campaign, len(campaigns))
	for i, campaign := range campaigns {
		response[i].Build(campaign, account)
	}
	return response, nil
}

func GetCampaign(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	campaign, err := api.Campaign(r.Context(), id)
	if err != nil {
		return nil, err
	}
	var response Campaign
	response.Build(campaign, api.Account())
	return response, nil
}

func GetCampaignEvidence(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	evidence, err := api.CampaignEvidence(r.Context(), id)
	if err != nil && len(evidence) == 0 {
		return nil, err
	}
	return evidenceList(evidence), nil
}

func CreateCampaign(r *Request, api API) (interface{}, error) {
	var req CreateCampaignRequest
	if err := r.Decode(&req); err != nil {
		return nil, NewBadRequestError(err)
	}
	pool := new(big.Int)
	if req.BountyPool != "" {
		var err error
		pool, err = bounzy.ParseEther(req.BountyPool)
		if err != nil {
			return nil, NewBadRequestError(err)
		}
	}

	id, receipt, err := api.CreateCampaign(r.Context(), lifecycle.NewCampaign{
		Name:        req.Name,
		MinSeverity: req.MinSeverity,
		Duration:    time.Duration(req.DurationDays) * 24 * time.Hour,
		BountyPool:  pool,
	})
	if err != nil {
		return nil, err
	}
	var response Receipt
	response.Build(receipt)
	response.CampaignID = id
	return response, nil
}

func FundCampaign(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	var req FundCampaignRequest
	if err := r.Decode(&req); err != nil {
		return nil, NewBadRequestError(err)
	}
	amount, err := bounzy.ParseEther(req.Amount)
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.FundCampaign(r.Context(), id, amount))
}

func DeactivateCampaign(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.DeactivateCampaign(r.Context(), id))
}

func WithdrawCampaignFunds(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.WithdrawCampaignFunds(r.Context(), id))
}

func receiptResponse(receipt *contract.Receipt, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	var response Receipt
	response.Build(receipt)
	return response, nil
}
