package rest

import (
	"bytes"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/fhe"
)

func SubmitEvidence(r *Request, api API) (interface{}, error) {
	var req SubmitEvidenceRequest
	if err := r.Decode(&req); err != nil {
		return nil, NewBadRequestError(err)
	}

	evidence := lifecycle.NewEvidence{
		CampaignID:  req.CampaignID,
		Severity:    req.Severity,
		Description: req.Description,
	}
	var err error
	if req.Hash != "" {
		evidence.Hash, err = parseHash(req.Hash)
	} else {
		evidence.Hash, err = fhe.HashEvidence(bytes.NewReader(req.File))
	}
	if err != nil {
		return nil, NewBadRequestError(err)
	}

	id, receipt, err := api.SubmitEvidence(r.Context(), evidence)
	if err != nil {
		return nil, err
	}
	var response Receipt
	response.Build(receipt)
	response.EvidenceID = id
	return response, nil
}

// GetEvidence returns the evidence item with its phase and the actions
// available to this client.
func GetEvidence(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	view, err := api.Refresh(r.Context(), id)
	if err != nil {
		return nil, err
	}
	var response View
	response.Build(view)
	return response, nil
}

func GetSubmitterEvidence(r *Request, api API) (interface{}, error) {
	submitter, err := r.Address()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	evidence, err := api.SubmitterEvidence(r.Context(), submitter)
	if err != nil && len(evidence) == 0 {
		return nil, err
	}
	return evidenceList(evidence), nil
}

func RequestDecryption(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	var req DecryptionRequest
	if err := r.Decode(&req); err != nil {
		return nil, NewBadRequestError(err)
	}
	field, err := bounzy.ParseField(req.Field)
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.RequestDecryption(r.Context(), id, field))
}

// GetPreview returns the cleartext of a field. A field that is not yet
// decryptable is answered with 202 Accepted.
func GetPreview(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	field, err := r.Field()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	preview, err := api.Preview(r.Context(), id, field)
	if err != nil {
		return nil, err
	}
	var response Preview
	response.Build(preview)
	return response, nil
}

func ValidateEvidence(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	var req ValidateRequest
	if err := r.Decode(&req); err != nil {
		return nil, NewBadRequestError(err)
	}
	bounty, err := bounzy.ParseEther(req.Bounty)
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.Validate(r.Context(), id, bounty))
}

// DeclineEvidence accepts an empty body, which declines with the default reason.
func DeclineEvidence(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	var req DeclineRequest
	if r.ContentLength != 0 {
		if err := r.Decode(&req); err != nil {
			return nil, NewBadRequestError(err)
		}
	}
	return receiptResponse(api.Decline(r.Context(), id, req.Reason))
}

func ClaimBounty(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	return receiptResponse(api.Claim(r.Context(), id))
}

func GetDeclinedReason(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	reason, err := api.DeclinedReason(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return DeclinedReason{EvidenceID: id, Reason: reason}, nil
}

// GetActivities returns the transactions this client sent for the evidence
// item, oldest first.
func GetActivities(r *Request, api API) (interface{}, error) {
	id, err := r.ID()
	if err != nil {
		return nil, NewBadRequestError(err)
	}
	activities, err := api.Activities(id)
	if err != nil {
		return nil, err
	}
	response := make([]Activity, len(activities))
	for i, activity := range activities {
		response[i].Build(activity)
	}
	return response, nil
}

func evidenceList(evidence []bounzy.Evidence) []Evidence {
	response := make([]Evidence, len(evidence))
	for i := range evidence {
		response[i].Build(&evidence[i])
	}
	return response
}
