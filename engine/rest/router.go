package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bounzy/bounzy-go/module"
)

type route struct {
	Name    string
	Method  string
	Pattern string
	Handler ApiHandlerFunc
	// Code is the status of a successful response, 200 if unset.
	Code int
}

var Routes = []route{{
	Method:  http.MethodGet,
	Pattern: "/campaigns",
	Name:    "getCampaigns",
	Handler: GetCampaigns,
}, {
	Method:  http.MethodPost,
	Pattern: "/campaigns",
	Name:    "createCampaign",
	Handler: CreateCampaign,
	Code:    http.StatusCreated,
}, {
	Method:  http.MethodGet,
	Pattern: "/campaigns/{id}",
	Name:    "getCampaign",
	Handler: GetCampaign,
}, {
	Method:  http.MethodGet,
	Pattern: "/campaigns/{id}/evidence",
	Name:    "getCampaignEvidence",
	Handler: GetCampaignEvidence,
}, {
	Method:  http.MethodPost,
	Pattern: "/campaigns/{id}/fund",
	Name:    "fundCampaign",
	Handler: FundCampaign,
}, {
	Method:  http.MethodPost,
	Pattern: "/campaigns/{id}/deactivate",
	Name:    "deactivateCampaign",
	Handler: DeactivateCampaign,
}, {
	Method:  http.MethodPost,
	Pattern: "/campaigns/{id}/withdraw",
	Name:    "withdrawCampaignFunds",
	Handler: WithdrawCampaignFunds,
}, {
	Method:  http.MethodPost,
	Pattern: "/evidence",
	Name:    "submitEvidence",
	Handler: SubmitEvidence,
	Code:    http.StatusCreated,
}, {
	Method:  http.MethodGet,
	Pattern: "/evidence/{id}",
	Name:    "getEvidence",
	Handler: GetEvidence,
}, {
	Method:  http.MethodPost,
	Pattern: "/evidence/{id}/decryption-requests",
	Name:    "requestDecryption",
	Handler: RequestDecryption,
}, {
	Method:  http.MethodGet,
	Pattern: "/evidence/{id}/preview/{field}",
	Name:    "getPreview",
	Handler: GetPreview,
}, {
	Method:  http.MethodPost,
	Pattern: "/evidence/{id}/validate",
	Name:    "validateEvidence",
	Handler: ValidateEvidence,
}, {
	Method:  http.MethodPost,
	Pattern: "/evidence/{id}/decline",
	Name:    "declineEvidence",
	Handler: DeclineEvidence,
}, {
	Method:  http.MethodPost,
	Pattern: "/evidence/{id}/claim",
	Name:    "claimBounty",
	Handler: ClaimBounty,
}, {
	Method:  http.MethodGet,
	Pattern: "/evidence/{id}/declined-reason",
	Name:    "getDeclinedReason",
	Handler: GetDeclinedReason,
}, {
	Method:  http.MethodGet,
	Pattern: "/evidence/{id}/activities",
	Name:    "getActivities",
	Handler: GetActivities,
}, {
	Method:  http.MethodGet,
	Pattern: "/submitters/{address}/evidence",
	Name:    "getSubmitterEvidence",
	Handler: GetSubmitterEvidence,
}}

// NewRouter registers every route under /v1. The updates stream is served
// when a hub is given.
func NewRouter(logger zerolog.Logger, api API, hub *Hub, restCollector module.RestMetrics) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	v1SubRouter := router.PathPrefix("/v1").Subrouter()

	v1SubRouter.Use(RequestIDMiddleware())
	v1SubRouter.Use(LoggingMiddleware(logger))
	v1SubRouter.Use(MetricsMiddleware(restCollector))

	for _, r := range Routes {
		code := r.Code
		if code == 0 {
			code = http.StatusOK
		}
		h := NewHandler(logger, api, r.Handler, code)
		v1SubRouter.
			Methods(r.Method).
			Path(r.Pattern).
			Name(r.Name).
			Handler(h)
	}

	if hub != nil {
		v1SubRouter.
			Methods(http.MethodGet).
			Path("/updates").
			Name("updates").
			Handler(hub)
	}

	return router
}
