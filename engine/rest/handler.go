package rest

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// ApiHandlerFunc is a function that contains endpoint handling logic. It
// fetches necessary resources through the API and returns the response
// model, or an error.
type ApiHandlerFunc func(r *Request, api API) (interface{}, error)

// Handler is the base handler of every route. It parses the request, calls
// the handler function and writes the response or the mapped error.
type Handler struct {
	logger         zerolog.Logger
	api            API
	apiHandlerFunc ApiHandlerFunc
	// successCode is written with a successful response.
	successCode int
}

func NewHandler(logger zerolog.Logger, api API, handlerFunc ApiHandlerFunc, successCode int) *Handler {
	return &Handler{
		logger:         logger,
		api:            api,
		apiHandlerFunc: handlerFunc,
		successCode:    successCode,
	}
}

// ServeHTTP function acts as a wrapper to each request providing common
// handling of responses and errors.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	errLog := h.logger.With().Str("request_url", r.URL.String()).Logger()

	response, err := h.apiHandlerFunc(newRequest(r), h.api)
	if err != nil {
		h.errorHandler(w, err, errLog)
		return
	}

	h.jsonResponse(w, h.successCode, response, errLog)
}

func (h *Handler) errorHandler(w http.ResponseWriter, err error, errorLogger zerolog.Logger) {
	statusErr := toStatusError(err)
	if statusErr.Status() >= http.StatusInternalServerError {
		errorLogger.Error().Err(err).Str("kind", string(statusErr.Kind())).Msg("request failed")
	} else {
		errorLogger.Debug().Err(err).Str("kind", string(statusErr.Kind())).Msg("request rejected")
	}
	errorResponse(w, statusErr.Status(), statusErr.UserMessage(), string(statusErr.Kind()), errorLogger)
}

// jsonResponse builds a JSON response and send it to the client
func (h *Handler) jsonResponse(w http.ResponseWriter, code int, response interface{}, errLogger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	encodedResponse, err := json.Marshal(response)
	if err != nil {
		errLogger.Error().Err(err).Msg("failed to encode response")
		errorResponse(w, http.StatusInternalServerError, "error generating response", "", errLogger)
		return
	}

	w.WriteHeader(code)
	_, err = w.Write(encodedResponse)
	if err != nil {
		errLogger.Error().Err(err).Msg("failed to write http response")
	}
}

// errorResponse sends an HTTP error response to the client with the given
// return code and a model error with the given response message in the
// response body
func errorResponse(w http.ResponseWriter, returnCode int, responseMessage string, kind string, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(returnCode)
	modelError := ModelError{
		Code:    int32(returnCode),
		Message: responseMessage,
		Kind:    kind,
	}
	encodedError, err := json.Marshal(modelError)
	if err != nil {
		logger.Error().Str("response_message", responseMessage).Msg("failed to json encode error message")
		return
	}
	_, err = w.Write(encodedError)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send error response")
	}
}
