package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
)

func TestToStatusError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   lifecycle.Kind
	}{
		{"in flight", lifecycle.ErrActionInFlight, http.StatusConflict, lifecycle.KindConflict},
		{"not decryptable", fmt.Errorf("evidence 1: %w", lifecycle.ErrNotDecryptable), http.StatusAccepted, lifecycle.KindNotReady},
		{"invalid input", lifecycle.ErrInvalidInput, http.StatusBadRequest, lifecycle.KindInput},
		{"unknown id", fmt.Errorf("%w: getEvidence: %w", contract.ErrRead, contract.ErrReverted), http.StatusNotFound, lifecycle.KindInput},
		{"revert", contract.ErrReverted, http.StatusUnprocessableEntity, lifecycle.KindTransaction},
		{"rejected", contract.ErrSignatureRejected, http.StatusUnprocessableEntity, lifecycle.KindTransaction},
		{"relayer init", fhe.ErrInitialization, http.StatusServiceUnavailable, lifecycle.KindInitialization},
		{"rpc", fmt.Errorf("%w: dial tcp", contract.ErrRead), http.StatusBadGateway, lifecycle.KindRead},
		{"encryption", fhe.ErrEncryption, http.StatusBadGateway, lifecycle.KindEncryption},
		{"canceled", context.Canceled, http.StatusRequestTimeout, lifecycle.KindCanceled},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			statusErr := toStatusError(c.err)
			assert.Equal(t, c.status, statusErr.Status())
			assert.Equal(t, c.kind, statusErr.Kind())
			assert.Equal(t, c.err.Error(), statusErr.UserMessage())
			assert.ErrorIs(t, statusErr, c.err)
		})
	}

	t.Run("unknown errors are not leaked", func(t *testing.T) {
		statusErr := toStatusError(errors.New("secret"))
		assert.Equal(t, http.StatusInternalServerError, statusErr.Status())
		assert.Equal(t, "internal server error", statusErr.UserMessage())
	})

	t.Run("status errors pass through", func(t *testing.T) {
		notFound := NewNotFoundError("no such thing", errors.New("missing"))
		assert.Same(t, notFound, toStatusError(fmt.Errorf("wrapped: %w", notFound)))
	})
}
