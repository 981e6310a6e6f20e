package irrecoverable

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrow_DeliversFirstError(t *testing.T) {
	ctx, errChan := WithSignaler(context.Background())
	first := errors.New("first")

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx.Throw(first)
		t.Error("throw must not return")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not exit")
	}

	go ctx.Throw(errors.New("second"))

	select {
	case err := <-errChan:
		assert.Equal(t, first, err)
	case <-time.After(time.Second):
		t.Fatal("no error received")
	}
}

func TestException(t *testing.T) {
	base := errors.New("corrupted value")
	err := fmt.Errorf("could not decode: %w", NewExceptionf("decode failed: %w", base))

	require.True(t, IsException(err))
	require.ErrorIs(t, err, base)
	assert.False(t, IsException(base))
}
