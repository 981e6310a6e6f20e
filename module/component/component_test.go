package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/component"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

func TestComponentManager_ReadyAndDone(t *testing.T) {
	started := make(chan struct{})
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			close(started)
			<-ctx.Done()
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ready() // calling twice is harmless
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(ctx)

	unittest.RequireCloseBefore(t, cm.Ready(), time.Second, "component not ready")
	unittest.RequireCloseBefore(t, started, time.Second, "worker not started")

	cancel()
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "no shutdown signal")
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "component not done")

	assert.PanicsWithValue(t, module.ErrMultipleStartup, func() { cm.Start(ctx) })
}

func TestComponentManager_PropagatesThrownError(t *testing.T) {
	expected := errors.New("fatal")
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ctx.Throw(expected)
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		Build()

	parent, errChan := irrecoverable.WithSignaler(context.Background())
	cm.Start(parent)

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, expected)
	case <-time.After(time.Second):
		t.Fatal("error was not propagated")
	}
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "component not done")
}
