package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/fhe"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

// gatedDecrypts holds every public decryption until release is closed and
// records whether the context was still alive when it resumed.
type gatedDecrypts struct {
	lifecycle.Encryptor
	started chan struct{}
	release chan struct{}

	mu       sync.Mutex
	ctxErrs  []error
	startOne sync.Once
}

func (g *gatedDecrypts) PublicDecrypt(ctx context.Context, handle bounzy.Handle) (*fhe.Decryption, error) {
	g.startOne.Do(func() { close(g.started) })
	<-g.release
	g.mu.Lock()
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.mu.Unlock()
	return g.Encryptor.PublicDecrypt(ctx, handle)
}

func (s *LifecycleSuite) TestPreview_CanceledCallerDoesNotFailOthers() {
	id := s.underReview(6)

	gated := &gatedDecrypts{
		Encryptor: s.adapter(),
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	o := s.orchestratorWith(s.gateway(s.ownerAccount.Signer()), gated)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.Preview(firstCtx, id, bounzy.FieldSeverity)
		firstErr <- err
	}()
	unittest.RequireCloseBefore(s.T(), gated.started, time.Second, "decryption did not start")

	type outcome struct {
		preview *lifecycle.Preview
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		preview, err := o.Preview(context.Background(), id, bounzy.FieldSeverity)
		second <- outcome{preview, err}
	}()
	// let the second preview join the running decryption
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		s.Require().Error(err)
		s.True(errors.Is(err, context.Canceled))
		s.Equal(lifecycle.KindCanceled, lifecycle.Classify(err))
	case <-time.After(time.Second):
		s.FailNow("canceled preview did not return")
	}

	close(gated.release)
	select {
	case got := <-second:
		s.Require().NoError(got.err)
		s.Equal(int64(6), got.preview.Value.Int64())
	case <-time.After(time.Second):
		s.FailNow("second preview did not return")
	}

	gated.mu.Lock()
	defer gated.mu.Unlock()
	s.Require().NotEmpty(gated.ctxErrs)
	for _, err := range gated.ctxErrs {
		s.NoError(err, "shared decryption ran on a canceled context")
	}
}
