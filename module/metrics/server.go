package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bounzy/bounzy-go/module/component"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
)

// Server serves the /metrics endpoint for prometheus.
type Server struct {
	component.Component
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a metrics server listening on the given port. The server
// runs as a component and shuts down when its context is cancelled.
func NewServer(log zerolog.Logger, port uint, gatherer prometheus.Gatherer) *Server {
	addr := ":" + strconv.Itoa(int(port))

	mux := http.NewServeMux()
	endpoint := "/metrics"
	mux.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	m := &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		log:    log.With().Str("component", "metrics_server").Logger(),
	}

	m.Component = component.NewComponentManagerBuilder().
		AddWorker(m.serve).
		Build()

	return m
}

func (m *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		ctx.Throw(err)
	}
	m.log.Info().Str("address", listener.Addr().String()).Msg("metrics server started")
	ready()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.server.Shutdown(shutdownCtx)
	}()

	err = m.server.Serve(listener)
	// http.ErrServerClosed is returned when Close or Shutdown is called
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		ctx.Throw(err)
	}
	m.log.Debug().Msg("metrics server shutdown")
}
