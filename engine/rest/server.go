package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/component"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
)

// Config is the configuration of the REST server.
type Config struct {
	ListenAddress  string        `mapstructure:"listen-address" validate:"required,hostname_port"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	WriteTimeout   time.Duration `mapstructure:"write-timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `mapstructure:"read-timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `mapstructure:"idle-timeout" validate:"gt=0"`
	Updates        UpdatesConfig `mapstructure:"updates"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddress:  "localhost:8080",
		AllowedOrigins: []string{"*"},
		WriteTimeout:   5 * time.Minute,
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		Updates:        DefaultUpdatesConfig(),
	}
}

// NewHTTPHandler returns the REST API handler with CORS applied.
func NewHTTPHandler(logger zerolog.Logger, api API, hub *Hub, allowedOrigins []string, restCollector module.RestMetrics) http.Handler {
	router := NewRouter(logger, api, hub, restCollector)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead},
	})
	return c.Handler(router)
}

// Server runs the REST API as a component. Transactions wait for their
// confirmation, so the write timeout must cover the confirmation timeout.
type Server struct {
	component.Component

	log    zerolog.Logger
	server *http.Server
	hub    *Hub

	addrMu sync.Mutex
	addr   net.Addr
}

func NewServer(logger zerolog.Logger, config Config, api API, hub *Hub, restCollector module.RestMetrics) *Server {
	s := &Server{
		log: logger.With().Str("component", "rest_server").Logger(),
		hub: hub,
		server: &http.Server{
			Addr:              config.ListenAddress,
			Handler:           NewHTTPHandler(logger, api, hub, config.AllowedOrigins, restCollector),
			WriteTimeout:      config.WriteTimeout,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
	}

	s.Component = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()

	return s
}

func (s *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		ctx.Throw(err)
		return
	}
	s.addrMu.Lock()
	s.addr = listener.Addr()
	s.addrMu.Unlock()

	s.log.Info().Str("address", listener.Addr().String()).Msg("rest server started")
	ready()

	go func() {
		<-ctx.Done()
		if s.hub != nil {
			s.hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("rest server shutdown incomplete")
		}
	}()

	err = s.server.Serve(listener)
	// http.ErrServerClosed is returned when Close or Shutdown is called
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		ctx.Throw(err)
	}
	s.log.Debug().Msg("rest server shutdown")
}

// Addr returns the address the server listens on once it is ready.
func (s *Server) Addr() net.Addr {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}
