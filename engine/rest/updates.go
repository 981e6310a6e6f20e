package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
)

// UpdatesConfig controls the websocket stream of phase changes.
type UpdatesConfig struct {
	// SendBufferSize is the number of updates queued per connection. A client
	// that falls further behind is disconnected.
	SendBufferSize int `mapstructure:"send-buffer-size" validate:"gt=0"`
	// PingPeriod is the interval of keepalive pings; it must be below PongWait.
	PingPeriod time.Duration `mapstructure:"ping-period" validate:"gt=0"`
	PongWait   time.Duration `mapstructure:"pong-wait" validate:"gtfield=PingPeriod"`
	WriteWait  time.Duration `mapstructure:"write-wait" validate:"gt=0"`
}

func DefaultUpdatesConfig() UpdatesConfig {
	return UpdatesConfig{
		SendBufferSize: 64,
		PingPeriod:     30 * time.Second,
		PongWait:       time.Minute,
		WriteWait:      10 * time.Second,
	}
}

// Hub pushes the phase changes observed by the watcher to websocket clients.
// Clients may restrict the stream with ?evidence=1,2,3.
type Hub struct {
	logger   zerolog.Logger
	config   UpdatesConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
}

var _ lifecycle.PhaseConsumer = (*Hub)(nil)

type subscriber struct {
	send   chan PhaseUpdate
	filter map[uint32]struct{}
	// done is closed when the hub drops the subscriber
	done chan struct{}
	once sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *subscriber) wants(evidenceID uint32) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[evidenceID]
	return ok
}

func NewHub(logger zerolog.Logger, config UpdatesConfig, allowedOrigins []string) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "rest_updates").Logger(),
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
		clients: make(map[*subscriber]struct{}),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// OnPhaseChange queues the change for every interested client without blocking.
func (h *Hub) OnPhaseChange(change lifecycle.PhaseChange) {
	var update PhaseUpdate
	update.Build(change)

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		if !s.wants(change.EvidenceID) {
			continue
		}
		select {
		case s.send <- update:
		default:
			h.logger.Warn().Uint32("evidence_id", change.EvidenceID).Msg("update client too slow, disconnecting")
			delete(h.clients, s)
			s.drop()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.clients {
		delete(h.clients, s)
		s.drop()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query().Get("evidence"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error(), string(lifecycle.KindInput), h.logger)
		return
	}

	s := &subscriber{
		send:   make(chan PhaseUpdate, h.config.SendBufferSize),
		filter: filter,
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		errorResponse(w, http.StatusServiceUnavailable, "server is shutting down", "", h.logger)
		return
	}
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[s] = struct{}{}
	h.mu.Unlock()

	h.serve(r.Context(), conn, s)
}

// serve runs a writer and a reader until either fails or the hub drops the
// client. The reader only handles control frames.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, s *subscriber) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, s)
		h.mu.Unlock()
	}()

	conn.SetReadLimit(512)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// closing the connection unblocks the reader
		defer conn.Close()
		return h.writeUpdates(gCtx, conn, s)
	})
	g.Go(func() error {
		if err := conn.SetReadDeadline(time.Now().Add(h.config.PongWait)); err != nil {
			return err
		}
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return err
			}
		}
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, websocket.ErrCloseSent) &&
		!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
		!errors.Is(err, errDropped) {
		h.logger.Debug().Err(err).Msg("update client disconnected")
	}
}

var errDropped = errors.New("client dropped")

func (h *Hub) writeUpdates(ctx context.Context, conn *websocket.Conn, s *subscriber) error {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "disconnected"),
				time.Now().Add(h.config.WriteWait))
			return errDropped
		case update := <-s.send:
			if err := conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait)); err != nil {
				return err
			}
			if err := conn.WriteJSON(update); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteWait)); err != nil {
				return err
			}
		}
	}
}

func parseFilter(raw string) (map[uint32]struct{}, error) {
	if raw == "" {
		return nil, nil
	}
	filter := make(map[uint32]struct{})
	for _, part := range strings.Split(raw, ",") {
		id, err := parseID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		filter[id] = struct{}{}
	}
	return filter, nil
}
