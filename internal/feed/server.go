package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/outcome-exchange/internal/config"
)

// Server exposes the hub over a WebSocket endpoint. Clients connect to
// the configured path and optionally pass ?market=<uuid> to receive a
// single market's events.
type Server struct {
	cfg    config.FeedConfig
	hub    *Hub
	logger *slog.Logger

	upgrader websocket.Upgrader
	srv      *http.Server

	wg sync.WaitGroup
}

// NewServer creates a feed server backed by hub.
func NewServer(cfg config.FeedConfig, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed is public market data; no origin restriction.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleFeed)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully and waits
// for client goroutines to drain.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	s.logger.Info("feed server listening", "addr", s.srv.Addr, "path", s.cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("feed server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("feed server shutdown", "error", err)
	}
	s.hub.Close()
	s.wg.Wait()
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy","subscribers":%d}`+"\n", s.hub.Subscribers())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	marketID := uuid.Nil
	if raw := r.URL.Query().Get("market"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid market id", http.StatusBadRequest)
			return
		}
		marketID = id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sub := s.hub.Subscribe(marketID)
	s.logger.Debug("feed subscriber connected",
		"remote", r.RemoteAddr,
		"market", marketID,
	)

	done := make(chan struct{})

	s.wg.Add(2)
	go s.readLoop(conn, sub, done)
	go s.writeLoop(conn, sub, done)
}

// readLoop consumes inbound frames so control messages are processed and
// a client disconnect tears the subscription down.
func (s *Server) readLoop(conn *websocket.Conn, sub *Subscription, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer s.hub.Unsubscribe(sub)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * s.cfg.PingInterval))
	})
	conn.SetReadDeadline(time.Now().Add(3 * s.cfg.PingInterval))
	conn.SetReadLimit(512)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop drains the subscription queue onto the wire and keeps the
// connection alive with pings.
func (s *Server) writeLoop(conn *websocket.Conn, sub *Subscription, done chan struct{}) {
	defer s.wg.Done()
	defer conn.Close()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	msgCh := make(chan Message)
	go func() {
		defer close(msgCh)
		for {
			msg, ok := sub.Next()
			if !ok {
				return
			}
			select {
			case msgCh <- msg:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-msgCh:
			if !ok {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second),
				)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("feed write failed", "error", err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
