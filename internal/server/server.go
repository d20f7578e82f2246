// Package server exposes rendered content models, distilled configuration
// and a live invalidation feed over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/renderer"
	"github.com/conneroisu/tessera/internal/version"
	"github.com/conneroisu/tessera/internal/watcher"
)

// Config holds the listener settings
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	// Metrics is served at /metrics when set
	Metrics http.Handler
}

// Server serves component models and live invalidation notices
type Server struct {
	config      Config
	renderer    *renderer.ComponentRenderer
	resolver    *configuration.Resolver
	logger      logging.Logger
	httpServer  *http.Server
	serverMutex sync.RWMutex // Protects httpServer and isShutdown
	isShutdown  bool

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to live clients
type UpdateMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageInvalidated tells clients every cached model may be stale.
const MessageInvalidated = "invalidated"

// New creates a server
func New(cfg Config, r *renderer.ComponentRenderer, resolver *configuration.Resolver, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		config:   cfg,
		renderer: r,
		resolver: resolver,
		logger:   logger.WithComponent("server"),
		clients:  make(map[*websocket.Conn]*Client),
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /model/{type...}", s.handleModel)
	mux.HandleFunc("GET /render/{type...}", s.handleRender)
	mux.HandleFunc("GET /config/{type...}", s.handleConfig)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.config.Metrics != nil {
		mux.Handle("GET /metrics", s.config.Metrics)
	}
	return chain(mux, s.logRequests, s.cors, s.recoverPanics)
}

// Start listens until ctx is done or Shutdown is called
func (s *Server) Start(ctx context.Context) error {
	s.serverMutex.Lock()
	if s.isShutdown {
		s.serverMutex.Unlock()
		return http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer // Get local copy for safe access
	s.serverMutex.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Shutdown after context end")
		}
	}()

	s.logger.Info(ctx, "Server listening", "addr", server.Addr, "version", version.GetShortVersion())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// InvalidateAll implements watcher.Invalidator by notifying live clients.
func (s *Server) InvalidateAll() {
	s.broadcastMessage(UpdateMessage{Type: MessageInvalidated, Timestamp: time.Now()})
}

// ClientCount returns the number of connected live clients
func (s *Server) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message")
		return
	}
	s.broadcast(data)
}

// Shutdown gracefully shuts down the server, closing live connections
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.Lock()
		s.isShutdown = true
		server := s.httpServer
		s.serverMutex.Unlock()

		s.clientsMutex.Lock()
		clients := s.clients
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		for conn, client := range clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}

		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				shutdownErr = fmt.Errorf("server shutdown: %w", err)
			}
		}
	})
	return shutdownErr
}

func (s *Server) shuttingDown() bool {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.isShutdown
}

var _ watcher.Invalidator = (*Server)(nil)
