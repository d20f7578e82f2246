package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.config.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade error")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
	}
	s.clientsMutex.Lock()
	s.clients[conn] = client
	count := len(s.clients)
	s.clientsMutex.Unlock()
	s.logger.Debug(r.Context(), "Client connected", "clients", count)

	go client.writePump()
	client.readPump()
}

// unregister removes conn and reports whether it was still registered.
func (s *Server) unregister(conn *websocket.Conn) bool {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()

	client, ok := s.clients[conn]
	if ok {
		delete(s.clients, conn)
		close(client.send)
	}
	return ok
}

// broadcast queues message on every client. Clients that cannot keep up
// are dropped.
func (s *Server) broadcast(message []byte) {
	s.clientsMutex.RLock()
	var failedClients []*websocket.Conn
	for conn, client := range s.clients {
		select {
		case client.send <- message:
		default:
			// Client's send channel is full, mark for removal
			failedClients = append(failedClients, conn)
		}
	}
	s.clientsMutex.RUnlock()

	for _, conn := range failedClients {
		if s.unregister(conn) {
			conn.Close(websocket.StatusPolicyViolation, "client too slow")
		}
	}
}

// readPump discards client messages until the connection ends. Reading is
// required for control frames to be processed.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister(c.conn)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.server.logger.Debug(ctx, "WebSocket closed", "error", err.Error())
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.server.logger.Debug(ctx, "WebSocket write error", "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
