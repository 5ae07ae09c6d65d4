package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/metrics"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth already ran; the API is origin-agnostic.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errChannelFull = errors.New("websocket send buffer full")

// wsChannel adapts one websocket connection to the notify.Channel
// interface. Writes go through a buffered channel drained by a single
// writer goroutine, so Send never blocks the dispatcher.
type wsChannel struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues a payload for delivery. A full buffer means the client
// stopped reading; the payload is dropped and an error returned.
func (c *wsChannel) Send(payload []byte) error {
	select {
	case <-c.done:
		return errors.New("websocket closed")
	case c.send <- payload:
		return nil
	default:
		return errChannelFull
	}
}

// writePump drains the send buffer onto the connection and keeps the
// connection alive with pings. It exits when a write fails or the
// channel is closed.
func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects. The
// protocol is push only; reading is needed to process control frames.
func (c *wsChannel) readPump() {
	defer close(c.done)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleWebSocket upgrades the connection and registers it as a live
// notification channel for the authenticated user until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	ch := newWSChannel(conn)
	s.registry.Register(userID, ch)
	metrics.OpenConnections.Inc()
	slog.Info("WebSocket connected", "user_id", userID)

	go ch.writePump()
	ch.readPump()

	s.registry.Unregister(userID, ch)
	metrics.OpenConnections.Dec()
	slog.Info("WebSocket disconnected", "user_id", userID)
}
