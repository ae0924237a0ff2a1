// Package ws is the subscriber-facing realtime transport: it upgrades HTTP
// connections to websockets, feeds subscribe/disconnect events into the core
// and implements the core's outbound push sink.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
)

const writeTimeout = 10 * time.Second

// SessionHandler receives the session lifecycle events the transport emits.
// Both methods must be safe for concurrent invocation.
type SessionHandler interface {
	OnSubscribe(connectionID, entityID string, since int64) error
	OnDisconnect(connectionID string) error
}

// subscribeRequest is the single inbound message type subscribers send.
type subscribeRequest struct {
	Action   string `json:"action"`
	EntityID string `json:"entity_id"`
	Since    int64  `json:"since"`
}

// errorMessage is sent back when an inbound message cannot be honored.
type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Hub tracks the live websocket connections and routes payloads to them.
type Hub struct {
	upgrader websocket.Upgrader
	conns    cmap.ConcurrentMap[string, *connection]
	handler  SessionHandler
	queueLen int
	logger   zerolog.Logger
}

// NewHub creates a hub whose connections buffer up to queueLen outbound
// payloads before being dropped as slow consumers.
func NewHub(queueLen int, logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:    cmap.New[*connection](),
		queueLen: queueLen,
		logger:   logger,
	}
}

// SetSessionHandler wires the core in. Must be called before the hub serves
// its first connection.
func (h *Hub) SetSessionHandler(handler SessionHandler) {
	h.handler = handler
}

// ServeHTTP upgrades the request and runs the connection until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &connection{
		id:     uuid.New().String(),
		socket: socket,
		send:   make(chan []byte, h.queueLen),
		done:   make(chan struct{}),
		hub:    h,
	}
	h.conns.Set(c.id, c)
	h.logger.Info().Str("connection_id", c.id).Msg("Subscriber connected")

	go c.writePump()
	c.readPump()
}

// PushEvent enqueues a live event payload for the connection. It never
// blocks: a full queue drops the connection instead.
func (h *Hub) PushEvent(connectionID string, push models.LivePush) error {
	return h.enqueue(connectionID, push)
}

// PushBackfill enqueues the catch-up payload for the connection.
func (h *Hub) PushBackfill(connectionID string, push models.BackfillPush) error {
	return h.enqueue(connectionID, push)
}

func (h *Hub) enqueue(connectionID string, payload any) error {
	c, ok := h.conns.Get(connectionID)
	if !ok {
		return fmt.Errorf("ws: no live connection %s", connectionID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: marshal payload: %w", err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("ws: connection %s is closed", connectionID)
	default:
		// Slow consumer: dropping the connection keeps the core from ever
		// waiting on a socket. The client reconnects and catches up via
		// backfill.
		h.logger.Warn().Str("connection_id", connectionID).Msg("Write queue full, dropping subscriber")
		go c.close()
		return fmt.Errorf("ws: connection %s write queue full", connectionID)
	}
}

// CloseAll tears down every live connection, used on shutdown.
func (h *Hub) CloseAll() {
	for item := range h.conns.IterBuffered() {
		item.Val.close()
	}
}

// connection is one subscriber socket with its outbound queue.
type connection struct {
	id        string
	socket    *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	hub       *Hub
}

// readPump consumes inbound messages until the socket drops, then tears the
// session down.
func (c *connection) readPump() {
	defer c.close()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug().Err(err).Str("connection_id", c.id).Msg("WebSocket read failed")
			}
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.reject("malformed message")
			continue
		}
		if req.Action != "subscribe" || req.EntityID == "" || req.Since < 0 {
			c.reject("expected {\"action\":\"subscribe\",\"entity_id\":...,\"since\":ms}")
			continue
		}

		if err := c.hub.handler.OnSubscribe(c.id, req.EntityID, req.Since); err != nil {
			c.hub.logger.Error().
				Err(err).
				Str("connection_id", c.id).
				Str("entity_id", req.EntityID).
				Msg("Subscribe failed")
			c.reject("subscribe failed")
		}
	}
}

// writePump serializes all socket writes for the connection.
func (c *connection) writePump() {
	for {
		select {
		case data := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// reject reports a bad inbound message back to the client.
func (c *connection) reject(reason string) {
	data, err := json.Marshal(errorMessage{Type: "error", Error: reason})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// close tears the connection down exactly once and notifies the core.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.hub.conns.Remove(c.id)
		close(c.done)
		c.socket.Close()
		if err := c.hub.handler.OnDisconnect(c.id); err != nil {
			c.hub.logger.Error().Err(err).Str("connection_id", c.id).Msg("Disconnect cleanup failed")
		}
		c.hub.logger.Info().Str("connection_id", c.id).Msg("Subscriber disconnected")
	})
}
