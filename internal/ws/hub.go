// Package ws is the admin run-progress WebSocket hub, grounded on the
// teacher's notification websocket_hub.go: a single Hub goroutine owns the
// client registry and fans broadcast messages out to it, so the connection
// map is only modified from that goroutine; ConnectedClients reads it under
// the hub's lock.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/txdomain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// EventType enumerates the run-progress events broadcast to admin clients.
type EventType string

const (
	EventRunStarted  EventType = "run_started"
	EventRunFinished EventType = "run_finished"
)

// Event is the wire shape pushed to every connected admin client. There is
// no per-user scoping here (unlike the teacher, which targets individual
// users): every admin client watches every run, so broadcasts go to all
// connected clients.
type Event struct {
	Type      EventType        `json:"type"`
	RunType   txdomain.RunType `json:"run_type"`
	RunID     string           `json:"run_id,omitempty"`
	Status    string           `json:"status,omitempty"`
	Succeeded int              `json:"succeeded,omitempty"`
	Failed    int              `json:"failed,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Client wraps one admin's WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   uuid.UUID
}

// Hub maintains the set of connected admin clients and broadcasts
// run-progress events to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger

	mu sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run drives the hub's event loop. It must be started in its own goroutine
// before any client is registered. It has no shutdown signal and loops for
// the life of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("ws: client registered", zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("ws: client unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer: drop it rather than block the hub
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast marshals ev and queues it for every connected client.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("ws: failed to marshal event", zap.Error(err))
		return
	}
	h.broadcast <- payload
}

// ConnectedClients reports how many admin clients currently hold a connection.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunStarted and RunFinished implement scheduler.RunObserver, letting the
// cron scheduler (and the admin HTTP handlers for manually-triggered runs)
// push progress events through the same hub without depending on the
// scheduler package.
func (h *Hub) RunStarted(runType txdomain.RunType) {
	h.Broadcast(Event{Type: EventRunStarted, RunType: runType})
}

func (h *Hub) RunFinished(run *txdomain.ProcessingRun, err error) {
	ev := Event{Type: EventRunFinished}
	if run != nil {
		ev.RunType = run.Type
		ev.RunID = run.ID.String()
		ev.Status = string(run.Status)
		ev.Succeeded = run.SucceededCount
		ev.Failed = run.FailedCount
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.Broadcast(ev)
}

// Register attaches conn as a new client and spins up its read/write pumps.
// Callers (the admin HTTP handler's /ws endpoint) own the upgrade; Register
// takes ownership of the connection's lifecycle from there.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 16), id: uuid.New()}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// Admin clients are read-only observers; inbound messages (beyond
		// pong control frames) are not part of this protocol and are
		// discarded.
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
