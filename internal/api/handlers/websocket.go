package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wicketwise/crickcast/backend/internal/apierr"
	"github.com/wicketwise/crickcast/backend/internal/decision"
	"github.com/wicketwise/crickcast/backend/internal/logger"
	"github.com/wicketwise/crickcast/backend/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware handles origin policy
		return true
	},
}

// WebSocketMessage is the framing for every message sent to clients.
type WebSocketMessage struct {
	Type    string `json:"type"` // "decision", "subscribed", "ping"
	Payload any    `json:"payload"`
}

// wsClient is one connected decision-stream subscriber.
type wsClient struct {
	hub      *DecisionHub
	conn     *websocket.Conn
	send     chan []byte
	matchKey string
}

// DecisionHub fans accepted decision emissions out to websocket
// subscribers, keyed by match. Suppressed evaluations are never
// broadcast; subscribers only see signals that cleared the noise
// filter.
type DecisionHub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	emissions  chan emission
	stop       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

type emission struct {
	matchKey string
	data     []byte
}

// NewDecisionHub creates a hub; callers must start Run.
func NewDecisionHub() *DecisionHub {
	return &DecisionHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		emissions:  make(chan emission, 256),
		stop:       make(chan struct{}),
	}
}

// Run is the hub's main loop; it returns when Stop is called.
func (h *DecisionHub) Run() {
	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("decision stream client connected", "match_key", client.matchKey, "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnections.Dec()
				logger.Info("decision stream client disconnected", "total_clients", len(h.clients))
			}
			h.mu.Unlock()

		case em := <-h.emissions:
			h.mu.Lock()
			sent := 0
			for client := range h.clients {
				if client.matchKey != em.matchKey {
					continue
				}
				select {
				case client.send <- em.data:
					sent++
				default:
					// Send buffer full, drop the client
					close(client.send)
					delete(h.clients, client)
					metrics.WebSocketConnections.Dec()
				}
			}
			h.mu.Unlock()
			metrics.WebSocketMessagesSent.Add(float64(sent))
		}
	}
}

// Stop shuts the hub down.
func (h *DecisionHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Publish queues an accepted decision payload for the match's
// subscribers. Non-blocking; if the hub is saturated the emission is
// dropped rather than stalling the evaluation path.
func (h *DecisionHub) Publish(payload *decision.Payload) {
	msg := WebSocketMessage{Type: "decision", Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("failed to marshal decision broadcast", "error", err)
		return
	}
	select {
	case h.emissions <- emission{matchKey: payload.MatchKey, data: data}:
	default:
		logger.Warn("decision hub emission buffer full, dropping broadcast", "match_key", payload.MatchKey)
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("decision stream unexpected close", "error", err)
			}
			break
		}
	}
}

func (c *wsClient) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// DecisionStream upgrades the connection and subscribes it to one
// match's accepted emissions.
// GET /ws/decisions?match_key=
func DecisionStream(hub *DecisionHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchKey := r.URL.Query().Get("match_key")
		if matchKey == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("match_key"))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("failed to upgrade decision stream", "error", err)
			return
		}

		client := &wsClient{
			hub:      hub,
			conn:     conn,
			send:     make(chan []byte, 64),
			matchKey: matchKey,
		}
		hub.register <- client

		ack := WebSocketMessage{
			Type:    "subscribed",
			Payload: map[string]string{"match_key": matchKey},
		}
		if data, err := json.Marshal(ack); err == nil {
			select {
			case client.send <- data:
			default:
			}
		}

		go client.writePump()
		go client.readPump()
	}
}
