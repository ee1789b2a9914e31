package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Message is an event pushed to every connected dashboard.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	At     time.Time      `json:"at"`
	Extra  map[string]any `json:"extra,omitempty"`

	// region scopes delivery to clients watching that region.
	region string
}

// NewMessage creates a Message whose Type is entity_action.
func NewMessage(entity, action string, extra map[string]any) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		At:     time.Now().UTC(),
		Extra:  extra,
	}
}

// BatchGenerated announces a finished generation batch.
func BatchGenerated(region, period string, count int, seed int64) Message {
	msg := NewMessage("batch", "generated", map[string]any{
		"region": region,
		"period": period,
		"count":  count,
		"seed":   seed,
	})
	msg.region = region
	return msg
}

// wants reports whether c subscribed to msg. Unscoped clients and unscoped
// messages always match.
func (c *Client) wants(msg Message) bool {
	return c.region == "" || msg.region == "" || strings.EqualFold(c.region, msg.region)
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client. It reports false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg for every interested client and returns how many
// accepted it. Clients with a full buffer miss the message.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			h.logger.Debug("client buffer full, message dropped", "type", msg.Type)
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
