package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is pushed to a user's open clients: either a reminder alert or a
// notice that one of their records changed.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`
	Action string `json:"action,omitempty"`
	ID     string `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
}

// NewMessage creates a change notice with the Type derived from entity and action.
func NewMessage(entity, action, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// NewReminder creates a reminder alert message.
func NewReminder(title, body string) Message {
	return Message{Type: "reminder", Title: title, Body: body}
}

// Hub tracks the open WebSocket clients of every user.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// SendToUser queues msg on every client of userID and returns how many
// accepted it. A client whose buffer is full is skipped.
func (h *Hub) SendToUser(userID int64, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
			sent++
		default:
			// buffer full, drop rather than block
		}
	}
	return sent
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserClientCount returns the number of open clients for one user.
func (h *Hub) UserClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
