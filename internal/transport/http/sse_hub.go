package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/application"
)

// Client represents a connected SSE client.
type Client struct {
	userID string
	send   chan []byte
}

// Hub manages all active SSE client connections.
// Each user may have several streams open, one per browser tab.
type Hub struct {
	mu      sync.RWMutex
	clients map[string][]*Client // userID -> clients
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string][]*Client)}
}

// Register adds a new SSE client.
func (h *Hub) Register(userID string, send chan []byte) *Client {
	c := &Client{userID: userID, send: send}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = append(h.clients[userID], c)

	log.Debug().Str("user", userID).Msg("SSE client connected")
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.userID]
	updated := make([]*Client, 0, len(clients))
	for _, existing := range clients {
		if existing != c {
			updated = append(updated, existing)
		}
	}
	if len(updated) == 0 {
		delete(h.clients, c.userID)
	} else {
		h.clients[c.userID] = updated
	}

	log.Debug().Str("user", c.userID).Msg("SSE client disconnected")
}

// Broadcast sends a feed change to all connected SSE clients of a user.
// This satisfies the application.Hub interface.
func (h *Hub) Broadcast(userID string, change application.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.clients[userID]
	if len(clients) == 0 {
		return
	}

	msg, err := buildSSEMessage(change.Kind, change.Payload)
	if err != nil {
		log.Error().Err(err).Str("kind", change.Kind).Msg("encode SSE message")
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// Client is slow/disconnected, skip
			log.Warn().Str("user", userID).Msg("SSE client send buffer full, skipping")
		}
	}
}

// ConnectedCount returns the total number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// buildSSEMessage formats a payload as a named SSE event frame.
func buildSSEMessage(event string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + event + "\ndata: " + string(b) + "\n\n"), nil
}
