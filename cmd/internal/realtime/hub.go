package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/0xORB/blog-website/cmd/internal/social"
)

// Hub tracks the live connections of each user and fans events out to them.
// It implements social.Notifier.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	users map[int64]map[string]*Client
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		users: make(map[int64]map[string]*Client),
	}
}

// Register adds a client under its user.
func (h *Hub) Register(c *Client) {
	if h == nil || c == nil || c.ConnID == "" {
		return
	}

	h.mu.Lock()
	conns := h.users[c.UserID]
	if conns == nil {
		conns = make(map[string]*Client)
		h.users[c.UserID] = conns
	}
	conns[c.ConnID] = c
	h.mu.Unlock()

	h.log.Info("realtime.client.register", "user_id", c.UserID, "conn_id", c.ConnID)
}

// Unregister removes the client, then signals it to stop. Removing first
// means no publisher still holds it while it is torn down.
func (h *Hub) Unregister(c *Client) {
	if h == nil || c == nil {
		return
	}

	h.mu.Lock()
	if conns := h.users[c.UserID]; conns != nil {
		delete(conns, c.ConnID)
		if len(conns) == 0 {
			delete(h.users, c.UserID)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.log.Info("realtime.client.unregister", "user_id", c.UserID, "conn_id", c.ConnID)
}

// Connections returns how many live clients userID has.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Publish delivers a graph event to every connection of userID.
func (h *Hub) Publish(userID int64, ev social.Event) {
	var typ string
	switch ev.Type {
	case social.EventFollowCreated:
		typ = TypeFollowCreated
	case social.EventFollowRemoved:
		typ = TypeFollowRemoved
	default:
		return
	}

	payload, err := json.Marshal(FollowPayload{
		FollowerID:       ev.FollowerID,
		FollowerUsername: ev.FollowerUsername,
	})
	if err != nil {
		return
	}
	h.Broadcast(userID, Envelope{
		V:       Version,
		Type:    typ,
		ID:      NewEnvelopeID(ev.At),
		TS:      ev.At,
		Payload: payload,
	})
}

// Broadcast fans env out to userID's clients.
// Non-blocking: a full queue or a closing client drops the envelope.
func (h *Hub) Broadcast(userID int64, env Envelope) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.users[userID] {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			h.log.Warn("realtime.send.drop", "user_id", userID, "conn_id", c.ConnID, "type", env.Type)
		}
	}
}
