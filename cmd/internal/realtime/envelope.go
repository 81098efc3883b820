package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Version is the envelope version spoken on the blog.events.v1 subprotocol.
const Version = 1

// Envelope types.
const (
	TypeReady         = "ready"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeError         = "error"
	TypeFollowCreated = "follow.created"
	TypeFollowRemoved = "follow.removed"
)

// Envelope is one frame in either direction.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields every inbound frame must carry.
func (e Envelope) Validate() error {
	if e.V != Version {
		return errors.New("unsupported version")
	}
	if e.Type == "" {
		return errors.New("missing type")
	}
	return nil
}

// ReadyPayload greets a freshly connected client.
type ReadyPayload struct {
	ConnID   string `json:"conn_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// FollowPayload tells a user that someone followed or unfollowed them.
type FollowPayload struct {
	FollowerID       int64  `json:"follower_id"`
	FollowerUsername string `json:"follower_username"`
}

// ErrorPayload reports a rejected client frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
