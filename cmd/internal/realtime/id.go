package realtime

import (
	"time"

	"github.com/0xORB/blog-website/cmd/identity/ids"
)

// NewConnID returns a ULID naming one websocket connection.
func NewConnID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewEnvelopeID returns a ULID used as envelope id.
// ULID is preferable to random hex for tracing and ordering in logs.
func NewEnvelopeID(now time.Time) string {
	id, err := ids.NewULID(now)
	if err != nil {
		return ""
	}
	return id
}
