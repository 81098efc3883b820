package realtime

import "time"

const (
	// Clients only send pings, so frames stay small.
	maxFrameBytes = 4 << 10 // 4 KiB

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection inbound limits (events per window).
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
