// Package constants holds the defaults shared by the archivesync library and
// its CLI: server endpoints, timeouts, the reconnect policy and websocket
// keepalive limits.
package constants

import "time"

// Server endpoints
const (
	// DefaultServerURL is the query API base URL used when none is configured
	DefaultServerURL = "http://localhost:8080"

	// WebSocketPath is appended to the server URL to reach change notifications
	WebSocketPath = "/ws/"
)

// Timeouts
const (
	// DefaultHTTPTimeout bounds one query API request
	DefaultHTTPTimeout = 30 * time.Second

	// QueryRetryElapsed bounds the total time spent retrying one query API GET
	QueryRetryElapsed = 30 * time.Second

	// DialTimeout bounds the websocket handshake
	DialTimeout = 10 * time.Second

	// ResyncTimeout bounds a snapshot fetch triggered by a reconnect
	ResyncTimeout = 15 * time.Second

	// ShutdownTimeout is how long the CLI waits for the connection loop to exit
	ShutdownTimeout = 5 * time.Second
)

// Reconnect policy
const (
	ReconnectInitialInterval = 500 * time.Millisecond
	ReconnectMaxInterval     = 30 * time.Second
	ReconnectMultiplier      = 2.0
	ReconnectJitter          = 0.2
)

// Websocket keepalive, matching the server hub
const (
	// WriteWait is the time allowed to write a control message
	WriteWait = 10 * time.Second

	// PongWait is how long the server waits for a pong before dropping us
	PongWait = 60 * time.Second

	// PingPeriod must be less than PongWait
	PingPeriod = (PongWait * 9) / 10

	// MaxFrameSize is the largest accepted inbound frame in bytes
	MaxFrameSize = 1 << 20
)

// FilePermissions is used for log files (rw-r--r--)
const FilePermissions = 0o644
