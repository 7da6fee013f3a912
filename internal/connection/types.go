package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the lifecycle state of a Feed.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Control message events.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// ControlMessage is an outbound subscribe/unsubscribe request.
// Symbols is a comma-joined list, e.g. "USD/TRY,EUR/TRY".
type ControlMessage struct {
	Event   string `json:"event"`
	Symbols string `json:"symbols"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Push feed URL without credentials
	APIKey           string        // Appended as the apikey query parameter
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // How often to ping the server
	PingTimeout      time.Duration // Max time without pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     15 * time.Second,
		PingTimeout:      45 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// FeedConfig configures a Feed.
type FeedConfig struct {
	Name    string // Service label for logs and metrics ("rates", "stream")
	Client  ClientConfig
	Backoff BackoffConfig
}
