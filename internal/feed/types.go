package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrAlreadyRunning  = errors.New("session already running")
	ErrStaleConnection = errors.New("connection stale (no pong)")
)

// Defaults and hard limits.
const (
	DefaultEndpoint = "wss://wire.asthatrade.com/ws"

	// MaxReconnectTries is the ceiling on ReconnectMaxTries; larger
	// requested values are clamped, not rejected.
	MaxReconnectTries = 50

	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultConnectTimeout     = 30 * time.Second
	DefaultWriteTimeout       = 5 * time.Second

	// DefaultPingInterval is the keepalive cadence. A connection with
	// no pong for twice this interval is dropped.
	DefaultPingInterval = 2500 * time.Millisecond
)

// Config configures a feed Session.
type Config struct {
	Endpoint    string // WebSocket URL (default wss://wire.asthatrade.com/ws)
	AccessToken string // Opaque token from the REST login, sent as auth_token query param

	// ReconnectMaxTries is how many consecutive failed attempts are
	// made before giving up. 0 disables reconnection entirely.
	// Values above MaxReconnectTries are clamped.
	ReconnectMaxTries int

	ReconnectMaxDelay  time.Duration // Upper bound on backoff delay (floor 0)
	ReconnectBaseDelay time.Duration // First backoff delay; doubles per attempt
	ConnectTimeout     time.Duration // WebSocket handshake timeout
	WriteTimeout       time.Duration // Write deadline for outbound frames
	PingInterval       time.Duration // Keepalive ping cadence
}

// DefaultConfig returns a Config with reconnection enabled at the
// maximum retry ceiling, matching the server's recommended settings.
func DefaultConfig(accessToken string) Config {
	return Config{
		Endpoint:           DefaultEndpoint,
		AccessToken:        accessToken,
		ReconnectMaxTries:  MaxReconnectTries,
		ReconnectMaxDelay:  DefaultReconnectMaxDelay,
		ReconnectBaseDelay: DefaultReconnectBaseDelay,
		ConnectTimeout:     DefaultConnectTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		PingInterval:       DefaultPingInterval,
	}
}
