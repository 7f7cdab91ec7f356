package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Defaults applied when the corresponding Config fields are zero.
const (
	DefaultReconnectInterval = 3 * time.Second
	DefaultPingInterval      = 25 * time.Second
	DefaultReadTimeout       = 75 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	defaultMessageBuffer     = 64
	maxFrameBytes            = 1 << 20
)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Config holds the session tunables. Zero values select the defaults; a
// negative PingInterval or ReadTimeout disables that mechanism.
type Config struct {
	// ReconnectInterval is the fixed delay before the single reconnect
	// attempt that follows an ungraceful close.
	ReconnectInterval time.Duration
	// IntentionalCloseCode marks a close as deliberate; it suppresses
	// reconnects. Defaults to 1000 (normal closure).
	IntentionalCloseCode int
	// PingInterval is how often an application-level {"type":"ping"} is sent.
	PingInterval time.Duration
	// ReadTimeout bounds the silence tolerated on an open socket. The backend
	// sends a heartbeat every 30s when idle.
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
	// MessageBuffer is the capacity of the Messages channel.
	MessageBuffer int
	Header        http.Header
	Dialer        Dialer
	Logger        zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.IntentionalCloseCode == 0 {
		c.IntentionalCloseCode = websocket.CloseNormalClosure
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.MessageBuffer <= 0 {
		c.MessageBuffer = defaultMessageBuffer
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.HandshakeTimeout,
		}
	}
	return c
}
