package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a WebSocket connection the session drives.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, payload []byte, err error)
	WriteMessage(messageType int, payload []byte) error
	WriteControl(messageType int, payload []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens a connection to the feed endpoint.
type Dialer func(ctx context.Context, url string) (Conn, error)

func newWebSocketDialer(handshakeTimeout time.Duration) Dialer {
	return func(ctx context.Context, url string) (Conn, error) {
		dialer := websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		}
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// isNormalClose reports whether err is a clean close handshake.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
