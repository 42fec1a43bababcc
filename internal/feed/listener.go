package feed

import "github.com/openvortex/wire-data/internal/wire"

// Listener receives session events. All methods run on the session's
// event goroutine and must not block it indefinitely.
//
// Order per connection: OnConnect when the socket is established,
// OnOpen after any resubscribe replay has been sent, then OnMessage
// followed by OnTick or OnOrderUpdate for each inbound frame. On an
// abnormal close OnError fires before OnClose; a clean close fires
// OnClose alone. OnReconnect fires once before each retry wait with
// the 1-based attempt count; OnNoReconnect fires once when the retry
// ceiling is exhausted and the session stops.
type Listener interface {
	OnConnect(s *Session)
	OnOpen(s *Session)
	OnClose(s *Session, err error)
	OnError(s *Session, err error)

	// OnMessage sees every inbound frame raw, before decoding.
	// messageType is the WebSocket frame type (text or binary).
	OnMessage(s *Session, messageType int, payload []byte)

	// OnTick receives each decoded tick from binary frames.
	OnTick(s *Session, tick wire.Tick)

	// OnOrderUpdate receives decoded order events from text frames.
	OnOrderUpdate(s *Session, update wire.OrderUpdate)

	OnReconnect(s *Session, attempt int)
	OnNoReconnect(s *Session)
}

// NopListener implements Listener with no-ops. Embed it to handle a
// subset of events.
type NopListener struct{}

func (NopListener) OnConnect(*Session)                       {}
func (NopListener) OnOpen(*Session)                          {}
func (NopListener) OnClose(*Session, error)                  {}
func (NopListener) OnError(*Session, error)                  {}
func (NopListener) OnMessage(*Session, int, []byte)          {}
func (NopListener) OnTick(*Session, wire.Tick)               {}
func (NopListener) OnOrderUpdate(*Session, wire.OrderUpdate) {}
func (NopListener) OnReconnect(*Session, int)                {}
func (NopListener) OnNoReconnect(*Session)                   {}
