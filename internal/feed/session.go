package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openvortex/wire-data/internal/wire"
)

// Session is a live connection to the wire feed. It owns exactly one
// WebSocket at a time, replacing it on every reconnect. All events are
// delivered through the Listener on the session's event goroutine.
type Session struct {
	cfg      Config
	logger   *slog.Logger
	listener Listener
	dial     Dialer
	delay    DelayFunc
	id       uuid.UUID

	// writeMu serializes outbound frames across the caller's
	// goroutine and the resubscribe replay.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      Conn
	connected bool
	running   bool
	firstOpen bool
	retryOff  bool
	stopCh    chan struct{}

	subs *registry
}

// Option configures a Session beyond its Config.
type Option func(*Session)

// WithDialer replaces the WebSocket dialer. Tests use this to drive
// the session against an in-memory connection.
func WithDialer(d Dialer) Option {
	return func(s *Session) {
		s.dial = d
	}
}

// WithDelayFunc replaces the reconnect delay computation.
func WithDelayFunc(f DelayFunc) Option {
	return func(s *Session) {
		s.delay = f
	}
}

// NewSession creates a feed session. A nil listener discards all
// events; a nil logger falls back to slog.Default.
func NewSession(cfg Config, listener Listener, logger *slog.Logger, opts ...Option) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.ReconnectMaxTries > MaxReconnectTries {
		logger.Warn("reconnect_max_tries above ceiling, clamping",
			"requested", cfg.ReconnectMaxTries,
			"ceiling", MaxReconnectTries,
		)
		cfg.ReconnectMaxTries = MaxReconnectTries
	}
	if cfg.ReconnectMaxTries < 0 {
		cfg.ReconnectMaxTries = 0
	}
	if cfg.ReconnectMaxDelay < 0 {
		logger.Warn("reconnect_max_delay below zero, clamping to 0")
		cfg.ReconnectMaxDelay = 0
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}

	s := &Session{
		cfg:       cfg,
		listener:  listener,
		id:        uuid.New(),
		firstOpen: true,
		subs:      newRegistry(),
	}
	s.logger = logger.With("session_id", s.id.String())
	s.dial = newWebSocketDialer(cfg.ConnectTimeout)
	s.delay = ExponentialDelay(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's identifier as used in its log fields.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Connect opens the connection and runs the event loop. In background
// mode the loop runs on its own goroutine and Connect returns
// immediately; otherwise it blocks until the loop stops. The loop ends
// on a clean close, on Stop/Close, on retry exhaustion, or when ctx is
// canceled.
func (s *Session) Connect(ctx context.Context, background bool) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.retryOff = false
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if background {
		go s.run(ctx, stopCh)
		return nil
	}
	s.run(ctx, stopCh)
	return nil
}

// IsConnected reports whether the connection is currently open.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Subscriptions returns the active subscriptions sorted by exchange
// then token — the order used for resubscribe replay.
func (s *Session) Subscriptions() []Subscription {
	return s.subs.all()
}

// Subscribe requests mode updates for one instrument and records the
// subscription for replay. A send failure closes the connection with a
// descriptive reason and is returned to the caller; the reconnect path
// replays the registry, so the caller does not need to retry.
func (s *Session) Subscribe(exchange string, token int32, mode wire.Mode) error {
	frame, err := wire.EncodeSubscribe(exchange, token, mode)
	if err != nil {
		return err
	}

	if err := s.send(frame); err != nil {
		s.closeWithReason(fmt.Sprintf("subscribe %s:%d failed: %v", exchange, token, err))
		return fmt.Errorf("subscribe %s:%d: %w", exchange, token, err)
	}

	s.subs.put(exchange, token, mode)
	return nil
}

// Unsubscribe stops updates for one instrument. The registry entry is
// removed unconditionally, even when the send fails.
func (s *Session) Unsubscribe(exchange string, token int32) error {
	frame, err := wire.EncodeUnsubscribe(exchange, token)
	if err != nil {
		return err
	}

	s.subs.remove(exchange, token)

	if err := s.send(frame); err != nil {
		s.closeWithReason(fmt.Sprintf("unsubscribe %s:%d failed: %v", exchange, token, err))
		return fmt.Errorf("unsubscribe %s:%d: %w", exchange, token, err)
	}
	return nil
}

// Close disables reconnection and closes the connection gracefully.
// A new Connect call is required to resume.
func (s *Session) Close() {
	s.stopRetry()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	deadline := time.Now().Add(s.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.logger.Debug("close frame send failed", "error", err)
	}
}

// Stop halts the event loop immediately, without the close handshake.
// No reconnection can occur past Stop.
func (s *Session) Stop() {
	s.stopRetry()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// run is the event loop: dial, serve, and decide retry vs give-up.
func (s *Session) run(ctx context.Context, stopCh <-chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	attempt := 0
	for {
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		conn, err := s.dial(dialCtx, s.endpointURL())
		cancel()

		if err == nil {
			// Established: the retry counter starts over.
			attempt = 0
			err = s.serve(ctx, stopCh, conn)
			if err == nil {
				s.listener.OnClose(s, nil)
				return
			}
			s.logger.Error("connection lost", "error", err)
			s.listener.OnError(s, err)
			s.listener.OnClose(s, err)
		} else {
			s.logger.Error("connect failed", "error", err)
			s.listener.OnError(s, err)
		}

		if s.stopRequested() || ctx.Err() != nil {
			return
		}

		attempt++
		if attempt > s.cfg.ReconnectMaxTries {
			s.logger.Warn("no more reconnection attempts",
				"max_tries", s.cfg.ReconnectMaxTries,
			)
			s.listener.OnNoReconnect(s)
			return
		}

		delay := s.delay(attempt)
		s.logger.Info("reconnecting", "attempt", attempt, "delay", delay)
		s.listener.OnReconnect(s, attempt)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// serve drives one connection until it closes. Returns nil for a clean
// shutdown (close handshake, Close/Stop, or ctx cancellation) and the
// causing error otherwise.
func (s *Session) serve(ctx context.Context, stopCh <-chan struct{}, conn Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	first := s.firstOpen
	s.firstOpen = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connected = false
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	s.listener.OnConnect(s)

	wd := newWatchdog(s.cfg.PingInterval)
	conn.SetPongHandler(func(string) error {
		wd.pongReceived(time.Now())
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepaliveLoop(conn, wd, done)
	go func() {
		// Unblock ReadMessage on external shutdown.
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopCh:
			conn.Close()
		case <-done:
		}
	}()

	if !first {
		if err := s.resubscribe(); err != nil {
			return err
		}
	}

	s.listener.OnOpen(s)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) || s.stopRequested() || ctx.Err() != nil {
				return nil
			}
			if wd.didAbort() {
				return ErrStaleConnection
			}
			return err
		}
		s.dispatch(messageType, payload)
	}
}

// keepaliveLoop pings every PingInterval and independently checks the
// pong deadline at the same cadence. Both schedules stop when the
// connection's serve call returns.
func (s *Session) keepaliveLoop(conn Conn, wd *watchdog, done <-chan struct{}) {
	sendPing := func() {
		wd.pingSent(time.Now())
		deadline := time.Now().Add(s.cfg.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			s.logger.Debug("ping send failed", "error", err)
		}
	}

	// First ping goes out as soon as the connection opens.
	sendPing()

	ping := time.NewTicker(s.cfg.PingInterval)
	check := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()
	defer check.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			sendPing()
		case <-check.C:
			if wd.expired(time.Now()) {
				s.logger.Warn("no pong received, dropping connection",
					"deadline", 2*s.cfg.PingInterval,
				)
				// Abort, not a close handshake; the read loop
				// surfaces the error and reconnection kicks in.
				conn.Close()
			}
		}
	}
}

// dispatch decodes one inbound frame and fans it out to the listener.
// Malformed packets and text payloads are dropped silently.
func (s *Session) dispatch(messageType int, payload []byte) {
	s.listener.OnMessage(s, messageType, payload)

	switch messageType {
	case websocket.BinaryMessage:
		for _, tick := range wire.DecodeFrame(payload) {
			s.listener.OnTick(s, tick)
		}
	case websocket.TextMessage:
		if update, ok := wire.DecodeText(payload); ok {
			s.listener.OnOrderUpdate(s, update)
		}
	}
}

// resubscribe replays every registry entry so the server re-establishes
// the subscriptions it lost with the previous connection.
func (s *Session) resubscribe() error {
	subs := s.subs.all()
	if len(subs) == 0 {
		return nil
	}

	s.logger.Info("resubscribing", "count", len(subs))
	for _, sub := range subs {
		frame, err := wire.EncodeSubscribe(sub.Exchange, sub.Token, sub.Mode)
		if err != nil {
			return err
		}
		if err := s.send(frame); err != nil {
			return fmt.Errorf("resubscribe %s:%d: %w", sub.Exchange, sub.Token, err)
		}
	}
	return nil
}

func (s *Session) send(frame []byte) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// closeWithReason closes the connection carrying a descriptive reason,
// leaving reconnection enabled.
func (s *Session) closeWithReason(reason string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	s.logger.Error("closing connection", "reason", reason)
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.logger.Debug("close frame send failed", "error", err)
	}
	conn.Close()
}

// stopRetry permanently suppresses reconnection for the current run.
func (s *Session) stopRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retryOff {
		return
	}
	s.retryOff = true
	if s.stopCh != nil {
		close(s.stopCh)
	}
}

func (s *Session) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryOff
}

func (s *Session) endpointURL() string {
	return s.cfg.Endpoint + "?auth_token=" + url.QueryEscape(s.cfg.AccessToken)
}
