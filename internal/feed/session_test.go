package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openvortex/wire-data/internal/wire"
)

var errConnDropped = errors.New("connection dropped")

type readResult struct {
	messageType int
	payload     []byte
	err         error
}

// fakeConn is an in-memory Conn with scripted reads and recorded writes.
type fakeConn struct {
	reads     chan readResult
	closeCh   chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	writes     [][]byte
	failWrites bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:   make(chan readResult, 16),
		closeCh: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.reads:
		return r.messageType, r.payload, r.err
	case <-c.closeCh:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(messageType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write failed")
	}
	c.writes = append(c.writes, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error)         {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	return nil
}

func (c *fakeConn) deliver(messageType int, payload []byte) {
	c.reads <- readResult{messageType: messageType, payload: payload}
}

func (c *fakeConn) drop() {
	c.reads <- readResult{err: errConnDropped}
}

func (c *fakeConn) setFailWrites(fail bool) {
	c.mu.Lock()
	c.failWrites = fail
	c.mu.Unlock()
}

func (c *fakeConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// scriptDialer hands out fake connections, optionally failing a number
// of dials first.
type scriptDialer struct {
	mu       sync.Mutex
	failures int
	conns    []*fakeConn
}

func (d *scriptDialer) dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *scriptDialer) setFailures(n int) {
	d.mu.Lock()
	d.failures = n
	d.mu.Unlock()
}

func (d *scriptDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// recordingListener pushes every event onto a channel in arrival order.
type recordingListener struct {
	NopListener
	events chan string

	mu      sync.Mutex
	ticks   []wire.Tick
	updates []wire.OrderUpdate
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan string, 128)}
}

func (l *recordingListener) OnConnect(*Session)          { l.events <- "connect" }
func (l *recordingListener) OnOpen(*Session)             { l.events <- "open" }
func (l *recordingListener) OnClose(*Session, error)     { l.events <- "close" }
func (l *recordingListener) OnError(*Session, error)     { l.events <- "error" }
func (l *recordingListener) OnReconnect(_ *Session, attempt int) {
	l.events <- fmt.Sprintf("reconnect:%d", attempt)
}
func (l *recordingListener) OnNoReconnect(*Session) { l.events <- "noreconnect" }

func (l *recordingListener) OnTick(_ *Session, tick wire.Tick) {
	l.mu.Lock()
	l.ticks = append(l.ticks, tick)
	l.mu.Unlock()
	l.events <- "tick"
}

func (l *recordingListener) OnOrderUpdate(_ *Session, update wire.OrderUpdate) {
	l.mu.Lock()
	l.updates = append(l.updates, update)
	l.mu.Unlock()
	l.events <- "order"
}

// next returns the next event or fails the test after a timeout.
func (l *recordingListener) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-l.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

// expect asserts the next events in exact order.
func (l *recordingListener) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		if got := l.next(t); got != w {
			t.Fatalf("event = %q, want %q", got, w)
		}
	}
}

// expectNone asserts no event arrives within a short window.
func (l *recordingListener) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-l.events:
		t.Fatalf("unexpected event %q", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestSession(t *testing.T, cfg Config, l Listener, d *scriptDialer) *Session {
	t.Helper()
	return NewSession(cfg, l, nil,
		WithDialer(d.dial),
		WithDelayFunc(func(int) time.Duration { return 0 }),
	)
}

func TestNewSession_ClampsConfig(t *testing.T) {
	cfg := DefaultConfig("token")
	cfg.ReconnectMaxTries = 1000
	cfg.ReconnectMaxDelay = -time.Second

	s := NewSession(cfg, nil, nil)
	if s.cfg.ReconnectMaxTries != MaxReconnectTries {
		t.Errorf("ReconnectMaxTries = %d, want %d", s.cfg.ReconnectMaxTries, MaxReconnectTries)
	}
	if s.cfg.ReconnectMaxDelay != 0 {
		t.Errorf("ReconnectMaxDelay = %v, want 0", s.cfg.ReconnectMaxDelay)
	}
}

func TestSession_SubscribeWhileDisconnected(t *testing.T) {
	s := NewSession(DefaultConfig("token"), nil, nil)
	err := s.Subscribe(wire.ExchangeNSEEquity, 22, wire.ModeLTP)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe error = %v, want ErrNotConnected", err)
	}
}

func TestSession_ConnectTwice(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)
	defer s.Stop()

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	if err := s.Connect(context.Background(), true); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Connect error = %v, want ErrAlreadyRunning", err)
	}
}

func TestSession_SubscribeLifecycle(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	if !s.IsConnected() {
		t.Error("IsConnected = false after open")
	}

	if err := s.Subscribe(wire.ExchangeNSEEquity, 22, wire.ModeLTP); err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}
	if err := s.Subscribe(wire.ExchangeNSEEquity, 22, wire.ModeFull); err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}

	subs := s.Subscriptions()
	want := []Subscription{{Exchange: wire.ExchangeNSEEquity, Token: 22, Mode: wire.ModeFull}}
	if !reflect.DeepEqual(subs, want) {
		t.Errorf("Subscriptions() = %v, want %v", subs, want)
	}

	frames := d.conn(0).sentFrames()
	if len(frames) != 2 {
		t.Fatalf("sent frames = %d, want 2", len(frames))
	}
	var msg map[string]any
	if err := json.Unmarshal(frames[0], &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if msg["message_type"] != "subscribe" || msg["segment_id"] != "NSE_EQ" {
		t.Errorf("frame = %v, want subscribe for NSE_EQ", msg)
	}

	if err := s.Unsubscribe(wire.ExchangeNSEEquity, 22); err != nil {
		t.Fatalf("Unsubscribe error = %v", err)
	}
	if got := s.Subscriptions(); len(got) != 0 {
		t.Errorf("Subscriptions() after unsubscribe = %v, want empty", got)
	}

	s.Stop()
	l.expect(t, "close")
	if s.IsConnected() {
		t.Error("IsConnected = true after Stop")
	}
}

func TestSession_SubscribeSendFailure(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	cfg := DefaultConfig("token")
	cfg.ReconnectMaxTries = 0
	s := newTestSession(t, cfg, l, d)
	defer s.Stop()

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	d.conn(0).setFailWrites(true)
	err := s.Subscribe(wire.ExchangeNSEEquity, 22, wire.ModeLTP)
	if err == nil {
		t.Fatal("Subscribe error = nil, want send failure")
	}

	// The failed subscribe must not be recorded.
	if got := s.Subscriptions(); len(got) != 0 {
		t.Errorf("Subscriptions() = %v, want empty", got)
	}

	// The connection is torn down with a reason and, with retries
	// disabled, the session gives up.
	l.expect(t, "error", "close", "noreconnect")
}

func TestSession_DispatchTicksAndOrders(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)
	defer s.Stop()

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	tick := wire.Tick{Kind: wire.KindLTP, Exchange: "NSE_EQ", Token: 22, LastTradePrice: 1700.5}
	packet, err := wire.EncodePacket(tick)
	if err != nil {
		t.Fatalf("EncodePacket error = %v", err)
	}
	d.conn(0).deliver(websocket.BinaryMessage, wire.EncodeFrame(packet, packet))
	l.expect(t, "tick", "tick")

	// Heartbeat and malformed frames produce no events.
	d.conn(0).deliver(websocket.BinaryMessage, []byte{0x00})
	d.conn(0).deliver(websocket.TextMessage, []byte(`{"type":"order"}`))

	d.conn(0).deliver(websocket.TextMessage, []byte(`{"type":"order","data":{"id":"1"}}`))
	l.expect(t, "order")

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ticks) != 2 || l.ticks[0] != tick {
		t.Errorf("ticks = %v, want two copies of %v", l.ticks, tick)
	}
	if len(l.updates) != 1 || l.updates[0].Type != "order" {
		t.Errorf("updates = %v, want one order update", l.updates)
	}
}

func TestSession_ReconnectReplaysSubscriptions(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	cfg := DefaultConfig("token")
	cfg.ReconnectMaxTries = 10
	s := newTestSession(t, cfg, l, d)
	defer s.Stop()

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	if err := s.Subscribe(wire.ExchangeNSEFutures, 500, wire.ModeFull); err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}
	if err := s.Subscribe(wire.ExchangeNSEEquity, 22, wire.ModeLTP); err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}

	// Drop the connection; the next two dials fail, the third succeeds.
	d.setFailures(2)
	d.conn(0).drop()

	l.expect(t,
		"error", "close", "reconnect:1",
		"error", "reconnect:2",
		"error", "reconnect:3",
		"connect", "open",
	)

	// The replay went out before OnOpen, in registry order.
	frames := d.conn(1).sentFrames()
	if len(frames) != 2 {
		t.Fatalf("replayed frames = %d, want 2", len(frames))
	}
	wantFirst, _ := wire.EncodeSubscribe(wire.ExchangeNSEEquity, 22, wire.ModeLTP)
	wantSecond, _ := wire.EncodeSubscribe(wire.ExchangeNSEFutures, 500, wire.ModeFull)
	if !reflect.DeepEqual(frames[0], wantFirst) {
		t.Errorf("replay[0] = %s, want %s", frames[0], wantFirst)
	}
	if !reflect.DeepEqual(frames[1], wantSecond) {
		t.Errorf("replay[1] = %s, want %s", frames[1], wantSecond)
	}
}

func TestSession_FirstConnectDoesNotReplay(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)
	defer s.Stop()

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	if frames := d.conn(0).sentFrames(); len(frames) != 0 {
		t.Errorf("frames on first connect = %d, want 0", len(frames))
	}
}

func TestSession_RetryCeilingZero(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	cfg := DefaultConfig("token")
	cfg.ReconnectMaxTries = 0
	s := newTestSession(t, cfg, l, d)

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	d.conn(0).drop()

	// Straight to noreconnect; OnReconnect never fires.
	l.expect(t, "error", "close", "noreconnect")
	l.expectNone(t)
}

func TestSession_CloseSuppressesReconnect(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)

	if err := s.Connect(context.Background(), true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	s.Close()
	l.expect(t, "close")
	l.expectNone(t)
}

func TestSession_ForegroundConnectBlocks(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	cfg := DefaultConfig("token")
	cfg.ReconnectMaxTries = 0
	s := newTestSession(t, cfg, l, d)

	done := make(chan struct{})
	go func() {
		s.Connect(context.Background(), false)
		close(done)
	}()

	l.expect(t, "connect", "open")
	select {
	case <-done:
		t.Fatal("foreground Connect returned while the loop was running")
	case <-time.After(50 * time.Millisecond):
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("foreground Connect did not return after Stop")
	}
}

func TestSession_ContextCancelStopsLoop(t *testing.T) {
	d := &scriptDialer{}
	l := newRecordingListener()
	s := newTestSession(t, DefaultConfig("token"), l, d)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Connect(ctx, true); err != nil {
		t.Fatalf("Connect error = %v", err)
	}
	l.expect(t, "connect", "open")

	cancel()
	l.expect(t, "close")
	l.expectNone(t)
}
