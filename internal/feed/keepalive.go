package feed

import (
	"sync"
	"time"
)

// watchdog tracks ping/pong liveness for one connection. It is a
// liveness check only; pings carry no payload semantics.
type watchdog struct {
	interval time.Duration

	mu         sync.Mutex
	lastPingAt time.Time
	lastPongAt time.Time
	aborted    bool
}

func newWatchdog(interval time.Duration) *watchdog {
	return &watchdog{interval: interval}
}

func (w *watchdog) pingSent(now time.Time) {
	w.mu.Lock()
	w.lastPingAt = now
	w.mu.Unlock()
}

func (w *watchdog) pongReceived(now time.Time) {
	w.mu.Lock()
	w.lastPongAt = now
	w.mu.Unlock()
}

// expired reports whether the connection should be dropped: at least
// one pong has been seen and the latest is older than twice the ping
// interval. Returns true at most once, so a late second check cannot
// abort the same connection twice.
func (w *watchdog) expired(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.aborted || w.lastPongAt.IsZero() {
		return false
	}
	if now.Sub(w.lastPongAt) <= 2*w.interval {
		return false
	}
	w.aborted = true
	return true
}

// didAbort reports whether expired has fired for this connection.
func (w *watchdog) didAbort() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aborted
}
