package feed

import (
	"testing"
	"time"
)

func TestWatchdog_NoPongNeverExpires(t *testing.T) {
	wd := newWatchdog(2500 * time.Millisecond)
	now := time.Now()

	wd.pingSent(now)
	if wd.expired(now.Add(time.Hour)) {
		t.Error("expired = true before any pong was received")
	}
}

func TestWatchdog_FreshPong(t *testing.T) {
	wd := newWatchdog(2500 * time.Millisecond)
	now := time.Now()

	wd.pongReceived(now)
	if wd.expired(now.Add(4 * time.Second)) {
		t.Error("expired = true within the pong deadline")
	}
	// Exactly at the deadline is still alive.
	if wd.expired(now.Add(5 * time.Second)) {
		t.Error("expired = true at exactly 2x interval")
	}
}

func TestWatchdog_ExpiresOnceOnly(t *testing.T) {
	wd := newWatchdog(2500 * time.Millisecond)
	now := time.Now()

	wd.pongReceived(now)
	late := now.Add(6 * time.Second)

	if !wd.expired(late) {
		t.Fatal("expired = false past the pong deadline")
	}
	if wd.expired(late.Add(time.Second)) {
		t.Error("second check aborted again; expired must fire at most once")
	}
	if !wd.didAbort() {
		t.Error("didAbort = false after expiry")
	}
}
