package feed

import (
	"testing"
	"time"
)

func TestExponentialDelay(t *testing.T) {
	delay := ExponentialDelay(time.Second, 60*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{7, 60 * time.Second},
		{8, 60 * time.Second},
		{50, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := delay(tt.attempt); got != tt.want {
			t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialDelay_ZeroBase(t *testing.T) {
	delay := ExponentialDelay(0, 60*time.Second)
	if got := delay(3); got != 0 {
		t.Errorf("delay(3) = %v, want 0", got)
	}
}

func TestExponentialDelay_MaxBelowBase(t *testing.T) {
	delay := ExponentialDelay(time.Second, 0)
	if got := delay(1); got != 0 {
		t.Errorf("delay(1) = %v, want 0", got)
	}
}
