package feed

import "time"

// DelayFunc computes the wait before reconnect attempt n (1-based).
// Injectable so tests run the retry loop without real waits.
type DelayFunc func(attempt int) time.Duration

// ExponentialDelay doubles base per attempt, bounded above by max.
func ExponentialDelay(base, max time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			d = max
		}
		return d
	}
}
