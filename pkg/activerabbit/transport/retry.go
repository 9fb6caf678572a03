package transport

import (
	"math"
	"time"
)

// Backoff returns the delay before the next attempt after the given
// (1-based) attempt failed. Delays grow exponentially from base and are
// capped at max: base, 2*base, 4*base, ...
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if max > 0 && delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}
