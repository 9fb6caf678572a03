package transport

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{"first retry waits base", time.Second, 30 * time.Second, 1, time.Second},
		{"second doubles", time.Second, 30 * time.Second, 2, 2 * time.Second},
		{"third doubles again", time.Second, 30 * time.Second, 3, 4 * time.Second},
		{"capped at max", time.Second, 30 * time.Second, 6, 30 * time.Second},
		{"uncapped when max is zero", time.Second, 0, 4, 8 * time.Second},
		{"zero base disables delay", 0, 30 * time.Second, 3, 0},
		{"attempt below one clamps to first", time.Second, 30 * time.Second, 0, time.Second},
		{"fractional base", 500 * time.Millisecond, 30 * time.Second, 2, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Backoff(tt.base, tt.max, tt.attempt); got != tt.want {
				t.Errorf("Backoff(%v, %v, %d) = %v, want %v",
					tt.base, tt.max, tt.attempt, got, tt.want)
			}
		})
	}
}
