// runtime.go captures process stats for record enrichment.

package activerabbit

import (
	"os"
	"runtime"
	"time"
)

// CaptureRuntimeStats captures process metrics at the current moment.
// The startTime parameter is used to calculate process uptime.
func CaptureRuntimeStats(startTime time.Time) *RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // empty hostname is acceptable

	uptimeMS := time.Since(startTime).Milliseconds()
	if uptimeMS < 0 {
		uptimeMS = 0
	}

	return &RuntimeStats{
		MemoryBytes: int64(memStats.Alloc),
		Goroutines:  runtime.NumGoroutine(),
		UptimeMS:    uptimeMS,
		Hostname:    hostname,
	}
}
