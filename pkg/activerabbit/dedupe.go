// dedupe.go suppresses repeated reports of the same exception within a
// time window.

package activerabbit

import (
	"strings"
	"sync"
	"time"
)

// Deduper tracks recently seen exception signatures and answers whether a
// new occurrence should be suppressed. It is safe for concurrent use.
//
// The signature combines the exception class, the topmost frame, and the
// correlation ID of the surrounding request or job, so the same error from
// two different requests is reported twice while a tight retry loop inside
// one request is reported once.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time

	now func() time.Time // swappable in tests
}

// NewDeduper returns a Deduper with the given suppression window. A window
// of zero or less disables deduplication entirely: every occurrence is
// admitted and no state is kept.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// SeenRecently records the occurrence and reports whether an equal
// signature was already admitted inside the window. The first occurrence
// returns false; repeats within the window return true; once the window
// has elapsed the signature is admitted again.
func (d *Deduper) SeenRecently(class, topFrame, correlationID string) bool {
	if d == nil || d.window <= 0 {
		return false
	}

	key := strings.Join([]string{class, topFrame, correlationID}, "|")
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Prune on access rather than with a background goroutine; the map only
	// holds distinct signatures seen within one window.
	for k, ts := range d.seen {
		if now.Sub(ts) >= d.window {
			delete(d.seen, k)
		}
	}

	if ts, ok := d.seen[key]; ok && now.Sub(ts) < d.window {
		return true
	}
	d.seen[key] = now
	return false
}

// size reports the number of tracked signatures. Tests use it to confirm
// pruning and that a disabled deduper keeps no state.
func (d *Deduper) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
