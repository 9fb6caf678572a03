// performance.go implements the performance monitor: direct duration
// reports, start/finish transaction pairs, and scoped measurement.

package activerabbit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit/transport"
)

// PerformanceMonitor reports operation timings. Safe for concurrent use.
type PerformanceMonitor struct {
	cfg      *Config
	queue    Enqueuer
	scrubber *Scrubber
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]*transaction
}

type transaction struct {
	name    string
	started time.Time
}

func newPerformanceMonitor(cfg *Config, queue Enqueuer, scrubber *Scrubber, logger *zap.Logger) *PerformanceMonitor {
	return &PerformanceMonitor{
		cfg:      cfg,
		queue:    queue,
		scrubber: scrubber,
		logger:   logger,
		inflight: make(map[string]*transaction),
	}
}

// Track reports one measured duration. Fire-and-forget like the other
// trackers.
func (m *PerformanceMonitor) Track(ctx context.Context, name string, duration time.Duration, metadata map[string]any) {
	defer swallowPanic(m.logger, "performance")

	if !m.cfg.ready() {
		return
	}

	rec := &PerformanceRecord{
		ID:          uuid.NewString(),
		EventType:   EventTypePerformance,
		Timestamp:   time.Now().UTC(),
		Name:        name,
		DurationMS:  float64(duration) / float64(time.Millisecond),
		Metadata:    metadata,
		Environment: m.cfg.Environment,
		Release:     m.cfg.Release,
		ServerName:  m.cfg.ServerName,
	}
	if rc, ok := RequestContextFrom(ctx); ok {
		rec.Request = &rc
	}

	if m.scrubber != nil {
		rec.Metadata = m.scrubber.ScrubProperties(rec.Metadata)
		rec.Request = m.scrubber.ScrubRequest(rec.Request)
	}

	err := m.queue.Enqueue(transport.QueuedRequest{
		Path:    transport.PathPerformance,
		Kind:    transport.KindPerformance,
		Payload: rec,
	})
	if err != nil {
		m.logger.Warn("performance record not queued",
			zap.String("name", name),
			zap.Error(err))
	}
}

// StartTransaction begins a timed span and returns its opaque id. Returns
// an empty id on an unconfigured client; FinishTransaction treats it as
// unknown.
func (m *PerformanceMonitor) StartTransaction(name string) string {
	if !m.cfg.ready() {
		return ""
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.inflight[id] = &transaction{name: name, started: time.Now()}
	m.mu.Unlock()
	return id
}

// FinishTransaction ends the span and reports its duration. Finishing an
// unknown or already-finished id is a no-op.
func (m *PerformanceMonitor) FinishTransaction(ctx context.Context, id string) {
	m.mu.Lock()
	txn, ok := m.inflight[id]
	delete(m.inflight, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.Track(ctx, txn.name, time.Since(txn.started), nil)
}

// Measure times fn and reports the duration whether fn succeeds, returns
// an error, or panics. The error or panic then propagates unchanged.
func (m *PerformanceMonitor) Measure(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	defer func() {
		m.Track(ctx, name, time.Since(start), nil)
	}()
	return fn()
}
