// events.go implements the custom-event tracker.

package activerabbit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit/transport"
)

// EventTracker builds, scrubs, and queues custom event records.
type EventTracker struct {
	cfg      *Config
	queue    Enqueuer
	scrubber *Scrubber
	logger   *zap.Logger
}

func newEventTracker(cfg *Config, queue Enqueuer, scrubber *Scrubber, logger *zap.Logger) *EventTracker {
	return &EventTracker{
		cfg:      cfg,
		queue:    queue,
		scrubber: scrubber,
		logger:   logger,
	}
}

// Track queues one custom event. Fire-and-forget: failures are logged and
// swallowed, never surfaced to the caller.
func (t *EventTracker) Track(ctx context.Context, name string, properties map[string]any, opts ...TrackOption) {
	defer swallowPanic(t.logger, "event")

	if !t.cfg.ready() {
		return
	}

	o := applyTrackOptions(opts)
	rec := &EventRecord{
		ID:          uuid.NewString(),
		EventType:   EventTypeEvent,
		Timestamp:   o.when(),
		Name:        name,
		Properties:  properties,
		Environment: t.cfg.Environment,
		Release:     t.cfg.Release,
		ServerName:  t.cfg.ServerName,
		UserID:      o.userID,
	}
	if rc, ok := RequestContextFrom(ctx); ok {
		rec.Request = &rc
	}
	if jc, ok := JobContextFrom(ctx); ok {
		rec.Job = &jc
	}

	if hook := t.cfg.BeforeSendEvent; hook != nil {
		if rec = hook(rec); rec == nil {
			return
		}
	}

	if t.scrubber != nil {
		rec.Properties = t.scrubber.ScrubProperties(rec.Properties)
		rec.Request = t.scrubber.ScrubRequest(rec.Request)
	}

	err := t.queue.Enqueue(transport.QueuedRequest{
		Path:    transport.PathEvents,
		Kind:    transport.KindEvent,
		Payload: rec,
	})
	if err != nil {
		t.logger.Warn("event not queued",
			zap.String("name", name),
			zap.Error(err))
	}
}

// swallowPanic keeps tracking calls from ever crashing the host. Deferred
// directly so recover applies to the caller's frame.
func swallowPanic(logger *zap.Logger, signal string) {
	if r := recover(); r != nil {
		logger.Error("tracking panicked",
			zap.String("signal", signal),
			zap.Any("panic", r))
	}
}
