// exceptions.go implements the exception tracker: ignore policy,
// fingerprinting, enrichment, deduplication, and handoff to delivery.

package activerabbit

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit/transport"
)

// sdkMethodPrefix identifies this SDK's own frames in captured stacks.
const sdkMethodPrefix = "github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit"

// notFoundPattern matches the class names of routing-style "not found"
// errors covered by the IgnoreNotFound toggle.
var notFoundPattern = regexp.MustCompile(`(?i)(notfound|routingerror)`)

// ExceptionTracker turns errors into enriched, scrubbed, deduplicated
// exception records and hands them to the delivery queue.
type ExceptionTracker struct {
	cfg      *Config
	queue    Enqueuer
	scrubber *Scrubber
	logger   *zap.Logger

	// Two overlapping dedupe strategies, independently tuned: deduper
	// suppresses bursts at the tracking call, reporter suppresses
	// re-reports inside the reporting window.
	deduper  *Deduper
	reporter *Deduper

	startTime time.Time
}

func newExceptionTracker(cfg *Config, queue Enqueuer, scrubber *Scrubber, logger *zap.Logger, startTime time.Time) *ExceptionTracker {
	return &ExceptionTracker{
		cfg:       cfg,
		queue:     queue,
		scrubber:  scrubber,
		logger:    logger,
		deduper:   NewDeduper(cfg.DedupeWindow),
		reporter:  NewDeduper(cfg.ReportDedupeWindow),
		startTime: startTime,
	}
}

// Track records one exception occurrence. Fire-and-forget: it never panics
// and never returns an error; internal failures are logged and swallowed.
func (t *ExceptionTracker) Track(ctx context.Context, err error, opts ...TrackOption) {
	defer swallowPanic(t.logger, "exception")

	if err == nil || !t.cfg.ready() {
		return
	}

	o := applyTrackOptions(opts)
	class := classOf(err)

	if !o.force && t.ignored(ctx, class, err) {
		return
	}

	var frames []Frame
	if o.stack != "" {
		frames = trimRecoveredStack(ParseBacktrace(o.stack))
	} else {
		frames = dropSDKFrames(captureFrames(1))
	}

	rec := &ExceptionRecord{
		ID:          uuid.NewString(),
		EventType:   EventTypeError,
		Timestamp:   o.when(),
		Class:       class,
		Message:     err.Error(),
		Fingerprint: Fingerprint(class, err.Error(), frames),
		Frames:      frames,
		Handled:     o.handled,
		Environment: t.cfg.Environment,
		Release:     t.cfg.Release,
		ServerName:  t.cfg.ServerName,
		UserID:      o.userID,
		Tags:        o.tags,
		Runtime:     CaptureRuntimeStats(t.startTime),
	}
	if rc, ok := RequestContextFrom(ctx); ok {
		rec.Request = &rc
	}
	if jc, ok := JobContextFrom(ctx); ok {
		rec.Job = &jc
	}

	if hook := t.cfg.BeforeSendException; hook != nil {
		if rec = hook(rec); rec == nil {
			return
		}
	}

	if t.scrubber != nil {
		rec.Message = t.scrubber.ScrubString(rec.Message)
		rec.Tags = t.scrubber.ScrubTags(rec.Tags)
		rec.Request = t.scrubber.ScrubRequest(rec.Request)
	}

	topFrame := ""
	if len(rec.Frames) > 0 {
		topFrame = rec.Frames[0].String()
	}
	correlationID := correlationIDFrom(ctx)

	if t.deduper.SeenRecently(rec.Class, topFrame, correlationID) {
		t.logger.Debug("duplicate exception suppressed",
			zap.String("class", rec.Class))
		return
	}
	if t.reporter.SeenRecently(rec.Class, topFrame, correlationID) {
		t.logger.Debug("exception already reported within window",
			zap.String("class", rec.Class))
		return
	}

	req := transport.QueuedRequest{
		Path:    transport.PathErrors,
		Kind:    transport.KindError,
		Payload: rec,
	}
	if err := t.queue.Enqueue(req); err != nil {
		// One fallback to the generic ingestion path, then give up.
		req.Path = transport.PathEvents
		if err := t.queue.Enqueue(req); err != nil {
			t.logger.Warn("exception not queued",
				zap.String("class", rec.Class),
				zap.Error(err))
		}
	}
}

// ignored applies the configured ignore policy: class rules, the
// IgnoreNotFound toggle, and user-agent filters against the ambient
// request snapshot.
func (t *ExceptionTracker) ignored(ctx context.Context, class string, err error) bool {
	for _, rule := range t.cfg.IgnoreExceptions {
		if rule.Matches(class) {
			return true
		}
	}

	if t.cfg.IgnoreNotFound {
		if notFoundPattern.MatchString(class) || errors.Is(err, fs.ErrNotExist) {
			return true
		}
	}

	if rc, ok := RequestContextFrom(ctx); ok && rc.UserAgent != "" {
		agent := strings.ToLower(rc.UserAgent)
		for _, ua := range t.cfg.IgnoreUserAgents {
			if ua != "" && strings.Contains(agent, strings.ToLower(ua)) {
				return true
			}
		}
	}

	return false
}

// classOf derives the exception class from the error's dynamic type,
// unwrapping one pointer level so value and pointer receivers agree.
func classOf(err error) string {
	rt := reflect.TypeOf(err)
	if rt == nil {
		return "error"
	}
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.String()
}

// dropSDKFrames strips the SDK's own wrapper frames from the top of a
// captured stack, so records start at the host's call site.
func dropSDKFrames(frames []Frame) []Frame {
	i := 0
	for i < len(frames) && strings.HasPrefix(frames[i].Method, sdkMethodPrefix) {
		i++
	}
	return frames[i:]
}
