// context.go propagates ambient request/job snapshots through context.Context.
// The glue layer (HTTP middleware, job wrappers) captures the snapshot; the
// trackers attach whatever snapshot is present when a signal is tracked.

package activerabbit

import "context"

// Context key types (unexported to avoid collisions)
type requestContextKey struct{}
type jobContextKey struct{}

// RequestContext is an immutable snapshot of the HTTP request being handled
// when a signal was tracked. It is captured once by the glue layer, never a
// live reference into the host's request object.
type RequestContext struct {
	Method        string            `json:"method,omitempty"`
	Path          string            `json:"path,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	IP            string            `json:"ip,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
}

// JobContext is an immutable snapshot of the background job being processed
// when a signal was tracked.
type JobContext struct {
	JobName string `json:"job_name,omitempty"`
	Queue   string `json:"queue,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Attempt int    `json:"attempt,omitempty"`
}

// WithRequestContext returns a context carrying the request snapshot.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom extracts the request snapshot from ctx.
// The second return is false when no snapshot is present; trackers degrade
// gracefully to absent context.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// WithJobContext returns a context carrying the job snapshot.
func WithJobContext(ctx context.Context, jc JobContext) context.Context {
	return context.WithValue(ctx, jobContextKey{}, jc)
}

// JobContextFrom extracts the job snapshot from ctx.
func JobContextFrom(ctx context.Context) (JobContext, bool) {
	jc, ok := ctx.Value(jobContextKey{}).(JobContext)
	return jc, ok
}

// correlationIDFrom returns the correlation id of the ambient snapshot, or
// the job id when only a job snapshot exists. Used as the dedupe key's third
// component; absence is accepted and collapses uncorrelated occurrences into
// one bucket.
func correlationIDFrom(ctx context.Context) string {
	if rc, ok := RequestContextFrom(ctx); ok && rc.CorrelationID != "" {
		return rc.CorrelationID
	}
	if jc, ok := JobContextFrom(ctx); ok && jc.JobID != "" {
		return jc.JobID
	}
	return ""
}
