// options.go defines per-call options shared by the trackers.

package activerabbit

import "time"

// TrackOption customizes a single tracking call.
type TrackOption func(*trackOptions)

type trackOptions struct {
	userID    string
	tags      map[string]string
	timestamp time.Time
	handled   bool
	force     bool
	stack     string
}

func applyTrackOptions(opts []TrackOption) trackOptions {
	o := trackOptions{handled: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// when returns the explicit timestamp, or now.
func (o *trackOptions) when() time.Time {
	if !o.timestamp.IsZero() {
		return o.timestamp
	}
	return time.Now().UTC()
}

// WithUserID attaches the affected user to the record.
func WithUserID(id string) TrackOption {
	return func(o *trackOptions) {
		o.userID = id
	}
}

// WithTags merges labels onto the record. Later options win on key
// collisions.
func WithTags(tags map[string]string) TrackOption {
	return func(o *trackOptions) {
		if len(tags) == 0 {
			return
		}
		if o.tags == nil {
			o.tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			o.tags[k] = v
		}
	}
}

// WithTimestamp overrides the record timestamp, for callers replaying
// signals captured earlier.
func WithTimestamp(t time.Time) TrackOption {
	return func(o *trackOptions) {
		o.timestamp = t
	}
}

// WithHandled marks whether the host recovered from the exception itself.
// Tracked exceptions default to handled; Recover reports false.
func WithHandled(handled bool) TrackOption {
	return func(o *trackOptions) {
		o.handled = handled
	}
}

// WithForce bypasses the ignore rules for this call.
func WithForce() TrackOption {
	return func(o *trackOptions) {
		o.force = true
	}
}

// WithStackTrace supplies an already-captured stack (debug.Stack format)
// instead of capturing one at the tracking call site. Capture and panic
// dispatch frames at the top of the stack are not recorded; the record's
// frames start at the failing function.
func WithStackTrace(stack string) TrackOption {
	return func(o *trackOptions) {
		o.stack = stack
	}
}
