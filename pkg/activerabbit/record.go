// record.go defines the wire-ready record types for each signal kind.

package activerabbit

import (
	"fmt"
	"time"
)

// Event type discriminators carried in record payloads and batch envelopes.
const (
	EventTypeError       = "error"
	EventTypeEvent       = "event"
	EventTypePerformance = "performance"
)

// Frame is one parsed backtrace frame. Frames that could not be parsed into
// file/line/method keep the original text in Raw instead of being dropped.
type Frame struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Method string `json:"method,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// String renders the frame for logs and dedupe keys.
func (f Frame) String() string {
	if f.File == "" && f.Method == "" {
		return f.Raw
	}
	if f.Method == "" {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return fmt.Sprintf("%s:%d in %s", f.File, f.Line, f.Method)
}

// RuntimeStats captures process metrics at the time a record is built.
type RuntimeStats struct {
	// MemoryBytes is the current heap allocation in bytes.
	MemoryBytes int64 `json:"memory_bytes"`

	// Goroutines is the number of active goroutines.
	Goroutines int `json:"goroutines"`

	// UptimeMS is the process uptime in milliseconds.
	UptimeMS int64 `json:"uptime_ms"`

	// Hostname is the machine the process runs on.
	Hostname string `json:"hostname,omitempty"`
}

// ExceptionRecord is the enriched, scrubbed representation of one exception
// occurrence. Immutable once built; it becomes a queued request payload.
type ExceptionRecord struct {
	// Identity

	// ID uniquely identifies this occurrence (UUID).
	ID string `json:"id"`

	// EventType is always "error".
	EventType string `json:"event_type"`

	// Timestamp is when the exception was tracked.
	Timestamp time.Time `json:"timestamp"`

	// Exception details

	// Class is the exception's type name.
	Class string `json:"class"`

	// Message is the scrubbed exception message.
	Message string `json:"message"`

	// Fingerprint groups recurring occurrences of the same defect over time.
	Fingerprint string `json:"fingerprint"`

	// Frames is the parsed backtrace, innermost first.
	Frames []Frame `json:"backtrace,omitempty"`

	// Handled reports whether the host application recovered from the
	// exception itself (false for panics captured by Recover).
	Handled bool `json:"handled"`

	// Deployment identity

	Environment string `json:"environment,omitempty"`
	Release     string `json:"release,omitempty"`
	ServerName  string `json:"server_name,omitempty"`

	// Enrichment

	// UserID is the affected user, when the caller supplied one.
	UserID string `json:"user_id,omitempty"`

	// Tags are free-form labels attached by the caller.
	Tags map[string]string `json:"tags,omitempty"`

	// Request is the ambient request snapshot, if one was present in the
	// calling context.
	Request *RequestContext `json:"request,omitempty"`

	// Job is the ambient background-job snapshot, if one was present.
	Job *JobContext `json:"job,omitempty"`

	// Runtime captures process stats at track time.
	Runtime *RuntimeStats `json:"runtime,omitempty"`
}

// EventRecord is the wire representation of one custom event.
type EventRecord struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// Name identifies the event, e.g. "signup" or "checkout.completed".
	Name string `json:"name"`

	// Properties carries arbitrary scrubbed key-value context.
	Properties map[string]any `json:"properties,omitempty"`

	Environment string `json:"environment,omitempty"`
	Release     string `json:"release,omitempty"`
	ServerName  string `json:"server_name,omitempty"`

	UserID  string          `json:"user_id,omitempty"`
	Request *RequestContext `json:"request,omitempty"`
	Job     *JobContext     `json:"job,omitempty"`
}

// PerformanceRecord is the wire representation of one timed operation.
type PerformanceRecord struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// Name identifies the operation, e.g. "GET /orders" or "orders.reindex".
	Name string `json:"name"`

	// DurationMS is the measured duration in milliseconds.
	DurationMS float64 `json:"duration_ms"`

	// Metadata carries arbitrary scrubbed key-value context.
	Metadata map[string]any `json:"metadata,omitempty"`

	Environment string `json:"environment,omitempty"`
	Release     string `json:"release,omitempty"`
	ServerName  string `json:"server_name,omitempty"`

	Request *RequestContext `json:"request,omitempty"`
}
