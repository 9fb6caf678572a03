package transport

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueClosed is returned by Enqueue once Shutdown has begun.
	ErrQueueClosed = errors.New("activerabbit: delivery queue is closed")

	// ErrQueueFull is returned when the buffer is at capacity and the
	// record was dropped.
	ErrQueueFull = errors.New("activerabbit: delivery queue is full")
)

// ClientError is a non-retryable 4xx response other than 429. The request
// itself is wrong; sending it again will not help.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("activerabbit: client error %d: %s", e.StatusCode, e.Message)
}

// RateLimitError is a 429 response. The delivery layer never retries it;
// RetryAfter carries the server's hint when one was sent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("activerabbit: rate limited, retry after %s", e.RetryAfter)
	}
	return "activerabbit: rate limited"
}

// ServerError is a 5xx response. 500, 502, 503 and 504 are transient
// infrastructure failures and marked retryable; anything else 5xx is not.
type ServerError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("activerabbit: server error %d: %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport-level failure: connection refused, DNS,
// unreachable host, timeouts. Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("activerabbit: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RetryExhaustedError wraps the last failure after every attempt was spent.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("activerabbit: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// SerializationError marks a payload that could not be encoded. Such
// records are dropped with a log; they never crash the caller.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("activerabbit: payload not serializable: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IsRetryable reports whether the delivery layer should attempt the request
// again. Network faults and transient server errors qualify; client errors,
// rate limits, serialization failures, and anything unrecognized do not.
func IsRetryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
