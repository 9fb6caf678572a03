// global.go provides the package-level facade over a process-wide client.
// Host frameworks that configure once at boot use these; code that wants
// explicit dependencies uses Client directly. The core components never
// read the global.

package activerabbit

import (
	"context"
	"sync"
	"time"
)

var (
	globalMu     sync.RWMutex
	globalClient *Client
)

// Configure builds the process-wide client used by the package-level
// functions. Calling it again replaces the client after shutting the
// previous one down (draining its queue).
func Configure(cfg Config, opts ...Option) error {
	client, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	globalMu.Lock()
	previous := globalClient
	globalClient = client
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Shutdown(context.Background())
	}
	return nil
}

func currentClient() *Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalClient
}

// Configured reports whether a working process-wide client exists.
func Configured() bool {
	c := currentClient()
	return c != nil && c.Configured()
}

// TrackException records an error through the process-wide client.
// A no-op until Configure succeeds.
func TrackException(ctx context.Context, err error, opts ...TrackOption) {
	if c := currentClient(); c != nil {
		c.TrackException(ctx, err, opts...)
	}
}

// TrackEvent records a custom event through the process-wide client.
func TrackEvent(ctx context.Context, name string, properties map[string]any, opts ...TrackOption) {
	if c := currentClient(); c != nil {
		c.TrackEvent(ctx, name, properties, opts...)
	}
}

// TrackPerformance records a duration through the process-wide client.
func TrackPerformance(ctx context.Context, name string, duration time.Duration, metadata map[string]any) {
	if c := currentClient(); c != nil {
		c.TrackPerformance(ctx, name, duration, metadata)
	}
}

// StartTransaction begins a timed span on the process-wide client.
func StartTransaction(name string) string {
	if c := currentClient(); c != nil {
		return c.StartTransaction(name)
	}
	return ""
}

// FinishTransaction ends a span started by StartTransaction.
func FinishTransaction(ctx context.Context, id string) {
	if c := currentClient(); c != nil {
		c.FinishTransaction(ctx, id)
	}
}

// Measure times fn through the process-wide client. Without one, fn still
// runs and its error is returned.
func Measure(ctx context.Context, name string, fn func() error) error {
	if c := currentClient(); c != nil {
		return c.Measure(ctx, name, fn)
	}
	return fn()
}

// Flush drains the process-wide client's queue.
func Flush(ctx context.Context) error {
	if c := currentClient(); c != nil {
		return c.Flush(ctx)
	}
	return nil
}

// Shutdown drains and stops the process-wide client.
func Shutdown(ctx context.Context) error {
	if c := currentClient(); c != nil {
		return c.Shutdown(ctx)
	}
	return nil
}
