// recover.go provides panic-capture helpers for HTTP handlers, goroutines,
// and other code outside a framework's own recovery.

package activerabbit

import (
	"context"
	"fmt"
	"runtime/debug"
)

// PanicError wraps a non-error panic value so it can travel the error
// tracking path.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover captures a panic, tracks it as an unhandled exception with the
// panic's stack, and returns the recovered value without re-panicking.
//
// It must be deferred directly; recover only takes effect in a function
// deferred by the panicking frame:
//
//	func handler(ctx context.Context) {
//	    defer client.Recover(ctx)
//	    // code that might panic
//	}
//
// To turn the panic into an error instead, own the recover call and report
// the value with TrackPanic:
//
//	func handler(ctx context.Context) (err error) {
//	    defer func() {
//	        if r := recover(); r != nil {
//	            client.TrackPanic(ctx, r)
//	            err = fmt.Errorf("panic: %v", r)
//	        }
//	    }()
//	    // code that might panic
//	}
func (c *Client) Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	trackRecovered(ctx, c, r)
	return r
}

// Recover is the package-level variant over the process-wide client. The
// recovered value is returned even when no client is configured.
func Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	trackRecovered(ctx, currentClient(), r)
	return r
}

// TrackPanic reports an already-recovered panic value as an unhandled
// exception. Use it when the host owns the recover call, for example to
// convert the panic into a returned error.
func (c *Client) TrackPanic(ctx context.Context, recovered any) {
	if recovered == nil {
		return
	}
	trackRecovered(ctx, c, recovered)
}

// TrackPanic is the package-level variant over the process-wide client.
func TrackPanic(ctx context.Context, recovered any) {
	if recovered == nil {
		return
	}
	trackRecovered(ctx, currentClient(), recovered)
}

func trackRecovered(ctx context.Context, c *Client, recovered any) {
	if c == nil {
		return
	}

	err, ok := recovered.(error)
	if !ok {
		err = &PanicError{Value: recovered}
	}

	c.TrackException(ctx, err,
		WithHandled(false),
		WithStackTrace(string(debug.Stack())))
}
