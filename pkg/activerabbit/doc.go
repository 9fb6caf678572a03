// Package activerabbit is the Go client for the ActiveRabbit application
// monitoring service.
//
// It captures exceptions, custom events, and performance measurements from a
// running application, enriches them with ambient context (request or job
// metadata, runtime stats, stack traces), scrubs personally identifiable
// information, and ships the results to the ActiveRabbit collector over HTTP
// in timed batches.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Records: the wire-ready representations of one signal
//     (ExceptionRecord, EventRecord, PerformanceRecord)
//   - Client: configuration plus lazily-constructed trackers; the single
//     entry point the host application calls
//   - Scrubber: redacts sensitive fields and string patterns before any
//     payload reaches the transport
//   - Deduper: suppresses repeated transmission of the same exception
//     occurrence within a time window
//   - transport.DeliveryQueue: buffers outbound records and flushes them as
//     batches on a timer, on capacity, or on demand
//
// # Quick Start
//
// Construct a client and track signals:
//
//	client, err := activerabbit.New(activerabbit.Config{
//	    APIKey:    "ar-key",
//	    ProjectID: "checkout",
//	    Endpoint:  "https://in.activerabbit.dev",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	client.TrackEvent(ctx, "signup", map[string]any{"plan": "pro"})
//	client.TrackException(ctx, err, activerabbit.WithUserID("u-42"))
//
// Or use the package-level facade when a process-wide client is wanted:
//
//	activerabbit.Configure(cfg)
//	defer activerabbit.Shutdown(context.Background())
//	activerabbit.TrackException(ctx, err)
//
// # Design Principles
//
//   - Tracking never hurts the host: Track* calls swallow and log internal
//     failures, and do no network I/O on the caller's path except when queue
//     capacity forces a bounded synchronous flush
//   - Every outbound payload is scrubbed before it reaches the transport
//   - Delivery is at-most-once: a batch that exhausts its retries is dropped
//     with a log, never re-enqueued
package activerabbit
