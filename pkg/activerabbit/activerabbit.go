// activerabbit.go provides the Client: explicit construction, dependency
// wiring, and the tracking surface hosts call into.

package activerabbit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit/transport"
)

// Enqueuer is the delivery surface the trackers depend on.
// *transport.DeliveryQueue is the production implementation; tests inject
// fakes.
type Enqueuer interface {
	Enqueue(req transport.QueuedRequest) error
	Flush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Option configures a Client beyond its Config.
type Option func(*Client)

// WithLogger sets the logger for every component. Defaults to a no-op
// logger; pass the host's zap logger to see SDK activity.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient substitutes the underlying HTTP client, for hosts with
// proxy or TLS requirements and for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithQueue substitutes the delivery queue. Mainly a test seam.
func WithQueue(q Enqueuer) Option {
	return func(c *Client) {
		c.queue = q
	}
}

// Client is the SDK entry point. Construct with New, share freely between
// goroutines, and Shutdown on process exit to drain buffered records.
//
// An unconfigured client (no API key, or Disabled set) is fully functional
// and silently does nothing, so hosts can wire tracking calls
// unconditionally.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	httpClient *http.Client
	api        *transport.APIClient
	queue      Enqueuer
	scrubber   *Scrubber
	metrics    *transport.Metrics
	startTime  time.Time

	exceptionsOnce sync.Once
	exceptions     *ExceptionTracker
	eventsOnce     sync.Once
	events         *EventTracker
	perfOnce       sync.Once
	perf           *PerformanceMonitor
}

// New builds a Client from cfg. Zero-value fields get production defaults;
// the error reports constraint violations, not missing credentials (a
// credential-less client is a silent no-op per the tracking contract).
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.InitDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	c.metrics = transport.NewMetrics()

	if !cfg.DisableScrubbing {
		c.scrubber = NewScrubber(ScrubberConfig{SensitiveFields: cfg.ScrubFields})
	}

	c.api = transport.NewAPIClient(transport.ClientConfig{
		BaseURL:        cfg.Endpoint,
		APIKey:         cfg.APIKey,
		ProjectID:      cfg.ProjectID,
		Version:        Version,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		Compress:       !cfg.DisableCompression,
	}, c.httpClient, c.logger, c.metrics)

	if c.queue == nil {
		c.queue = transport.NewDeliveryQueue(transport.QueueConfig{
			BatchSize:     cfg.BatchSize,
			MaxQueueSize:  cfg.MaxQueueSize,
			FlushInterval: cfg.FlushInterval,
		}, c.api, c.logger, c.metrics)
	}

	return c, nil
}

// Configured reports whether the client will actually send anything.
func (c *Client) Configured() bool {
	return c.cfg.ready()
}

// Lazily-built tracker singletons. Most hosts use one or two signal kinds;
// the others never allocate.

func (c *Client) exceptionTracker() *ExceptionTracker {
	c.exceptionsOnce.Do(func() {
		c.exceptions = newExceptionTracker(&c.cfg, c.queue, c.scrubber, c.logger, c.startTime)
	})
	return c.exceptions
}

func (c *Client) eventTracker() *EventTracker {
	c.eventsOnce.Do(func() {
		c.events = newEventTracker(&c.cfg, c.queue, c.scrubber, c.logger)
	})
	return c.events
}

func (c *Client) performanceMonitor() *PerformanceMonitor {
	c.perfOnce.Do(func() {
		c.perf = newPerformanceMonitor(&c.cfg, c.queue, c.scrubber, c.logger)
	})
	return c.perf
}

// TrackException records an error occurrence. See ExceptionTracker.Track.
func (c *Client) TrackException(ctx context.Context, err error, opts ...TrackOption) {
	c.exceptionTracker().Track(ctx, err, opts...)
}

// TrackEvent records a custom event. See EventTracker.Track.
func (c *Client) TrackEvent(ctx context.Context, name string, properties map[string]any, opts ...TrackOption) {
	c.eventTracker().Track(ctx, name, properties, opts...)
}

// TrackPerformance records one measured duration.
func (c *Client) TrackPerformance(ctx context.Context, name string, duration time.Duration, metadata map[string]any) {
	c.performanceMonitor().Track(ctx, name, duration, metadata)
}

// StartTransaction begins a timed span; pair with FinishTransaction.
func (c *Client) StartTransaction(name string) string {
	return c.performanceMonitor().StartTransaction(name)
}

// FinishTransaction ends a span started by StartTransaction and reports it.
func (c *Client) FinishTransaction(ctx context.Context, id string) {
	c.performanceMonitor().FinishTransaction(ctx, id)
}

// Measure times fn and reports the duration even when fn fails.
func (c *Client) Measure(ctx context.Context, name string, fn func() error) error {
	return c.performanceMonitor().Measure(ctx, name, fn)
}

// TestConnection verifies credentials and collector reachability with a
// direct request, bypassing the queue.
func (c *Client) TestConnection(ctx context.Context) error {
	if !c.cfg.ready() {
		return ErrNotConfigured
	}
	_, err := c.api.TestConnection(ctx)
	return err
}

// Flush synchronously delivers everything buffered so far.
func (c *Client) Flush(ctx context.Context) error {
	return c.queue.Flush(ctx)
}

// Shutdown drains the queue and releases transport resources. Idempotent.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.queue.Shutdown(ctx)
	c.api.CloseIdleConnections()
	return err
}

// Metrics exposes delivery counters as a prometheus.Collector for the host
// to register. Nothing is registered automatically.
func (c *Client) Metrics() prometheus.Collector {
	return c.metrics
}
