package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind tags a queued record with the batch envelope type the collector
// expects.
type Kind string

const (
	KindError       Kind = "error"
	KindEvent       Kind = "event"
	KindPerformance Kind = "performance"
)

// QueuedRequest is one record awaiting delivery. The queue owns it from
// Enqueue until it is sent or terminally dropped.
type QueuedRequest struct {
	// Path is the dedicated collector sub-path for this record kind. The
	// batch flush carries the kind instead; Path identifies the record in
	// logs and lets callers route fallback enqueues.
	Path string
	// Method is the HTTP verb for the record's dedicated endpoint. Every
	// collector endpoint takes POST; Enqueue fills it in when empty.
	Method     string
	Kind       Kind
	Payload    any
	EnqueuedAt time.Time
}

// BatchSender delivers one drained batch in a single request. *APIClient
// is the production implementation.
type BatchSender interface {
	SendBatch(ctx context.Context, items []QueuedRequest) error
}

// QueueConfig shapes the delivery buffer.
type QueueConfig struct {
	// BatchSize triggers a synchronous flush on the enqueueing goroutine
	// when the buffer reaches it. The backpressure valve: bounds memory at
	// the cost of occasionally blocking one caller for a send.
	BatchSize int
	// MaxQueueSize is the hard bound. Beyond it new records are dropped
	// with a log and a metric rather than growing without limit.
	MaxQueueSize int
	// FlushInterval drives the background timer that picks up batches too
	// small to trigger a capacity flush.
	FlushInterval time.Duration
}

// DeliveryQueue buffers records and ships them in batches: on a recurring
// timer started lazily by the first enqueue, synchronously when the buffer
// reaches BatchSize, and on explicit Flush/Shutdown.
//
// Delivery is at-most-once. A batch that fails after retries is logged and
// dropped, never re-enqueued; losing records during a persistent outage is
// the accepted tradeoff for never blocking the host indefinitely.
type DeliveryQueue struct {
	cfg     QueueConfig
	sender  BatchSender
	logger  *zap.Logger
	metrics *Metrics

	mu           sync.Mutex
	buf          []QueuedRequest
	closed       bool
	timerRunning bool
	done         chan struct{}

	wg sync.WaitGroup
}

// NewDeliveryQueue builds a queue in front of sender. A nil logger or
// metrics disables that concern.
func NewDeliveryQueue(cfg QueueConfig, sender BatchSender, logger *zap.Logger, metrics *Metrics) *DeliveryQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxQueueSize < cfg.BatchSize {
		cfg.MaxQueueSize = cfg.BatchSize
	}

	return &DeliveryQueue{
		cfg:     cfg,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Enqueue appends a record. The first record since startup arms the flush
// timer; reaching BatchSize flushes immediately on the calling goroutine;
// a full buffer drops the record and returns ErrQueueFull.
func (q *DeliveryQueue) Enqueue(req QueuedRequest) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if len(q.buf) >= q.cfg.MaxQueueSize {
		q.mu.Unlock()
		q.metrics.IncDropped()
		q.logger.Warn("delivery queue full, dropping record",
			zap.String("path", req.Path),
			zap.String("kind", string(req.Kind)))
		return ErrQueueFull
	}

	if req.Method == "" {
		req.Method = http.MethodPost
	}
	if req.EnqueuedAt.IsZero() {
		req.EnqueuedAt = time.Now()
	}
	q.buf = append(q.buf, req)
	q.metrics.SetQueueLength(len(q.buf))
	q.startTimerLocked()
	full := len(q.buf) >= q.cfg.BatchSize
	q.mu.Unlock()

	if full {
		return q.Flush(context.Background())
	}
	return nil
}

// startTimerLocked lazily starts the single background flush loop. Callers
// hold q.mu.
func (q *DeliveryQueue) startTimerLocked() {
	if q.timerRunning || q.cfg.FlushInterval <= 0 {
		return
	}
	q.timerRunning = true
	q.wg.Add(1)
	go q.flushLoop()
}

func (q *DeliveryQueue) flushLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			// Failures are logged in sendBatch; the timer has no caller
			// to surface them to.
			_ = q.Flush(context.Background())
		}
	}
}

// Flush drains the entire buffer and sends it as one batch. The swap is
// atomic: records enqueued during the send start a fresh batch, never lost
// and never sent twice. An empty buffer is a no-op.
func (q *DeliveryQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	batch := q.buf
	q.buf = nil
	q.metrics.SetQueueLength(0)
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return q.sendBatch(ctx, batch)
}

func (q *DeliveryQueue) sendBatch(ctx context.Context, batch []QueuedRequest) error {
	err := q.sender.SendBatch(ctx, batch)
	if err != nil {
		q.metrics.AddFailed(len(batch))
		var rle *RateLimitError
		if errors.As(err, &rle) {
			q.metrics.IncRateLimited()
		}
		q.logger.Error("batch delivery failed, dropping records",
			zap.Int("count", len(batch)),
			zap.Error(err))
		return err
	}

	q.metrics.AddSent(len(batch))
	q.metrics.IncFlushes()
	q.logger.Debug("batch delivered", zap.Int("count", len(batch)))
	return nil
}

// Shutdown stops the timer, rejects further enqueues, and performs a final
// flush. Safe to call more than once; later calls return nil without work.
func (q *DeliveryQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	if q.timerRunning {
		close(q.done)
	}
	q.mu.Unlock()

	err := q.Flush(ctx)

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		q.logger.Warn("shutdown abandoned an in-flight flush")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Len reports how many records are buffered.
func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
