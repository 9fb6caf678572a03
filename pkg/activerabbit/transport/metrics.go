package transport

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "activerabbit"

// Metrics counts delivery outcomes. Counters are plain atomics so the hot
// path never touches prometheus; the type implements prometheus.Collector
// for hosts that want to register it. Nothing is registered automatically.
//
// All methods are safe on a nil receiver, so components can run unmetered.
type Metrics struct {
	sent        atomic.Uint64
	failed      atomic.Uint64
	rateLimited atomic.Uint64
	dropped     atomic.Uint64
	retries     atomic.Uint64
	flushes     atomic.Uint64
	queueLength atomic.Int64

	sentDesc        *prometheus.Desc
	failedDesc      *prometheus.Desc
	rateLimitedDesc *prometheus.Desc
	droppedDesc     *prometheus.Desc
	retriesDesc     *prometheus.Desc
	flushesDesc     *prometheus.Desc
	queueLengthDesc *prometheus.Desc
}

// NewMetrics creates an empty metrics set.
func NewMetrics() *Metrics {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "delivery", name),
			help,
			nil, nil)
	}

	return &Metrics{
		sentDesc:        desc("events_sent_total", "Records delivered to the collector."),
		failedDesc:      desc("events_failed_total", "Records lost to terminal delivery failures."),
		rateLimitedDesc: desc("rate_limited_total", "Batches rejected with 429 responses."),
		droppedDesc:     desc("events_dropped_total", "Records dropped because the queue was full."),
		retriesDesc:     desc("retries_total", "Individual request retries."),
		flushesDesc:     desc("batch_flushes_total", "Successful batch flushes."),
		queueLengthDesc: desc("queue_length", "Records currently buffered."),
	}
}

func (m *Metrics) AddSent(n int) {
	if m != nil {
		m.sent.Add(uint64(n))
	}
}

func (m *Metrics) AddFailed(n int) {
	if m != nil {
		m.failed.Add(uint64(n))
	}
}

func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.rateLimited.Add(1)
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.dropped.Add(1)
	}
}

func (m *Metrics) IncRetries() {
	if m != nil {
		m.retries.Add(1)
	}
}

func (m *Metrics) IncFlushes() {
	if m != nil {
		m.flushes.Add(1)
	}
}

func (m *Metrics) SetQueueLength(n int) {
	if m != nil {
		m.queueLength.Store(int64(n))
	}
}

// Snapshot accessors, primarily for host introspection and tests.

func (m *Metrics) Sent() uint64 {
	if m == nil {
		return 0
	}
	return m.sent.Load()
}

func (m *Metrics) Failed() uint64 {
	if m == nil {
		return 0
	}
	return m.failed.Load()
}

func (m *Metrics) RateLimited() uint64 {
	if m == nil {
		return 0
	}
	return m.rateLimited.Load()
}

func (m *Metrics) Dropped() uint64 {
	if m == nil {
		return 0
	}
	return m.dropped.Load()
}

func (m *Metrics) Retries() uint64 {
	if m == nil {
		return 0
	}
	return m.retries.Load()
}

func (m *Metrics) Flushes() uint64 {
	if m == nil {
		return 0
	}
	return m.flushes.Load()
}

func (m *Metrics) QueueLength() int64 {
	if m == nil {
		return 0
	}
	return m.queueLength.Load()
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil {
		return
	}
	ch <- m.sentDesc
	ch <- m.failedDesc
	ch <- m.rateLimitedDesc
	ch <- m.droppedDesc
	ch <- m.retriesDesc
	ch <- m.flushesDesc
	ch <- m.queueLengthDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil {
		return
	}
	counter := func(desc *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}

	counter(m.sentDesc, m.sent.Load())
	counter(m.failedDesc, m.failed.Load())
	counter(m.rateLimitedDesc, m.rateLimited.Load())
	counter(m.droppedDesc, m.dropped.Load())
	counter(m.retriesDesc, m.retries.Load())
	counter(m.flushesDesc, m.flushes.Load())

	ch <- prometheus.MustNewConstMetric(
		m.queueLengthDesc,
		prometheus.GaugeValue,
		float64(m.queueLength.Load()))
}
