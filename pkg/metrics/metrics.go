// Package metrics provides Prometheus instrumentation for handlepool.
//
// # Overview
//
// The metrics package provides:
//   - PoolCollector, a pool.Observer that exports population gauges and
//     acquisition/release/disposal counters
//   - a /metrics HTTP handler for a registry
//   - ThroughputTracker and LatencyTracker for load runs
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewPoolCollector(reg, "sessions")
//	p, err := pool.New(lifecycle, pool.WithObserver(collector))
//
//	http.Handle("/metrics", metrics.Handler(reg))
//
// # Metric Types
//
// Counter: monotonically increasing values (acquisitions, disposals)
// Gauge: values that go up and down (handles per state)
// Histogram: distributions (how long a handle stays checked out)
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/handlepool/pkg/pool"
)

const namespace = "handlepool"

// PoolCollector exports the state of one pool. It implements pool.Observer
// and must be attached with pool.WithObserver.
type PoolCollector struct {
	name string

	handles       *prometheus.GaugeVec
	acquires      *prometheus.CounterVec
	releases      *prometheus.CounterVec
	disposals     prometheus.Counter
	disposeErrors prometheus.Counter
	factoryErrors prometheus.Counter
	holdDuration  prometheus.Observer
}

// NewPoolCollector registers the pool metrics on reg and returns a collector
// whose series carry the label pool=name. A nil reg uses the default
// Prometheus registerer.
//
// Example:
//
//	collector := metrics.NewPoolCollector(prometheus.NewRegistry(), "sessions")
//	p, _ := pool.New(lifecycle, pool.WithName("sessions"), pool.WithObserver(collector))
func NewPoolCollector(reg prometheus.Registerer, name string) *PoolCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"pool": name}

	return &PoolCollector{
		name: name,
		handles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "handles",
			Help:        "Number of handles by state (total, in_use, free)",
			ConstLabels: constLabels,
		}, []string{"state"}),
		acquires: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "acquire_total",
			Help:        "Acquire calls by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "release_total",
			Help:        "Release calls by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		disposals: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "disposals_total",
			Help:        "Handles destroyed by the pool",
			ConstLabels: constLabels,
		}),
		disposeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "dispose_errors_total",
			Help:        "Disposer failures",
			ConstLabels: constLabels,
		}),
		factoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "factory_errors_total",
			Help:        "Factory failures",
			ConstLabels: constLabels,
		}),
		holdDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "hold_duration_seconds",
			Help:        "Time a handle stays checked out",
			ConstLabels: constLabels,
			Buckets: []float64{
				0.0001, // 100μs
				0.001,  // 1ms
				0.01,   // 10ms
				0.1,    // 100ms
				1,      // 1s
				10,     // 10s
			},
		}),
	}
}

// Name returns the pool label value
func (c *PoolCollector) Name() string {
	return c.name
}

// ObserveAcquire counts an Acquire call
func (c *PoolCollector) ObserveAcquire(result pool.AcquireResult) {
	c.acquires.WithLabelValues(string(result)).Inc()
}

// ObserveRelease counts a Release call
func (c *PoolCollector) ObserveRelease(result pool.ReleaseResult) {
	c.releases.WithLabelValues(string(result)).Inc()
}

// ObserveDispose counts a disposal and, when err is set, a disposer failure
func (c *PoolCollector) ObserveDispose(err error) {
	c.disposals.Inc()
	if err != nil {
		c.disposeErrors.Inc()
	}
}

// ObserveFactoryError counts a factory failure
func (c *PoolCollector) ObserveFactoryError(error) {
	c.factoryErrors.Inc()
}

// ObserveCounts sets the population gauges
func (c *PoolCollector) ObserveCounts(total, inUse, free int) {
	c.handles.WithLabelValues("total").Set(float64(total))
	c.handles.WithLabelValues("in_use").Set(float64(inUse))
	c.handles.WithLabelValues("free").Set(float64(free))
}

// ObserveHold records how long a caller kept a handle checked out
func (c *PoolCollector) ObserveHold(d time.Duration) {
	c.holdDuration.Observe(d.Seconds())
}

var _ pool.Observer = (*PoolCollector)(nil)

// Handler returns an HTTP handler serving the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks events per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
}

// NewThroughputTracker creates a new throughput tracker
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{lastReset: time.Now()}
}

// Increment adds n to the event count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset returns events per second since the last reset and starts a
// new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	return throughput
}

// LatencyTracker keeps the most recent maxSize durations and answers
// percentile queries over them.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a new latency tracker
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		// Remove oldest
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// GetPercentile returns the percentile value (0-100)
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := make([]time.Duration, len(l.values))
	copy(sorted, l.values)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}

	return sorted[index]
}
