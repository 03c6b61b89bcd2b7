package service

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amodvardhan/project-pipeline/internal/models"
	appErrors "github.com/amodvardhan/project-pipeline/pkg/errors"
)

// MetricsSnapshot is a point-in-time view of the lifecycle counters.
type MetricsSnapshot struct {
	Transitions     uint64    `json:"transitions"`
	Failures        uint64    `json:"failures"`
	Recomputes      uint64    `json:"recomputes"`
	CacheHits       uint64    `json:"cacheHits"`
	CacheMisses     uint64    `json:"cacheMisses"`
	CacheHitRatio   float64   `json:"cacheHitRatio"`
	EventsPublished uint64    `json:"eventsPublished"`
	EventsDropped   uint64    `json:"eventsDropped"`
	OverdueProfiles int       `json:"overdueProfiles"`
	Goroutines      int       `json:"goroutines"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// MetricsService owns the Prometheus registry for the lifecycle engine.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	transitions       *prometheus.CounterVec
	failures          *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	cacheLatency      prometheus.Observer
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	events            *prometheus.CounterVec
	overdue           prometheus.Gauge

	transitionCount uint64
	failureCount    uint64
	recomputeCount  uint64
	cacheHitCount   uint64
	cacheMissCount  uint64
	eventOKCount    uint64
	eventDropCount  uint64
	overdueCount    int64
}

// NewMetricsService registers the pipeline collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_transitions_total",
		Help: "Profile status transitions committed, by source and target status",
	}, []string{"from", "to"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_operation_failures_total",
		Help: "Lifecycle operations that returned an error, by operation and error code",
	}, []string{"operation", "code"})

	recomputeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_counter_recompute_duration_seconds",
		Help:    "Time spent recomputing project rollup counters",
		Buckets: prometheus.DefBuckets,
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_cache_latency_seconds",
		Help:    "Latency of analytics cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_cache_hits_total",
		Help: "Analytics cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_cache_misses_total",
		Help: "Analytics cache misses",
	})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_events_total",
		Help: "Lifecycle events handed to the publisher, by type and outcome",
	}, []string{"type", "outcome"})

	overdue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_overdue_profiles",
		Help: "Profiles still SUBMITTED past the SLA at the last sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(transitions, failures, recomputeDuration, cacheLatency, cacheHits, cacheMisses, events, overdue, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		transitions:       transitions,
		failures:          failures,
		recomputeDuration: recomputeDuration,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		events:            events,
		overdue:           overdue,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveTransition counts a committed status change.
func (m *MetricsService) ObserveTransition(from, to models.ProfileStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// RecordFailure counts a failed operation under the error's kind code.
func (m *MetricsService) RecordFailure(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(operation, appErrors.FromError(err).Code).Inc()
	atomic.AddUint64(&m.failureCount, 1)
}

// ObserveRecompute records the duration of one counter recompute.
func (m *MetricsService) ObserveRecompute(duration time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.recomputeCount, 1)
}

// RecordCacheOperation records an analytics cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// RecordEvent counts an event publication attempt.
func (m *MetricsService) RecordEvent(eventType models.LifecycleEventType, delivered bool) {
	if m == nil {
		return
	}
	outcome := "published"
	if !delivered {
		outcome = "dropped"
		atomic.AddUint64(&m.eventDropCount, 1)
	} else {
		atomic.AddUint64(&m.eventOKCount, 1)
	}
	m.events.WithLabelValues(string(eventType), outcome).Inc()
}

// SetOverdueProfiles publishes the size of the latest overdue sweep.
func (m *MetricsService) SetOverdueProfiles(count int) {
	if m == nil {
		return
	}
	m.overdue.Set(float64(count))
	atomic.StoreInt64(&m.overdueCount, int64(count))
}

// Snapshot returns aggregated values for logging and tests.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return MetricsSnapshot{
		Transitions:     atomic.LoadUint64(&m.transitionCount),
		Failures:        atomic.LoadUint64(&m.failureCount),
		Recomputes:      atomic.LoadUint64(&m.recomputeCount),
		CacheHits:       hits,
		CacheMisses:     misses,
		CacheHitRatio:   ratio,
		EventsPublished: atomic.LoadUint64(&m.eventOKCount),
		EventsDropped:   atomic.LoadUint64(&m.eventDropCount),
		OverdueProfiles: int(atomic.LoadInt64(&m.overdueCount)),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
}
