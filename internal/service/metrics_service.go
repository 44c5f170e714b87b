package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
// All record methods are safe on a nil receiver so services can run
// uninstrumented in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sessionsOpened  prometheus.Counter
	sessionsClosed  prometheus.Counter
	sessionSkew     prometheus.Counter
	reportsCreated  prometheus.Counter
	reportsForward  prometheus.Counter
	forwardConflict prometheus.Counter
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sessionsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_sessions_opened_total",
		Help: "Total login sessions opened",
	})

	sessionsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_sessions_closed_total",
		Help: "Total login sessions closed",
	})

	sessionSkew := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_session_clock_skew_total",
		Help: "Total session closes whose logout preceded the recorded login",
	})

	reportsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equipment_reports_submitted_total",
		Help: "Total equipment reports submitted",
	})

	reportsForward := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equipment_reports_forwarded_total",
		Help: "Total equipment reports forwarded to the administrator",
	})

	forwardConflict := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "equipment_report_forward_conflicts_total",
		Help: "Total forward attempts lost to a concurrent forward",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sessionsOpened, sessionsClosed, sessionSkew,
		reportsCreated, reportsForward, forwardConflict, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sessionsOpened:  sessionsOpened,
		sessionsClosed:  sessionsClosed,
		sessionSkew:     sessionSkew,
		reportsCreated:  reportsCreated,
		reportsForward:  reportsForward,
		forwardConflict: forwardConflict,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records per-request latency and volume.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSessionOpened counts a successful session open.
func (m *MetricsService) RecordSessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpened.Inc()
}

// RecordSessionClosed counts a successful session close.
func (m *MetricsService) RecordSessionClosed() {
	if m == nil {
		return
	}
	m.sessionsClosed.Inc()
}

// RecordSessionClockSkew counts closes whose logout timestamp preceded login.
func (m *MetricsService) RecordSessionClockSkew() {
	if m == nil {
		return
	}
	m.sessionSkew.Inc()
}

// RecordReportSubmitted counts a newly filed equipment report.
func (m *MetricsService) RecordReportSubmitted() {
	if m == nil {
		return
	}
	m.reportsCreated.Inc()
}

// RecordReportForwarded counts a successful escalation.
func (m *MetricsService) RecordReportForwarded() {
	if m == nil {
		return
	}
	m.reportsForward.Inc()
}

// RecordForwardConflict counts a forward attempt that lost the race.
func (m *MetricsService) RecordForwardConflict() {
	if m == nil {
		return
	}
	m.forwardConflict.Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
