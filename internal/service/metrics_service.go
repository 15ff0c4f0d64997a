package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "qc"

// MetricsService owns the Prometheus registry for the workbench. All methods
// are safe on a nil receiver so callers can run without metrics.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec

	cacheLookups  *prometheus.HistogramVec
	cacheWrites   prometheus.Histogram
	cacheHitRatio prometheus.Gauge

	llmDuration     *prometheus.HistogramVec
	workSubmissions *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the workbench collectors plus the Go runtime and
// process collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template.",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookup_seconds",
			Help:      "Subject cache lookup latency by result.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"result"}),
		cacheWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "write_seconds",
			Help:      "Subject cache write latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Cache hits over lookups since start.",
		}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion latency by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		workSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "work_submissions_total",
			Help:      "Recorded question submissions by exam and file type.",
		}, []string{"exam_type", "file_type"}),
		exportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_jobs_total",
			Help:      "Progress export jobs by terminal status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpTotal,
		m.cacheLookups, m.cacheWrites, m.cacheHitRatio,
		m.llmDuration, m.workSubmissions, m.exportJobs,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation records one lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	counter := &m.cacheMissCount
	if hit {
		result = "hit"
		counter = &m.cacheHitCount
	}
	m.cacheLookups.WithLabelValues(result).Observe(d.Seconds())
	atomic.AddUint64(counter, 1)

	hits := atomic.LoadUint64(&m.cacheHitCount)
	m.cacheHitRatio.Set(float64(hits) / float64(hits+atomic.LoadUint64(&m.cacheMissCount)))
}

func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(d.Seconds())
}

// ObserveLLMCall records one chat completion; outcome is "ok", "error" or "mock".
func (m *MetricsService) ObserveLLMCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *MetricsService) RecordWorkSubmission(examType, fileType string) {
	if m == nil {
		return
	}
	m.workSubmissions.WithLabelValues(examType, fileType).Inc()
}

func (m *MetricsService) RecordExportJob(status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(status).Inc()
}
