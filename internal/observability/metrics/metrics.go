package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

const (
	AllocationModeCommit  = "commit"
	AllocationModePreview = "preview"

	ResultOK          = "ok"
	ResultError       = "error"
	ResultUnavailable = "unavailable"
	ResultContention  = "contention"
	ResultInvalid     = "invalid"
	ResultSkipped     = "skipped"
)

// Metrics holds the invoicing prometheus collectors. All methods are nil-safe.
type Metrics struct {
	allocations       *prometheus.CounterVec
	allocationRetries *prometheus.CounterVec
	recalculations    *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	binPurged         *prometheus.CounterVec
	binSize           *prometheus.GaugeVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	service string
	env     string
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New returns the process-wide metrics registered on the default registerer.
func New(cfg Config) *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewWithRegisterer(prometheus.DefaultRegisterer, cfg)
	})
	return defaultMetrics
}

// NewWithRegisterer builds metrics on an explicit registerer (tests use a fresh registry).
func NewWithRegisterer(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "invoicegen"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "unknown"
	}

	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_serial_allocations_total",
			Help: "Invoice serial allocations by mode and result.",
		}, []string{"service", "env", "mode", "result"}),
		allocationRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_serial_allocation_retries_total",
			Help: "Serial commits retried because another writer advanced the watermark.",
		}, []string{"service", "env"}),
		recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_recalculations_total",
			Help: "Currency and totals recalculations by result.",
		}, []string{"service", "env", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_job_runs_total",
			Help: "Background job runs by job and result.",
		}, []string{"service", "env", "job_name", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicegen_job_duration_seconds",
			Help:    "Background job duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "env", "job_name"}),
		binPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_bin_purged_invoices_total",
			Help: "Invoices permanently removed from the bin.",
		}, []string{"service", "env"}),
		binSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "invoicegen_bin_invoices",
			Help: "Invoices currently in the bin, as of the last purge.",
		}, []string{"service", "env"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicegen_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"service", "env", "method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicegen_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "env", "method", "route"}),
		service: service,
		env:     env,
	}

	registerer.MustRegister(
		m.allocations,
		m.allocationRetries,
		m.recalculations,
		m.jobRuns,
		m.jobDuration,
		m.binPurged,
		m.binSize,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordAllocation(mode, result string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(m.service, m.env, mode, result).Inc()
}

func (m *Metrics) RecordAllocationRetry() {
	if m == nil {
		return
	}
	m.allocationRetries.WithLabelValues(m.service, m.env).Inc()
}

func (m *Metrics) RecordRecalculation(result string) {
	if m == nil {
		return
	}
	m.recalculations.WithLabelValues(m.service, m.env, result).Inc()
}

func (m *Metrics) RecordJob(job, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(m.service, m.env, job, result).Inc()
	m.jobDuration.WithLabelValues(m.service, m.env, job).Observe(elapsed.Seconds())
}

func (m *Metrics) AddBinPurged(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.binPurged.WithLabelValues(m.service, m.env).Add(float64(count))
}

func (m *Metrics) SetBinSize(count int64) {
	if m == nil {
		return
	}
	m.binSize.WithLabelValues(m.service, m.env).Set(float64(count))
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequests.WithLabelValues(m.service, m.env, c.Request.Method, route, status).Inc()
		m.httpDuration.WithLabelValues(m.service, m.env, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
