package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewWithRegisterer(prometheus.NewRegistry(), Config{ServiceName: "invoicegen", Environment: "test"})
}

func TestRecordAllocation(t *testing.T) {
	m := newTestMetrics()

	m.RecordAllocation(AllocationModeCommit, ResultOK)
	m.RecordAllocation(AllocationModeCommit, ResultOK)
	m.RecordAllocation(AllocationModePreview, ResultUnavailable)

	if got := testutil.ToFloat64(m.allocations.WithLabelValues("invoicegen", "test", AllocationModeCommit, ResultOK)); got != 2 {
		t.Fatalf("expected 2 committed allocations, got %v", got)
	}
	if got := testutil.ToFloat64(m.allocations.WithLabelValues("invoicegen", "test", AllocationModePreview, ResultUnavailable)); got != 1 {
		t.Fatalf("expected 1 unavailable preview, got %v", got)
	}
}

func TestRecordJobAndPurge(t *testing.T) {
	m := newTestMetrics()

	m.RecordJob("bin_purge", ResultOK, 20*time.Millisecond)
	m.AddBinPurged(3)
	m.AddBinPurged(0)
	m.SetBinSize(4)

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("invoicegen", "test", "bin_purge", ResultOK)); got != 1 {
		t.Fatalf("expected 1 job run, got %v", got)
	}
	if got := testutil.ToFloat64(m.binPurged.WithLabelValues("invoicegen", "test")); got != 3 {
		t.Fatalf("expected 3 purged, got %v", got)
	}
	if got := testutil.ToFloat64(m.binSize.WithLabelValues("invoicegen", "test")); got != 4 {
		t.Fatalf("expected bin size 4, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordAllocation(AllocationModeCommit, ResultOK)
	m.RecordAllocationRetry()
	m.RecordRecalculation(ResultOK)
	m.RecordJob("bin_purge", ResultOK, time.Second)
	m.AddBinPurged(1)
	m.SetBinSize(1)
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics()

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/invoices/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/42", nil))

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("invoicegen", "test", http.MethodGet, "/api/invoices/:id", "204"))
	if got != 1 {
		t.Fatalf("expected 1 request for route template, got %v", got)
	}
}
