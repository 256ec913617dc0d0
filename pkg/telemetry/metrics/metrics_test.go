package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/callisto/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
	}
}

func TestNewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if collector.Evaluation() == nil {
		t.Error("expected evaluation metrics")
	}
	if collector.History() == nil {
		t.Error("expected history metrics")
	}
}

func TestNewCollector_NilRegistry(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	if collector.Registry() == nil {
		t.Fatal("expected a private registry to be created")
	}
}

func TestEvaluationMetrics_RecordTick(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	em := collector.Evaluation()

	em.RecordTick("success", 150*time.Millisecond, 10, 25, 2)
	em.RecordTick("success", 50*time.Millisecond, 5, 0, 0)
	em.RecordTick("abandoned", 10*time.Millisecond, 0, 0, 0)

	if got := testutil.ToFloat64(em.ticksTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful ticks, got %v", got)
	}
	if got := testutil.ToFloat64(em.ticksTotal.WithLabelValues("abandoned")); got != 1 {
		t.Errorf("expected 1 abandoned tick, got %v", got)
	}
	if got := testutil.ToFloat64(em.entitiesEvaluated); got != 15 {
		t.Errorf("expected 15 entities evaluated, got %v", got)
	}
	if got := testutil.ToFloat64(em.partitionsRequested); got != 25 {
		t.Errorf("expected 25 partitions requested, got %v", got)
	}
	if got := testutil.ToFloat64(em.warningsTotal); got != 2 {
		t.Errorf("expected 2 warnings, got %v", got)
	}
}

func TestEvaluationMetrics_RecordSkipped(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	em := collector.Evaluation()

	em.RecordSkipped("custom_condition_disabled")
	em.RecordSkipped("custom_condition_disabled")

	if got := testutil.ToFloat64(em.entitiesSkipped.WithLabelValues("custom_condition_disabled")); got != 2 {
		t.Errorf("expected 2 skipped entities, got %v", got)
	}
}

func TestEvaluationMetrics_RecordCapRejection(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	em := collector.Evaluation()

	em.RecordCapRejection()

	if got := testutil.ToFloat64(em.capRejections); got != 1 {
		t.Errorf("expected 1 cap rejection, got %v", got)
	}
}

func TestHistoryMetrics_RecordOperation(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	hm := collector.History()

	hm.RecordOperation("commit", "success", 5*time.Millisecond)
	hm.RecordOperation("commit", "error", 2*time.Millisecond)
	hm.RecordCommitted(12)

	if got := testutil.ToFloat64(hm.operationsTotal.WithLabelValues("commit", "success")); got != 1 {
		t.Errorf("expected 1 successful commit, got %v", got)
	}
	if got := testutil.ToFloat64(hm.operationsTotal.WithLabelValues("commit", "error")); got != 1 {
		t.Errorf("expected 1 failed commit, got %v", got)
	}
	if got := testutil.ToFloat64(hm.recordsCommitted); got != 12 {
		t.Errorf("expected 12 committed records, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.Evaluation().RecordTick("success", time.Second, 1, 1, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "test_ticks_total") {
		t.Errorf("expected test_ticks_total in exposition output, got:\n%s", body)
	}
}
