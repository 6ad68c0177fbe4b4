package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunFinished(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RunFinished(nil)
	m.RunFinished(errors.New("sink down"))
	m.RunFinished(nil)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if testutil.ToFloat64(m.LastSuccess) == 0 {
		t.Error("expected last success timestamp to be set")
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RowsLoaded.WithLabelValues("price_history").Add(42)
	m.ObserveStep("load", time.Now().Add(-time.Second))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	if !strings.Contains(text, `marketetl_rows_loaded_total{table="price_history"} 42`) {
		t.Errorf("rows loaded counter missing from output:\n%s", text)
	}
	if !strings.Contains(text, `marketetl_step_duration_seconds_count{step="load"} 1`) {
		t.Errorf("step histogram missing from output:\n%s", text)
	}
}
