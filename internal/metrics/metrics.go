package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the ETL pipeline.
type Metrics struct {
	RowsRead     *prometheus.CounterVec // labels: table
	RowsLoaded   *prometheus.CounterVec // labels: table
	Malformed    *prometheus.CounterVec // labels: file
	SecurityFail prometheus.Counter
	RunsTotal    *prometheus.CounterVec // labels: status=ok|error
	StepDuration *prometheus.HistogramVec
	LastSuccess  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the pipeline metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketetl_rows_read_total",
			Help: "Rows parsed from input files (by table)",
		}, []string{"table"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketetl_rows_loaded_total",
			Help: "Rows sent to PostgreSQL after watermark filtering (by table)",
		}, []string{"table"}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketetl_malformed_records_total",
			Help: "Input records skipped as malformed (by file)",
		}, []string{"file"}),
		SecurityFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketetl_security_failures_total",
			Help: "Securities whose indicator computation failed",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketetl_runs_total",
			Help: "Pipeline runs (by status)",
		}, []string{"status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketetl_step_duration_seconds",
			Help:    "Duration of pipeline steps",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketetl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RowsRead,
		m.RowsLoaded,
		m.Malformed,
		m.SecurityFail,
		m.RunsTotal,
		m.StepDuration,
		m.LastSuccess,
	)

	return m
}

// ObserveStep records how long a pipeline step took
func (m *Metrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// RunFinished records the outcome of a pipeline run
func (m *Metrics) RunFinished(err error) {
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.LastSuccess.SetToCurrentTime()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
