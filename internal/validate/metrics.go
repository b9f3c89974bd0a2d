package validate

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type reportMetrics struct {
	registry *prometheus.Registry
	checks   *prometheus.GaugeVec
	passed   *prometheus.GaugeVec
	ts       *prometheus.GaugeVec
}

func newReportMetrics() *reportMetrics {
	m := &reportMetrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eksops",
				Subsystem: "validation",
				Name:      "checks",
				Help:      "Number of validation checks by result",
			},
			[]string{"cluster", "type", "result"},
		),
		passed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eksops",
				Subsystem: "validation",
				Name:      "passed",
				Help:      "1 if the last validation run PASSED, 0 otherwise",
			},
			[]string{"cluster", "type"},
		),
		ts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eksops",
				Subsystem: "validation",
				Name:      "timestamp_seconds",
				Help:      "Unix time of the last validation run",
			},
			[]string{"cluster", "type"},
		),
	}
	m.registry.MustRegister(m.checks, m.passed, m.ts)
	return m
}

func (m *reportMetrics) record(r *Report) {
	m.checks.WithLabelValues(r.Cluster, r.ValidationType, string(Pass)).Set(float64(r.Tally.Passed))
	m.checks.WithLabelValues(r.Cluster, r.ValidationType, string(Warn)).Set(float64(r.Warnings))
	m.checks.WithLabelValues(r.Cluster, r.ValidationType, string(Fail)).Set(float64(r.Failed))

	ok := 0.0
	if r.OK() {
		ok = 1
	}
	m.passed.WithLabelValues(r.Cluster, r.ValidationType).Set(ok)
	m.ts.WithLabelValues(r.Cluster, r.ValidationType).Set(float64(r.Timestamp.Unix()))
}

// WriteMetrics writes the report as a node_exporter textfile-collector file.
func (r *Report) WriteMetrics(path string) error {
	m := newReportMetrics()
	m.record(r)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
