package readiness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pupperware_harness"

// Metrics counts probes and poll outcomes for one session. It uses its own registry so that
// separate sessions never share counters. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	probes       *prometheus.CounterVec
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with all of its collectors registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "probes_total",
			Help:      "Number of state probes, by poll name and result.",
		}, []string{"poll", "result"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_total",
			Help:      "Number of completed polls, by poll name and final status.",
		}, []string{"poll", "status"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Time from the first probe of a poll to its final status.",
			Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 240, 600},
		}, []string{"poll"}),
	}
	m.registry.MustRegister(m.probes, m.polls, m.pollDuration)
	return m
}

// Registry returns the registry that holds this session's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the current values in the Prometheus text format, for the node
// exporter's textfile collector or for a CI artifact.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeProbe(poll string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.probes.WithLabelValues(poll, result).Inc()
}

func (m *Metrics) observePoll(poll string, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(poll, status.String()).Inc()
	m.pollDuration.WithLabelValues(poll).Observe(elapsed.Seconds())
}
