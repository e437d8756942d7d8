package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tohoinfo/internal/core"
)

// Metrics holds the service's collectors on a private registry so several
// servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	LookupsTotal     *prometheus.CounterVec
	StaleCyclesTotal prometheus.Counter
	PlaysTotal       *prometheus.CounterVec
}

var _ core.Metrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tohoinfo_cycles_total",
				Help: "Total number of resolution cycles by outcome",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tohoinfo_cycle_duration_seconds",
				Help:    "Time spent in a resolution cycle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tohoinfo_lookups_total",
				Help: "Total number of override, song and image lookups",
			},
			[]string{"kind", "outcome"},
		),
		StaleCyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tohoinfo_stale_cycles_total",
				Help: "Total number of cycle results discarded because a newer cycle started",
			},
		),
		PlaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tohoinfo_play_original_total",
				Help: "Total number of play original requests",
			},
			[]string{"status"},
		),
	}

	metrics.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.CyclesTotal,
		metrics.CycleDuration,
		metrics.LookupsTotal,
		metrics.StaleCyclesTotal,
		metrics.PlaysTotal,
	)

	return metrics
}

// Registry exposes the collectors for the /metrics handler and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordCycle(status core.Status, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(string(status)).Inc()
	m.CycleDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *Metrics) RecordLookup(kind, outcome string) {
	m.LookupsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordStaleCycle() {
	m.StaleCyclesTotal.Inc()
}

func (m *Metrics) RecordPlay(status string) {
	m.PlaysTotal.WithLabelValues(status).Inc()
}
