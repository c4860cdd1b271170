package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zulandar/assignyard/internal/session"
)

const namespace = "assignyard"

// metrics holds the API collectors on a registry owned by the server.
type metrics struct {
	registry *prometheus.Registry
	edits    *prometheus.CounterVec
	saves    *prometheus.CounterVec
	lookups  *prometheus.CounterVec
}

func newMetrics(sessions *session.Registry) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Field edits applied through the API.",
		}, []string{"field", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save attempts by outcome.",
		}, []string{"outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Resource lookups by outcome.",
		}, []string{"outcome"}),
	}
	open := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_open",
		Help:      "Editing sessions currently open.",
	}, func() float64 { return float64(sessions.Len()) })

	m.registry.MustRegister(m.edits, m.saves, m.lookups, open)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
