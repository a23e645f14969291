package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	questionsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dsamentor",
			Name:      "questions_delivered_total",
			Help:      "Count of questions delivered, by trigger.",
		},
		[]string{"trigger"},
	)

	questionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dsamentor",
			Name:      "questions_resolved_total",
			Help:      "Count of questions resolved, by final status.",
		},
		[]string{"status"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dsamentor",
			Name:      "sweep_runs_total",
			Help:      "Count of sweep executions, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	catalogRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dsamentor",
			Name:      "catalog_refresh_total",
			Help:      "Count of catalog refresh attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(questionsDelivered, questionsResolved, sweepRuns, catalogRefresh)
	})
}

func IncQuestionDelivered(trigger string) {
	questionsDelivered.WithLabelValues(trigger).Inc()
}

func IncQuestionResolved(status string) {
	questionsResolved.WithLabelValues(status).Inc()
}

func IncSweepRun(kind, outcome string) {
	sweepRuns.WithLabelValues(kind, outcome).Inc()
}

func IncCatalogRefresh(outcome string) {
	catalogRefresh.WithLabelValues(outcome).Inc()
}
