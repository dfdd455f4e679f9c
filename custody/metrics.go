package custody

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_mutations_total",
		Help: "Repository mutations by operation and outcome",
	}, []string{"op", "outcome"})

	notifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custody_notify_failures_total",
		Help: "Change notifications the notifier failed to publish",
	})

	orphanedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_orphaned_records",
		Help: "Active records with no audit entries at the last integrity check",
	})
)

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(op, outcome).Inc()
}
