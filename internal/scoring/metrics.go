package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lastScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gatekeeper",
		Subsystem: "scoring",
		Name:      "last_score",
		Help:      "Most recently recorded truth score components.",
	}, []string{"component"})

	scoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "scoring",
		Name:      "records_total",
		Help:      "Recorded truth scores by status tier.",
	}, []string{"status"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "scoring",
		Name:      "verifications_total",
		Help:      "Verify calls by outcome.",
	}, []string{"verified"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "scoring",
		Name:      "rollbacks_total",
		Help:      "Rollback callback invocations by result.",
	}, []string{"result"})
)
