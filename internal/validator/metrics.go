package validator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidationsTotal counts validation calls.
	// Labels: mode (pre, post), result (pass, fail, fail_open)
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "validator",
			Name:      "validations_total",
			Help:      "Total number of validation calls",
		},
		[]string{"mode", "result"},
	)

	// ViolationsTotal counts reported violations and issues.
	// Labels: type, severity
	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "validator",
			Name:      "violations_total",
			Help:      "Total number of violations reported by type and severity",
		},
		[]string{"type", "severity"},
	)

	// ValidationDuration tracks validation latency.
	// Labels: mode (pre, post)
	ValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatekeeper",
			Subsystem: "validator",
			Name:      "validation_duration_seconds",
			Help:      "Duration of validation calls in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"mode"},
	)

	// BudgetMissesTotal counts calls that exceeded their latency budget.
	BudgetMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "validator",
			Name:      "budget_misses_total",
			Help:      "Total number of validation calls over their latency budget",
		},
		[]string{"mode"},
	)
)
