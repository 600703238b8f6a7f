package hooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hookExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "hooks",
		Name:      "executions_total",
		Help:      "Hook handler executions by phase, hook and outcome.",
	}, []string{"phase", "hook", "outcome"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gatekeeper",
		Subsystem: "hooks",
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of a full pre or post pipeline run.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	}, []string{"phase"})

	budgetExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatekeeper",
		Subsystem: "hooks",
		Name:      "budget_exceeded_total",
		Help:      "Pipeline runs that exceeded their latency budget.",
	}, []string{"phase"})
)
