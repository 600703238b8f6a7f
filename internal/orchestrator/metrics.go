package orchestrator

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/gatekeeper/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/gatekeeper/internal/orchestrator"

type instruments struct {
	tracer trace.Tracer

	orchestrations  metric.Int64Counter
	attempts        metric.Int64Counter
	attemptDuration metric.Float64Histogram
}

// newInstruments builds the orchestrator's instruments. A nil telemetry
// uses the global providers.
func newInstruments(tel *telemetry.Telemetry) (*instruments, error) {
	meter := tel.Meter(instrumentationName)
	in := &instruments{tracer: tel.Tracer(instrumentationName)}

	var err error
	in.orchestrations, err = meter.Int64Counter(
		"gatekeeper.orchestrator.runs",
		metric.WithDescription("Orchestration runs by final status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}

	in.attempts, err = meter.Int64Counter(
		"gatekeeper.orchestrator.attempts",
		metric.WithDescription("Executor attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	in.attemptDuration, err = meter.Float64Histogram(
		"gatekeeper.orchestrator.attempt.duration",
		metric.WithDescription("Duration of one attempt including validation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempt duration histogram: %w", err)
	}
	return in, nil
}
