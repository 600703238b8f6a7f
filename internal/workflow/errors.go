package workflow

import "errors"

var (
	// ErrUnknownPhase is returned for a phase name outside the fixed list.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrPhaseOutOfOrder is returned when validating a phase other than
	// the current one.
	ErrPhaseOutOfOrder = errors.New("phase out of order")

	// ErrNoActiveWorkflow is returned when no workflow has been started.
	ErrNoActiveWorkflow = errors.New("no active workflow")

	// ErrWorkflowFinished is returned when validating after the final phase
	// has passed.
	ErrWorkflowFinished = errors.New("workflow already passed its final phase")
)
