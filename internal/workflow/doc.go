// Package workflow implements the five-phase gated workflow: specification,
// pseudocode, architecture, refinement and completion.
//
// A Machine holds at most one active workflow. ValidatePhase scores the
// outputs submitted for the current phase and advances only when the score
// reaches the phase's quality gate. Complete archives the workflow into a
// bounded history.
package workflow
