package orchestrator

import (
	"errors"
	"time"
)

var (
	// ErrExecutorUnavailable means the executor cannot run at all, as
	// opposed to a run that failed.
	ErrExecutorUnavailable = errors.New("executor unavailable")

	// ErrNoExecutor is returned when an Orchestrator has no executor.
	ErrNoExecutor = errors.New("orchestrator: executor is required")
)

// FinalStatus is how an orchestration ended.
type FinalStatus string

const (
	StatusSuccess            FinalStatus = "success"
	StatusMaxRetriesExceeded FinalStatus = "max_retries_exceeded"
	StatusBlocked            FinalStatus = "blocked"

	// StatusCancelled is reported when ctx ends between attempts.
	StatusCancelled FinalStatus = "cancelled"
)

// Task is one executor invocation.
type Task struct {
	Text      string `json:"text"`
	Strategy  string `json:"strategy"`
	Priority  string `json:"priority"`
	MaxAgents int    `json:"max_agents"`
}

// ExecResult is what an executor produced.
type ExecResult struct {
	Output     string         `json:"output"`
	Data       map[string]any `json:"data,omitempty"`
	Standalone bool           `json:"standalone"`
	Duration   time.Duration  `json:"duration_ns"`
}

// Code returns the executor output for code extraction.
func (r *ExecResult) Code() string {
	if r == nil {
		return ""
	}
	return r.Output
}

// PreCheck is the outcome of a pre-validation function.
type PreCheck struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
}

// Issue is one post-validation problem.
type Issue struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// PostCheck is the outcome of a post-validation function.
type PostCheck struct {
	Passed bool    `json:"passed"`
	Issues []Issue `json:"issues,omitempty"`
}

// Attempt records one pass through the loop.
type Attempt struct {
	Number   int           `json:"number"`
	Task     string        `json:"task"`
	Result   *ExecResult   `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Passed   bool          `json:"passed"`
	Issues   []Issue       `json:"issues,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Outcome is the result of Orchestrate.
type Outcome struct {
	ID          string        `json:"id"`
	Attempts    int           `json:"attempts"`
	FinalStatus FinalStatus   `json:"final_status"`
	PreCheck    *PreCheck     `json:"pre_check,omitempty"`
	History     []Attempt     `json:"history"`
	FinalTask   string        `json:"final_task"`
	Result      *ExecResult   `json:"result,omitempty"`
	Standalone  bool          `json:"standalone"`
	Duration    time.Duration `json:"duration_ns"`
}
