package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
)

var (
	// ErrInvalidHandler is returned when registering a nil handler.
	ErrInvalidHandler = errors.New("hook handler must not be nil")

	// ErrInvalidID is returned when registering a hook without an id.
	ErrInvalidID = errors.New("hook id must not be empty")

	// ErrHookNotFound is returned when no hook has the given id.
	ErrHookNotFound = errors.New("hook not found")

	// ErrInvalidPriority is returned for an unknown priority.
	ErrInvalidPriority = errors.New("invalid hook priority")

	// ErrUnknownPhase is returned for a phase other than pre or post.
	ErrUnknownPhase = errors.New("unknown hook phase")
)

// Priority orders hooks. Lower values run first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Priority) valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// ParsePriority parses a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return PriorityCritical, nil
	case "HIGH":
		return PriorityHigh, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Phase selects a registry.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Valid reports whether p names a registry.
func (p Phase) Valid() bool {
	return p == PhasePre || p == PhasePost
}

// Context carries caller-supplied data to handlers.
type Context map[string]any

// PreDecision is a pre hook's verdict.
type PreDecision struct {
	Allowed    bool
	Reason     string
	Severity   rules.Severity
	Suggestion string
}

// Allow is the decision of a hook with no objection.
func Allow() PreDecision { return PreDecision{Allowed: true} }

// Deny builds a veto.
func Deny(reason string, severity rules.Severity, suggestion string) PreDecision {
	return PreDecision{Reason: reason, Severity: severity, Suggestion: suggestion}
}

// Issue is a problem reported by a post hook.
type Issue struct {
	Hook       string         `json:"hook"`
	Type       string         `json:"type,omitempty"`
	Severity   rules.Severity `json:"severity,omitempty"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// PostDecision is a post hook's verdict.
type PostDecision struct {
	Valid  bool
	Issues []Issue
}

// PreHandler inspects a tool call before it runs.
type PreHandler func(ctx context.Context, tool string, params map[string]any, hctx Context) (PreDecision, error)

// PostHandler inspects a tool call's result.
type PostHandler func(ctx context.Context, tool string, params map[string]any, result any, hctx Context) (PostDecision, error)

// Intervention records a veto.
type Intervention struct {
	Hook       string         `json:"hook"`
	Priority   Priority       `json:"priority"`
	Reason     string         `json:"reason"`
	Severity   rules.Severity `json:"severity,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	At         time.Time      `json:"at"`
}

// PreResult is the outcome of RunPre.
type PreResult struct {
	Allowed       bool           `json:"allowed"`
	Interventions []Intervention `json:"interventions"`
	Executed      []string       `json:"executed"`
	ResponseTime  time.Duration  `json:"response_time_ns"`
	BudgetMet     bool           `json:"budget_met"`
}

// PostResult is the outcome of RunPost.
type PostResult struct {
	Valid        bool          `json:"valid"`
	Issues       []Issue       `json:"issues"`
	Executed     []string      `json:"executed"`
	ResponseTime time.Duration `json:"response_time_ns"`
	BudgetMet    bool          `json:"budget_met"`
}
