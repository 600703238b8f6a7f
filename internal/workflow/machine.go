package workflow

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
)

const eventSource = "workflow"

// Scorer scores code outputs. *scoring.Aggregator implements it.
type Scorer interface {
	Score(ctx context.Context, text string) scoring.Record
}

// CustomValidator reports extra issues for a phase's outputs. Each issue
// costs 0.1.
type CustomValidator func(ctx context.Context, phase Phase, outputs map[string]any) []string

// PhaseResult is the outcome of ValidatePhase.
type PhaseResult struct {
	Phase       Phase     `json:"phase"`
	Passed      bool      `json:"passed"`
	Score       float64   `json:"score"`
	QualityGate float64   `json:"quality_gate"`
	Missing     []string  `json:"missing,omitempty"`
	Issues      []string  `json:"issues,omitempty"`
	Remediation []string  `json:"remediation,omitempty"`
	TruthScore  *float64  `json:"truth_score,omitempty"`
	NextPhase   Phase     `json:"next_phase,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Workflow is the active workflow state.
type Workflow struct {
	ID        string                `json:"id"`
	Task      string                `json:"task"`
	Current   Phase                 `json:"current_phase"`
	Completed []Phase               `json:"completed_phases"`
	Results   map[Phase]PhaseResult `json:"phase_results"`
	Finished  bool                  `json:"finished"`
	StartedAt time.Time             `json:"started_at"`

	index int
}

func (w *Workflow) clone() Workflow {
	c := *w
	c.Completed = append([]Phase(nil), w.Completed...)
	c.Results = make(map[Phase]PhaseResult, len(w.Results))
	for k, v := range w.Results {
		c.Results[k] = v
	}
	return c
}

// StartResult is returned by Start.
type StartResult struct {
	WorkflowID   string `json:"workflow_id"`
	CurrentPhase Phase  `json:"current_phase"`
}

// Summary describes an archived workflow.
type Summary struct {
	ID              string                `json:"id"`
	Task            string                `json:"task"`
	CompletedPhases []Phase               `json:"completed_phases"`
	Results         map[Phase]PhaseResult `json:"phase_results"`
	Finished        bool                  `json:"finished"`
	AverageScore    float64               `json:"average_score"`
	StartedAt       time.Time             `json:"started_at"`
	CompletedAt     time.Time             `json:"completed_at"`
	Duration        time.Duration         `json:"duration_ns"`
}

// Machine runs one workflow at a time.
type Machine struct {
	mu          sync.Mutex
	active      *Workflow
	archive     []Summary
	archiveSize int

	scorer   Scorer
	logger   *logging.Logger
	observer events.Observer
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithScorer scores "code" outputs with the truth scoring aggregator.
func WithScorer(s Scorer) Option {
	return func(m *Machine) { m.scorer = s }
}

// WithObserver sets the event observer.
func WithObserver(o events.Observer) Option {
	return func(m *Machine) { m.observer = events.OrNop(o) }
}

// WithArchiveSize bounds the archive of completed workflows.
func WithArchiveSize(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.archiveSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New creates a Machine with no active workflow.
func New(logger *logging.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = logging.Nop()
	}
	m := &Machine{
		archiveSize: 50,
		logger:      logger.Named("workflow"),
		observer:    events.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig creates a Machine from the workflow config section.
func NewFromConfig(cfg config.WorkflowConfig, logger *logging.Logger, opts ...Option) *Machine {
	return New(logger, append([]Option{WithArchiveSize(cfg.ArchiveSize)}, opts...)...)
}

// Start begins a new workflow at the specification phase. An active
// workflow is replaced.
func (m *Machine) Start(ctx context.Context, task string) StartResult {
	w := &Workflow{
		ID:        uuid.NewString(),
		Task:      task,
		Current:   phases[0].Name,
		Completed: []Phase{},
		Results:   map[Phase]PhaseResult{},
		StartedAt: m.now(),
	}

	m.mu.Lock()
	replaced := m.active
	m.active = w
	m.mu.Unlock()

	ctx = logging.WithWorkflowID(ctx, w.ID)
	if replaced != nil {
		m.logger.Warn(ctx, "replacing active workflow", zap.String("replaced_id", replaced.ID))
	}
	m.logger.Info(ctx, "workflow started", zap.String("phase", string(w.Current)))
	m.observer.Observe(ctx, events.New(events.WorkflowStarted, eventSource, map[string]any{
		"workflow_id": w.ID,
		"task":        task,
	}))
	return StartResult{WorkflowID: w.ID, CurrentPhase: w.Current}
}

// Current returns a copy of the active workflow.
func (m *Machine) Current() (Workflow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Workflow{}, false
	}
	return m.active.clone(), true
}

// ValidatePhase scores outputs for phase, which must be the current phase.
// The workflow advances only when the score reaches the phase's gate.
func (m *Machine) ValidatePhase(ctx context.Context, phase Phase, outputs map[string]any, custom CustomValidator) (PhaseResult, error) {
	phase, err := ParsePhase(string(phase))
	if err != nil {
		return PhaseResult{}, err
	}
	idx, _ := phaseIndex(phase)

	m.mu.Lock()
	w := m.active
	if w == nil {
		m.mu.Unlock()
		return PhaseResult{}, ErrNoActiveWorkflow
	}
	if w.Finished {
		m.mu.Unlock()
		return PhaseResult{}, ErrWorkflowFinished
	}
	if idx != w.index {
		current := w.Current
		m.mu.Unlock()
		return PhaseResult{}, fmt.Errorf("%w: current phase is %s, got %s", ErrPhaseOutOfOrder, current, phase)
	}
	id := w.ID
	m.mu.Unlock()

	ctx = logging.WithWorkflowID(ctx, id)
	res := m.evaluate(ctx, phases[idx], outputs, custom)

	m.mu.Lock()
	// The workflow may have been replaced while scoring.
	if m.active != w || w.index != idx {
		m.mu.Unlock()
		return PhaseResult{}, fmt.Errorf("%w: workflow changed during validation", ErrPhaseOutOfOrder)
	}
	w.Results[phase] = res
	if res.Passed {
		w.Completed = append(w.Completed, phase)
		if idx+1 < len(phases) {
			w.index = idx + 1
			w.Current = phases[w.index].Name
			res.NextPhase = w.Current
			w.Results[phase] = res
		} else {
			w.Finished = true
		}
	}
	m.mu.Unlock()

	attrs := map[string]any{
		"workflow_id": id,
		"phase":       string(phase),
		"score":       res.Score,
		"gate":        res.QualityGate,
	}
	if res.Passed {
		m.logger.Info(ctx, "phase passed",
			zap.String("phase", string(phase)),
			zap.Float64("score", res.Score))
		m.observer.Observe(ctx, events.New(events.PhasePassed, eventSource, attrs))
	} else {
		m.logger.Warn(ctx, "phase failed quality gate",
			zap.String("phase", string(phase)),
			zap.Float64("score", res.Score),
			zap.Float64("gate", res.QualityGate))
		attrs["issues"] = len(res.Issues) + len(res.Missing)
		m.observer.Observe(ctx, events.New(events.PhaseFailed, eventSource, attrs))
	}
	return res, nil
}

func (m *Machine) evaluate(ctx context.Context, spec PhaseSpec, outputs map[string]any, custom CustomValidator) PhaseResult {
	res := PhaseResult{
		Phase:       spec.Name,
		QualityGate: spec.QualityGate,
		Timestamp:   m.now(),
	}
	score := 1.0

	for _, field := range spec.RequiredOutputs {
		if !present(outputs[field]) {
			res.Missing = append(res.Missing, field)
			res.Remediation = append(res.Remediation, fmt.Sprintf("Provide the %q output", field))
			score -= missingOutputPenalty
		}
	}

	if check := structuralChecks[spec.Name]; check != nil {
		for _, f := range check(outputs) {
			res.Issues = append(res.Issues, f.issue)
			res.Remediation = append(res.Remediation, f.remediation)
			score -= f.penalty
		}
	}

	if custom != nil {
		for _, issue := range runCustom(ctx, m.logger, custom, spec.Name, outputs) {
			res.Issues = append(res.Issues, issue)
			score -= customIssuePenalty
		}
	}

	if code, ok := outputs["code"].(string); ok && code != "" && m.scorer != nil {
		rec := m.scorer.Score(ctx, code)
		truth := rec.Overall
		res.TruthScore = &truth
		score -= 1 - truth
		if rec.Critical > 0 {
			res.Issues = append(res.Issues, fmt.Sprintf("code has %d critical violation(s)", rec.Critical))
			res.Remediation = append(res.Remediation, "Fix the critical security violations in the code output")
		}
	}

	res.Score = round(math.Max(0, score))
	res.Passed = res.Score >= spec.QualityGate
	if !res.Passed {
		res.Remediation = append(res.Remediation,
			fmt.Sprintf("Raise the %s score from %.2f to at least %.2f", spec.Name, res.Score, spec.QualityGate))
	}
	return res
}

// runCustom calls a caller-supplied validator. A panic counts as one issue.
func runCustom(ctx context.Context, logger *logging.Logger, fn CustomValidator, phase Phase, outputs map[string]any) (issues []string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "custom phase validator panicked", zap.Any("panic", r))
			issues = []string{fmt.Sprintf("custom validator failed: %v", r)}
		}
	}()
	return fn(ctx, phase, outputs)
}

// round trims float noise from repeated subtraction.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Complete archives the active workflow and clears it.
func (m *Machine) Complete(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	w := m.active
	if w == nil {
		m.mu.Unlock()
		return Summary{}, ErrNoActiveWorkflow
	}
	m.active = nil

	c := w.clone()
	s := Summary{
		ID:              c.ID,
		Task:            c.Task,
		CompletedPhases: c.Completed,
		Results:         c.Results,
		Finished:        c.Finished,
		StartedAt:       c.StartedAt,
		CompletedAt:     m.now(),
	}
	s.Duration = s.CompletedAt.Sub(s.StartedAt)
	if len(c.Results) > 0 {
		var total float64
		for _, r := range c.Results {
			total += r.Score
		}
		s.AverageScore = round(total / float64(len(c.Results)))
	}

	m.archive = append(m.archive, s)
	if over := len(m.archive) - m.archiveSize; over > 0 {
		m.archive = append([]Summary(nil), m.archive[over:]...)
	}
	m.mu.Unlock()

	ctx = logging.WithWorkflowID(ctx, s.ID)
	m.logger.Info(ctx, "workflow completed",
		zap.Int("completed_phases", len(s.CompletedPhases)),
		zap.Bool("finished", s.Finished))
	m.observer.Observe(ctx, events.New(events.WorkflowCompleted, eventSource, map[string]any{
		"workflow_id":      s.ID,
		"completed_phases": len(s.CompletedPhases),
		"finished":         s.Finished,
		"average_score":    s.AverageScore,
	}))
	return s, nil
}

// History returns archived workflow summaries, oldest first.
func (m *Machine) History() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Summary(nil), m.archive...)
}
