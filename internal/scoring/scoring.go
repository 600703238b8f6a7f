package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

const eventSource = "scoring"

// Status is a score tier.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"

	// StatusNoData is reported by Dashboard when no scores fall in the period.
	StatusNoData Status = "no_data"
)

// Validator is the subset of the pattern validator the aggregator needs.
type Validator interface {
	ValidatePre(ctx context.Context, text string) validator.Result
	ValidatePost(ctx context.Context, result any) validator.PostResult
}

// Components are the clamped component scores.
type Components struct {
	Security    float64 `json:"security"`
	Quality     float64 `json:"quality"`
	Performance float64 `json:"performance"`
}

// Record is one computed score.
type Record struct {
	Overall    float64    `json:"overall_score"`
	Components Components `json:"component_scores"`
	Status     Status     `json:"status"`
	Critical   int        `json:"critical"`
	High       int        `json:"high"`
	Medium     int        `json:"medium"`
	Low        int        `json:"low"`
	Issues     int        `json:"issues"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Aggregator computes truth scores and keeps their history.
type Aggregator struct {
	v        Validator
	cfg      Config
	logger   *logging.Logger
	observer events.Observer
	now      func() time.Time

	mu      sync.Mutex
	history *history
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithObserver sets the event observer.
func WithObserver(o events.Observer) Option {
	return func(a *Aggregator) { a.observer = events.OrNop(o) }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator.
func New(v Validator, cfg Config, logger *logging.Logger, opts ...Option) (*Aggregator, error) {
	if v == nil {
		return nil, fmt.Errorf("scoring: validator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	a := &Aggregator{
		v:        v,
		cfg:      cfg,
		logger:   logger.Named("scoring"),
		observer: events.Nop(),
		now:      time.Now,
		history:  newHistory(cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the aggregator configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// Score computes a record for text without touching the history.
func (a *Aggregator) Score(ctx context.Context, text string) Record {
	pre := a.v.ValidatePre(ctx, text)
	post := a.v.ValidatePost(ctx, text)

	counts := pre.CountBySeverity()
	rec := Record{
		Critical:  counts[rules.SeverityCritical],
		High:      counts[rules.SeverityHigh],
		Medium:    counts[rules.SeverityMedium],
		Low:       counts[rules.SeverityLow],
		Issues:    len(post.Issues),
		Timestamp: a.now(),
	}

	security := 1 -
		a.cfg.CriticalPenalty*float64(rec.Critical) -
		a.cfg.HighPenalty*float64(rec.High) -
		a.cfg.MediumPenalty*float64(rec.Medium)
	performance := 1.0
	if !pre.BudgetMet {
		performance = a.cfg.SlowPerformance
	}
	rec.Components = Components{
		Security:    clamp(security),
		Quality:     clamp(post.QualityScore / 100),
		Performance: clamp(performance),
	}

	w := a.cfg.Weights
	rec.Overall = clamp(w.Security*rec.Components.Security +
		w.Quality*rec.Components.Quality +
		w.Performance*rec.Components.Performance)
	rec.Status = a.Classify(rec.Overall)
	return rec
}

// CalculateScore computes a record for text and appends it to the history.
func (a *Aggregator) CalculateScore(ctx context.Context, text string) Record {
	rec := a.Score(ctx, text)
	a.record(ctx, rec)
	return rec
}

func (a *Aggregator) record(ctx context.Context, rec Record) {
	a.mu.Lock()
	a.history.push(rec)
	a.mu.Unlock()

	lastScore.WithLabelValues("overall").Set(rec.Overall)
	lastScore.WithLabelValues("security").Set(rec.Components.Security)
	lastScore.WithLabelValues("quality").Set(rec.Components.Quality)
	lastScore.WithLabelValues("performance").Set(rec.Components.Performance)
	scoresTotal.WithLabelValues(string(rec.Status)).Inc()

	a.logger.Debug(ctx, "score recorded",
		zap.Float64("overall", rec.Overall),
		zap.String("status", string(rec.Status)))
	a.observer.Observe(ctx, events.New(events.ScoreRecorded, eventSource, map[string]any{
		"overall":  rec.Overall,
		"status":   string(rec.Status),
		"critical": rec.Critical,
	}))
}

// Classify maps a score onto a status tier.
func (a *Aggregator) Classify(score float64) Status {
	switch {
	case score >= a.cfg.ExcellentThreshold:
		return StatusExcellent
	case score >= a.cfg.WarningThreshold:
		return StatusGood
	case score >= a.cfg.CriticalThreshold:
		return StatusWarning
	}
	return StatusCritical
}

// History returns the recorded scores, oldest first.
func (a *Aggregator) History() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.records()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
