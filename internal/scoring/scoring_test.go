package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

// stubValidator returns canned results.
type stubValidator struct {
	pre  validator.Result
	post validator.PostResult
}

func (s stubValidator) ValidatePre(context.Context, string) validator.Result { return s.pre }

func (s stubValidator) ValidatePost(context.Context, any) validator.PostResult { return s.post }

func violations(sevs ...rules.Severity) []validator.Violation {
	out := make([]validator.Violation, 0, len(sevs))
	for _, s := range sevs {
		out = append(out, validator.Violation{Severity: s})
	}
	return out
}

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestAggregator(t *testing.T, v Validator, cfg Config, opts ...Option) *Aggregator {
	t.Helper()
	a, err := New(v, cfg, logging.Nop(), opts...)
	require.NoError(t, err)
	return a
}

func TestScore_CleanCodeIsExcellent(t *testing.T) {
	v := validator.New(rules.DefaultCatalog(), validator.DefaultConfig(), logging.Nop())
	a := newTestAggregator(t, v, DefaultConfig())

	rec := a.Score(context.Background(), "function add(a, b) { return a + b }")

	assert.Equal(t, 1.0, rec.Overall)
	assert.Equal(t, StatusExcellent, rec.Status)
	assert.Equal(t, Components{Security: 1, Quality: 1, Performance: 1}, rec.Components)
	assert.Empty(t, a.History(), "Score must not record")
}

func TestScore_SecretLowersSecurity(t *testing.T) {
	v := validator.New(rules.DefaultCatalog(), validator.DefaultConfig(), logging.Nop())
	a := newTestAggregator(t, v, DefaultConfig())

	rec := a.Score(context.Background(), `password = "super_secret_123"`)

	assert.Equal(t, 1, rec.Critical)
	assert.InDelta(t, 0.7, rec.Components.Security, 1e-9)
	assert.Less(t, rec.Overall, 1.0)
}

func TestScore_Formula(t *testing.T) {
	v := stubValidator{
		pre: validator.Result{
			Violations: violations(rules.SeverityCritical, rules.SeverityHigh, rules.SeverityLow),
			BudgetMet:  false,
		},
		post: validator.PostResult{QualityScore: 80, Issues: []validator.Issue{{Type: "hardcoded_value"}}},
	}
	a := newTestAggregator(t, v, DefaultConfig())

	rec := a.Score(context.Background(), "x")

	assert.InDelta(t, 0.55, rec.Components.Security, 1e-9)
	assert.InDelta(t, 0.8, rec.Components.Quality, 1e-9)
	assert.InDelta(t, 0.8, rec.Components.Performance, 1e-9)
	assert.InDelta(t, 0.675, rec.Overall, 1e-9)
	assert.Equal(t, StatusCritical, rec.Status)
	assert.Equal(t, 1, rec.Critical)
	assert.Equal(t, 1, rec.High)
	assert.Equal(t, 1, rec.Low)
	assert.Equal(t, 1, rec.Issues)
}

func TestScore_SecurityClampedAtZero(t *testing.T) {
	v := stubValidator{
		pre: validator.Result{
			Violations: violations(rules.SeverityCritical, rules.SeverityCritical, rules.SeverityCritical, rules.SeverityCritical),
			BudgetMet:  true,
		},
		post: validator.PostResult{QualityScore: 100},
	}
	a := newTestAggregator(t, v, DefaultConfig())

	rec := a.Score(context.Background(), "x")

	assert.Equal(t, 0.0, rec.Components.Security)
	assert.InDelta(t, 0.5, rec.Overall, 1e-9)
}

func TestScore_CustomWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{Security: 1}
	v := stubValidator{
		pre:  validator.Result{Violations: violations(rules.SeverityMedium), BudgetMet: false},
		post: validator.PostResult{QualityScore: 0},
	}
	a := newTestAggregator(t, v, cfg)

	rec := a.Score(context.Background(), "x")

	assert.InDelta(t, 0.95, rec.Overall, 1e-9)
}

func TestClassify(t *testing.T) {
	a := newTestAggregator(t, stubValidator{}, DefaultConfig())

	tests := []struct {
		score float64
		want  Status
	}{
		{1.0, StatusExcellent},
		{0.95, StatusExcellent},
		{0.9, StatusGood},
		{0.85, StatusGood},
		{0.8, StatusWarning},
		{0.75, StatusWarning},
		{0.74, StatusCritical},
		{0, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Classify(tt.score), "score %.2f", tt.score)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Security = 0.9

	_, err := New(stubValidator{}, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")

	_, err = New(nil, DefaultConfig(), nil)
	require.Error(t, err)
}

func TestCalculateScore_HistoryIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 3
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	rec := &events.Recorder{}
	a := newTestAggregator(t, stubValidator{post: validator.PostResult{QualityScore: 100}}, cfg,
		WithClock(clock.now), WithObserver(rec))

	for i := 0; i < 5; i++ {
		a.CalculateScore(context.Background(), "x")
	}

	hist := a.History()
	require.Len(t, hist, 3)
	assert.Equal(t, time.Unix(3, 0), hist[0].Timestamp)
	assert.Equal(t, time.Unix(5, 0), hist[2].Timestamp)
	assert.Len(t, rec.OfType(events.ScoreRecorded), 5)
}

func TestFromAppConfig_MatchesDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), FromAppConfig(config.Default().Scoring))
}

func TestVerify(t *testing.T) {
	clean := stubValidator{pre: validator.Result{BudgetMet: true}, post: validator.PostResult{QualityScore: 100}}
	critical := stubValidator{
		pre:  validator.Result{Violations: violations(rules.SeverityCritical), BudgetMet: true},
		post: validator.PostResult{QualityScore: 100},
	}

	t.Run("passes without rollback", func(t *testing.T) {
		a := newTestAggregator(t, clean, DefaultConfig())
		called := 0

		res := a.Verify(context.Background(), "x", 0.95, func(context.Context) error {
			called++
			return nil
		})

		assert.True(t, res.Verified)
		assert.Equal(t, Checks{NoCriticalViolations: true, Security: true, Quality: true, Performance: true}, res.Checks)
		assert.False(t, res.RollbackInvoked)
		assert.Equal(t, 0, called)
		assert.Len(t, a.History(), 1)
	})

	t.Run("rolls back once below threshold", func(t *testing.T) {
		rec := &events.Recorder{}
		a := newTestAggregator(t, critical, DefaultConfig(), WithObserver(rec))
		called := 0

		res := a.Verify(context.Background(), "x", 0.95, func(context.Context) error {
			called++
			return nil
		})

		assert.False(t, res.Verified)
		assert.False(t, res.Checks.NoCriticalViolations)
		assert.False(t, res.Checks.Security)
		assert.True(t, res.Checks.Quality)
		assert.True(t, res.RollbackInvoked)
		assert.Empty(t, res.RollbackError)
		assert.Equal(t, 1, called)
		rollbacks := rec.OfType(events.RollbackInvoked)
		require.Len(t, rollbacks, 1)
		assert.Equal(t, "ok", rollbacks[0].Attrs["result"])
	})

	t.Run("rollback error is reported", func(t *testing.T) {
		a := newTestAggregator(t, critical, DefaultConfig())

		res := a.Verify(context.Background(), "x", 0.95, func(context.Context) error {
			return errors.New("disk full")
		})

		assert.True(t, res.RollbackInvoked)
		assert.Equal(t, "disk full", res.RollbackError)
	})

	t.Run("rollback panic is reported", func(t *testing.T) {
		a := newTestAggregator(t, critical, DefaultConfig())

		res := a.Verify(context.Background(), "x", 0.95, func(context.Context) error {
			panic("no undo log")
		})

		assert.True(t, res.RollbackInvoked)
		assert.Contains(t, res.RollbackError, "no undo log")
	})

	t.Run("critical violation fails even above threshold", func(t *testing.T) {
		a := newTestAggregator(t, critical, DefaultConfig())

		res := a.Verify(context.Background(), "x", 0.5, nil)

		assert.GreaterOrEqual(t, res.Record.Overall, 0.5)
		assert.False(t, res.Verified)
		assert.False(t, res.RollbackInvoked)
	})

	t.Run("invalid threshold uses default", func(t *testing.T) {
		a := newTestAggregator(t, clean, DefaultConfig())

		res := a.Verify(context.Background(), "x", 0, nil)

		assert.Equal(t, DefaultVerifyThreshold, res.Threshold)
	})
}
