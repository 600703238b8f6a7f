package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

type fixedScorer struct {
	rec   scoring.Record
	calls int
}

func (f *fixedScorer) Score(context.Context, string) scoring.Record {
	f.calls++
	return f.rec
}

func completeOutputs(phase Phase) map[string]any {
	switch phase {
	case PhaseSpecification:
		return map[string]any{
			"requirements":        []any{"users can log in"},
			"constraints":         []any{"p99 under 100ms"},
			"acceptance_criteria": []any{"login succeeds with valid credentials"},
		}
	case PhasePseudocode:
		return map[string]any{
			"algorithms":      "hash password, compare, issue session",
			"data_structures": []any{"Session", "User"},
			"flow":            "receive request, validate input, check credentials, respond",
		}
	case PhaseArchitecture:
		return map[string]any{
			"components": []any{"api", "auth", "store"},
			"interfaces": []any{"AuthService"},
			"data_flow":  "api -> auth -> store",
		}
	case PhaseRefinement:
		return map[string]any{
			"code":     "func add(a, b int) int { return a + b }",
			"tests":    []any{"TestAdd"},
			"coverage": 95.0,
		}
	case PhaseCompletion:
		return map[string]any{
			"documentation": "README",
			"deployment":    "helm chart",
			"validation":    true,
		}
	}
	return nil
}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *events.Recorder, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger()
	rec := &events.Recorder{}
	return New(tl.Logger, append([]Option{WithObserver(rec)}, opts...)...), rec, tl
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in   string
		want Phase
	}{
		{"specification", PhaseSpecification},
		{"SPEC", PhaseSpecification},
		{"design", PhasePseudocode},
		{"pseudocode", PhasePseudocode},
		{"architecture", PhaseArchitecture},
		{"implementation", PhaseRefinement},
		{" completion ", PhaseCompletion},
		{"design-sketch", PhasePseudocode},
		{"Design Sketch", PhasePseudocode},
		{"design_sketch", PhasePseudocode},
		{"implementation-with-tests", PhaseRefinement},
		{"implementation_with_tests", PhaseRefinement},
	}
	for _, tt := range tests {
		got, err := ParsePhase(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"deploy", "design--sketch", ""} {
		_, err := ParsePhase(bad)
		assert.ErrorIs(t, err, ErrUnknownPhase, bad)
	}
}

func TestPhases_Gates(t *testing.T) {
	got := map[Phase]float64{}
	var order []Phase
	for _, p := range Phases() {
		got[p.Name] = p.QualityGate
		order = append(order, p.Name)
	}

	assert.Equal(t, []Phase{PhaseSpecification, PhasePseudocode, PhaseArchitecture, PhaseRefinement, PhaseCompletion}, order)
	assert.Equal(t, map[Phase]float64{
		PhaseSpecification: 0.85,
		PhasePseudocode:    0.85,
		PhaseArchitecture:  0.90,
		PhaseRefinement:    0.95,
		PhaseCompletion:    0.90,
	}, got)
}

func TestMachine_FullWorkflow(t *testing.T) {
	m, rec, _ := newTestMachine(t)
	ctx := context.Background()

	start := m.Start(ctx, "build login")
	require.NotEmpty(t, start.WorkflowID)
	assert.Equal(t, PhaseSpecification, start.CurrentPhase)

	for i, spec := range Phases() {
		res, err := m.ValidatePhase(ctx, spec.Name, completeOutputs(spec.Name), nil)
		require.NoError(t, err, spec.Name)
		assert.True(t, res.Passed, "%s: %+v", spec.Name, res)
		assert.Equal(t, 1.0, res.Score)
		if i+1 < len(Phases()) {
			assert.Equal(t, Phases()[i+1].Name, res.NextPhase)
		} else {
			assert.Empty(t, res.NextPhase)
		}
	}

	w, ok := m.Current()
	require.True(t, ok)
	assert.True(t, w.Finished)
	assert.Len(t, w.Completed, 5)

	_, err := m.ValidatePhase(ctx, PhaseCompletion, completeOutputs(PhaseCompletion), nil)
	assert.ErrorIs(t, err, ErrWorkflowFinished)

	sum, err := m.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, start.WorkflowID, sum.ID)
	assert.True(t, sum.Finished)
	assert.Equal(t, 1.0, sum.AverageScore)

	_, ok = m.Current()
	assert.False(t, ok)
	assert.Len(t, m.History(), 1)

	assert.Len(t, rec.OfType(events.WorkflowStarted), 1)
	assert.Len(t, rec.OfType(events.PhasePassed), 5)
	assert.Len(t, rec.OfType(events.WorkflowCompleted), 1)
}

func TestMachine_MissingOutputsBlockAdvance(t *testing.T) {
	m, rec, tl := newTestMachine(t)
	ctx := context.Background()
	m.Start(ctx, "task")

	res, err := m.ValidatePhase(ctx, PhaseSpecification, map[string]any{
		"requirements": []any{"r1"},
		"constraints":  "",
	}, nil)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.InDelta(t, 0.6, res.Score, 1e-9)
	assert.ElementsMatch(t, []string{"constraints", "acceptance_criteria"}, res.Missing)
	assert.NotEmpty(t, res.Remediation)
	assert.Empty(t, res.NextPhase)

	w, _ := m.Current()
	assert.Equal(t, PhaseSpecification, w.Current, "phase must not advance below the gate")
	assert.Len(t, rec.OfType(events.PhaseFailed), 1)
	tl.AssertLogged(t, zapcore.WarnLevel, "phase failed quality gate")
}

func TestMachine_CoverageBelowThreshold(t *testing.T) {
	m, _, _ := newTestMachine(t)
	ctx := context.Background()
	m.Start(ctx, "task")
	for _, p := range []Phase{PhaseSpecification, PhasePseudocode, PhaseArchitecture} {
		_, err := m.ValidatePhase(ctx, p, completeOutputs(p), nil)
		require.NoError(t, err)
	}

	out := completeOutputs(PhaseRefinement)
	out["coverage"] = "72%"
	res, err := m.ValidatePhase(ctx, PhaseRefinement, out, nil)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "coverage")
}

func TestMachine_CustomValidatorIssues(t *testing.T) {
	m, _, _ := newTestMachine(t)
	ctx := context.Background()
	m.Start(ctx, "task")

	custom := func(_ context.Context, phase Phase, _ map[string]any) []string {
		assert.Equal(t, PhaseSpecification, phase)
		return []string{"requirement r1 is ambiguous"}
	}
	res, err := m.ValidatePhase(ctx, "spec", completeOutputs(PhaseSpecification), custom)

	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
	assert.True(t, res.Passed)
	assert.Equal(t, []string{"requirement r1 is ambiguous"}, res.Issues)
}

func TestMachine_CustomValidatorPanic(t *testing.T) {
	m, _, tl := newTestMachine(t)
	ctx := context.Background()
	m.Start(ctx, "task")

	res, err := m.ValidatePhase(ctx, PhaseSpecification, completeOutputs(PhaseSpecification),
		func(context.Context, Phase, map[string]any) []string {
			panic("bad validator")
		})

	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "bad validator")
	tl.AssertLogged(t, zapcore.ErrorLevel, "custom phase validator panicked")
}

func TestMachine_CodeIsTruthScored(t *testing.T) {
	scorer := &fixedScorer{rec: scoring.Record{Overall: 0.9}}
	m, _, _ := newTestMachine(t, WithScorer(scorer))
	ctx := context.Background()
	m.Start(ctx, "task")
	for _, p := range []Phase{PhaseSpecification, PhasePseudocode, PhaseArchitecture} {
		_, err := m.ValidatePhase(ctx, p, completeOutputs(p), nil)
		require.NoError(t, err)
	}

	res, err := m.ValidatePhase(ctx, PhaseRefinement, completeOutputs(PhaseRefinement), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, scorer.calls)
	require.NotNil(t, res.TruthScore)
	assert.Equal(t, 0.9, *res.TruthScore)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
	assert.False(t, res.Passed, "refinement gate is 0.95")
}

func TestMachine_RealScorerFlagsSecretInCode(t *testing.T) {
	v := validator.New(rules.DefaultCatalog(), validator.DefaultConfig(), logging.Nop())
	agg, err := scoring.New(v, scoring.DefaultConfig(), logging.Nop())
	require.NoError(t, err)
	m, _, _ := newTestMachine(t, WithScorer(agg))
	ctx := context.Background()
	m.Start(ctx, "task")
	for _, p := range []Phase{PhaseSpecification, PhasePseudocode, PhaseArchitecture} {
		_, err := m.ValidatePhase(ctx, p, completeOutputs(p), nil)
		require.NoError(t, err)
	}

	out := completeOutputs(PhaseRefinement)
	out["code"] = `const password = "super_secret_123"`
	res, err := m.ValidatePhase(ctx, PhaseRefinement, out, nil)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Issues, "code has 1 critical violation(s)")
}

func TestMachine_Errors(t *testing.T) {
	m, _, _ := newTestMachine(t)
	ctx := context.Background()

	_, err := m.ValidatePhase(ctx, PhaseSpecification, nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveWorkflow)

	_, err = m.Complete(ctx)
	assert.ErrorIs(t, err, ErrNoActiveWorkflow)

	m.Start(ctx, "task")
	_, err = m.ValidatePhase(ctx, "deployment", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownPhase)

	_, err = m.ValidatePhase(ctx, PhaseArchitecture, completeOutputs(PhaseArchitecture), nil)
	assert.ErrorIs(t, err, ErrPhaseOutOfOrder)

	// Hyphenated names resolve before the order check.
	_, err = m.ValidatePhase(ctx, "implementation-with-tests", nil, nil)
	assert.ErrorIs(t, err, ErrPhaseOutOfOrder)
}

func TestMachine_StartOverwrites(t *testing.T) {
	m, _, tl := newTestMachine(t)
	ctx := context.Background()

	first := m.Start(ctx, "first")
	_, err := m.ValidatePhase(ctx, PhaseSpecification, completeOutputs(PhaseSpecification), nil)
	require.NoError(t, err)

	second := m.Start(ctx, "second")

	assert.NotEqual(t, first.WorkflowID, second.WorkflowID)
	w, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "second", w.Task)
	assert.Equal(t, PhaseSpecification, w.Current)
	assert.Empty(t, w.Completed)
	tl.AssertLogged(t, zapcore.WarnLevel, "replacing active workflow")
}

func TestMachine_ArchiveIsBounded(t *testing.T) {
	m := NewFromConfig(config.WorkflowConfig{ArchiveSize: 2}, logging.Nop())
	ctx := context.Background()

	for _, task := range []string{"a", "b", "c"} {
		m.Start(ctx, task)
		_, err := m.Complete(ctx)
		require.NoError(t, err)
	}

	hist := m.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].Task)
	assert.Equal(t, "c", hist[1].Task)
	assert.False(t, hist[1].Finished)
}

func TestMachine_CurrentIsACopy(t *testing.T) {
	m, _, _ := newTestMachine(t)
	ctx := context.Background()
	m.Start(ctx, "task")

	w, _ := m.Current()
	w.Completed = append(w.Completed, PhaseCompletion)
	w.Results[PhaseCompletion] = PhaseResult{}

	again, _ := m.Current()
	assert.Empty(t, again.Completed)
	assert.Empty(t, again.Results)
}
