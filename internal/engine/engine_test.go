package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/orchestrator"
	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
	"github.com/fyrsmithlabs/gatekeeper/internal/workflow"
)

func echoExecutor(output string) orchestrator.Executor {
	return orchestrator.ExecutorFunc(func(context.Context, orchestrator.Task) (*orchestrator.ExecResult, error) {
		return &orchestrator.ExecResult{Output: output}, nil
	})
}

func newTestEngine(t *testing.T, exec orchestrator.Executor) (*Engine, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	eng, err := New(context.Background(), config.Default(),
		WithLogger(logging.Nop()),
		WithExecutor(exec),
		WithObserver(rec))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = eng.Shutdown(context.Background())
	})
	return eng, rec
}

func TestNew_Defaults(t *testing.T) {
	eng, _ := newTestEngine(t, echoExecutor(""))

	assert.Equal(t, 1, eng.Hooks().Len(hooks.PhasePre))
	assert.Equal(t, 1, eng.Hooks().Len(hooks.PhasePost))
	assert.Positive(t, eng.Validator().Catalog().Len())
	assert.Equal(t, 3, eng.Orchestrator().Config().MaxRetries)
	assert.Equal(t, 0.5, eng.Scoring().Config().Weights.Security)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0

	_, err := New(context.Background(), cfg, WithLogger(logging.Nop()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNew_BadRulePack(t *testing.T) {
	cfg := config.Default()
	cfg.Validator.RulePacks = []string{"/nonexistent/pack.yaml"}

	_, err := New(context.Background(), cfg, WithLogger(logging.Nop()))

	assert.Error(t, err)
}

func TestEngine_ValidatePreReportsViolations(t *testing.T) {
	eng, rec := newTestEngine(t, echoExecutor(""))

	res, err := eng.ValidatePre(context.Background(), `password = "super_secret_123"`)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	found := rec.OfType(events.ViolationFound)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].Attrs["CRITICAL"])

	clean, err := eng.ValidatePre(context.Background(), "add two numbers")
	require.NoError(t, err)
	assert.True(t, clean.Passed)
	assert.Len(t, rec.OfType(events.ViolationFound), 1)
}

func TestEngine_HooksAndScoring(t *testing.T) {
	eng, rec := newTestEngine(t, echoExecutor(""))
	ctx := context.Background()

	pre, err := eng.RunPreHooks(ctx, "Write", map[string]any{"content": `api_key = "sk_live_abcdefgh"`}, nil)
	require.NoError(t, err)
	assert.False(t, pre.Allowed)
	assert.NotEmpty(t, rec.OfType(events.HookIntervention))

	post, err := eng.RunPostHooks(ctx, "Write", nil, "const sum = (a, b) => a + b", nil)
	require.NoError(t, err)
	assert.True(t, post.Valid)

	r, err := eng.Score(ctx, "const sum = (a, b) => a + b")
	require.NoError(t, err)
	assert.Equal(t, scoring.StatusExcellent, r.Status)
	assert.Equal(t, 1, eng.Dashboard(0).Samples)

	status := eng.Status()
	assert.Positive(t, status.Validator.PreCalls)
	assert.Len(t, status.Hooks.Pre, 1)
	assert.False(t, status.ShuttingDown)
}

func TestEngine_Verify(t *testing.T) {
	eng, _ := newTestEngine(t, echoExecutor(""))
	rolledBack := false

	res, err := eng.Verify(context.Background(), `const token = "abcdefgh12345678"`, 0, func(context.Context) error {
		rolledBack = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.True(t, res.RollbackInvoked)
	assert.True(t, rolledBack)
}

func TestEngine_Workflow(t *testing.T) {
	eng, rec := newTestEngine(t, echoExecutor(""))
	ctx := context.Background()

	start, err := eng.StartWorkflow(ctx, "build a cache")
	require.NoError(t, err)
	assert.NotEmpty(t, start.WorkflowID)
	assert.Equal(t, workflow.PhaseSpecification, start.CurrentPhase)

	res, err := eng.ValidatePhase(ctx, workflow.PhaseSpecification, map[string]any{
		"requirements":        []string{"get", "set"},
		"constraints":         []string{"bounded"},
		"acceptance_criteria": []string{"get returns set value", "evicts oldest"},
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	_, err = eng.ValidatePhase(ctx, workflow.PhaseArchitecture, map[string]any{}, nil)
	assert.ErrorIs(t, err, workflow.ErrPhaseOutOfOrder)

	sum, err := eng.CompleteWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []workflow.Phase{workflow.PhaseSpecification}, sum.CompletedPhases)
	assert.Len(t, rec.OfType(events.WorkflowCompleted), 1)
}

func TestEngine_OrchestrateDefaultsToHookPipeline(t *testing.T) {
	eng, _ := newTestEngine(t, echoExecutor("const sum = (a, b) => a + b"))
	ctx := context.Background()

	ok, err := eng.Orchestrate(ctx, orchestrator.Request{Task: "write an adder"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusSuccess, ok.FinalStatus)
	assert.Equal(t, 1, ok.Attempts)

	blocked, err := eng.Orchestrate(ctx, orchestrator.Request{Task: `use password = "hunter2_secret"`})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusBlocked, blocked.FinalStatus)
	assert.Zero(t, blocked.Attempts)
}

func TestShutdown_RejectsNewOperations(t *testing.T) {
	eng, _ := newTestEngine(t, echoExecutor(""))

	require.NoError(t, eng.Shutdown(context.Background()))

	_, err := eng.ValidatePre(context.Background(), "x")
	assert.ErrorIs(t, err, ErrShuttingDown)
	_, err = eng.Orchestrate(context.Background(), orchestrator.Request{Task: "x"})
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.True(t, eng.Status().ShuttingDown)

	assert.NoError(t, eng.Shutdown(context.Background()))
}

// blockingExecutor parks every call until release is closed.
type blockingExecutor struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingExecutor) Execute(context.Context, orchestrator.Task) (*orchestrator.ExecResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return &orchestrator.ExecResult{Output: "done"}, nil
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	exec := newBlockingExecutor()
	eng, _ := newTestEngine(t, exec)

	result := make(chan error, 1)
	go func() {
		_, err := eng.Orchestrate(context.Background(), orchestrator.Request{Task: "slow task"})
		result <- err
	}()
	<-exec.entered

	time.AfterFunc(30*time.Millisecond, func() { close(exec.release) })

	start := time.Now()
	err := eng.Shutdown(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.NoError(t, <-result)
}

func TestShutdown_BoundedWait(t *testing.T) {
	exec := newBlockingExecutor()
	eng, _ := newTestEngine(t, exec)

	result := make(chan error, 1)
	go func() {
		_, err := eng.Orchestrate(context.Background(), orchestrator.Request{Task: "stuck task"})
		result <- err
	}()
	<-exec.entered

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := eng.Shutdown(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(exec.release)
	assert.NoError(t, <-result)
}
