package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/orchestrator"
	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
	"github.com/fyrsmithlabs/gatekeeper/internal/telemetry"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
	"github.com/fyrsmithlabs/gatekeeper/internal/workflow"
)

// ErrShuttingDown is returned for operations started after Shutdown.
var ErrShuttingDown = errors.New("engine is shutting down")

// DefaultTool is the tool name used when orchestration runs tasks through
// the hook pipeline.
const DefaultTool = "Task"

// Engine wires the gatekeeper components together.
type Engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	tel       *telemetry.Telemetry
	ownsTel   bool
	observer  events.Observer
	nats      *events.NATSObserver
	validator *validator.Validator
	hooks     *hooks.Pipeline
	scoring   *scoring.Aggregator
	workflow  *workflow.Machine
	orch      *orchestrator.Orchestrator
	started   time.Time

	mu       sync.RWMutex
	closing  bool
	inflight sync.WaitGroup
	closed   chan struct{}
}

type options struct {
	logger    *logging.Logger
	tel       *telemetry.Telemetry
	executor  orchestrator.Executor
	observers []events.Observer
	version   string
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. Without it a logger is built from the log
// section of the config.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTelemetry supplies telemetry owned by the caller. Shutdown does not
// stop it.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *options) { o.tel = t }
}

// WithExecutor replaces the process executor built from the orchestrator
// config.
func WithExecutor(e orchestrator.Executor) Option {
	return func(o *options) { o.executor = e }
}

// WithObserver adds an event observer next to the log observer.
func WithObserver(obs events.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithVersion sets the service version reported to telemetry.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New validates cfg and builds every component.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{cfg: cfg, tel: o.tel, started: time.Now(), closed: make(chan struct{})}
	if e.tel == nil {
		tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, o.version))
		if err != nil {
			return nil, err
		}
		e.tel, e.ownsTel = tel, true
	}

	e.logger = o.logger
	if e.logger == nil {
		l, err := logging.NewLogger(logging.FromAppConfig(cfg.Log), e.tel.LoggerProvider())
		if err != nil {
			e.shutdownTelemetry(ctx)
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		e.logger = l
	}

	observers := []events.Observer{events.NewLogObserver(e.logger)}
	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events, e.logger)
		if err != nil {
			e.shutdownTelemetry(ctx)
			return nil, err
		}
		e.nats = events.NewNATSObserver(nc, cfg.Events.SubjectPrefix, e.logger)
		observers = append(observers, e.nats)
	}
	e.observer = events.Multi(append(observers, o.observers...)...)

	v, err := validator.NewFromConfig(cfg.Validator, e.logger)
	if err != nil {
		e.release(ctx)
		return nil, err
	}
	e.validator = v

	e.hooks = hooks.New(hooks.FromAppConfig(cfg.Hooks), e.logger, e.observer)
	if err := hooks.RegisterDefaults(e.hooks, v); err != nil {
		e.release(ctx)
		return nil, err
	}

	e.scoring, err = scoring.New(v, scoring.FromAppConfig(cfg.Scoring), e.logger, scoring.WithObserver(e.observer))
	if err != nil {
		e.release(ctx)
		return nil, err
	}

	e.workflow = workflow.NewFromConfig(cfg.Workflow, e.logger,
		workflow.WithScorer(e.scoring),
		workflow.WithObserver(e.observer))

	exec := o.executor
	if exec == nil {
		exec = orchestrator.NewProcessExecutor(cfg.Orchestrator, e.logger)
	}
	e.orch = orchestrator.New(exec, orchestrator.FromAppConfig(cfg.Orchestrator), e.logger,
		orchestrator.WithObserver(e.observer),
		orchestrator.WithTelemetry(e.tel))

	e.logger.Info(ctx, "engine ready",
		zap.Int("rules", v.Catalog().Len()),
		zap.Bool("strict", e.hooks.Strict()),
		zap.Bool("nats", e.nats != nil))
	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Logger returns the engine logger.
func (e *Engine) Logger() *logging.Logger { return e.logger }

// Telemetry returns the telemetry the engine reports to.
func (e *Engine) Telemetry() *telemetry.Telemetry { return e.tel }

// Validator returns the pattern validator.
func (e *Engine) Validator() *validator.Validator { return e.validator }

// Hooks returns the hook pipeline.
func (e *Engine) Hooks() *hooks.Pipeline { return e.hooks }

// Scoring returns the truth scoring aggregator.
func (e *Engine) Scoring() *scoring.Aggregator { return e.scoring }

// Workflow returns the phase state machine.
func (e *Engine) Workflow() *workflow.Machine { return e.workflow }

// Orchestrator returns the retry orchestrator.
func (e *Engine) Orchestrator() *orchestrator.Orchestrator { return e.orch }

// begin registers an in-flight operation.
func (e *Engine) begin() (func(), error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closing {
		return nil, ErrShuttingDown
	}
	e.inflight.Add(1)
	return e.inflight.Done, nil
}

// ValidatePre scans text for violations.
func (e *Engine) ValidatePre(ctx context.Context, text string) (validator.Result, error) {
	done, err := e.begin()
	if err != nil {
		return validator.Result{}, err
	}
	defer done()

	res := e.validator.ValidatePre(ctx, text)
	if len(res.Violations) > 0 {
		counts := res.CountBySeverity()
		attrs := map[string]any{"violations": len(res.Violations), "passed": res.Passed}
		for sev, n := range counts {
			attrs[string(sev)] = n
		}
		e.observer.Observe(ctx, events.New(events.ViolationFound, "engine", attrs))
	}
	return res, nil
}

// ValidatePost scores a tool result for quality issues.
func (e *Engine) ValidatePost(ctx context.Context, result any) (validator.PostResult, error) {
	done, err := e.begin()
	if err != nil {
		return validator.PostResult{}, err
	}
	defer done()
	return e.validator.ValidatePost(ctx, result), nil
}

// RunPreHooks runs the pre hooks for a tool call.
func (e *Engine) RunPreHooks(ctx context.Context, tool string, params map[string]any, hctx hooks.Context) (hooks.PreResult, error) {
	done, err := e.begin()
	if err != nil {
		return hooks.PreResult{}, err
	}
	defer done()
	return e.hooks.RunPre(ctx, tool, params, hctx), nil
}

// RunPostHooks runs the post hooks for a tool result.
func (e *Engine) RunPostHooks(ctx context.Context, tool string, params map[string]any, result any, hctx hooks.Context) (hooks.PostResult, error) {
	done, err := e.begin()
	if err != nil {
		return hooks.PostResult{}, err
	}
	defer done()
	return e.hooks.RunPost(ctx, tool, params, result, hctx), nil
}

// Score computes and records a truth score.
func (e *Engine) Score(ctx context.Context, text string) (scoring.Record, error) {
	done, err := e.begin()
	if err != nil {
		return scoring.Record{}, err
	}
	defer done()
	return e.scoring.CalculateScore(ctx, text), nil
}

// Verify scores text against threshold and calls rollback on failure.
func (e *Engine) Verify(ctx context.Context, text string, threshold float64, rollback scoring.RollbackFunc) (scoring.VerifyResult, error) {
	done, err := e.begin()
	if err != nil {
		return scoring.VerifyResult{}, err
	}
	defer done()
	return e.scoring.Verify(ctx, text, threshold, rollback), nil
}

// Dashboard summarizes recorded scores over period.
func (e *Engine) Dashboard(period time.Duration) scoring.Dashboard {
	return e.scoring.Dashboard(period)
}

// StartWorkflow begins a new workflow, replacing any active one.
func (e *Engine) StartWorkflow(ctx context.Context, task string) (workflow.StartResult, error) {
	done, err := e.begin()
	if err != nil {
		return workflow.StartResult{}, err
	}
	defer done()
	return e.workflow.Start(ctx, task), nil
}

// ValidatePhase checks phase outputs against the active workflow.
func (e *Engine) ValidatePhase(ctx context.Context, phase workflow.Phase, outputs map[string]any, custom workflow.CustomValidator) (workflow.PhaseResult, error) {
	done, err := e.begin()
	if err != nil {
		return workflow.PhaseResult{}, err
	}
	defer done()
	return e.workflow.ValidatePhase(ctx, phase, outputs, custom)
}

// CompleteWorkflow archives the active workflow.
func (e *Engine) CompleteWorkflow(ctx context.Context) (workflow.Summary, error) {
	done, err := e.begin()
	if err != nil {
		return workflow.Summary{}, err
	}
	defer done()
	return e.workflow.Complete(ctx)
}

// Orchestrate runs a task through the retry loop. Nil Pre and Post
// validations default to the hook pipeline.
func (e *Engine) Orchestrate(ctx context.Context, req orchestrator.Request) (*orchestrator.Outcome, error) {
	done, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	if req.Pre == nil {
		req.Pre = orchestrator.PipelinePreValidation(e.hooks, DefaultTool)
	}
	if req.Post == nil {
		req.Post = orchestrator.PipelinePostValidation(e.hooks, DefaultTool)
	}
	return e.orch.Orchestrate(ctx, req)
}

// Status is a point-in-time readout of the engine.
type Status struct {
	Uptime       time.Duration          `json:"uptime_ns"`
	ShuttingDown bool                   `json:"shutting_down"`
	Rules        int                    `json:"rules"`
	Validator    validator.Stats        `json:"validator"`
	Hooks        hooks.Snapshot         `json:"hooks"`
	Telemetry    telemetry.HealthStatus `json:"telemetry"`
}

// Status reports component statistics.
func (e *Engine) Status() Status {
	e.mu.RLock()
	closing := e.closing
	e.mu.RUnlock()
	return Status{
		Uptime:       time.Since(e.started),
		ShuttingDown: closing,
		Rules:        e.validator.Catalog().Len(),
		Validator:    e.validator.Stats(),
		Hooks:        e.hooks.Snapshot(),
		Telemetry:    e.tel.Health(),
	}
}

// Shutdown rejects new operations and waits for in-flight ones until ctx
// is done. Resources are released either way. It is safe to call more
// than once; later calls wait for the first to finish.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closing {
		e.mu.Unlock()
		select {
		case <-e.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.closing = true
	e.mu.Unlock()
	defer close(e.closed)

	e.logger.Info(ctx, "engine shutting down")

	drained := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(drained)
	}()

	var errs []error
	select {
	case <-drained:
	case <-ctx.Done():
		e.logger.Warn(ctx, "shutdown deadline reached with operations in flight")
		errs = append(errs, fmt.Errorf("draining operations: %w", ctx.Err()))
	}

	if err := e.release(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// release closes the event connection and owned telemetry.
func (e *Engine) release(ctx context.Context) error {
	var errs []error
	if e.nats != nil {
		if err := e.nats.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing nats: %w", err))
		}
	}
	if err := e.shutdownTelemetry(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return errors.Join(errs...)
}

func (e *Engine) shutdownTelemetry(ctx context.Context) error {
	if !e.ownsTel {
		return nil
	}
	if err := e.tel.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down telemetry: %w", err)
	}
	return nil
}
