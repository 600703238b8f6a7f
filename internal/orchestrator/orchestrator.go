package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/telemetry"
)

const eventSource = "orchestrator"

// Config holds request defaults and pacing.
type Config struct {
	MaxRetries int
	Strategy   string
	Priority   string
	MaxAgents  int

	// AttemptInterval is the minimum spacing between attempts. Zero means
	// no pacing.
	AttemptInterval time.Duration
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, Strategy: "development", Priority: "medium", MaxAgents: 4}
}

// FromAppConfig converts the orchestrator section of the application config.
func FromAppConfig(c config.OrchestratorConfig) Config {
	return Config{
		MaxRetries:      c.MaxRetries,
		Strategy:        c.Strategy,
		Priority:        c.Priority,
		MaxAgents:       c.MaxAgents,
		AttemptInterval: c.AttemptInterval.Duration(),
	}
}

// Request is one orchestration. Empty Strategy, Priority and MaxAgents
// take the Orchestrator's defaults. A negative MaxRetries means zero.
type Request struct {
	Task       string
	MaxRetries int
	Pre        PreValidation
	Post       PostValidation
	Strategy   string
	Priority   string
	MaxAgents  int
}

// AttemptCallback receives each finished attempt.
type AttemptCallback func(Attempt)

// Orchestrator runs the retry loop.
type Orchestrator struct {
	exec     Executor
	fallback Executor
	cfg      Config
	logger   *logging.Logger
	observer events.Observer
	tel      *telemetry.Telemetry

	mu        sync.Mutex
	onAttempt AttemptCallback

	initOnce sync.Once
	inst     *instruments
	instErr  error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the event observer.
func WithObserver(o events.Observer) Option {
	return func(or *Orchestrator) { or.observer = events.OrNop(o) }
}

// WithTelemetry sets where spans and metrics go. Without it the global
// providers are used.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(or *Orchestrator) { or.tel = t }
}

// WithFallback replaces the executor used when the primary one is
// unavailable.
func WithFallback(e Executor) Option {
	return func(or *Orchestrator) { or.fallback = e }
}

// New creates an Orchestrator.
func New(exec Executor, cfg Config, logger *logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		exec:     exec,
		fallback: StandaloneExecutor{},
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		observer: events.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the orchestrator defaults.
func (o *Orchestrator) Config() Config { return o.cfg }

// OnAttempt sets a callback invoked after every attempt.
func (o *Orchestrator) OnAttempt(cb AttemptCallback) {
	o.mu.Lock()
	o.onAttempt = cb
	o.mu.Unlock()
}

func (o *Orchestrator) instruments() (*instruments, error) {
	o.initOnce.Do(func() {
		o.inst, o.instErr = newInstruments(o.tel)
	})
	return o.inst, o.instErr
}

// Orchestrate runs pre-validation once and then up to MaxRetries+1
// attempts. The returned error is non-nil only for a missing executor or
// a cancelled context; validation and executor failures are reported in
// the Outcome.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*Outcome, error) {
	if o.exec == nil {
		return nil, ErrNoExecutor
	}
	inst, err := o.instruments()
	if err != nil {
		return nil, err
	}
	req = o.withDefaults(req)

	out := &Outcome{ID: uuid.NewString(), History: []Attempt{}, FinalTask: req.Task}
	ctx = logging.WithWorkflowID(ctx, out.ID)
	ctx, span := inst.tracer.Start(ctx, "orchestrator.Orchestrate")
	defer span.End()
	start := time.Now()

	defer func() {
		out.Duration = time.Since(start)
		span.SetAttributes(
			attribute.String("gatekeeper.final_status", string(out.FinalStatus)),
			attribute.Int("gatekeeper.attempts", out.Attempts),
		)
		inst.orchestrations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(out.FinalStatus))))
		o.logger.Info(ctx, "orchestration finished",
			zap.String("status", string(out.FinalStatus)),
			zap.Int("attempts", out.Attempts),
			zap.Duration("elapsed", out.Duration))
		o.observer.Observe(ctx, events.New(events.OrchestrationDone, eventSource, map[string]any{
			"id":           out.ID,
			"final_status": string(out.FinalStatus),
			"attempts":     out.Attempts,
			"standalone":   out.Standalone,
		}))
	}()

	if req.Pre != nil {
		check, err := o.runPre(ctx, req.Pre, req.Task)
		out.PreCheck = &check
		if err != nil || !check.Passed {
			out.FinalStatus = StatusBlocked
			span.SetStatus(codes.Error, "blocked by pre-validation")
			o.logger.Warn(ctx, "task blocked by pre-validation",
				zap.Strings("violations", check.Violations),
				zap.Error(err))
			return out, nil
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.cfg.AttemptInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.cfg.AttemptInterval), 1)
	}

	task := req.Task
	maxAttempts := req.MaxRetries + 1
	for n := 1; n <= maxAttempts; n++ {
		if err := limiter.Wait(ctx); err != nil {
			out.FinalStatus = StatusCancelled
			return out, fmt.Errorf("waiting for attempt %d: %w", n, err)
		}

		att := o.attempt(logging.WithAttempt(ctx, n), inst, req, n, maxAttempts, task)
		out.Attempts = n
		out.History = append(out.History, att)
		out.FinalTask = att.Task
		out.Result = att.Result
		if att.Result != nil && att.Result.Standalone {
			out.Standalone = true
		}
		o.notify(att)

		if att.Passed {
			out.FinalStatus = StatusSuccess
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			out.FinalStatus = StatusCancelled
			return out, err
		}
		if n < maxAttempts {
			task = WithFeedback(req.Task, n, att.Issues)
		}
	}

	out.FinalStatus = StatusMaxRetriesExceeded
	span.SetStatus(codes.Error, "max retries exceeded")
	return out, nil
}

func (o *Orchestrator) withDefaults(req Request) Request {
	if req.MaxRetries < 0 {
		req.MaxRetries = 0
	}
	if req.Strategy == "" {
		req.Strategy = o.cfg.Strategy
	}
	if req.Priority == "" {
		req.Priority = o.cfg.Priority
	}
	if req.MaxAgents <= 0 {
		req.MaxAgents = o.cfg.MaxAgents
	}
	return req
}

// attempt runs the executor and post-validation once.
func (o *Orchestrator) attempt(ctx context.Context, inst *instruments, req Request, n, total int, task string) Attempt {
	ctx, span := inst.tracer.Start(ctx, "orchestrator.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("gatekeeper.attempt", n))

	start := time.Now()
	att := Attempt{Number: n, Task: task}
	label := logging.AttemptLabel(n, total)

	result, err := o.execute(ctx, Task{
		Text:      task,
		Strategy:  req.Strategy,
		Priority:  req.Priority,
		MaxAgents: req.MaxAgents,
	})
	switch {
	case err != nil:
		att.Error = err.Error()
		att.Issues = []Issue{{
			Message:    "execution failed: " + err.Error(),
			Suggestion: "Adjust the task so the executor can complete it",
		}}
	case req.Post == nil:
		att.Result = result
		att.Passed = true
	default:
		att.Result = result
		check, verr := o.runPost(ctx, req.Post, result)
		if verr != nil {
			att.Error = verr.Error()
			att.Issues = []Issue{{
				Message:    "post-validation failed: " + verr.Error(),
				Suggestion: "Return output the validator can process",
			}}
		} else {
			att.Passed = check.Passed
			att.Issues = check.Issues
		}
	}
	att.Duration = time.Since(start)

	outcome := "passed"
	if !att.Passed {
		outcome = "failed"
		span.SetStatus(codes.Error, "attempt failed")
		o.logger.Warn(ctx, "attempt failed",
			zap.String("attempt", label),
			zap.Int("issues", len(att.Issues)),
			zap.String("error", att.Error))
		o.observer.Observe(ctx, events.New(events.AttemptFailed, eventSource, map[string]any{
			"attempt": n,
			"issues":  len(att.Issues),
			"error":   att.Error,
		}))
	} else {
		o.logger.Debug(ctx, "attempt passed", zap.String("attempt", label))
	}
	inst.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	inst.attemptDuration.Record(ctx, att.Duration.Seconds())
	return att
}

// execute runs the primary executor, substituting the fallback when the
// primary is unavailable. Panics become errors.
func (o *Orchestrator) execute(ctx context.Context, task Task) (res *ExecResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("executor panicked: %v", r)
		}
	}()

	res, err = o.exec.Execute(ctx, task)
	if errors.Is(err, ErrExecutorUnavailable) {
		o.logger.Warn(ctx, "executor unavailable, running standalone", zap.Error(err))
		return o.fallback.Execute(ctx, task)
	}
	if err == nil && res == nil {
		res = &ExecResult{}
	}
	return res, err
}

func (o *Orchestrator) runPre(ctx context.Context, fn PreValidation, task string) (check PreCheck, err error) {
	defer func() {
		if r := recover(); r != nil {
			check, err = PreCheck{}, fmt.Errorf("pre-validation panicked: %v", r)
		}
	}()
	return fn(ctx, task)
}

func (o *Orchestrator) runPost(ctx context.Context, fn PostValidation, result *ExecResult) (check PostCheck, err error) {
	defer func() {
		if r := recover(); r != nil {
			check, err = PostCheck{}, fmt.Errorf("post-validation panicked: %v", r)
		}
	}()
	return fn(ctx, result)
}

func (o *Orchestrator) notify(att Attempt) {
	o.mu.Lock()
	cb := o.onAttempt
	o.mu.Unlock()
	if cb != nil {
		cb(att)
	}
}
