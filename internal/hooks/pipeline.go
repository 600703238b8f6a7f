package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
)

const eventSource = "hooks"

// Config configures a Pipeline.
type Config struct {
	// Strict stops pre hooks at the first veto.
	Strict     bool
	PreBudget  time.Duration
	PostBudget time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		PreBudget:  100 * time.Millisecond,
		PostBudget: 200 * time.Millisecond,
	}
}

// FromAppConfig converts the hooks section of the application config.
func FromAppConfig(c config.HooksConfig) Config {
	cfg := Config{
		Strict:     c.Strict,
		PreBudget:  c.PreBudget.Duration(),
		PostBudget: c.PostBudget.Duration(),
	}
	def := DefaultConfig()
	if cfg.PreBudget <= 0 {
		cfg.PreBudget = def.PreBudget
	}
	if cfg.PostBudget <= 0 {
		cfg.PostBudget = def.PostBudget
	}
	return cfg
}

// Pipeline holds the pre and post registries and runs them.
type Pipeline struct {
	mu       sync.Mutex
	pre      *registry
	post     *registry
	cfg      Config
	logger   *logging.Logger
	observer events.Observer

	preRuns  *latencies
	postRuns *latencies
}

// New creates an empty Pipeline. A nil observer discards events.
func New(cfg Config, logger *logging.Logger, observer events.Observer) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		pre:      newRegistry(),
		post:     newRegistry(),
		cfg:      cfg,
		logger:   logger.Named("hooks"),
		observer: events.OrNop(observer),
		preRuns:  newLatencies(latencyWindow),
		postRuns: newLatencies(latencyWindow),
	}
}

// Strict reports whether pre hooks stop at the first veto.
func (p *Pipeline) Strict() bool { return p.cfg.Strict }

// RegisterPreHook adds or replaces a pre-execution hook.
func (p *Pipeline) RegisterPreHook(id string, handler PreHandler, priority Priority) error {
	if handler == nil {
		return ErrInvalidHandler
	}
	return p.register(PhasePre, &hook{id: id, priority: priority, enabled: true, pre: handler})
}

// RegisterPostHook adds or replaces a post-execution hook.
func (p *Pipeline) RegisterPostHook(id string, handler PostHandler, priority Priority) error {
	if handler == nil {
		return ErrInvalidHandler
	}
	return p.register(PhasePost, &hook{id: id, priority: priority, enabled: true, post: handler})
}

func (p *Pipeline) register(phase Phase, h *hook) error {
	if h.id == "" {
		return ErrInvalidID
	}
	if !h.priority.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(h.priority))
	}

	p.mu.Lock()
	replaced := p.registry(phase).put(h)
	p.mu.Unlock()

	p.logger.Debug(context.Background(), "hook registered",
		zap.String("phase", string(phase)),
		zap.String("hook", h.id),
		zap.Stringer("priority", h.priority),
		zap.Bool("replaced", replaced))
	p.observer.Observe(context.Background(), events.New(events.HookRegistered, eventSource, map[string]any{
		"phase":    string(phase),
		"hook":     h.id,
		"priority": h.priority.String(),
		"replaced": replaced,
	}))
	return nil
}

func (p *Pipeline) registry(phase Phase) *registry {
	if phase == PhasePost {
		return p.post
	}
	return p.pre
}

// Enable turns a hook back on.
func (p *Pipeline) Enable(phase Phase, id string) error {
	return p.setEnabled(phase, id, true)
}

// Disable keeps a hook registered but skips it during runs.
func (p *Pipeline) Disable(phase Phase, id string) error {
	return p.setEnabled(phase, id, false)
}

func (p *Pipeline) setEnabled(phase Phase, id string, enabled bool) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.registry(phase).get(id)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrHookNotFound, phase, id)
	}
	h.enabled = enabled
	return nil
}

// Unregister removes a hook.
func (p *Pipeline) Unregister(phase Phase, id string) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.registry(phase).remove(id) {
		return fmt.Errorf("%w: %s %s", ErrHookNotFound, phase, id)
	}
	return nil
}

// Len returns the number of registered hooks in a phase.
func (p *Pipeline) Len(phase Phase) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry(phase).len()
}

// RunPre runs the enabled pre hooks in priority order. A call is allowed
// unless some hook vetoes it; once vetoed, later hooks cannot allow it.
func (p *Pipeline) RunPre(ctx context.Context, tool string, params map[string]any, hctx Context) PreResult {
	start := time.Now()
	ctx = logging.WithTool(ctx, tool)

	p.mu.Lock()
	ordered := p.pre.ordered()
	p.mu.Unlock()

	res := PreResult{Allowed: true, Interventions: []Intervention{}, Executed: []string{}}
	for _, h := range ordered {
		dec, elapsed, err := p.callPre(ctx, h, tool, params, hctx)
		res.Executed = append(res.Executed, h.id)
		vetoed := err == nil && !dec.Allowed
		p.record(h, elapsed, err != nil, vetoed)

		if err != nil {
			p.hookError(ctx, PhasePre, h, tool, err)
			continue
		}
		hookExecutions.WithLabelValues(string(PhasePre), h.id, outcome(!vetoed)).Inc()
		if !vetoed {
			continue
		}

		res.Allowed = false
		iv := Intervention{
			Hook:       h.id,
			Priority:   h.priority,
			Reason:     dec.Reason,
			Severity:   dec.Severity,
			Suggestion: dec.Suggestion,
			At:         time.Now(),
		}
		res.Interventions = append(res.Interventions, iv)
		p.logger.Info(ctx, "hook intervention",
			zap.String("hook", h.id),
			zap.String("reason", dec.Reason),
			zap.String("severity", string(dec.Severity)))
		p.observer.Observe(ctx, events.New(events.HookIntervention, eventSource, map[string]any{
			"hook":       h.id,
			"tool":       tool,
			"reason":     dec.Reason,
			"severity":   string(dec.Severity),
			"suggestion": dec.Suggestion,
		}))
		if p.cfg.Strict {
			break
		}
	}

	res.ResponseTime = time.Since(start)
	res.BudgetMet = p.checkBudget(ctx, PhasePre, tool, res.ResponseTime)
	return res
}

// RunPost runs every enabled post hook in priority order, regardless of
// strict mode. The result is valid when no hook marks it invalid.
func (p *Pipeline) RunPost(ctx context.Context, tool string, params map[string]any, result any, hctx Context) PostResult {
	start := time.Now()
	ctx = logging.WithTool(ctx, tool)

	p.mu.Lock()
	ordered := p.post.ordered()
	p.mu.Unlock()

	res := PostResult{Valid: true, Issues: []Issue{}, Executed: []string{}}
	for _, h := range ordered {
		dec, elapsed, err := p.callPost(ctx, h, tool, params, result, hctx)
		res.Executed = append(res.Executed, h.id)
		invalid := err == nil && !dec.Valid
		p.record(h, elapsed, err != nil, invalid)

		if err != nil {
			p.hookError(ctx, PhasePost, h, tool, err)
			continue
		}
		hookExecutions.WithLabelValues(string(PhasePost), h.id, outcome(!invalid)).Inc()
		for _, is := range dec.Issues {
			if is.Hook == "" {
				is.Hook = h.id
			}
			res.Issues = append(res.Issues, is)
		}
		if invalid {
			res.Valid = false
		}
	}

	res.ResponseTime = time.Since(start)
	res.BudgetMet = p.checkBudget(ctx, PhasePost, tool, res.ResponseTime)
	return res
}

// callPre invokes a handler, converting a panic into an error.
func (p *Pipeline) callPre(ctx context.Context, h *hook, tool string, params map[string]any, hctx Context) (dec PreDecision, elapsed time.Duration, err error) {
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			dec = PreDecision{}
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	dec, err = h.pre(ctx, tool, params, hctx)
	return dec, 0, err
}

func (p *Pipeline) callPost(ctx context.Context, h *hook, tool string, params map[string]any, result any, hctx Context) (dec PostDecision, elapsed time.Duration, err error) {
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			dec = PostDecision{}
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	dec, err = h.post(ctx, tool, params, result, hctx)
	return dec, 0, err
}

func (p *Pipeline) record(h *hook, elapsed time.Duration, failed, flagged bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h.executions++
	h.total += elapsed
	h.samples.add(elapsed)
	if failed {
		h.errors++
	}
	if flagged {
		h.vetoes++
	}
}

func (p *Pipeline) hookError(ctx context.Context, phase Phase, h *hook, tool string, err error) {
	hookExecutions.WithLabelValues(string(phase), h.id, "error").Inc()
	p.logger.Error(ctx, "hook failed",
		zap.String("phase", string(phase)),
		zap.String("hook", h.id),
		zap.Error(err))
	p.observer.Observe(ctx, events.New(events.HookError, eventSource, map[string]any{
		"phase": string(phase),
		"hook":  h.id,
		"tool":  tool,
		"error": err.Error(),
	}))
}

func (p *Pipeline) checkBudget(ctx context.Context, phase Phase, tool string, elapsed time.Duration) bool {
	budget := p.cfg.PreBudget
	runs := p.preRuns
	if phase == PhasePost {
		budget = p.cfg.PostBudget
		runs = p.postRuns
	}

	p.mu.Lock()
	runs.add(elapsed)
	p.mu.Unlock()
	pipelineDuration.WithLabelValues(string(phase)).Observe(elapsed.Seconds())

	if budget <= 0 || elapsed <= budget {
		return true
	}
	budgetExceeded.WithLabelValues(string(phase)).Inc()
	p.logger.Warn(ctx, "hook pipeline exceeded budget",
		zap.String("phase", string(phase)),
		zap.Duration("elapsed", elapsed),
		zap.Duration("budget", budget))
	p.observer.Observe(ctx, events.New(events.PerformanceViolation, eventSource, map[string]any{
		"phase":      string(phase),
		"tool":       tool,
		"elapsed_ms": float64(elapsed) / float64(time.Millisecond),
		"budget_ms":  float64(budget) / float64(time.Millisecond),
	}))
	return false
}

func outcome(ok bool) string {
	if ok {
		return "pass"
	}
	return "flagged"
}
