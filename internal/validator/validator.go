// Package validator applies the rule catalog to code before and after
// execution.
//
// ValidatePre scans for security and performance violations; ValidatePost
// scores the quality of a task result. Both fail open: a defect in
// validation (bad input, a panicking matcher) yields a passing result and a
// log entry, never an error.
package validator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"go.uber.org/zap"
)

// Config controls validator policy.
type Config struct {
	// Strict fails pre-validation on any violation instead of only CRITICAL.
	Strict     bool
	PreBudget  time.Duration
	PostBudget time.Duration

	// Deductions maps quality issue types to points lost. Types without an
	// entry fall back to a severity-based amount.
	Deductions    map[string]float64
	PassThreshold float64
}

// DefaultConfig returns the standard policy: 15/5/20 point deductions and a
// pass threshold of 70.
func DefaultConfig() Config {
	return Config{
		PreBudget:  50 * time.Millisecond,
		PostBudget: 100 * time.Millisecond,
		Deductions: map[string]float64{
			rules.TypeMissingErrorHandling: 15,
			rules.TypeHardcodedValue:       5,
			rules.TypeMemoryLeak:           20,
		},
		PassThreshold: 70,
	}
}

var severityDeduction = map[rules.Severity]float64{
	rules.SeverityCritical: 25,
	rules.SeverityHigh:     15,
	rules.SeverityMedium:   10,
	rules.SeverityLow:      5,
}

var preCategories = append(append([]rules.Category{}, rules.SecurityCategories...), rules.CategoryPerformance)

// Validator runs catalog scans. It is safe for concurrent use.
type Validator struct {
	catalog *rules.Catalog
	cfg     Config
	logger  *logging.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a validator over catalog.
func New(catalog *rules.Catalog, cfg Config, logger *logging.Logger) *Validator {
	if catalog == nil {
		catalog = rules.DefaultCatalog()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	def := DefaultConfig()
	if cfg.PreBudget <= 0 {
		cfg.PreBudget = def.PreBudget
	}
	if cfg.PostBudget <= 0 {
		cfg.PostBudget = def.PostBudget
	}
	if cfg.Deductions == nil {
		cfg.Deductions = def.Deductions
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = def.PassThreshold
	}
	return &Validator{catalog: catalog, cfg: cfg, logger: logger.Named("validator")}
}

// NewFromConfig builds the catalog described by cfg (built-in rules, rule
// packs, gitleaks, allowlist, disabled rules) and a validator over it.
func NewFromConfig(cfg config.ValidatorConfig, logger *logging.Logger) (*Validator, error) {
	opts := []rules.Option{rules.WithDisabled(cfg.DisabledRules...)}

	for _, path := range cfg.RulePacks {
		pack, err := rules.LoadPack(path)
		if err != nil {
			return nil, fmt.Errorf("load rule pack: %w", err)
		}
		opts = append(opts, rules.WithRules(pack...))
	}
	if cfg.Gitleaks {
		r, err := rules.NewGitleaksRule()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rules.WithRules(r))
	}
	if cfg.AllowlistFile != "" {
		allow, err := rules.LoadAllowlist(cfg.AllowlistFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rules.WithAllowlist(allow))
	}

	catalog, err := rules.NewCatalog(rules.DefaultRules(), opts...)
	if err != nil {
		return nil, fmt.Errorf("build rule catalog: %w", err)
	}

	return New(catalog, Config{
		Strict:        cfg.Strict,
		PreBudget:     cfg.PreBudget.Duration(),
		PostBudget:    cfg.PostBudget.Duration(),
		Deductions:    cfg.Deductions,
		PassThreshold: cfg.PassThreshold,
	}, logger), nil
}

// Catalog returns the rule catalog in use.
func (v *Validator) Catalog() *rules.Catalog {
	return v.catalog
}

// Strict reports whether strict mode is on.
func (v *Validator) Strict() bool {
	return v.cfg.Strict
}

// PreBudget returns the pre-validation latency budget.
func (v *Validator) PreBudget() time.Duration {
	return v.cfg.PreBudget
}

// ValidatePre scans text for security violations (secrets, SQL injection,
// XSS, command injection, in that order) and then performance
// anti-patterns.
func (v *Validator) ValidatePre(ctx context.Context, text string) (res Result) {
	start := time.Now()
	res = Result{Passed: true, Violations: []Violation{}}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error(ctx, "pre-validation panicked, failing open", zap.Any("panic", r))
			res = Result{Passed: true, Violations: []Violation{}}
			v.failOpen("pre")
		}
		res.ResponseTime = time.Since(start)
		res.BudgetMet = res.ResponseTime <= v.cfg.PreBudget
		v.recordPre(res)
	}()

	if text == "" {
		return res
	}
	if !utf8.ValidString(text) {
		v.logger.Warn(ctx, "pre-validation input is not valid UTF-8, failing open")
		v.failOpen("pre")
		return res
	}

	for _, f := range v.catalog.Scan(text, preCategories...) {
		res.Violations = append(res.Violations, toViolation(f))
	}

	if v.cfg.Strict {
		res.Passed = len(res.Violations) == 0
	} else {
		res.Passed = !res.HasCritical()
	}

	if len(res.Violations) > 0 {
		v.logger.Debug(ctx, "pre-validation found violations",
			zap.Int("count", len(res.Violations)),
			zap.Bool("passed", res.Passed))
	}
	return res
}

// ValidatePost extracts code from result and scores it. The quality score
// starts at 100; every failed check deducts its points once; the score is
// floored at 0.
func (v *Validator) ValidatePost(ctx context.Context, result any) (res PostResult) {
	start := time.Now()
	res = PostResult{Passed: true, QualityScore: 100, Issues: []Issue{}}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error(ctx, "post-validation panicked, failing open", zap.Any("panic", r))
			res = PostResult{Passed: true, QualityScore: 100, Issues: []Issue{}}
			v.failOpen("post")
		}
		res.ResponseTime = time.Since(start)
		res.BudgetMet = res.ResponseTime <= v.cfg.PostBudget
		v.recordPost(res)
	}()

	code, ok := ExtractCode(result)
	if !ok {
		v.logger.Debug(ctx, "no code found in result, failing open", zap.String("type", fmt.Sprintf("%T", result)))
		v.failOpen("post")
		return res
	}
	if code == "" {
		return res
	}
	if !utf8.ValidString(code) {
		v.logger.Warn(ctx, "post-validation input is not valid UTF-8, failing open")
		v.failOpen("post")
		return res
	}

	res.Issues = v.qualityIssues(v.catalog.Scan(code, rules.CategoryQuality))
	for _, iss := range res.Issues {
		res.QualityScore -= iss.Deduction
	}
	if res.QualityScore < 0 {
		res.QualityScore = 0
	}
	res.Passed = res.QualityScore >= v.cfg.PassThreshold
	return res
}

// qualityIssues folds findings into one issue per type, preserving the
// order in which types were first seen.
func (v *Validator) qualityIssues(findings []rules.Finding) []Issue {
	issues := []Issue{}
	index := map[string]int{}
	for _, f := range findings {
		i, seen := index[f.Rule.Type]
		if !seen {
			i = len(issues)
			index[f.Rule.Type] = i
			issues = append(issues, Issue{
				Type:       f.Rule.Type,
				Severity:   f.Rule.Severity,
				Message:    f.Rule.Describe(len(f.Matches)),
				Suggestion: f.Rule.Remediation,
				Deduction:  v.deduction(f.Rule),
			})
		}
		issues[i].Matches = append(issues[i].Matches, matchTexts(f)...)
	}
	return issues
}

func (v *Validator) deduction(r rules.Rule) float64 {
	if d, ok := v.cfg.Deductions[r.Type]; ok {
		return d
	}
	return severityDeduction[r.Severity]
}

func toViolation(f rules.Finding) Violation {
	return Violation{
		Type:       f.Rule.Type,
		Rule:       f.Rule.Name,
		Category:   f.Rule.Category,
		Severity:   f.Rule.Severity,
		Message:    f.Rule.Describe(len(f.Matches)),
		Matches:    matchTexts(f),
		Suggestion: f.Rule.Remediation,
	}
}

func matchTexts(f rules.Finding) []string {
	out := make([]string, len(f.Matches))
	for i, m := range f.Matches {
		if f.Rule.Redact {
			out[i] = Mask(m.Text)
		} else {
			out[i] = snippet(m.Text)
		}
	}
	return out
}

// Stats returns counters and rolling average latencies.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

func (v *Validator) recordPre(res Result) {
	v.mu.Lock()
	v.stats.PreCalls++
	v.stats.ViolationsFound += int64(len(res.Violations))
	v.stats.AvgPreTime = rollingAverage(v.stats.AvgPreTime, res.ResponseTime, v.stats.PreCalls)
	if !res.BudgetMet {
		v.stats.BudgetMisses++
	}
	v.mu.Unlock()

	observe("pre", res.Passed, res.ResponseTime, res.BudgetMet)
	for _, vi := range res.Violations {
		ViolationsTotal.WithLabelValues(vi.Type, string(vi.Severity)).Inc()
	}
}

func (v *Validator) recordPost(res PostResult) {
	v.mu.Lock()
	v.stats.PostCalls++
	v.stats.IssuesFound += int64(len(res.Issues))
	v.stats.AvgPostTime = rollingAverage(v.stats.AvgPostTime, res.ResponseTime, v.stats.PostCalls)
	if !res.BudgetMet {
		v.stats.BudgetMisses++
	}
	v.mu.Unlock()

	observe("post", res.Passed, res.ResponseTime, res.BudgetMet)
	for _, iss := range res.Issues {
		ViolationsTotal.WithLabelValues(iss.Type, string(iss.Severity)).Inc()
	}
}

func (v *Validator) failOpen(mode string) {
	v.mu.Lock()
	v.stats.FailOpen++
	v.mu.Unlock()
	ValidationsTotal.WithLabelValues(mode, "fail_open").Inc()
}

func observe(mode string, passed bool, d time.Duration, budgetMet bool) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	ValidationsTotal.WithLabelValues(mode, result).Inc()
	ValidationDuration.WithLabelValues(mode).Observe(d.Seconds())
	if !budgetMet {
		BudgetMissesTotal.WithLabelValues(mode).Inc()
	}
}

// rollingAverage folds sample into a cumulative mean over n samples.
func rollingAverage(avg, sample time.Duration, n int64) time.Duration {
	if n <= 1 {
		return sample
	}
	return avg + (sample-avg)/time.Duration(n)
}

// SortBySeverity orders violations most severe first, keeping scan order
// within a severity.
func SortBySeverity(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Severity.Rank() < vs[j].Severity.Rank()
	})
}
