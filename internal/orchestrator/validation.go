package orchestrator

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

// PreValidation checks a task before any attempt.
type PreValidation func(ctx context.Context, task string) (PreCheck, error)

// PostValidation checks an executor result.
type PostValidation func(ctx context.Context, result *ExecResult) (PostCheck, error)

// ValidatorPreValidation scans the task text with the pattern validator.
func ValidatorPreValidation(v *validator.Validator) PreValidation {
	return func(ctx context.Context, task string) (PreCheck, error) {
		res := v.ValidatePre(ctx, task)
		check := PreCheck{Passed: res.Passed}
		for _, vi := range res.Violations {
			check.Violations = append(check.Violations, fmt.Sprintf("[%s] %s", vi.Severity, vi.Message))
		}
		return check, nil
	}
}

// ValidatorPostValidation scores the executor output with the pattern
// validator. Standalone results pass.
func ValidatorPostValidation(v *validator.Validator) PostValidation {
	return func(ctx context.Context, result *ExecResult) (PostCheck, error) {
		if result == nil || result.Standalone {
			return PostCheck{Passed: true}, nil
		}
		res := v.ValidatePost(ctx, resultSubject(result))
		check := PostCheck{Passed: res.Passed}
		for _, is := range res.Issues {
			check.Issues = append(check.Issues, Issue{Message: is.Message, Suggestion: is.Suggestion})
		}
		return check, nil
	}
}

// PipelinePreValidation runs the task text through the pre hooks as if it
// were the content of tool.
func PipelinePreValidation(p *hooks.Pipeline, tool string) PreValidation {
	return func(ctx context.Context, task string) (PreCheck, error) {
		res := p.RunPre(ctx, tool, map[string]any{"content": task}, hooks.Context{"source": "orchestrator"})
		check := PreCheck{Passed: res.Allowed}
		for _, iv := range res.Interventions {
			check.Violations = append(check.Violations, fmt.Sprintf("%s: %s", iv.Hook, iv.Reason))
		}
		return check, nil
	}
}

// PipelinePostValidation runs the executor result through the post hooks.
func PipelinePostValidation(p *hooks.Pipeline, tool string) PostValidation {
	return func(ctx context.Context, result *ExecResult) (PostCheck, error) {
		if result == nil || result.Standalone {
			return PostCheck{Passed: true}, nil
		}
		res := p.RunPost(ctx, tool, nil, resultSubject(result), hooks.Context{"source": "orchestrator"})
		check := PostCheck{Passed: res.Valid}
		for _, is := range res.Issues {
			check.Issues = append(check.Issues, Issue{Message: is.Message, Suggestion: is.Suggestion})
		}
		return check, nil
	}
}

// resultSubject prefers structured output when it carries code.
func resultSubject(result *ExecResult) any {
	if _, ok := validator.ExtractCode(result.Data); ok {
		return result.Data
	}
	return result
}
