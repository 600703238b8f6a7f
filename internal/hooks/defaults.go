package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

// Default hook ids.
const (
	PatternValidatorID = "pattern-validator"
	QualityValidatorID = "quality-validator"
)

// contentKeys are the tool parameters that carry text worth scanning, in
// the order they are concatenated.
var contentKeys = []string{"content", "new_string", "code", "command", "text", "query"}

// RegisterDefaults installs the validator-backed hooks.
func RegisterDefaults(p *Pipeline, v *validator.Validator) error {
	if err := p.RegisterPreHook(PatternValidatorID, PatternValidatorHook(v), PriorityCritical); err != nil {
		return fmt.Errorf("registering %s: %w", PatternValidatorID, err)
	}
	if err := p.RegisterPostHook(QualityValidatorID, QualityValidatorHook(v), PriorityHigh); err != nil {
		return fmt.Errorf("registering %s: %w", QualityValidatorID, err)
	}
	return nil
}

// PatternValidatorHook vetoes tool calls whose parameters fail
// pre-execution validation. The veto reports the most severe violation.
func PatternValidatorHook(v *validator.Validator) PreHandler {
	return func(ctx context.Context, _ string, params map[string]any, _ Context) (PreDecision, error) {
		text := paramsText(params)
		if text == "" {
			return Allow(), nil
		}
		res := v.ValidatePre(ctx, text)
		if res.Passed {
			return Allow(), nil
		}
		vs := append([]validator.Violation(nil), res.Violations...)
		validator.SortBySeverity(vs)
		top := vs[0]
		reason := top.Message
		if len(vs) > 1 {
			reason = fmt.Sprintf("%s (and %d more)", top.Message, len(vs)-1)
		}
		return Deny(reason, top.Severity, top.Suggestion), nil
	}
}

// QualityValidatorHook marks results invalid when their quality score is
// below the validator's pass threshold. Issues are reported either way.
func QualityValidatorHook(v *validator.Validator) PostHandler {
	return func(ctx context.Context, _ string, _ map[string]any, result any, _ Context) (PostDecision, error) {
		res := v.ValidatePost(ctx, result)
		dec := PostDecision{Valid: res.Passed}
		for _, is := range res.Issues {
			dec.Issues = append(dec.Issues, Issue{
				Hook:       QualityValidatorID,
				Type:       is.Type,
				Severity:   is.Severity,
				Message:    is.Message,
				Suggestion: is.Suggestion,
			})
		}
		return dec, nil
	}
}

func paramsText(params map[string]any) string {
	var parts []string
	for _, k := range contentKeys {
		if s, ok := validator.ExtractCode(params[k]); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
