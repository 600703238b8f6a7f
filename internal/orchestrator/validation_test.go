package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

func newTestValidator() *validator.Validator {
	return validator.New(rules.DefaultCatalog(), validator.DefaultConfig(), logging.Nop())
}

func TestValidatorPreValidation(t *testing.T) {
	pre := ValidatorPreValidation(newTestValidator())

	bad, err := pre(context.Background(), `password = "super_secret_123"`)
	require.NoError(t, err)
	assert.False(t, bad.Passed)
	require.NotEmpty(t, bad.Violations)
	assert.Contains(t, bad.Violations[0], "[CRITICAL]")

	good, err := pre(context.Background(), "write a function that adds two numbers")
	require.NoError(t, err)
	assert.True(t, good.Passed)
}

func TestValidatorPostValidation(t *testing.T) {
	post := ValidatorPostValidation(newTestValidator())

	leaky, err := post(context.Background(), &ExecResult{Output: "setInterval(tick, 1000)\nconst r = await fetch(u)"})
	require.NoError(t, err)
	assert.False(t, leaky.Passed)
	assert.NotEmpty(t, leaky.Issues)

	structured, err := post(context.Background(), &ExecResult{
		Output: "{...}",
		Data:   map[string]any{"code": "const sum = (a, b) => a + b"},
	})
	require.NoError(t, err)
	assert.True(t, structured.Passed)

	standalone, err := post(context.Background(), &ExecResult{Standalone: true})
	require.NoError(t, err)
	assert.True(t, standalone.Passed)
}

func TestPipelineValidation(t *testing.T) {
	p := hooks.New(hooks.DefaultConfig(), logging.Nop(), nil)
	require.NoError(t, hooks.RegisterDefaults(p, newTestValidator()))

	pre, err := PipelinePreValidation(p, "Task")(context.Background(), `const token = "abcdefgh12345678"`)
	require.NoError(t, err)
	assert.False(t, pre.Passed)
	require.Len(t, pre.Violations, 1)
	assert.Contains(t, pre.Violations[0], hooks.PatternValidatorID)

	post, err := PipelinePostValidation(p, "Task")(context.Background(), &ExecResult{Output: "setInterval(tick, 1000)\nconst r = await fetch(u)"})
	require.NoError(t, err)
	assert.False(t, post.Passed)
	assert.NotEmpty(t, post.Issues)
}

func TestOrchestrate_WithValidator(t *testing.T) {
	v := newTestValidator()
	outputs := []string{
		"setInterval(tick, 1000)\nconst r = await fetch(u)",
		"const sum = (a, b) => a + b",
	}
	calls := 0
	exec := ExecutorFunc(func(context.Context, Task) (*ExecResult, error) {
		out := outputs[calls]
		calls++
		return &ExecResult{Output: out}, nil
	})
	o, _ := newTestOrchestrator(t, exec)

	out, err := o.Orchestrate(context.Background(), Request{
		Task:       "write a poller",
		MaxRetries: 3,
		Pre:        ValidatorPreValidation(v),
		Post:       ValidatorPostValidation(v),
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, out.FinalStatus)
	assert.Equal(t, 2, out.Attempts)
	assert.Contains(t, out.FinalTask, FeedbackMarker)
}
