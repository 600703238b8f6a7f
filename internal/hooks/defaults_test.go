package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gatekeeper/internal/events"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

func newDefaultPipeline(t *testing.T) (*Pipeline, *events.Recorder) {
	t.Helper()
	p, rec, _ := newTestPipeline(t, DefaultConfig())
	v := validator.New(rules.DefaultCatalog(), validator.DefaultConfig(), logging.Nop())
	require.NoError(t, RegisterDefaults(p, v))
	return p, rec
}

func TestRegisterDefaults(t *testing.T) {
	p, _ := newDefaultPipeline(t)

	snap := p.Snapshot()
	require.Len(t, snap.Pre, 1)
	require.Len(t, snap.Post, 1)
	assert.Equal(t, PatternValidatorID, snap.Pre[0].ID)
	assert.Equal(t, PriorityCritical, snap.Pre[0].Priority)
	assert.Equal(t, QualityValidatorID, snap.Post[0].ID)
	assert.Equal(t, PriorityHigh, snap.Post[0].Priority)
}

func TestPatternValidatorHook_BlocksSecret(t *testing.T) {
	p, rec := newDefaultPipeline(t)

	res := p.RunPre(context.Background(), "Write", map[string]any{
		"file_path": "config.js",
		"content":   `const password = "super_secret_123"`,
	}, nil)

	assert.False(t, res.Allowed)
	require.Len(t, res.Interventions, 1)
	iv := res.Interventions[0]
	assert.Equal(t, PatternValidatorID, iv.Hook)
	assert.Equal(t, rules.SeverityCritical, iv.Severity)
	assert.NotEmpty(t, iv.Suggestion)
	assert.NotContains(t, iv.Reason, "super_secret_123")
	assert.Len(t, rec.OfType(events.HookIntervention), 1)
}

func TestPatternValidatorHook_AllowsCleanAndEmpty(t *testing.T) {
	p, _ := newDefaultPipeline(t)

	clean := p.RunPre(context.Background(), "Write", map[string]any{"content": "const sum = (a, b) => a + b"}, nil)
	empty := p.RunPre(context.Background(), "Read", map[string]any{"file_path": "x"}, nil)

	assert.True(t, clean.Allowed)
	assert.True(t, empty.Allowed)
}

func TestPatternValidatorHook_ScansCommand(t *testing.T) {
	p, _ := newDefaultPipeline(t)

	res := p.RunPre(context.Background(), "Bash", map[string]any{
		"command": `psql -c "SELECT * FROM users WHERE id = " + userId`,
	}, nil)

	assert.False(t, res.Allowed)
}

func TestQualityValidatorHook(t *testing.T) {
	p, _ := newDefaultPipeline(t)

	leaky := "setInterval(() => poll(), 1000)\nwindow.addEventListener('resize', onResize)\nconst data = await fetch(url)"
	res := p.RunPost(context.Background(), "Write", nil, map[string]any{"content": leaky}, nil)

	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Issues)
	for _, is := range res.Issues {
		assert.Equal(t, QualityValidatorID, is.Hook)
		assert.NotEmpty(t, is.Type)
	}

	ok := p.RunPost(context.Background(), "Write", nil, "const sum = (a, b) => a + b", nil)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Issues)
}
