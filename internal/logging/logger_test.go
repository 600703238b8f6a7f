package logging

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	cfg.Output.Stdout = false
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	cfg.Redaction.Patterns = []string{"(unclosed"}
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.LogConfig{Level: "trace", Format: "console"})
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	cfg = FromAppConfig(config.LogConfig{Level: "loud"})
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"trace": TraceLevel,
		"DEBUG": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := LevelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := LevelFromString("verbose")
	assert.Error(t, err)
}

func TestLogger_ContextFieldsInjected(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithWorkflowID(context.Background(), "wf-1")
	ctx = WithAttempt(ctx, 2)

	tl.Info(ctx, "phase passed", zap.String("phase", "architecture"))

	tl.AssertLogged(t, zapcore.InfoLevel, "phase passed")
	tl.AssertField(t, "phase passed", "workflow.id", "wf-1")
	tl.AssertField(t, "phase passed", "attempt", int64(2))
	tl.AssertField(t, "phase passed", "phase", "architecture")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "phase passed")
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("hooks").With(zap.String("hook", "pattern-validator"))

	child.Warn(context.Background(), "budget exceeded")

	entries := tl.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hooks", entries[0].LoggerName)
	assert.Equal(t, "pattern-validator", entries[0].ContextMap()["hook"])
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Debug(ctx, "through context")
	tl.AssertLogged(t, zapcore.DebugLevel, "through context")
}

func TestWrap(t *testing.T) {
	assert.NotNil(t, Wrap(nil).Underlying())
	z := zap.NewNop()
	assert.Same(t, z, Wrap(z).Underlying())
}
