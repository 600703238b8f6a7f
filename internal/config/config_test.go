package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, 50*time.Millisecond, cfg.Validator.PreBudget.Duration())
	assert.Equal(t, 70.0, cfg.Validator.PassThreshold)
	assert.Equal(t, 15.0, cfg.Validator.Deductions["missing_error_handling"])
	assert.Equal(t, 5.0, cfg.Validator.Deductions["hardcoded_value"])
	assert.Equal(t, 20.0, cfg.Validator.Deductions["potential_memory_leak"])
	assert.InDelta(t, 0.5, cfg.Scoring.SecurityWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Scoring.QualityWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Scoring.PerformanceWeight, 1e-9)
	assert.Equal(t, 1000, cfg.Scoring.HistorySize)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, "gatekeeper.events", cfg.Events.SubjectPrefix)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown timeout"},
		{"weights do not sum", func(c *Config) { c.Scoring.SecurityWeight = 0.9 }, "sum to 1"},
		{"negative weight", func(c *Config) {
			c.Scoring.SecurityWeight = -0.1
			c.Scoring.QualityWeight = 0.9
		}, "must not be negative"},
		{"thresholds out of order", func(c *Config) { c.Scoring.CriticalThreshold = 0.9 }, "out of order"},
		{"negative retries", func(c *Config) { c.Orchestrator.MaxRetries = -1 }, "max_retries"},
		{"pass threshold", func(c *Config) { c.Validator.PassThreshold = 120 }, "pass_threshold"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("s3cr3t-token")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "s3cr3t-token", s.Value())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	data, err = json.Marshal(struct {
		Token   Secret   `json:"token"`
		Timeout Duration `json:"timeout"`
	}{Token: s, Timeout: Duration(2 * time.Second)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"[REDACTED]","timeout":"2s"}`, string(data))
}
