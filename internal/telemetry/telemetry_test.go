package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.Nil(t, tel.LoggerProvider())
	assert.False(t, tel.Health().Enabled)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.Equal(t, HealthStatus{}, tel.Health())
}

func TestTestTelemetry_RecordsSpansAndMetrics(t *testing.T) {
	tt := NewTestTelemetry()

	_, span := tt.Tracer("gatekeeper/test").Start(context.Background(), "validate.pre")
	span.End()
	assert.Contains(t, tt.SpanNames(), "validate.pre")

	counter, err := tt.Meter("gatekeeper/test").Int64Counter("test.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)
	counter.Add(context.Background(), 3)
	assert.Equal(t, int64(5), tt.CounterValue(t, "test.count"))
}
