package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(newSampledCore(core, SamplingConfig{
		Enabled: true, Tick: time.Minute, Initial: 1, Thereafter: 0,
	}))}

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "hook failed")
		logger.Info(context.Background(), "hook ran")
	}

	assert.Equal(t, 50, observed.FilterMessage("hook failed").Len())
	assert.Equal(t, 1, observed.FilterMessage("hook ran").Len())
}
