package events

import (
	"context"

	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"go.uber.org/zap"
)

// LogObserver writes events as structured log entries. Errors and
// violations log at warn; everything else at debug.
type LogObserver struct {
	logger *logging.Logger
}

// NewLogObserver creates an observer writing to logger.
func NewLogObserver(logger *logging.Logger) *LogObserver {
	return &LogObserver{logger: logger.Named("events")}
}

// Observe implements Observer.
func (o *LogObserver) Observe(ctx context.Context, e Event) {
	fields := make([]zap.Field, 0, len(e.Attrs)+3)
	fields = append(fields,
		zap.String("event.id", e.ID),
		zap.String("event.type", string(e.Type)),
		zap.String("event.source", e.Source),
	)
	for k, v := range e.Attrs {
		fields = append(fields, zap.Any(k, v))
	}

	switch e.Type {
	case HookError, PerformanceViolation, PhaseFailed, AttemptFailed, RollbackInvoked:
		o.logger.Warn(ctx, "event", fields...)
	default:
		o.logger.Debug(ctx, "event", fields...)
	}
}
