package scoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/events"
)

// DefaultVerifyThreshold is used when Verify is given a threshold outside (0,1].
const DefaultVerifyThreshold = 0.95

// RollbackFunc undoes a change that failed verification.
type RollbackFunc func(ctx context.Context) error

// Checks are the individual verification checks.
type Checks struct {
	NoCriticalViolations bool `json:"no_critical_violations"`
	Security             bool `json:"security"`
	Quality              bool `json:"quality"`
	Performance          bool `json:"performance"`
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Verified        bool    `json:"verified"`
	Threshold       float64 `json:"threshold"`
	Record          Record  `json:"record"`
	Checks          Checks  `json:"checks"`
	RollbackInvoked bool    `json:"rollback_invoked"`
	RollbackError   string  `json:"rollback_error,omitempty"`
}

// Verify scores text, records it and checks it against threshold. When the
// overall score is below threshold and rollback is non-nil, rollback is
// called once. Rollback failures and panics are reported in the result.
func (a *Aggregator) Verify(ctx context.Context, text string, threshold float64, rollback RollbackFunc) VerifyResult {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultVerifyThreshold
	}
	rec := a.CalculateScore(ctx, text)

	res := VerifyResult{
		Threshold: threshold,
		Record:    rec,
		Checks: Checks{
			NoCriticalViolations: rec.Critical == 0,
			Security:             rec.Components.Security >= threshold,
			Quality:              rec.Components.Quality >= threshold,
			Performance:          rec.Components.Performance >= threshold,
		},
	}
	res.Verified = rec.Overall >= threshold && res.Checks.NoCriticalViolations
	verificationsTotal.WithLabelValues(fmt.Sprint(res.Verified)).Inc()

	if rec.Overall < threshold && rollback != nil {
		res.RollbackInvoked = true
		if err := a.rollback(ctx, rollback); err != nil {
			res.RollbackError = err.Error()
		}
	}
	return res
}

func (a *Aggregator) rollback(ctx context.Context, fn RollbackFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rollback panicked: %v", r)
		}
		result := "ok"
		attrs := map[string]any{}
		if err != nil {
			result = "error"
			attrs["error"] = err.Error()
			a.logger.Error(ctx, "rollback failed", zap.Error(err))
		} else {
			a.logger.Info(ctx, "rollback completed")
		}
		rollbacksTotal.WithLabelValues(result).Inc()
		attrs["result"] = result
		a.observer.Observe(ctx, events.New(events.RollbackInvoked, eventSource, attrs))
	}()
	return fn(ctx)
}
