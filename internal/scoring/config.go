package scoring

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
)

// Weights are the component weights of the overall score.
type Weights struct {
	Security    float64 `json:"security"`
	Quality     float64 `json:"quality"`
	Performance float64 `json:"performance"`
}

// Config configures an Aggregator.
type Config struct {
	Weights Weights

	// Per-violation security penalties.
	CriticalPenalty float64
	HighPenalty     float64
	MediumPenalty   float64

	// SlowPerformance is the performance component when the latency
	// budget was missed.
	SlowPerformance float64

	ExcellentThreshold float64
	WarningThreshold   float64
	CriticalThreshold  float64

	HistorySize int
}

// DefaultConfig returns the standard weights and thresholds.
func DefaultConfig() Config {
	return Config{
		Weights:            Weights{Security: 0.5, Quality: 0.3, Performance: 0.2},
		CriticalPenalty:    0.3,
		HighPenalty:        0.15,
		MediumPenalty:      0.05,
		SlowPerformance:    0.8,
		ExcellentThreshold: 0.95,
		WarningThreshold:   0.85,
		CriticalThreshold:  0.75,
		HistorySize:        1000,
	}
}

// FromAppConfig converts the scoring section of the application config.
func FromAppConfig(c config.ScoringConfig) Config {
	return Config{
		Weights: Weights{
			Security:    c.SecurityWeight,
			Quality:     c.QualityWeight,
			Performance: c.PerformanceWeight,
		},
		CriticalPenalty:    c.CriticalPenalty,
		HighPenalty:        c.HighPenalty,
		MediumPenalty:      c.MediumPenalty,
		SlowPerformance:    c.SlowPerformance,
		ExcellentThreshold: c.ExcellentThreshold,
		WarningThreshold:   c.WarningThreshold,
		CriticalThreshold:  c.CriticalThreshold,
		HistorySize:        c.HistorySize,
	}
}

// Validate checks the weights and thresholds.
func (c Config) Validate() error {
	w := c.Weights
	if w.Security < 0 || w.Quality < 0 || w.Performance < 0 {
		return errors.New("weights must not be negative")
	}
	if sum := w.Security + w.Quality + w.Performance; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("weights must sum to 1, got %.3f", sum)
	}
	if !(c.CriticalThreshold <= c.WarningThreshold && c.WarningThreshold <= c.ExcellentThreshold) {
		return errors.New("status thresholds out of order")
	}
	if c.HistorySize < 1 {
		return errors.New("history size must be positive")
	}
	return nil
}
