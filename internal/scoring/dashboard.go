package scoring

import "time"

// Trend is the direction of recent scores.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendEpsilon is the mean delta between halves that counts as movement.
const trendEpsilon = 0.01

// Dashboard summarizes the history over a period.
type Dashboard struct {
	Period       time.Duration `json:"period_ns"`
	Samples      int           `json:"samples"`
	OverallScore float64       `json:"overall_score"`
	Components   Components    `json:"component_scores"`
	Status       Status        `json:"status"`
	Trend        Trend         `json:"trend"`
	Critical     int           `json:"critical"`
	Latest       *Record       `json:"latest,omitempty"`
}

// Dashboard averages the scores recorded within period of now. A
// non-positive period covers the whole history.
func (a *Aggregator) Dashboard(period time.Duration) Dashboard {
	all := a.History()
	recs := all
	if period > 0 {
		cutoff := a.now().Add(-period)
		recs = recs[:0:0]
		for _, r := range all {
			if !r.Timestamp.Before(cutoff) {
				recs = append(recs, r)
			}
		}
	}

	d := Dashboard{Period: period, Samples: len(recs), Status: StatusNoData, Trend: TrendStable}
	if len(recs) == 0 {
		return d
	}

	var sum Components
	var overall float64
	for _, r := range recs {
		overall += r.Overall
		sum.Security += r.Components.Security
		sum.Quality += r.Components.Quality
		sum.Performance += r.Components.Performance
		d.Critical += r.Critical
	}
	n := float64(len(recs))
	d.OverallScore = overall / n
	d.Components = Components{
		Security:    sum.Security / n,
		Quality:     sum.Quality / n,
		Performance: sum.Performance / n,
	}
	d.Status = a.Classify(d.OverallScore)
	d.Trend = trend(recs)
	latest := recs[len(recs)-1]
	d.Latest = &latest
	return d
}

// trend compares the mean of the older half against the newer half. recs
// must be in time order.
func trend(recs []Record) Trend {
	if len(recs) < 2 {
		return TrendStable
	}
	mid := len(recs) / 2
	delta := mean(recs[mid:]) - mean(recs[:mid])
	switch {
	case delta > trendEpsilon:
		return TrendImproving
	case delta < -trendEpsilon:
		return TrendDeclining
	}
	return TrendStable
}

func mean(recs []Record) float64 {
	var total float64
	for _, r := range recs {
		total += r.Overall
	}
	return total / float64(len(recs))
}
