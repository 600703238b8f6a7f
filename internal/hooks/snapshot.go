package hooks

import "time"

// HookMetrics describes one registered hook.
type HookMetrics struct {
	ID         string        `json:"id"`
	Phase      Phase         `json:"phase"`
	Priority   Priority      `json:"priority"`
	Enabled    bool          `json:"enabled"`
	Executions int64         `json:"executions"`
	Errors     int64         `json:"errors"`
	Flagged    int64         `json:"flagged"`
	AvgTime    time.Duration `json:"avg_time_ns"`
	Latency    Percentiles   `json:"latency"`
}

// Snapshot is a point-in-time readout of the pipeline.
type Snapshot struct {
	Strict   bool          `json:"strict"`
	Pre      []HookMetrics `json:"pre"`
	Post     []HookMetrics `json:"post"`
	PreRuns  Percentiles   `json:"pre_runs"`
	PostRuns Percentiles   `json:"post_runs"`
}

// Snapshot returns per-hook counts and run latency percentiles. Hooks are
// listed in execution order.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Strict:   p.cfg.Strict,
		Pre:      hookMetrics(PhasePre, p.pre.all()),
		Post:     hookMetrics(PhasePost, p.post.all()),
		PreRuns:  p.preRuns.summary(),
		PostRuns: p.postRuns.summary(),
	}
}

func hookMetrics(phase Phase, hs []*hook) []HookMetrics {
	out := make([]HookMetrics, 0, len(hs))
	for _, h := range hs {
		m := HookMetrics{
			ID:         h.id,
			Phase:      phase,
			Priority:   h.priority,
			Enabled:    h.enabled,
			Executions: h.executions,
			Errors:     h.errors,
			Flagged:    h.vetoes,
			Latency:    h.samples.summary(),
		}
		if h.executions > 0 {
			m.AvgTime = h.total / time.Duration(h.executions)
		}
		out = append(out, m)
	}
	return out
}
