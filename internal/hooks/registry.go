package hooks

import (
	"sort"
	"time"
)

// latencyWindow bounds the per-hook and per-phase latency samples kept for
// percentile reporting.
const latencyWindow = 1024

// hook is a registry entry. Metrics are reset when the id is re-registered.
type hook struct {
	id       string
	priority Priority
	enabled  bool
	seq      uint64
	pre      PreHandler
	post     PostHandler

	executions int64
	errors     int64
	vetoes     int64
	total      time.Duration
	samples    *latencies
}

// registry stores hooks in an arena with an id index. Ordering is derived
// from (priority, seq) so insertion order is stable within a priority.
type registry struct {
	arena []*hook
	index map[string]int
	seq   uint64
}

func newRegistry() *registry {
	return &registry{index: make(map[string]int)}
}

// put adds h or replaces the entry with the same id. Replacement takes a
// fresh sequence number and fresh metrics.
func (r *registry) put(h *hook) (replaced bool) {
	r.seq++
	h.seq = r.seq
	h.samples = newLatencies(latencyWindow)
	if i, ok := r.index[h.id]; ok {
		r.arena[i] = h
		return true
	}
	r.index[h.id] = len(r.arena)
	r.arena = append(r.arena, h)
	return false
}

func (r *registry) get(id string) (*hook, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.arena[i], true
}

func (r *registry) remove(id string) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	last := len(r.arena) - 1
	if i != last {
		r.arena[i] = r.arena[last]
		r.index[r.arena[i].id] = i
	}
	r.arena[last] = nil
	r.arena = r.arena[:last]
	delete(r.index, id)
	return true
}

// ordered returns the enabled hooks in execution order.
func (r *registry) ordered() []*hook {
	out := make([]*hook, 0, len(r.arena))
	for _, h := range r.arena {
		if h.enabled {
			out = append(out, h)
		}
	}
	sortHooks(out)
	return out
}

// all returns every hook in execution order, disabled ones included.
func (r *registry) all() []*hook {
	out := make([]*hook, len(r.arena))
	copy(out, r.arena)
	sortHooks(out)
	return out
}

func (r *registry) len() int { return len(r.arena) }

func sortHooks(hs []*hook) {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].priority != hs[j].priority {
			return hs[i].priority < hs[j].priority
		}
		return hs[i].seq < hs[j].seq
	})
}

// latencies is a fixed-size ring of duration samples.
type latencies struct {
	buf  []time.Duration
	next int
	full bool
}

func newLatencies(n int) *latencies {
	return &latencies{buf: make([]time.Duration, n)}
}

func (l *latencies) add(d time.Duration) {
	l.buf[l.next] = d
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

func (l *latencies) values() []time.Duration {
	if l.full {
		out := make([]time.Duration, len(l.buf))
		copy(out, l.buf)
		return out
	}
	out := make([]time.Duration, l.next)
	copy(out, l.buf[:l.next])
	return out
}

// Percentiles summarizes a latency distribution.
type Percentiles struct {
	Count int           `json:"count"`
	Avg   time.Duration `json:"avg_ns"`
	P50   time.Duration `json:"p50_ns"`
	P95   time.Duration `json:"p95_ns"`
	P99   time.Duration `json:"p99_ns"`
	Max   time.Duration `json:"max_ns"`
}

func (l *latencies) summary() Percentiles {
	vals := l.values()
	if len(vals) == 0 {
		return Percentiles{}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	var sum time.Duration
	for _, v := range vals {
		sum += v
	}
	return Percentiles{
		Count: len(vals),
		Avg:   sum / time.Duration(len(vals)),
		P50:   nearestRank(vals, 50),
		P95:   nearestRank(vals, 95),
		P99:   nearestRank(vals, 99),
		Max:   vals[len(vals)-1],
	}
}

// nearestRank expects sorted input.
func nearestRank(sorted []time.Duration, pct int) time.Duration {
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
