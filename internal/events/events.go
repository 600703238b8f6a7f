// Package events carries structured notifications out of the core
// components.
//
// Components take an Observer and report what happened (a hook failed, a
// phase was rejected, an attempt was retried). Observers are side channels
// for logging and forwarding; no component depends on an observer's
// behavior for its own results.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	HookRegistered       Type = "hook_registered"
	HookError            Type = "hook_error"
	HookIntervention     Type = "hook_intervention"
	PerformanceViolation Type = "performance_violation"
	ViolationFound       Type = "violation_found"
	ScoreRecorded        Type = "score_recorded"
	RollbackInvoked      Type = "rollback_invoked"
	WorkflowStarted      Type = "workflow_started"
	PhasePassed          Type = "phase_passed"
	PhaseFailed          Type = "phase_failed"
	WorkflowCompleted    Type = "workflow_completed"
	AttemptFailed        Type = "attempt_failed"
	OrchestrationDone    Type = "orchestration_done"
)

// Event is a single notification.
type Event struct {
	ID     string         `json:"id"`
	Type   Type           `json:"type"`
	Source string         `json:"source"`
	Time   time.Time      `json:"time"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// New creates an event with a fresh id and the current time.
func New(typ Type, source string, attrs map[string]any) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		Source: source,
		Time:   time.Now().UTC(),
		Attrs:  attrs,
	}
}

// Observer receives events. Implementations must be safe for concurrent use
// and must not block for long; they run inline with the reporting
// component.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

type nop struct{}

func (nop) Observe(context.Context, Event) {}

// Nop returns an observer that drops everything.
func Nop() Observer { return nop{} }

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return nop{}
	}
	return o
}

type multi []Observer

func (m multi) Observe(ctx context.Context, e Event) {
	for _, o := range m {
		o.Observe(ctx, e)
	}
}

// Multi fans events out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nop{}
	case 1:
		return out[0]
	}
	return out
}

// Recorder keeps every event it observes. Useful in tests and for
// short-lived CLI runs that print a summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe implements Observer.
func (r *Recorder) Observe(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(typ Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
