package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunSuccess EventType = "run_success"
	EventRunError   EventType = "run_error"
	EventRunDropped EventType = "run_dropped"
	EventPropagate  EventType = "propagate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// RunEvent describes one external call of a node.
type RunEvent struct {
	EventBase
	NodeID   string         `json:"node_id"`
	Kind     string         `json:"kind"`
	Token    uint64         `json:"token"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Output   any            `json:"output,omitempty"`
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration,omitempty"`

	// Dispatched is false for runs rejected before the external call.
	Dispatched bool `json:"dispatched"`
}

// PropagateEvent describes the one-hop write of a result to downstream nodes.
type PropagateEvent struct {
	EventBase
	NodeID  string   `json:"node_id"`
	Targets []string `json:"targets"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunSuccess func(context.Context, *RunEvent)
	OnRunError   func(context.Context, *RunEvent)
	OnRunDropped func(context.Context, *RunEvent)
	OnPropagate  func(context.Context, *PropagateEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:   chainRun(h.OnRunStart, other.OnRunStart),
		OnRunSuccess: chainRun(h.OnRunSuccess, other.OnRunSuccess),
		OnRunError:   chainRun(h.OnRunError, other.OnRunError),
		OnRunDropped: chainRun(h.OnRunDropped, other.OnRunDropped),
		OnPropagate: func(ctx context.Context, e *PropagateEvent) {
			if h.OnPropagate != nil {
				h.OnPropagate(ctx, e)
			}
			if other.OnPropagate != nil {
				other.OnPropagate(ctx, e)
			}
		},
	}
}

func chainRun(a, b func(context.Context, *RunEvent)) func(context.Context, *RunEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *RunEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
