package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventExchange        EventType = "exchange"
	EventActionCall      EventType = "action_call"
	EventActionReturn    EventType = "action_return"
	EventCallbackTimeout EventType = "callback_timeout"
	EventHalt            EventType = "halt"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Step      int       `json:"step"`
}

// ExchangeEvent describes one round trip to the converse endpoint.
type ExchangeEvent struct {
	EventBase
	Kind     string        `json:"kind,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// ActionEvent describes a handler invocation or its completion.
type ActionEvent struct {
	EventBase
	Action   string        `json:"action"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// HaltReason tells why a conversation turn ended.
type HaltReason string

const (
	HaltStop      HaltReason = "stop"
	HaltMaxSteps  HaltReason = "max_steps"
	HaltHandled   HaltReason = "error_handled"
	HaltFailure   HaltReason = "failure"
	HaltCancelled HaltReason = "cancelled"
)

// HaltEvent is fired exactly once per conversation turn.
type HaltEvent struct {
	EventBase
	Reason HaltReason `json:"reason"`
	Err    error      `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil hooks are skipped.
type LifecycleHooks struct {
	OnExchange        func(context.Context, *ExchangeEvent)
	OnActionCall      func(context.Context, *ActionEvent)
	OnActionReturn    func(context.Context, *ActionEvent)
	OnCallbackTimeout func(context.Context, *ActionEvent)
	OnHalt            func(context.Context, *HaltEvent)
}

// Merge combines hooks so each callback fans out to both sides.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnExchange:        chain(h.OnExchange, other.OnExchange),
		OnActionCall:      chain(h.OnActionCall, other.OnActionCall),
		OnActionReturn:    chain(h.OnActionReturn, other.OnActionReturn),
		OnCallbackTimeout: chain(h.OnCallbackTimeout, other.OnCallbackTimeout),
		OnHalt:            chain(h.OnHalt, other.OnHalt),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
