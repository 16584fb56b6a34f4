package runtime

import (
	"context"
	"time"

	"github.com/ptab/wit/pkg/domain"
)

func (e *Engine) base(s step, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: s.sessionID,
		Step:      s.number,
	}
}

func (e *Engine) emitExchange(ctx context.Context, s step, kind string, d time.Duration, err error) {
	if e.hooks.OnExchange == nil {
		return
	}
	e.hooks.OnExchange(ctx, &domain.ExchangeEvent{
		EventBase: e.base(s, domain.EventExchange),
		Kind:      kind,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitActionCall(ctx context.Context, s step, action string) {
	if e.hooks.OnActionCall == nil {
		return
	}
	e.hooks.OnActionCall(ctx, &domain.ActionEvent{
		EventBase: e.base(s, domain.EventActionCall),
		Action:    action,
	})
}

func (e *Engine) emitActionReturn(ctx context.Context, s step, action string, d time.Duration, isError bool) {
	if e.hooks.OnActionReturn == nil {
		return
	}
	e.hooks.OnActionReturn(ctx, &domain.ActionEvent{
		EventBase: e.base(s, domain.EventActionReturn),
		Action:    action,
		Duration:  d,
		IsError:   isError,
	})
}

func (e *Engine) emitHalt(ctx context.Context, s step, reason domain.HaltReason, err error) {
	if e.hooks.OnHalt == nil {
		return
	}
	e.hooks.OnHalt(ctx, &domain.HaltEvent{
		EventBase: e.base(s, domain.EventHalt),
		Reason:    reason,
		Err:       err,
	})
}
