package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/ptab/wit/pkg/domain"
)

// watchdog warns when a handler holds its completion for too long.
// It never cancels the handler.
type watchdog struct {
	timer *time.Timer
	once  sync.Once
}

func (e *Engine) arm(ctx context.Context, s step, action string) *watchdog {
	timeout := e.callbackTimeout
	return &watchdog{
		timer: time.AfterFunc(timeout, func() {
			s.logger.Warn("action callback not called", "action", action, "timeout", timeout)
			if e.hooks.OnCallbackTimeout != nil {
				e.hooks.OnCallbackTimeout(ctx, &domain.ActionEvent{
					EventBase: e.base(s, domain.EventCallbackTimeout),
					Action:    action,
					Duration:  timeout,
				})
			}
		}),
	}
}

// stop clears the timer. Only the first call has an effect; it reports whether
// this call was the one that cleared it.
func (w *watchdog) stop() bool {
	cleared := false
	w.once.Do(func() {
		w.timer.Stop()
		cleared = true
	})
	return cleared
}
