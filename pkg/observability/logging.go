package observability

import (
	"context"
	"log/slog"

	"github.com/ptab/wit/pkg/domain"
)

// LogHooks returns lifecycle hooks that trace every event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExchange: func(ctx context.Context, e *domain.ExchangeEvent) {
			logger.DebugContext(ctx, "exchange",
				"session_id", e.SessionID,
				"step", e.Step,
				"kind", e.Kind,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action call", "session_id", e.SessionID, "step", e.Step, "action", e.Action)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action return",
				"session_id", e.SessionID,
				"step", e.Step,
				"action", e.Action,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnCallbackTimeout: func(ctx context.Context, e *domain.ActionEvent) {
			logger.WarnContext(ctx, "action still pending", "session_id", e.SessionID, "step", e.Step, "action", e.Action)
		},
		OnHalt: func(ctx context.Context, e *domain.HaltEvent) {
			logger.DebugContext(ctx, "halt", "session_id", e.SessionID, "step", e.Step, "reason", e.Reason, "err", e.Err)
		},
	}
}
