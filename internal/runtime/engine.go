package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/ports"
	"github.com/ptab/wit/pkg/registry"
)

const (
	// DefaultMaxSteps bounds a conversation turn when the caller passes no budget.
	DefaultMaxSteps = 5

	// DefaultCallbackTimeout is how long a handler may hold its completion before a warning.
	DefaultCallbackTimeout = 10 * time.Second
)

// Actions resolves instruction targets to handlers.
// *registry.Registry implements it.
type Actions interface {
	Say() (registry.SayFunc, bool)
	Merge() (registry.MergeFunc, bool)
	Error() (registry.ErrorFunc, bool)
	Action(name string) (registry.ActionFunc, bool)
}

// Engine drives the converse loop: ask the service for the next step,
// run the matching handler, and repeat until stop or the budget is spent.
type Engine struct {
	transport       ports.Transport
	actions         Actions
	logger          *slog.Logger
	hooks           domain.LifecycleHooks
	callbackTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithCallbackTimeout sets the advisory handler timeout. Non-positive values keep the default.
func WithCallbackTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callbackTimeout = d
		}
	}
}

// NewEngine creates an engine bound to a transport and a set of actions.
func NewEngine(transport ports.Transport, actions Actions, opts ...Option) *Engine {
	e := &Engine{
		transport:       transport,
		actions:         actions,
		logger:          logging.NewNop(),
		callbackTimeout: DefaultCallbackTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// step is the loop state carried between iterations.
type step struct {
	sessionID string
	message   string
	number    int
	logger    *slog.Logger
}

// Run executes one conversation turn.
// It sends message (omitted when empty) and c to the service, then dispatches
// instructions until the service stops, an error instruction is handled, or
// maxSteps handlers have completed. maxSteps <= 0 means DefaultMaxSteps.
//
// On failure the last authoritative context is returned with the error.
func (e *Engine) Run(ctx context.Context, sessionID, message string, c domain.Context, maxSteps int) (domain.Context, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	current, err := c.Clone()
	if err != nil {
		return c, fmt.Errorf("initial context: %w", err)
	}

	var text *string
	if message != "" {
		text = &message
	}

	remaining := maxSteps
	for n := 1; ; n++ {
		s := step{
			sessionID: sessionID,
			message:   message,
			number:    n,
			logger:    e.logger.With("session_id", sessionID, "step", n),
		}

		inst, err := e.exchange(ctx, s, text, current)
		text = nil
		if err != nil {
			return current, e.fail(ctx, s, err)
		}

		next, halt, err := e.dispatch(ctx, s, inst, current)
		if err != nil {
			return current, e.fail(ctx, s, err)
		}
		if halt != "" {
			e.emitHalt(ctx, s, halt, nil)
			return current, nil
		}

		current = next
		remaining--
		if remaining <= 0 {
			s.logger.Warn("max steps reached, halting", "max_steps", maxSteps)
			e.emitHalt(ctx, s, domain.HaltMaxSteps, nil)
			return current, nil
		}
	}
}

// exchange asks the service for the next instruction.
func (e *Engine) exchange(ctx context.Context, s step, text *string, current domain.Context) (*domain.Instruction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.logger.Debug("converse", "has_text", text != nil)
	inst, err := e.transport.Converse(ctx, s.sessionID, text, current)
	if err == nil && inst == nil {
		err = fmt.Errorf("%w: empty instruction", domain.ErrProtocol)
	}

	kind := ""
	if inst != nil {
		kind = inst.Kind.String()
	}
	e.emitExchange(ctx, s, kind, time.Since(start), err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("converse: %w", err)
	}

	s.logger.Debug("instruction received", "kind", kind, "confidence", inst.Confidence)
	return inst, nil
}

// dispatch runs the handler for inst. It returns the next context, or a halt
// reason when the turn is over.
func (e *Engine) dispatch(ctx context.Context, s step, inst *domain.Instruction, current domain.Context) (domain.Context, domain.HaltReason, error) {
	switch inst.Kind {
	case domain.KindStop:
		s.logger.Debug("stop")
		return nil, domain.HaltStop, nil

	case domain.KindMessage:
		say, ok := e.actions.Say()
		if !ok {
			return nil, "", &registry.NotFoundError{Name: registry.ActionSay}
		}
		s.logger.Debug("executing say", "msg", inst.Message)
		next, err := e.await(ctx, s, registry.ActionSay, current, func(c domain.Context, r resolver) {
			say(ctx, s.sessionID, c, inst.Message, func(args ...any) {
				if len(args) > 0 {
					r.resolve(nil, domain.ErrSayCallbackArgs)
					return
				}
				// say never changes the context.
				r.resolve(current, nil)
			})
		})
		return next, "", err

	case domain.KindMerge:
		merge, ok := e.actions.Merge()
		if !ok {
			return nil, "", &registry.NotFoundError{Name: registry.ActionMerge}
		}
		s.logger.Debug("executing merge", "entities", len(inst.Entities))
		next, err := e.await(ctx, s, registry.ActionMerge, current, func(c domain.Context, r resolver) {
			merge(ctx, s.sessionID, c, inst.Entities, s.message, func(next domain.Context) {
				r.resolve(next, nil)
			})
		})
		return next, "", err

	case domain.KindAction:
		action, ok := e.actions.Action(inst.Action)
		if !ok {
			return nil, "", &registry.NotFoundError{Name: inst.Action}
		}
		s.logger.Debug("executing action", "action", inst.Action)
		next, err := e.await(ctx, s, inst.Action, current, func(c domain.Context, r resolver) {
			action(ctx, s.sessionID, c, func(next domain.Context) {
				r.resolve(next, nil)
			})
		})
		return next, "", err

	case domain.KindError:
		onError, ok := e.actions.Error()
		if !ok {
			return nil, "", &registry.NotFoundError{Name: registry.ActionError}
		}
		cause := inst.Err
		if cause == nil {
			cause = fmt.Errorf("%w: instruction has no recognizable type", domain.ErrProtocol)
		}
		s.logger.Debug("executing error", "err", cause)

		clone, err := current.Clone()
		if err != nil {
			return nil, "", err
		}
		e.emitActionCall(ctx, s, registry.ActionError)
		onError(ctx, s.sessionID, clone, cause)
		e.emitActionReturn(ctx, s, registry.ActionError, 0, true)
		return nil, domain.HaltHandled, nil

	default:
		return nil, "", fmt.Errorf("%w: unknown instruction kind %v", domain.ErrProtocol, inst.Kind)
	}
}

// fail logs a failed turn and fires the halt hook.
func (e *Engine) fail(ctx context.Context, s step, err error) error {
	reason := domain.HaltFailure
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		reason = domain.HaltCancelled
		s.logger.Debug("conversation cancelled", "err", err)
	} else {
		s.logger.Error("conversation failed", "err", err)
		err = &StepError{SessionID: s.sessionID, Step: s.number, Err: err}
	}
	e.emitHalt(ctx, s, reason, err)
	return err
}

// StepError wraps a failure with the step it happened on.
type StepError struct {
	SessionID string
	Step      int
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
