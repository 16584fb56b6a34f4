package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
	"github.com/ptab/wit/pkg/session"
)

// Shell is an interactive conversation loop: every line the user types runs
// one conversation turn, and the resulting context carries into the next.
type Shell struct {
	Handler   *TextHandler
	Logger    *slog.Logger
	SessionID string
	MaxSteps  int

	runner   session.Runner
	sessions *session.Manager
	context  domain.Context
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithHandler configures the text handler used for input and output.
func WithHandler(h *TextHandler) Option {
	return func(s *Shell) {
		s.Handler = h
	}
}

// WithSessionID fixes the session id. A random one is used otherwise.
func WithSessionID(id string) Option {
	return func(s *Shell) {
		if id != "" {
			s.SessionID = id
		}
	}
}

// WithMaxSteps sets the step budget of each turn. Zero uses the engine default.
func WithMaxSteps(n int) Option {
	return func(s *Shell) {
		s.MaxSteps = n
	}
}

// WithSessionManager persists the context through a session manager instead of
// keeping it in memory.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Shell) {
		s.sessions = m
	}
}

// WithInitialContext seeds the conversation context.
func WithInitialContext(c domain.Context) Option {
	return func(s *Shell) {
		if c != nil {
			s.context = c
		}
	}
}

// NewShell creates a shell. The runner may be set later with Run.
func NewShell(opts ...Option) *Shell {
	s := &Shell{
		Logger:    logging.NewNop(),
		SessionID: domain.NewSessionID(),
		context:   domain.Context{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Handler == nil {
		s.Handler = NewTextHandler(nil, nil)
	}
	return s
}

// SayAction returns a say handler that prints through the shell's handler.
func (s *Shell) SayAction() registry.SayFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, msg string, done registry.SayDone) {
		s.Handler.Say(msg)
		done()
	}
}

// ErrorAction returns an error handler that reports through the shell's handler.
func (s *Shell) ErrorAction() registry.ErrorFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, err error) {
		s.Handler.System(fmt.Sprintf("Error: %v", err))
	}
}

// Context returns the context the next turn starts from.
func (s *Shell) Context() domain.Context {
	return s.context
}

// Run reads lines until input ends, ctx is cancelled or the user interrupts at
// the prompt. An interrupt during a turn cancels only that turn.
func (s *Shell) Run(ctx context.Context, runner session.Runner) error {
	if runner == nil {
		return errors.New("runner: no conversation runner configured")
	}
	s.runner = runner

	if s.sessions != nil {
		sess, err := s.sessions.LoadOrStart(ctx, s.SessionID, s.context)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", s.SessionID, err)
		}
		s.context = sess.Context
	}

	sm := NewSignalManager(ctx)
	defer sm.Stop()

	s.Logger.Debug("shell started", "session_id", s.SessionID)
	for {
		turnCtx := sm.Context()

		line, err := s.Handler.Input(turnCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				sm.CheckRace()
			}
			if sm.Interrupted() {
				s.Handler.System("Interrupted.")
				return nil
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if line == "" {
			continue
		}

		if err := s.turn(turnCtx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if sm.Interrupted() {
				s.Handler.System("Turn cancelled.")
				sm.Reset()
				continue
			}
			s.Logger.Error("turn failed", "session_id", s.SessionID, "err", err)
			s.Handler.System(fmt.Sprintf("Error: %v", err))
		}
	}
}

func (s *Shell) turn(ctx context.Context, line string) error {
	if s.sessions != nil {
		res, err := s.sessions.Converse(ctx, s.runner, s.SessionID, line, s.MaxSteps)
		if err != nil {
			return err
		}
		s.context = res.Session.Context
		return nil
	}

	next, err := s.runner.RunActions(ctx, s.SessionID, line, s.context, s.MaxSteps)
	if err != nil {
		return err
	}
	s.context = next
	return nil
}
