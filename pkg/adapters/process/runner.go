package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
)

// DefaultTimeout bounds one process execution.
const DefaultTimeout = 30 * time.Second

// Environment variables set for every executed action.
const (
	EnvSessionID = "WIT_SESSION_ID"
	EnvAction    = "WIT_ACTION"
)

var (
	// ErrNotRegistered is returned for names missing from the allow-list.
	ErrNotRegistered = errors.New("process action not registered")
	// ErrInvalidOutput is returned when stdout is neither empty nor a JSON object.
	ErrInvalidOutput = errors.New("process output is not a JSON object")
)

// Runner executes allow-listed local commands as named conversation actions.
//
// The current context is written to the process as JSON on stdin. A JSON object
// printed on stdout becomes the next context; empty output leaves it unchanged.
type Runner struct {
	registry map[string]ActionConfig
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithActions populates the allow-list from loaded configs.
func WithActions(actions map[string]ActionConfig) RunnerOption {
	return func(r *Runner) {
		for name, a := range actions {
			a.Name = name
			r.registry[name] = a
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout sets the default execution timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ActionConfig),
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.registry[name] = ActionConfig{Name: name, Command: command, Args: args}
}

// Names lists the registered actions, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named action against the context and returns the next context.
func (r *Runner) Execute(ctx context.Context, name, sessionID string, c domain.Context) (domain.Context, error) {
	cfg, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	input, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context for %s: %w", name, err)
	}

	timeout := r.timeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = r.baseDir
	// Ask politely first, then kill after the grace period.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	// Context travels on stdin, never as flags.
	env := cmd.Environ()
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, EnvSessionID+"="+sessionID, EnvAction+"="+name)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("process action finished",
		"action", name,
		"session_id", sessionID,
		"duration", time.Since(start),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("process action %s aborted: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("process action %s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}

	return decodeOutput(stdout.Bytes(), c)
}

func decodeOutput(out []byte, current domain.Context) (domain.Context, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return current, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutput, truncate(string(trimmed), 64))
	}
	var next domain.Context
	if err := json.Unmarshal(trimmed, &next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if next == nil {
		next = domain.Context{}
	}
	return next, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Action adapts a registered command to a conversation action handler.
// A failed execution is logged and the conversation continues with the
// context unchanged.
func (r *Runner) Action(name string) registry.ActionFunc {
	return func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
		next, err := r.Execute(ctx, name, sessionID, c)
		if err != nil {
			r.logger.Error("process action failed", "action", name, "session_id", sessionID, "err", err)
			done(c)
			return
		}
		done(next)
	}
}

// Actions returns a handler for every registered command, keyed by name.
func (r *Runner) Actions() map[string]registry.ActionFunc {
	out := make(map[string]registry.ActionFunc, len(r.registry))
	for name := range r.registry {
		out[name] = r.Action(name)
	}
	return out
}
