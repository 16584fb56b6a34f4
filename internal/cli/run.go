package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ptab/wit"
	"github.com/ptab/wit/internal/config"
	"github.com/ptab/wit/internal/presentation/tui"
	"github.com/ptab/wit/pkg/actions"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/observability"
	"github.com/ptab/wit/pkg/registry"
	"github.com/ptab/wit/pkg/runner"
)

// RunOptions contains the configuration of the run command.
type RunOptions struct {
	ConfigPath string
	SessionID  string
	Context    string // raw JSON object
	MaxSteps   int
	Store      string // overrides the configured backend
	Fresh      bool
	Debug      bool

	In  io.Reader
	Out io.Writer
}

// LoadConfig reads the configuration and applies a store override.
func LoadConfig(path, store string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if store != "" {
		cfg.Store.Backend = store
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ParseContext decodes a JSON object given on the command line.
func ParseContext(raw string) (domain.Context, error) {
	if raw == "" {
		return nil, nil
	}
	var c domain.Context
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	return c, nil
}

// RunShell starts the interactive conversation shell.
func RunShell(ctx context.Context, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, err := LoadConfig(opts.ConfigPath, opts.Store)
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}
	initial, err := ParseContext(opts.Context)
	if err != nil {
		return err
	}

	p, err := NewPersistence(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	interactive := tui.Interactive(opts.In, opts.Out)
	handlerOpts := []runner.TextHandlerOption{
		runner.WithQuiet(!interactive),
		runner.WithMaxInputSize(cfg.MaxInputSize),
	}
	if interactive {
		handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = cfg.MaxSteps
	}
	shell := runner.NewShell(
		runner.WithHandler(runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)),
		runner.WithSessionID(opts.SessionID),
		runner.WithMaxSteps(maxSteps),
		runner.WithInitialContext(initial),
		runner.WithSessionManager(p.Manager),
		runner.WithLogger(logger),
	)

	if opts.Fresh {
		if err := p.Manager.Delete(ctx, shell.SessionID); err != nil {
			logger.Warn("failed to reset session", "session_id", shell.SessionID, "err", err)
		}
	}

	var hooks domain.LifecycleHooks
	if opts.Debug {
		hooks = observability.LogHooks(logger)
	}
	client, err := NewClient(cfg, logger, registry.Actions{
		Say:   shell.SayAction(),
		Merge: actions.MergeEntities,
		Error: shell.ErrorAction(),
		Named: NamedActions(cfg, logger),
	}, hooks)
	if err != nil {
		return err
	}

	if interactive {
		tui.PrintBanner(opts.Out, wit.Version)
		tui.SystemMessage(opts.Out, "Session '%s' active.", shell.SessionID)
	}
	logger.Info("session started", "session_id", shell.SessionID, "store", cfg.Store.Backend)

	return shell.Run(ctx, client)
}
