package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/ptab/wit/pkg/actions"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/registry"
)

// MessageOptions contains the configuration of the message command.
type MessageOptions struct {
	ConfigPath string
	Text       string
	Context    string
	Debug      bool

	Out io.Writer
}

// Message prints the meaning of a single sentence as JSON.
func Message(ctx context.Context, opts MessageOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	cfg, err := LoadConfig(opts.ConfigPath, "")
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}
	c, err := ParseContext(opts.Context)
	if err != nil {
		return err
	}

	client, err := NewClient(cfg, logger, registry.Actions{
		Say:   actions.Transcript(opts.Out),
		Merge: actions.MergeEntities,
		Error: actions.LogError(logger),
	}, domain.LifecycleHooks{})
	if err != nil {
		return err
	}

	meaning, err := client.Message(ctx, opts.Text, c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(opts.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(meaning)
}
