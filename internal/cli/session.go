package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ptab/wit/internal/logging"
)

// SessionOptions selects the store the session commands operate on.
type SessionOptions struct {
	ConfigPath string
	Store      string
	Out        io.Writer
}

func openSessions(opts SessionOptions) (*Persistence, error) {
	cfg, err := LoadConfig(opts.ConfigPath, opts.Store)
	if err != nil {
		return nil, err
	}
	return NewPersistence(cfg, logging.NewNop())
}

// ListSessions prints the stored session ids, one per line.
func ListSessions(ctx context.Context, opts SessionOptions) error {
	p, err := openSessions(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	ids, err := p.Manager.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(opts.Out, "No active sessions found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(opts.Out, id)
	}
	return nil
}

// InspectSession prints a stored session as JSON.
func InspectSession(ctx context.Context, opts SessionOptions, id string) error {
	p, err := openSessions(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	s, err := p.Manager.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}
	enc := json.NewEncoder(opts.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RemoveSession deletes stored sessions.
func RemoveSession(ctx context.Context, opts SessionOptions, ids ...string) error {
	p, err := openSessions(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, id := range ids {
		if err := p.Manager.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", id, err)
		}
		fmt.Fprintf(opts.Out, "Session '%s' deleted.\n", id)
	}
	return nil
}
