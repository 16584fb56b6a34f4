package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ptab/wit"
	"github.com/ptab/wit/internal/config"
	"github.com/ptab/wit/pkg/actions"
	httpadapter "github.com/ptab/wit/pkg/adapters/http"
	"github.com/ptab/wit/pkg/adapters/mcp"
	"github.com/ptab/wit/pkg/observability"
	"github.com/ptab/wit/pkg/registry"
)

// ServeOptions contains the configuration of the serve and mcp commands.
type ServeOptions struct {
	ConfigPath string
	Store      string
	Port       int
	Transport  string // mcp only: stdio or sse
	Debug      bool
}

type server struct {
	cfg         *config.Config
	persistence *Persistence
	collector   *actions.Collector
	metrics     *observability.Metrics
	client      *wit.Client
	logger      *slog.Logger
}

func newServer(opts ServeOptions) (*server, error) {
	cfg, err := LoadConfig(opts.ConfigPath, opts.Store)
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(cfg, opts.Debug)
	if err != nil {
		return nil, err
	}
	p, err := NewPersistence(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &server{
		cfg:         cfg,
		logger:      logger,
		persistence: p,
		collector:   actions.NewCollector(),
		metrics:     observability.NewMetrics(prometheus.NewRegistry()),
	}
	hooks := s.metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(observability.LogHooks(logger))
	}
	s.client, err = NewClient(cfg, logger, registry.Actions{
		Say:   s.collector.Say,
		Merge: actions.MergeEntities,
		Error: actions.LogError(logger),
		Named: NamedActions(cfg, logger),
	}, hooks)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, opts ServeOptions) error {
	s, err := newServer(opts)
	if err != nil {
		return err
	}
	defer s.persistence.Close()

	logger := s.logger
	handler := httpadapter.NewHandler(s.client, s.persistence.Manager,
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsHandler(s.metrics.Handler()),
		httpadapter.WithTranscript(s.collector),
		httpadapter.WithMaxSteps(s.cfg.MaxSteps),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting wit server", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		logger.Info("wit server stopped gracefully")
		return nil
	}
}

// ServeMCP runs the MCP server on the chosen transport.
func ServeMCP(ctx context.Context, opts ServeOptions) error {
	s, err := newServer(opts)
	if err != nil {
		return err
	}
	defer s.persistence.Close()

	logger := s.logger
	srv := mcp.NewServer(s.client, s.persistence.Manager,
		mcp.WithLogger(logger),
		mcp.WithTranscript(s.collector),
	)

	switch opts.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, opts.Port)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", opts.Transport)
	}
}
