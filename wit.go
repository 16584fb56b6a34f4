package wit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/internal/runtime"
	"github.com/ptab/wit/pkg/adapters/witapi"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/ports"
	"github.com/ptab/wit/pkg/registry"
)

// DefaultMaxSteps is the step budget used when RunActions gets a non-positive one.
const DefaultMaxSteps = runtime.DefaultMaxSteps

// Client is the high-level entry point of the library.
// It binds a transport to a set of actions and runs conversations against them.
type Client struct {
	engine    *runtime.Engine
	transport ports.Transport
	registry  *registry.Registry
	logger    *slog.Logger
}

type config struct {
	transport       ports.Transport
	logger          *slog.Logger
	hooks           domain.LifecycleHooks
	callbackTimeout time.Duration
	apiURL          string
	apiVersion      string
	httpClient      *http.Client
}

// Option defines a functional option for configuring the Client.
type Option func(*config)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTransport replaces the default HTTP transport.
func WithTransport(t ports.Transport) Option {
	return func(c *config) {
		c.transport = t
	}
}

// WithAPIURL points the default transport at another endpoint.
func WithAPIURL(u string) Option {
	return func(c *config) {
		c.apiURL = u
	}
}

// WithAPIVersion sets the API version of the default transport.
func WithAPIVersion(v string) Option {
	return func(c *config) {
		c.apiVersion = v
	}
}

// WithHTTPClient sets the HTTP client of the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithCallbackTimeout sets how long a handler may hold its completion before a warning is logged.
func WithCallbackTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callbackTimeout = d
	}
}

// New validates the actions and creates a Client.
// accessToken authenticates the default transport; it may be empty when WithTransport is used.
func New(accessToken string, actions registry.Actions, opts ...Option) (*Client, error) {
	reg, err := registry.New(actions)
	if err != nil {
		return nil, err
	}
	return NewWithRegistry(accessToken, reg, opts...)
}

// NewWithRegistry creates a Client from an already validated registry.
func NewWithRegistry(accessToken string, reg *registry.Registry, opts ...Option) (*Client, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	if cfg.transport == nil {
		if accessToken == "" {
			return nil, errors.New("access token is required when no transport is provided")
		}
		cfg.transport = witapi.New(accessToken,
			witapi.WithBaseURL(cfg.apiURL),
			witapi.WithVersion(cfg.apiVersion),
			witapi.WithHTTPClient(cfg.httpClient),
			witapi.WithLogger(cfg.logger),
		)
	}

	engine := runtime.NewEngine(cfg.transport, reg,
		runtime.WithLogger(cfg.logger),
		runtime.WithLifecycleHooks(cfg.hooks),
		runtime.WithCallbackTimeout(cfg.callbackTimeout),
	)

	return &Client{
		engine:    engine,
		transport: cfg.transport,
		registry:  reg,
		logger:    cfg.logger,
	}, nil
}

// Message returns the meaning extracted from a single sentence.
func (c *Client) Message(ctx context.Context, text string, wc domain.Context) (*domain.Meaning, error) {
	return c.transport.Message(ctx, text, wc)
}

// Converse performs a single exchange without running any action.
// An empty message is not sent.
func (c *Client) Converse(ctx context.Context, sessionID, message string, wc domain.Context) (*domain.Instruction, error) {
	var text *string
	if message != "" {
		text = &message
	}
	return c.transport.Converse(ctx, sessionID, text, wc)
}

// RunActions runs one conversation turn: it sends the message and context,
// then executes the instructed actions until the service stops or maxSteps
// actions have run. maxSteps <= 0 means DefaultMaxSteps.
//
// It returns the final context. On failure it returns the last context reached
// together with the error.
func (c *Client) RunActions(ctx context.Context, sessionID, message string, wc domain.Context, maxSteps int) (domain.Context, error) {
	return c.engine.Run(ctx, sessionID, message, wc, maxSteps)
}

// RunActionsAsync is RunActions on a new goroutine. cb is called exactly once,
// always from that goroutine. The context is copied before RunActionsAsync returns.
func (c *Client) RunActionsAsync(ctx context.Context, sessionID, message string, wc domain.Context, maxSteps int, cb func(domain.Context, error)) {
	snapshot, cloneErr := wc.Clone()
	go func() {
		if cloneErr != nil {
			if cb != nil {
				cb(wc, cloneErr)
			}
			return
		}
		next, err := c.engine.Run(ctx, sessionID, message, snapshot, maxSteps)
		if cb != nil {
			cb(next, err)
		}
	}()
}

// Registry returns the actions the client dispatches to.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}
