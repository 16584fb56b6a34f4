package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ptab/wit"
	"github.com/ptab/wit/internal/config"
	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/adapters/file"
	"github.com/ptab/wit/pkg/adapters/memory"
	"github.com/ptab/wit/pkg/adapters/process"
	"github.com/ptab/wit/pkg/adapters/redis"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/persistence/middleware"
	"github.com/ptab/wit/pkg/ports"
	"github.com/ptab/wit/pkg/registry"
	"github.com/ptab/wit/pkg/session"
)

// Persistence bundles the session manager with whatever must be closed on exit.
type Persistence struct {
	Manager *session.Manager
	closers []io.Closer
}

// Close releases store connections.
func (p *Persistence) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewLogger builds the application logger. debug forces the debug level.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level, logging.Format(strings.ToLower(cfg.LogFormat))), nil
}

// NewStore builds the configured session store, wrapped with the PII and
// encryption middleware when configured. The locker is nil unless the store
// is shared (redis).
func NewStore(cfg config.StoreConfig) (ports.SessionStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
		closer io.Closer
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Path)
	case config.BackendRedis:
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		rs, err := redis.NewFromURL(cfg.RedisURL, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store, locker, closer = rs, redis.NewLocker(rs.Client(), prefix), rs
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	// Masking runs before encryption so the sealed payload is already masked.
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.MaskKeys))
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	return middleware.Chain(store, mws...), locker, closer, nil
}

// NewPersistence builds the session manager over the configured store.
func NewPersistence(cfg *config.Config, logger *slog.Logger) (*Persistence, error) {
	store, locker, closer, err := NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	p := &Persistence{Manager: session.NewManager(store, opts...)}
	if closer != nil {
		p.closers = append(p.closers, closer)
	}
	return p, nil
}

// NamedActions turns the configured process actions into action handlers.
func NamedActions(cfg *config.Config, logger *slog.Logger) map[string]registry.ActionFunc {
	runner := process.NewRunner(
		process.WithActions(cfg.ProcessActions()),
		process.WithLogger(logger),
	)
	return runner.Actions()
}

// NewClient builds a client from the configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, actions registry.Actions, hooks domain.LifecycleHooks, opts ...wit.Option) (*wit.Client, error) {
	base := []wit.Option{
		wit.WithLogger(logger),
		wit.WithLifecycleHooks(hooks),
	}
	if cfg.APIURL != "" {
		base = append(base, wit.WithAPIURL(cfg.APIURL))
	}
	if cfg.APIVersion != "" {
		base = append(base, wit.WithAPIVersion(cfg.APIVersion))
	}
	if cfg.CallbackTimeout > 0 {
		base = append(base, wit.WithCallbackTimeout(cfg.CallbackTimeout))
	}

	client, err := wit.New(cfg.AccessToken, actions, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing client: %w", err)
	}
	return client, nil
}
