// Package config loads CLI settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/ptab/wit/pkg/adapters/process"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no path is given and it exists.
const DefaultFile = "wit.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Environment variables overlaid on the file.
const (
	EnvAccessToken   = "WIT_ACCESS_TOKEN"
	EnvAPIURL        = "WIT_API_URL"
	EnvAPIVersion    = "WIT_API_VERSION"
	EnvLogLevel      = "WIT_LOG_LEVEL"
	EnvRedisURL      = "WIT_REDIS_URL"
	EnvMaxInputSize  = "WIT_MAX_INPUT_SIZE"
	EnvEncryptionKey = "WIT_ENCRYPTION_KEY"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every setting the CLI needs.
type Config struct {
	AccessToken     string        `mapstructure:"access_token"`
	APIURL          string        `mapstructure:"api_url"`
	APIVersion      string        `mapstructure:"api_version"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	MaxSteps        int           `mapstructure:"max_steps"`
	CallbackTimeout time.Duration `mapstructure:"callback_timeout"`
	MaxInputSize    int           `mapstructure:"max_input_size"`

	Store   StoreConfig            `mapstructure:"store"`
	Actions []process.ActionConfig `mapstructure:"actions"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend  string        `mapstructure:"backend"`
	Path     string        `mapstructure:"path"`
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`

	// EncryptionKey enables AES-GCM at rest (32 bytes, hex or base64).
	EncryptionKey string `mapstructure:"encryption_key"`
	// MaskKeys are regular expressions of context keys masked at rest.
	MaskKeys []string `mapstructure:"mask_keys"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Backend: BackendMemory,
		},
	}
}

// Load reads path, or DefaultFile when path is empty, and overlays the
// environment. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (c *Config) overlayEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(EnvAccessToken, &c.AccessToken)
	setString(EnvAPIURL, &c.APIURL)
	setString(EnvAPIVersion, &c.APIVersion)
	setString(EnvLogLevel, &c.LogLevel)
	setString(EnvEncryptionKey, &c.Store.EncryptionKey)

	if v, ok := os.LookupEnv(EnvRedisURL); ok && v != "" {
		c.Store.RedisURL = v
		if c.Store.Backend == BackendMemory {
			c.Store.Backend = BackendRedis
		}
	}
	if v, ok := os.LookupEnv(EnvMaxInputSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvMaxInputSize, v)
		}
		c.MaxInputSize = n
	}
	return nil
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalidConfig)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("%w: max_input_size must not be negative", ErrInvalidConfig)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: redis store needs redis_url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	for i, a := range c.Actions {
		if a.Name == "" || a.Command == "" {
			return fmt.Errorf("%w: action #%d needs a name and a command", ErrInvalidConfig, i+1)
		}
	}
	return nil
}

// ProcessActions indexes the configured process actions by name.
func (c *Config) ProcessActions() map[string]process.ActionConfig {
	return process.Index(c.Actions)
}
