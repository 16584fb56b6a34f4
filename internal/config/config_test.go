package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAccessToken, EnvAPIURL, EnvAPIVersion, EnvLogLevel, EnvRedisURL, EnvMaxInputSize, EnvEncryptionKey} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
access_token: file-token
api_url: http://localhost:9999
max_steps: "7"
callback_timeout: 2s
store:
  backend: file
  path: /tmp/sessions
  mask_keys: ["^email$"]
actions:
  - name: getForecast
    command: ./forecast.sh
    timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.AccessToken)
	assert.Equal(t, "http://localhost:9999", cfg.APIURL)
	assert.Equal(t, 7, cfg.MaxSteps, "numbers given as strings are accepted")
	assert.Equal(t, 2*time.Second, cfg.CallbackTimeout)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "/tmp/sessions", cfg.Store.Path)
	assert.Equal(t, []string{"^email$"}, cfg.Store.MaskKeys)
	assert.Equal(t, "info", cfg.LogLevel, "defaults survive partial files")

	actions := cfg.ProcessActions()
	require.Contains(t, actions, "getForecast")
	assert.Equal(t, 3*time.Second, actions["getForecast"].Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "access_token: file-token\nlog_level: warn\n")
	t.Setenv(EnvAccessToken, "env-token")
	t.Setenv(EnvAPIVersion, "20170307")
	t.Setenv(EnvMaxInputSize, "128")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.AccessToken)
	assert.Equal(t, "20170307", cfg.APIVersion)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 128, cfg.MaxInputSize)
}

func TestLoad_RedisURLSelectsRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
}

func TestLoad_DefaultFileIsOptional(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"Unknown Key", "acces_token: typo\n", nil},
		{"Negative Steps", "max_steps: -1\n", nil},
		{"Unknown Backend", "store:\n  backend: sqlite\n", nil},
		{"Redis Without URL", "store:\n  backend: redis\n", nil},
		{"Action Without Command", "actions:\n  - name: x\n", nil},
		{"Bad Input Size", "", map[string]string{EnvMaxInputSize: "lots"}},
		{"Malformed YAML", "store: [", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
