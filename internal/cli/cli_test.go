package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ptab/wit/internal/config"
	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/adapters/file"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvAccessToken, config.EnvAPIURL, config.EnvAPIVersion, config.EnvLogLevel,
		config.EnvRedisURL, config.EnvMaxInputSize, config.EnvEncryptionKey,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func roundTrip(t *testing.T, store interface {
	Save(context.Context, string, *domain.Session) error
	Load(context.Context, string) (*domain.Session, error)
}) *domain.Session {
	t.Helper()
	ctx := context.Background()
	s := domain.NewSession("s1")
	s.Context["city"] = "Paris"
	s.Context["password"] = "hunter2"
	require.NoError(t, store.Save(ctx, "s1", s))
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	return loaded
}

func TestNewStore_Memory(t *testing.T) {
	store, locker, closer, err := NewStore(config.StoreConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.Nil(t, locker)
	assert.Nil(t, closer)
	assert.Equal(t, "Paris", roundTrip(t, store).Context["city"])
}

func TestNewStore_File(t *testing.T) {
	dir := t.TempDir()
	store, _, _, err := NewStore(config.StoreConfig{Backend: config.BackendFile, Path: dir})
	require.NoError(t, err)
	roundTrip(t, store)
	assert.FileExists(t, filepath.Join(dir, "s1.json"))
}

func TestNewStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, locker, closer, err := NewStore(config.StoreConfig{
		Backend:  config.BackendRedis,
		RedisURL: "redis://" + mr.Addr(),
	})
	require.NoError(t, err)
	require.NotNil(t, locker)
	require.NotNil(t, closer)
	defer closer.Close()

	assert.Equal(t, "Paris", roundTrip(t, store).Context["city"])
	assert.True(t, mr.Exists("wit:session:s1"))
}

func TestNewStore_MaskedAndEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, _, _, err := NewStore(config.StoreConfig{
		Backend:       config.BackendFile,
		Path:          dir,
		EncryptionKey: testKey,
		MaskKeys:      []string{"(?i)password"},
	})
	require.NoError(t, err)

	loaded := roundTrip(t, store)
	assert.Equal(t, "Paris", loaded.Context["city"])
	assert.Equal(t, middleware.Mask, loaded.Context["password"])

	raw, err := file.New(dir).Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Contains(t, raw.Context, middleware.EnvelopeKey)
	assert.NotContains(t, raw.Context, "city")
}

func TestNewStore_Errors(t *testing.T) {
	_, _, _, err := NewStore(config.StoreConfig{Backend: "etcd"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, _, _, err = NewStore(config.StoreConfig{Backend: config.BackendMemory, EncryptionKey: "short"})
	assert.Error(t, err)

	_, _, _, err = NewStore(config.StoreConfig{Backend: config.BackendRedis, RedisURL: "::not a url"})
	assert.Error(t, err)
}

func TestNewPersistence_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Backend: config.BackendRedis, RedisURL: "redis://" + mr.Addr()}

	p, err := NewPersistence(cfg, logging.NewNop())
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Manager.LoadOrStart(context.Background(), "abc", domain.Context{"a": 1})
	require.NoError(t, err)
	ids, err := p.Manager.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	logger, err := NewLogger(cfg, true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, false)
	assert.Error(t, err)
}

func TestParseContext(t *testing.T) {
	c, err := ParseContext("")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = ParseContext(`{"city":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, "Paris", c["city"])

	_, err = ParseContext(`[1,2]`)
	assert.Error(t, err)
}

func TestLoadConfig_StoreOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "access_token: tok\n")

	cfg, err := LoadConfig(path, config.BackendFile)
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)

	_, err = LoadConfig(path, config.BackendRedis)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// fakeWit answers every turn with one message and then stop.
func fakeWit(t *testing.T) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/message":
			fmt.Fprintf(w, `{"msg_id":"m1","_text":%q,"entities":{"intent":[{"value":"greet"}]}}`, r.URL.Query().Get("q"))
		case "/converse":
			if calls.Add(1)%2 == 1 {
				fmt.Fprint(w, `{"type":"msg","msg":"Hi there"}`)
				return
			}
			fmt.Fprint(w, `{"type":"stop"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMessage(t *testing.T) {
	clearEnv(t)
	srv := fakeWit(t)
	path := writeConfig(t, "access_token: tok\napi_url: "+srv.URL+"\n")

	var out bytes.Buffer
	err := Message(context.Background(), MessageOptions{ConfigPath: path, Text: "hello", Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"msg_id": "m1"`)
	assert.Contains(t, out.String(), `"greet"`)
}

func TestRunShell(t *testing.T) {
	clearEnv(t)
	srv := fakeWit(t)
	dir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf("access_token: tok\napi_url: %s\nstore:\n  backend: file\n  path: %s\n", srv.URL, dir))

	var out bytes.Buffer
	err := RunShell(context.Background(), RunOptions{
		ConfigPath: path,
		SessionID:  "shell-1",
		Context:    `{"lang":"en"}`,
		In:         strings.NewReader("hello\nagain\n"),
		Out:        &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Hi there"))

	var listed bytes.Buffer
	require.NoError(t, ListSessions(context.Background(), SessionOptions{ConfigPath: path, Out: &listed}))
	assert.Equal(t, "shell-1\n", listed.String())

	var inspected bytes.Buffer
	require.NoError(t, InspectSession(context.Background(), SessionOptions{ConfigPath: path, Out: &inspected}, "shell-1"))
	assert.Contains(t, inspected.String(), `"turns": 2`)
	assert.Contains(t, inspected.String(), `"lang": "en"`)

	var removed bytes.Buffer
	require.NoError(t, RemoveSession(context.Background(), SessionOptions{ConfigPath: path, Out: &removed}, "shell-1"))
	assert.Contains(t, removed.String(), "deleted")

	listed.Reset()
	require.NoError(t, ListSessions(context.Background(), SessionOptions{ConfigPath: path, Out: &listed}))
	assert.Contains(t, listed.String(), "No active sessions")
}

func TestServeMCP_UnknownTransport(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "access_token: tok\n")
	err := ServeMCP(context.Background(), ServeOptions{ConfigPath: path, Transport: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown transport")
}
