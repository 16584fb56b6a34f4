package wit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ptab/wit"
	"github.com/ptab/wit/pkg/actions"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/ports"
	"github.com/ptab/wit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseActions(out io.Writer) registry.Actions {
	return registry.Actions{
		Say:   actions.Transcript(out),
		Merge: actions.MergeEntities,
		Error: actions.PrintError(out),
	}
}

func TestNew_ValidatesSynchronously(t *testing.T) {
	_, err := wit.New("token", registry.Actions{Say: actions.Transcript(io.Discard)})
	assert.ErrorIs(t, err, domain.ErrMissingAction)

	_, err = wit.New("", baseActions(io.Discard))
	assert.Error(t, err, "a token is required without a custom transport")

	_, err = wit.NewWithRegistry("token", nil)
	assert.Error(t, err)
}

// fakeWit serves a scripted sequence of converse steps.
func fakeWit(t *testing.T, steps ...string) (*httptest.Server, *[]domain.Context) {
	t.Helper()
	var mu sync.Mutex
	var bodies []domain.Context
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		var c domain.Context
		_ = json.NewDecoder(r.Body).Decode(&c)
		idx := len(bodies)
		bodies = append(bodies, c)
		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		_, _ = io.WriteString(w, steps[idx])
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestClient_RunActions_EndToEnd(t *testing.T) {
	srv, bodies := fakeWit(t,
		`{"type":"merge","entities":{"location":[{"value":"Brussels"}]}}`,
		`{"type":"action","action":"fetch-weather"}`,
		`{"type":"msg","msg":"It's sunny in Brussels"}`,
		`{"type":"stop"}`,
	)

	var out bytes.Buffer
	acts := baseActions(&out)
	acts.Named = map[string]registry.ActionFunc{
		"fetch-weather": func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
			c["forecast"] = "sunny"
			done(c)
		},
	}

	client, err := wit.New("token", acts, wit.WithAPIURL(srv.URL))
	require.NoError(t, err)

	got, err := client.RunActions(context.Background(), "s-1", "weather in Brussels", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.Context{"location": "Brussels", "forecast": "sunny"}, got)
	assert.Equal(t, "It's sunny in Brussels\n", out.String())
	require.Len(t, *bodies, 4)
	assert.Equal(t, domain.Context{"location": "Brussels"}, (*bodies)[1])
}

func TestClient_RunActions_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out bytes.Buffer
	client, err := wit.New("token", baseActions(&out), wit.WithAPIURL(srv.URL))
	require.NoError(t, err)

	got, err := client.RunActions(context.Background(), "s-1", "hi", domain.Context{"a": 1.0}, 0)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, domain.Context{"a": 1.0}, got)
	assert.Empty(t, out.String(), "the error action is not called for transport failures")
}

func TestClient_RunActionsAsync(t *testing.T) {
	release := make(chan struct{})
	transport := ports.TransportFunc(func(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
		<-release
		return domain.Stop(), nil
	})

	client, err := wit.New("", baseActions(io.Discard), wit.WithTransport(transport))
	require.NoError(t, err)

	var calls atomic.Int32
	var returned atomic.Bool
	result := make(chan domain.Context, 1)

	initial := domain.Context{"k": "v"}
	client.RunActionsAsync(context.Background(), "s-1", "hi", initial, 0, func(c domain.Context, err error) {
		assert.True(t, returned.Load(), "callback must not run inside the call")
		assert.NoError(t, err)
		calls.Add(1)
		result <- c
	})
	returned.Store(true)
	initial["k"] = "mutated after the call"
	close(release)

	select {
	case c := <-result:
		assert.Equal(t, domain.Context{"k": "v"}, c)
	case <-time.After(time.Second):
		t.Fatal("callback never called")
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RunActionsAsync_InvalidContext(t *testing.T) {
	client, err := wit.New("", baseActions(io.Discard), wit.WithTransport(ports.TransportFunc(
		func(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
			return domain.Stop(), nil
		})))
	require.NoError(t, err)

	done := make(chan error, 1)
	client.RunActionsAsync(context.Background(), "s", "", domain.Context{"fn": func() {}}, 0, func(c domain.Context, err error) {
		done <- err
	})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrUnsupportedValue)
	case <-time.After(time.Second):
		t.Fatal("callback never called")
	}
}

func TestClient_Message(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"msg_id":"1","_text":"hi","entities":{"greetings":[{"value":"true"}]}}`)
	}))
	defer srv.Close()

	client, err := wit.New("token", baseActions(io.Discard), wit.WithAPIURL(srv.URL))
	require.NoError(t, err)

	meaning, err := client.Message(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", meaning.Text)
	assert.Contains(t, meaning.Entities, "greetings")
}

func TestClient_Hooks(t *testing.T) {
	transport := ports.TransportFunc(func(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
		return domain.Say("again"), nil
	})

	var halted domain.HaltReason
	client, err := wit.New("", baseActions(io.Discard),
		wit.WithTransport(transport),
		wit.WithLifecycleHooks(domain.LifecycleHooks{
			OnHalt: func(ctx context.Context, e *domain.HaltEvent) { halted = e.Reason },
		}))
	require.NoError(t, err)

	_, err = client.RunActions(context.Background(), "s", "hi", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.HaltMaxSteps, halted)
}
