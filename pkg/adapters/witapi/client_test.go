package witapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ptab/wit/pkg/adapters/witapi"
	"github.com/ptab/wit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Converse(t *testing.T) {
	var gotQuery map[string][]string
	var gotBody domain.Context

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/converse", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.wit.20170307+json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		gotQuery = r.URL.Query()
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		_, _ = io.WriteString(w, `{"type":"msg","msg":"Hello!","quickreplies":["hi"],"confidence":0.9}`)
	}))
	defer srv.Close()

	client := witapi.New("secret", witapi.WithBaseURL(srv.URL), witapi.WithVersion("20170307"))
	text := "hi there"
	inst, err := client.Converse(context.Background(), "s-1", &text, domain.Context{"a": "b"})

	require.NoError(t, err)
	assert.Equal(t, domain.KindMessage, inst.Kind)
	assert.Equal(t, "Hello!", inst.Message)
	assert.InDelta(t, 0.9, inst.Confidence, 0.0001)

	assert.Equal(t, []string{"s-1"}, gotQuery["session_id"])
	assert.Equal(t, []string{"hi there"}, gotQuery["q"])
	assert.Equal(t, domain.Context{"a": "b"}, gotBody)
}

func TestClient_ConverseWithoutText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasQ := r.URL.Query()["q"]
		assert.False(t, hasQ, "follow-up steps do not resend the message")
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(raw))
		_, _ = io.WriteString(w, `{"type":"stop"}`)
	}))
	defer srv.Close()

	client := witapi.New("secret", witapi.WithBaseURL(srv.URL))
	inst, err := client.Converse(context.Background(), "s-1", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.KindStop, inst.Kind)
}

func TestClient_Message(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/message", r.URL.Path)
		assert.Equal(t, "what is the weather", r.URL.Query().Get("q"))
		assert.JSONEq(t, `{"timezone":"Europe/Lisbon"}`, r.URL.Query().Get("context"))

		_, _ = io.WriteString(w, `{"msg_id":"m1","_text":"what is the weather","entities":{"intent":[{"value":"weather","confidence":0.98}]}}`)
	}))
	defer srv.Close()

	client := witapi.New("secret", witapi.WithBaseURL(srv.URL))
	meaning, err := client.Message(context.Background(), "what is the weather", domain.Context{"timezone": "Europe/Lisbon"})

	require.NoError(t, err)
	assert.Equal(t, "m1", meaning.MsgID)
	require.Len(t, meaning.Entities["intent"], 1)
	assert.Equal(t, "weather", meaning.Entities["intent"][0].Value)
}

func TestClient_Errors(t *testing.T) {
	t.Run("Non Success Status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Bad auth, check token/params","code":"no-auth"}`)
		}))
		defer srv.Close()

		client := witapi.New("bad", witapi.WithBaseURL(srv.URL))
		_, err := client.Converse(context.Background(), "s", nil, nil)

		var apiErr *witapi.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "no-auth", apiErr.Code)
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>oops</html>`)
		}))
		defer srv.Close()

		client := witapi.New("secret", witapi.WithBaseURL(srv.URL))
		_, err := client.Converse(context.Background(), "s", nil, nil)

		assert.ErrorIs(t, err, witapi.ErrMalformedResponse)
		assert.ErrorIs(t, err, domain.ErrTransport)

		_, err = client.Message(context.Background(), "x", nil)
		assert.ErrorIs(t, err, witapi.ErrMalformedResponse)
	})

	t.Run("Network Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client := witapi.New("secret", witapi.WithBaseURL(url))
		_, err := client.Converse(context.Background(), "s", nil, nil)
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		client := witapi.New("secret", witapi.WithBaseURL(srv.URL))
		_, err := client.Converse(ctx, "s", nil, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
