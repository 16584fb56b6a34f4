package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ptab/wit"
	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/runner"
	"github.com/ptab/wit/pkg/session"
)

// MaxBodySize bounds request bodies.
const MaxBodySize = 1 << 20

// Conversation is the client the server drives. *wit.Client implements it.
type Conversation interface {
	session.Runner
	Message(ctx context.Context, text string, c domain.Context) (*domain.Meaning, error)
}

// Transcript hands back what was said to a session during a turn.
// *actions.Collector implements it.
type Transcript interface {
	Drain(sessionID string) []string
}

// Server exposes conversations over a JSON API.
type Server struct {
	Conversation Conversation
	Sessions     *session.Manager
	Streams      *StreamManager

	logger     *slog.Logger
	metrics    http.Handler
	transcript Transcript
	maxSteps   int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithTranscript returns the messages said during a turn in its response.
func WithTranscript(t Transcript) Option {
	return func(s *Server) {
		s.transcript = t
	}
}

// WithMaxSteps sets the budget used when a request does not give one.
func WithMaxSteps(n int) Option {
	return func(s *Server) {
		s.maxSteps = n
	}
}

// MessageRequest is the body of POST /message.
type MessageRequest struct {
	Q       string         `json:"q"`
	Context domain.Context `json:"context,omitempty"`
}

// ConverseRequest is the body of POST /sessions/{id}/converse.
type ConverseRequest struct {
	Message string `json:"message"`
	// Context seeds the session when it does not exist yet.
	Context  domain.Context `json:"context,omitempty"`
	MaxSteps int            `json:"max_steps,omitempty"`
}

// ConverseResponse is the result of one turn.
type ConverseResponse struct {
	Session  *domain.Session     `json:"session"`
	Diff     *domain.ContextDiff `json:"diff,omitempty"`
	Messages []string            `json:"messages,omitempty"`
}

// NewServer creates a server backed by a conversation client and a session manager.
func NewServer(conv Conversation, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Conversation: conv,
		Sessions:     sessions,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for the conversation API.
func NewHandler(conv Conversation, sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(conv, sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/message", s.PostMessage)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Get("/{id}", s.GetSession)
		r.Delete("/{id}", s.DeleteSession)
		r.Post("/{id}/converse", s.Converse)
		r.Get("/{id}/events", s.SubscribeEvents)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "wit-http",
		"version": wit.Version,
	})
}

// PostMessage handles POST /message.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	q, err := runner.SanitizeInput(body.Q)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		return
	}

	meaning, err := s.Conversation.Message(r.Context(), q, body.Context)
	if err != nil {
		s.fail(w, "message", err)
		return
	}
	s.writeJSON(w, http.StatusOK, meaning)
}

// Converse handles POST /sessions/{id}/converse: one persisted conversation turn.
func (s *Server) Converse(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body ConverseRequest
	if !s.decode(w, r, &body) {
		return
	}
	msg, err := runner.SanitizeInput(body.Message)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("converse input rejected", "session_id", sessionID, "err", err, "size", len(body.Message))
		return
	}

	if body.Context != nil {
		if _, err := s.Sessions.LoadOrStart(r.Context(), sessionID, body.Context); err != nil {
			s.fail(w, "converse", err)
			return
		}
	}

	maxSteps := body.MaxSteps
	if maxSteps <= 0 {
		maxSteps = s.maxSteps
	}

	res, err := s.Sessions.Converse(r.Context(), s.Conversation, sessionID, msg, maxSteps)
	messages := s.drain(sessionID)
	if err != nil {
		s.fail(w, "converse", err)
		return
	}

	if res.Diff != nil {
		if data, err := json.Marshal(res.Diff); err == nil {
			s.Streams.Broadcast(sessionID, string(data))
		}
	}
	s.writeJSON(w, http.StatusOK, ConverseResponse{Session: res.Session, Diff: res.Diff, Messages: messages})
}

func (s *Server) drain(sessionID string) []string {
	if s.transcript == nil {
		return nil
	}
	return s.transcript.Drain(sessionID)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "load", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedValue):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
