package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ptab/wit"
	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/runner"
	"github.com/ptab/wit/pkg/session"
)

// SessionsURI names the resource listing stored sessions.
const SessionsURI = "wit://sessions"

// Conversation is the client the server drives. *wit.Client implements it.
type Conversation interface {
	session.Runner
	Message(ctx context.Context, text string, c domain.Context) (*domain.Meaning, error)
}

// ConverseResponse is the structured result of the wit_converse tool.
type ConverseResponse struct {
	SessionID string              `json:"session_id" jsonschema_description:"The conversation session"`
	Context   domain.Context      `json:"context" jsonschema_description:"The context after the turn"`
	Turns     int                 `json:"turns" jsonschema_description:"Completed turns in the session"`
	Diff      *domain.ContextDiff `json:"diff,omitempty" jsonschema_description:"What the turn changed"`
	Messages  []string            `json:"messages,omitempty" jsonschema_description:"Messages said during the turn"`
}

// Transcript hands back what was said to a session during a turn.
// *actions.Collector implements it.
type Transcript interface {
	Drain(sessionID string) []string
}

// Server exposes conversations as MCP tools.
type Server struct {
	conv       Conversation
	sessions   *session.Manager
	transcript Transcript
	logger     *slog.Logger
	mcpServer  *server.MCPServer
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

// WithTranscript returns the messages said during a turn in the tool result.
func WithTranscript(t Transcript) Option {
	return func(s *Server) {
		s.transcript = t
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(conv Conversation, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		conv:      conv,
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("wit-mcp", wit.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on the given port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("wit_message",
		mcp.WithDescription("Extract the meaning (entities) of a sentence."),
		mcp.WithString("q", mcp.Required(), mcp.Description("The sentence to analyse")),
		mcp.WithString("context", mcp.Description("JSON object of context (optional)")),
		mcp.WithOutputSchema[domain.Meaning](),
	), mcp.NewStructuredToolHandler(s.handleMessage))

	s.mcpServer.AddTool(mcp.NewTool("wit_converse",
		mcp.WithDescription("Run one conversation turn for a session and persist the resulting context."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id")),
		mcp.WithString("message", mcp.Description("User message; empty continues the conversation")),
		mcp.WithNumber("max_steps", mcp.Description("Step budget for the turn (optional)")),
		mcp.WithOutputSchema[ConverseResponse](),
	), mcp.NewStructuredToolHandler(s.handleConverse))

	s.mcpServer.AddTool(mcp.NewTool("wit_get_session",
		mcp.WithDescription("Fetch the stored context of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["session_id"].(string)
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Meaning, error) {
	q, _ := args["q"].(string)
	q, err := runner.SanitizeInput(q)
	if err != nil {
		return domain.Meaning{}, err
	}
	c, err := parseContext(args)
	if err != nil {
		return domain.Meaning{}, err
	}

	meaning, err := s.conv.Message(ctx, q, c)
	if err != nil {
		return domain.Meaning{}, fmt.Errorf("message failed: %w", err)
	}
	return *meaning, nil
}

func (s *Server) handleConverse(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ConverseResponse, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return ConverseResponse{}, errors.New("session_id is required")
	}
	message, _ := args["message"].(string)
	message, err := runner.SanitizeInput(message)
	if err != nil {
		return ConverseResponse{}, err
	}
	maxSteps := 0
	if n, ok := args["max_steps"].(float64); ok {
		maxSteps = int(n)
	}

	res, err := s.sessions.Converse(ctx, s.conv, sessionID, message, maxSteps)
	var messages []string
	if s.transcript != nil {
		messages = s.transcript.Drain(sessionID)
	}
	if err != nil {
		s.logger.Warn("converse tool failed", "session_id", sessionID, "err", err)
		return ConverseResponse{}, fmt.Errorf("converse failed: %w", err)
	}
	return ConverseResponse{
		SessionID: sessionID,
		Context:   res.Session.Context,
		Turns:     res.Session.Turns,
		Diff:      res.Diff,
		Messages:  messages,
	}, nil
}

func parseContext(args map[string]any) (domain.Context, error) {
	raw, ok := args["context"].(string)
	if !ok || raw == "" {
		return domain.Context{}, nil
	}
	var c domain.Context
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("context must be a JSON object: %w", err)
	}
	return c, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored conversation sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		data, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
