package witapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ptab/wit/internal/logging"
	"github.com/ptab/wit/pkg/domain"
)

const (
	// DefaultBaseURL is the public wit.ai API endpoint.
	DefaultBaseURL = "https://api.wit.ai"

	// DefaultVersion pins the API version sent in the Accept header.
	DefaultVersion = "20160516"

	defaultTimeout = 30 * time.Second
)

// Client is the HTTP transport for the wit API. It implements ports.Transport.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (useful for tests and proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVersion sets the API version.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client authenticated with a server access token.
func New(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      accessToken,
		version:    DefaultVersion,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message extracts the meaning of a sentence.
func (c *Client) Message(ctx context.Context, text string, wc domain.Context) (*domain.Meaning, error) {
	q := url.Values{}
	q.Set("q", text)
	if len(wc) > 0 {
		raw, err := json.Marshal(wc)
		if err != nil {
			return nil, fmt.Errorf("%w: encode context: %v", domain.ErrTransport, err)
		}
		q.Set("context", string(raw))
	}

	body, err := c.do(ctx, http.MethodGet, "/message", q, nil)
	if err != nil {
		return nil, err
	}

	var meaning domain.Meaning
	if err := json.Unmarshal(body, &meaning); err != nil {
		return nil, malformed(err)
	}
	return &meaning, nil
}

// Converse asks for the next step of a conversation.
func (c *Client) Converse(ctx context.Context, sessionID string, text *string, wc domain.Context) (*domain.Instruction, error) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	if text != nil {
		q.Set("q", *text)
	}

	if wc == nil {
		wc = domain.Context{}
	}
	payload, err := json.Marshal(wc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode context: %v", domain.ErrTransport, err)
	}

	body, err := c.do(ctx, http.MethodPost, "/converse", q, payload)
	if err != nil {
		return nil, err
	}
	return DecodeInstruction(body)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + q.Encode()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.wit."+c.version+"+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	c.logger.Debug("wit request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}
