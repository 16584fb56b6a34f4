package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ContentRenderer turns a message into its terminal representation.
type ContentRenderer func(string) (string, error)

// Prompt is printed before every read.
const Prompt = "> "

// TextHandler reads user lines and writes messages for an interactive shell.
// Reads go through a background pump so they can be abandoned on cancellation.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	// Quiet suppresses the prompt, e.g. when input is piped.
	Quiet bool

	// MaxInputSize overrides the limit from MaxInputSize when positive.
	MaxInputSize int

	mu        sync.Mutex
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet suppresses the input prompt.
func WithQuiet(quiet bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = quiet
	}
}

// WithMaxInputSize sets the per-line input limit in bytes.
func WithMaxInputSize(n int) TextHandlerOption {
	return func(h *TextHandler) {
		h.MaxInputSize = n
	}
}

// NewTextHandler creates a handler for standard text IO.
// Nil reader and writer default to stdin and stdout.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Back off so a persistent read error does not spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Say writes a conversation message, rendered when a renderer is set.
// A failing renderer falls back to the raw message.
func (h *TextHandler) Say(msg string) {
	output := msg
	if h.Renderer != nil {
		if rendered, err := h.Renderer(msg); err == nil {
			output = rendered
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
}

// System writes a meta message such as an error report.
func (h *TextHandler) System(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
}

// Input prompts and returns the next sanitized line.
// Lines rejected by SanitizeInput are reported and the prompt is repeated.
// It returns io.EOF when the input is exhausted and ctx.Err() on cancellation.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !h.Quiet {
			h.mu.Lock()
			fmt.Fprint(h.Writer, Prompt)
			h.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := h.sanitize(strings.TrimSpace(res.text))
			if err != nil {
				h.System(fmt.Sprintf("Error: %v. Please try again.", err))
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) sanitize(text string) (string, error) {
	if h.MaxInputSize > 0 {
		return sanitize(text, h.MaxInputSize)
	}
	return SanitizeInput(text)
}
