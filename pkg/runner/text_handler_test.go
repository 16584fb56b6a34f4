package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Say(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s + "\n\n", nil
	}))

	h.Say("Hello World")
	assert.Equal(t, "Rendered: Hello World\n", out.String())
}

func TestTextHandler_SayRendererFailure(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "", errors.New("no style")
	}))

	h.Say("plain")
	assert.Equal(t, "plain\n", out.String())
}

func TestTextHandler_Input(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("  my user input \nlast"), out)

	val, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my user input", val)

	val, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", val, "a final line without newline is still read")

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, strings.Repeat(Prompt, 3), out.String())
}

func TestTextHandler_Quiet(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("x\n"), out, WithQuiet(true))

	_, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestTextHandler_InputCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextHandler_MaxInputSize(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("abcdef\nabc\n"), out, WithMaxInputSize(3), WithQuiet(true))

	val, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", val)
	assert.Contains(t, out.String(), "input exceeds maximum allowed size")
}
