package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	buf := &bytes.Buffer{}
	PrintBanner(buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, `\_/\_/`)
}

func TestSystemMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	SystemMessage(buf, "Session '%s' active.", "s-1")
	assert.Contains(t, buf.String(), ">>> Session 's-1' active.")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("It will be sunny")
	require.NoError(t, err)
	assert.Contains(t, out, "sunny")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
	assert.False(t, Interactive(strings.NewReader(""), &bytes.Buffer{}))
}
