package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the shell banner with the client version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`          _ _   `, "#818cf8"},
		{`__      _(_) |_ `, "#a78bfa"},
		{`\ \ /\ / / | __|`, "#c084fc"},
		{` \ V  V /| | |_ `, "#e879f9"},
		{`  \_/\_/ |_|\__|`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// SystemMessage formats a meta message for the terminal.
func SystemMessage(w io.Writer, format string, args ...any) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String(">>> "+fmt.Sprintf(format, args...)).Faint())
}
