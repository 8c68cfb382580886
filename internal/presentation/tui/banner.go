package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// PrintBanner writes the Arbor banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Greens fading towards teal.
	lines := []struct{ text, color string }{
		{"      _         _", "#4ade80"},
		{"     / \\   _ __| |__   ___  _ __", "#34d399"},
		{"    / _ \\ | '__| '_ \\ / _ \\| '__|", "#2dd4bf"},
		{"   / ___ \\| |  | |_) | (_) | |", "#22d3ee"},
		{"  /_/   \\_\\_|  |_.__/ \\___/|_|", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
