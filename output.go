package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	maxWidth     = 120
)

// wantJSON reports whether output should be JSON: on request, or whenever
// stdout is not a terminal.
func wantJSON() bool {
	return outputJSON || !term.IsTerminal(int(os.Stdout.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable to write JSON: %w", err)
	}
	return nil
}

// termWidth returns the width of stdout, capped for readability.
func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, maxWidth)
}

// preview flattens text to one line that fits in width cells. CJK text takes
// two cells per character.
func preview(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 0 {
		return text
	}
	return runewidth.Truncate(text, width, "…")
}

// cell pads s to width display cells.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
