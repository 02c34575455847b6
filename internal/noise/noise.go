// Package noise finds running headers, footers and page numbers in paged
// text by comparing each page with its neighbors, and removes or marks them.
package noise

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Threshold is the similarity a line must exceed to count as a repeat.
const Threshold = 0.9

// DefaultMaxScan is the number of leading pages FindContentStart inspects.
const DefaultMaxScan = 10

// Minimum amount of text for a page to count as real content.
const (
	contentMinAlnum = 500
	contentMinWords = 100
)

// Mode selects how Filter treats noise lines.
type Mode string

// Filter modes.
const (
	ModeClean Mode = "clean"
	ModeDim   Mode = "dim"
	ModeOff   Mode = "off"
)

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeClean, ModeDim, ModeOff:
		return m, nil
	case "":
		return ModeOff, nil
	default:
		return "", fmt.Errorf("unknown noise filter mode %q", s)
	}
}

// Markers wrapped around noise lines in dim mode.
const (
	DimOpen  = "[DIM]"
	DimClose = "[/DIM]"
)

// Profile holds the header and footer lines detected on one page.
type Profile struct {
	Headers []string `json:"headers"`
	Footers []string `json:"footers"`
}

// Empty reports whether p flags nothing.
func (p Profile) Empty() bool {
	return len(p.Headers) == 0 && len(p.Footers) == 0
}

var (
	dimPattern      = regexp.MustCompile(`(?s)\[DIM\].*?\[/DIM\]`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
	romanPattern    = regexp.MustCompile(`(?i)^m{0,4}(?:cm|cd|d?c{0,3})(?:xc|xl|l?x{0,3})(?:ix|iv|v?i{0,3})$`)
	pageOfPattern   = regexp.MustCompile(`(?i)^\d+\s*of\s*\d+$`)
	alnumPattern    = regexp.MustCompile(`[a-zA-Z0-9]`)
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	pageWordReplace = strings.NewReplacer("Page", "", "page", "")
)

// Lines splits text into trimmed, non-empty lines.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Similarity returns the ratio of matching characters between a and b,
// ignoring case and runs of whitespace. Identical strings score 1.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(chars(a), chars(b))
	return m.Ratio()
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// IsPageNumber reports whether line looks like a page number: digits, a
// roman numeral or "N of M", optionally with the word "Page".
func IsPageNumber(line string) bool {
	cleaned := strings.TrimSpace(pageWordReplace.Replace(strings.TrimSpace(line)))
	if cleaned == "" {
		return false
	}
	return digitsPattern.MatchString(cleaned) ||
		romanPattern.MatchString(cleaned) ||
		pageOfPattern.MatchString(cleaned)
}

// scanDepth returns how many lines at each end of a page are header or
// footer candidates.
func scanDepth(n int) int {
	return max(1, min(3, n/5))
}

// Detect compares page index with the pages before and after it and returns
// the lines that repeat in the same position. Pages with fewer than three
// lines are never flagged.
func Detect(pages []string, index int) Profile {
	if index < 0 || index >= len(pages) {
		return Profile{}
	}
	lines := Lines(pages[index])
	n := len(lines)
	if n < 3 {
		return Profile{}
	}

	var prev, next []string
	if index > 0 {
		prev = Lines(pages[index-1])
	}
	if index < len(pages)-1 {
		next = Lines(pages[index+1])
	}

	k := scanDepth(n)
	var p Profile

	for i := 0; i < k; i++ {
		matches := 0
		if i < len(prev) && Similarity(lines[i], prev[i]) > Threshold {
			matches++
		}
		if i < len(next) && Similarity(lines[i], next[i]) > Threshold {
			matches++
		}
		if matches > 0 {
			p.Headers = append(p.Headers, lines[i])
		}
	}

	for i := max(k, n-k); i < n; i++ {
		fromEnd := n - i - 1
		matches := 0
		if j := len(prev) - fromEnd - 1; j >= 0 && j < len(prev) && Similarity(lines[i], prev[j]) > Threshold {
			matches++
		}
		if j := len(next) - fromEnd - 1; j >= 0 && j < len(next) && Similarity(lines[i], next[j]) > Threshold {
			matches++
		}
		// A page number counts for more than a single neighbor match.
		if IsPageNumber(lines[i]) {
			matches += 2
		}
		if matches > 0 {
			p.Footers = append(p.Footers, lines[i])
		}
	}
	return p
}

// DetectAll returns the profile of every page.
func DetectAll(pages []string) []Profile {
	profiles := make([]Profile, len(pages))
	for i := range pages {
		profiles[i] = Detect(pages, i)
	}
	return profiles
}

// isNoise reports whether line matches a detected line or is a page number.
func isNoise(line string, p Profile) bool {
	for _, h := range p.Headers {
		if Similarity(line, h) > Threshold {
			return true
		}
	}
	for _, f := range p.Footers {
		if Similarity(line, f) > Threshold {
			return true
		}
	}
	return IsPageNumber(line)
}

// Filter removes (ModeClean) or marks (ModeDim) the noise lines of text.
// Both modes return the remaining trimmed, non-empty lines joined by
// newlines. ModeOff returns text unchanged.
func Filter(text string, p Profile, mode Mode) string {
	if mode != ModeClean && mode != ModeDim {
		return text
	}
	lines := Lines(text)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case !isNoise(line, p):
			out = append(out, line)
		case mode == ModeDim:
			out = append(out, DimOpen+line+DimClose)
		}
	}
	return strings.Join(out, "\n")
}

// StripMarkers removes dimmed spans, markers included, and trims the result.
// Spans may cross lines.
func StripMarkers(text string) string {
	return strings.TrimSpace(dimPattern.ReplaceAllString(text, ""))
}

// CleanPages detects and filters noise on every page.
func CleanPages(pages []string, mode Mode) []string {
	if mode == ModeOff {
		return append([]string(nil), pages...)
	}
	profiles := DetectAll(pages)
	out := make([]string, len(pages))
	for i, page := range pages {
		out[i] = Filter(page, profiles[i], mode)
	}
	return out
}

// FindContentStart returns the index of the first of the leading maxScan
// pages that holds real content, or 0 if none does. A non-positive maxScan
// uses DefaultMaxScan.
func FindContentStart(pages []string, maxScan int) int {
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}
	for i := 0; i < min(maxScan, len(pages)); i++ {
		page := strings.TrimSpace(pages[i])
		alnum := len(alnumPattern.FindAllStringIndex(page, -1))
		words := len(wordPattern.FindAllStringIndex(page, -1))
		if alnum > contentMinAlnum || words > contentMinWords {
			return i
		}
	}
	return 0
}
