// Package plan splits a span of text into an ordered sequence of speech and
// silence items driven by its punctuation.
package plan

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Class is a punctuation class that maps to a pause length.
type Class string

// Punctuation classes.
const (
	Comma       Class = "comma"
	Period      Class = "period"
	Question    Class = "question"
	Exclamation Class = "exclamation"
	Colon       Class = "colon"
	Semicolon   Class = "semicolon"
	Newline     Class = "newline"
)

// DefaultPauseMs is used for a mapped class missing from PauseSettings, and
// is the floor for newline pauses.
const DefaultPauseMs = 300

// PauseSettings maps punctuation classes to pause lengths in milliseconds.
type PauseSettings map[Class]int

// DefaultPauseSettings returns the stock pause lengths.
func DefaultPauseSettings() PauseSettings {
	return PauseSettings{
		Comma:       300,
		Period:      600,
		Question:    600,
		Exclamation: 600,
		Colon:       400,
		Semicolon:   400,
		Newline:     800,
	}
}

// lookup returns the pause for class, falling back to DefaultPauseMs.
func (s PauseSettings) lookup(class Class) int {
	if ms, ok := s[class]; ok {
		return ms
	}
	return DefaultPauseMs
}

// punctuationClasses maps single punctuation characters to their class.
var punctuationClasses = map[rune]Class{
	',': Comma, '，': Comma, '、': Comma,
	'.': Period, '。': Period,
	'?': Question, '？': Question,
	'!': Exclamation, '！': Exclamation,
	':': Colon, '：': Colon,
	';': Semicolon, '；': Semicolon,
}

var (
	splitPattern     = regexp.MustCompile(`[,.!?:;。，！？：；、]+|\n`)
	speakablePattern = regexp.MustCompile(
		`[a-zA-Z0-9\x{3000}-\x{303f}\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{ff00}-\x{ff9f}\x{4e00}-\x{9faf}\x{3400}-\x{4dbf}\x{ac00}-\x{d7af}]`)
	punctuationPattern = regexp.MustCompile(`[,.!?:;。，！？：；、\n]`)
)

// Kind tells speech items from silence items.
type Kind int

const (
	// Speech is a span of text to synthesize.
	Speech Kind = iota
	// Silence is a pause of fixed length.
	Silence
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k == Speech {
		return "speech"
	}
	return "silence"
}

// Item is one unit of a Plan.
type Item struct {
	Kind Kind `json:"kind"`
	// Text and Index are set for speech items. Index is the position of the
	// span in the split sequence.
	Text  string `json:"text,omitempty"`
	Index int    `json:"index"`
	// DurationMs is set for silence items.
	DurationMs int `json:"duration_ms,omitempty"`
}

// Plan is an ordered list of items. Assembling the audio for each item in
// order reproduces the intended prosody.
type Plan []Item

// SpeechCount returns the number of speech items in p.
func (p Plan) SpeechCount() int {
	n := 0
	for _, item := range p {
		if item.Kind == Speech {
			n++
		}
	}
	return n
}

// TotalSilenceMs returns the summed duration of all silence items.
func (p Plan) TotalSilenceMs() int {
	total := 0
	for _, item := range p {
		if item.Kind == Silence {
			total += item.DurationMs
		}
	}
	return total
}

// HasPunctuation reports whether text contains anything the planner splits on.
func HasPunctuation(text string) bool {
	return punctuationPattern.MatchString(text)
}

// IsSpeakable reports whether text contains at least one character a speech
// backend can voice.
func IsSpeakable(text string) bool {
	return speakablePattern.MatchString(text)
}

// New builds the plan for text using the given pause settings.
func New(text string, settings PauseSettings) Plan {
	if settings == nil {
		settings = DefaultPauseSettings()
	}

	var (
		plan              Plan
		lastWasPunctPause bool
	)
	for i, part := range split(text) {
		delimiter := i%2 == 1
		switch {
		case delimiter && part == "\n":
			if !lastWasPunctPause {
				ms := settings.lookup(Newline)
				if ms < DefaultPauseMs {
					ms = DefaultPauseMs
				}
				plan = append(plan, Item{Kind: Silence, Index: i, DurationMs: ms})
			}
			lastWasPunctPause = false

		case delimiter:
			ms := 0
			last, _ := utf8.DecodeLastRuneInString(part)
			if class, ok := punctuationClasses[last]; ok {
				ms = settings.lookup(class)
			}
			plan = append(plan, Item{Kind: Silence, Index: i, DurationMs: ms})
			lastWasPunctPause = true

		case IsSpeakable(part):
			plan = append(plan, Item{Kind: Speech, Index: i, Text: strings.TrimSpace(part)})
			lastWasPunctPause = false
		}
	}
	return plan
}

// split breaks text into literal spans and delimiter tokens, keeping the
// delimiters. Literal spans sit at even positions and delimiters at odd ones.
func split(text string) []string {
	matches := splitPattern.FindAllStringIndex(text, -1)
	parts := make([]string, 0, 2*len(matches)+1)
	prev := 0
	for _, m := range matches {
		parts = append(parts, text[prev:m[0]], text[m[0]:m[1]])
		prev = m[1]
	}
	return append(parts, text[prev:])
}
