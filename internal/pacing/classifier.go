package pacing

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is the fine-grained role of a paragraph.
type Type int

const (
	// Narration is plain prose with no quoted speech.
	Narration Type = iota
	// Header is a chapter, arc or volume heading.
	Header
	// DialogueStandalone is a paragraph that is entirely a quoted utterance.
	DialogueStandalone
	// DialogueAttributed mixes quoted speech with narration.
	DialogueAttributed

	// End marks the absence of a following paragraph.
	End Type = -1
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case Narration:
		return "narration"
	case Header:
		return "header"
	case DialogueStandalone:
		return "dialogue_standalone"
	case DialogueAttributed:
		return "dialogue_attributed"
	case End:
		return "end"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsDialogue reports whether t is either dialogue subtype.
func (t Type) IsDialogue() bool {
	return t == DialogueStandalone || t == DialogueAttributed
}

// Kind collapses t into the coarse segment kind consumed by audio assembly.
func (t Type) Kind() Kind {
	switch {
	case t == Header:
		return KindHeader
	case t.IsDialogue():
		return KindDialogue
	default:
		return KindNarration
	}
}

// Kind is the coarse segment type: header, dialogue or narration.
type Kind string

// Segment kinds.
const (
	KindHeader    Kind = "header"
	KindDialogue  Kind = "dialogue"
	KindNarration Kind = "narration"
)

// Pause durations in seconds.
const (
	PauseHeader          = 1.0
	PauseSpeakerChange   = 0.4
	PauseActionBeat      = 0.1
	PauseNarration       = 0.2
	PauseDialogueDefault = 0.5
)

// standaloneBreak is the duration of the break hint appended to standalone
// dialogue when markup is enabled.
const standaloneBreak = 300

// quoteClass matches straight and curly quotes in either direction.
const quoteClass = `["\x{201C}\x{201D}\x{2018}\x{2019}]`

// Classifier assigns paragraph types and pauses.
type Classifier struct {
	useSSML bool

	header     *regexp.Regexp
	standalone *regexp.Regexp
	attributed *regexp.Regexp
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSSML makes standalone dialogue carry an SSML break tag instead of a
// trailing ellipsis.
func WithSSML(enabled bool) Option {
	return func(c *Classifier) {
		c.useSSML = enabled
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		// A bare "C" needs a number after it.
		header: regexp.MustCompile(
			`(?i)^(?:(?:chapter|arc|volume)(?:\s+[\p{L}\p{N}_]+|\d+)|(?:ch|vol)\.\s*[\p{L}\p{N}_]+|c\s*\d+\b)`),
		standalone: regexp.MustCompile(`^` + quoteClass + `.*` + quoteClass + `[.!?\x{2026}]*$`),
		attributed: regexp.MustCompile(quoteClass + `.*` + quoteClass),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the type of a single paragraph. Rules are checked in
// order and the first match wins.
func (c *Classifier) Classify(paragraph string) Type {
	text := strings.TrimSpace(paragraph)
	switch {
	case text == "":
		return Narration
	case c.header.MatchString(text):
		return Header
	case c.standalone.MatchString(text):
		return DialogueStandalone
	case c.attributed.MatchString(text):
		return DialogueAttributed
	default:
		return Narration
	}
}

// PauseAfter returns the pause in seconds that follows a paragraph of type
// current when the next paragraph has type next (End for none).
func PauseAfter(current, next Type) float64 {
	if current == Header {
		return PauseHeader
	}
	if next == End {
		return 0
	}
	if current.IsDialogue() && next.IsDialogue() {
		return PauseSpeakerChange
	}
	if current.IsDialogue() && next == Narration {
		return PauseActionBeat
	}
	if current == Narration {
		return PauseNarration
	}
	return PauseDialogueDefault
}

// addBreak appends the soft stop hint to standalone dialogue.
func (c *Classifier) addBreak(text string) string {
	if c.useSSML {
		return fmt.Sprintf(`%s <break time="%dms"/>`, text, standaloneBreak)
	}
	if strings.HasSuffix(text, "...") || strings.HasSuffix(text, "…") {
		return text
	}
	return text + "..."
}
