package pacing

import "strings"

// Segment is one paragraph ready for synthesis.
type Segment struct {
	Text       string  `json:"text"`
	Type       Kind    `json:"type"`
	PauseAfter float64 `json:"pause_after"`
}

// Stats summarizes the segments produced from a chapter.
type Stats struct {
	Total     int `json:"total_paragraphs"`
	Dialogue  int `json:"dialogue_count"`
	Narration int `json:"narration_count"`
	Headers   int `json:"header_count"`
}

// Paragraphs splits text on newlines and returns the trimmed, non-blank lines.
func Paragraphs(text string) []string {
	lines := strings.Split(text, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		if p := strings.TrimSpace(line); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// Process turns raw chapter text into ordered segments, one per non-blank
// paragraph. Each paragraph's pause is chosen from its own type and the type
// of the paragraph directly after it.
func (c *Classifier) Process(text string) []Segment {
	paragraphs := Paragraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	types := make([]Type, len(paragraphs))
	for i, p := range paragraphs {
		types[i] = c.Classify(p)
	}

	segments := make([]Segment, 0, len(paragraphs))
	for i, p := range paragraphs {
		next := End
		if i+1 < len(types) {
			next = types[i+1]
		}

		processed := p
		if types[i] == DialogueStandalone {
			processed = c.addBreak(p)
		}

		segments = append(segments, Segment{
			Text:       processed,
			Type:       types[i].Kind(),
			PauseAfter: PauseAfter(types[i], next),
		})
	}
	return segments
}

// ProcessWithStats is Process plus per-kind counts.
func (c *Classifier) ProcessWithStats(text string) ([]Segment, Stats) {
	segments := c.Process(text)
	stats := Stats{Total: len(segments)}
	for _, s := range segments {
		switch s.Type {
		case KindDialogue:
			stats.Dialogue++
		case KindNarration:
			stats.Narration++
		case KindHeader:
			stats.Headers++
		}
	}
	return segments, stats
}
