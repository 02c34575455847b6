package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KeyParams lists everything that changes the synthesized audio.
type KeyParams struct {
	Text          string
	Voice         string
	Language      string
	Speed         float64
	PauseSettings map[string]int
	// Rules is any JSON-encodable description of the pronunciation rules.
	Rules  any
	Ignore []string
}

// Key returns the hex sha256 of the canonical JSON encoding of p. Text is
// trimmed and NFC-normalized and the ignore list is sorted, so equivalent
// requests share a key while any parameter change produces a new one.
func Key(p KeyParams) (string, error) {
	ignore := append([]string(nil), p.Ignore...)
	sort.Strings(ignore)

	pauses := p.PauseSettings
	if pauses == nil {
		pauses = map[string]int{}
	}

	// Map keys are encoded in sorted order.
	payload, err := json.Marshal(map[string]any{
		"text":   norm.NFC.String(strings.TrimSpace(p.Text)),
		"voice":  p.Voice,
		"lang":   p.Language,
		"speed":  p.Speed,
		"pauses": pauses,
		"rules":  p.Rules,
		"ignore": ignore,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
