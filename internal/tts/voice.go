package tts

import (
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
)

// DefaultVoice is used when the requested voice is not available.
const DefaultVoice = "af_sky"

// DefaultLanguage is used for voices with an unknown prefix.
const DefaultLanguage = "en-us"

// voiceLanguages maps the two-letter voice prefix to a language code.
var voiceLanguages = map[string]string{
	"af": "en-us", "am": "en-us",
	"bf": "en-gb", "bm": "en-gb",
	"ff": "fr-fr", "fm": "fr-fr",
	"ef": "es", "em": "es",
	"zf": "cmn", "zm": "cmn",
	"if": "it", "im": "it",
	"pf": "pt-br", "pm": "pt-br",
	"jf": "ja", "jm": "ja",
}

// LanguageForVoice derives the language from a voice id such as "bf_emma".
func LanguageForVoice(voice string) string {
	prefix, _, ok := strings.Cut(voice, "_")
	if !ok {
		return DefaultLanguage
	}
	if lang, ok := voiceLanguages[strings.ToLower(prefix)]; ok {
		return lang
	}
	return DefaultLanguage
}

// ResolveVoice returns requested when it is one of available, otherwise
// fallback. An empty available list accepts any voice. When falling back, the
// closest available name is logged as a hint.
func ResolveVoice(requested string, available []string, fallback string) string {
	if requested == "" {
		return fallback
	}
	if len(available) == 0 || slices.Contains(available, requested) {
		return requested
	}

	if matches := fuzzy.Find(requested, available); len(matches) > 0 {
		log.Warn("Unknown voice, using fallback", "voice", requested, "fallback", fallback, "did_you_mean", matches[0].Str)
	} else {
		log.Warn("Unknown voice, using fallback", "voice", requested, "fallback", fallback)
	}
	return fallback
}

// SuggestVoices returns up to n available voices that fuzzy match query,
// best match first.
func SuggestVoices(query string, available []string, n int) []string {
	matches := fuzzy.Find(query, available)
	out := make([]string, 0, min(n, len(matches)))
	for _, m := range matches {
		if len(out) == n {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
