package pronounce

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// PDF text extraction artifacts.
var ligatures = strings.NewReplacer(
	"\ufb00", "ff",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\ufb03", "ffi",
	"\ufb04", "ffl",
	"\ufb05", "ft",
	"\ufb06", "st",
	"\u00a0", " ",
	"\u2013", "-",
	"\u2014", "--",
)

type substitution struct {
	re  *regexp2.Regexp
	rep string
}

func mustSub(pattern, rep string, opts regexp2.RegexOptions) substitution {
	return substitution{re: regexp2.MustCompile(pattern, opts), rep: rep}
}

var (
	hyphenBreak = mustSub(`(\w+)-\s+(\w+)`, "$1$2", regexp2.None)

	ghostSpaces = []substitution{
		mustSub(`\b(o)\s+(ff)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(o)\s+(f)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(a)\s+(nd)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(t)\s+(he)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(i)\s+(n)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(i)\s+(t)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(i)\s+(s)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(t)\s+(o)\b`, "$1$2", regexp2.IgnoreCase),
		mustSub(`\b(s)\s+(t)\b`, "$1$2", regexp2.IgnoreCase),
	}

	spacedLetters = regexp2.MustCompile(`(?:^|(?<=\s))[a-zA-Z](?:\s+[a-zA-Z]){2,}(?=\s|$)`, regexp2.None)

	bracketSpacing = []substitution{
		mustSub(`([(\[{\u201C\u2018])\s+`, "$1", regexp2.None),
		mustSub(`\s+([)\]}\u201D\u2019])`, "$1", regexp2.None),
	}

	whitespaceRun = mustSub(`\s+`, " ", regexp2.None)
)

func (s substitution) apply(text string) string {
	out, err := s.re.Replace(text, s.rep, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// RepairBrokenWords undoes common PDF extraction damage: ligature glyphs,
// words hyphenated across line breaks, spaces inside short common words,
// words spelled out as three or more spaced letters and stray spaces inside brackets and
// curly quotes. Whitespace runs collapse to one space.
func RepairBrokenWords(text string) string {
	text = ligatures.Replace(text)
	text = hyphenBreak.apply(text)
	for _, s := range ghostSpaces {
		text = s.apply(text)
	}
	if joined, err := spacedLetters.ReplaceFunc(text, func(m regexp2.Match) string {
		return strings.Join(strings.Fields(m.String()), "")
	}, -1, -1); err == nil {
		text = joined
	}
	for _, s := range bracketSpacing {
		text = s.apply(text)
	}
	return strings.TrimSpace(whitespaceRun.apply(text))
}
