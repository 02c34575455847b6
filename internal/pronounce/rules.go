// Package pronounce rewrites text before synthesis: it repairs PDF
// extraction damage, drops ignored phrases and applies user pronunciation
// rules.
package pronounce

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dlclark/regexp2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// matchTimeout bounds a single user pattern match.
const matchTimeout = time.Second

// Rule replaces every occurrence of Original with Replacement.
type Rule struct {
	Original    string `json:"original" yaml:"original" toml:"original"`
	Replacement string `json:"replacement" yaml:"replacement" toml:"replacement"`
	// MatchCase makes the match case-sensitive.
	MatchCase bool `json:"match_case,omitempty" yaml:"match_case" toml:"match_case"`
	// WordBoundary only matches Original as a whole word.
	WordBoundary bool `json:"word_boundary,omitempty" yaml:"word_boundary" toml:"word_boundary"`
	// IsRegex treats Original as a regular expression. Replacement may then
	// refer to groups as $1 or ${name}.
	IsRegex bool `json:"is_regex,omitempty" yaml:"is_regex" toml:"is_regex"`
}

// RuleSet is the content of a rule file.
type RuleSet struct {
	Rules  []Rule   `json:"rules" yaml:"rules" toml:"rules"`
	Ignore []string `json:"ignore" yaml:"ignore" toml:"ignore"`
}

// Empty reports whether s changes nothing beyond word repair.
func (s RuleSet) Empty() bool {
	return len(s.Rules) == 0 && len(s.Ignore) == 0
}

// LoadRules reads a rule file. The format follows the extension: .yaml or
// .yml for YAML, .toml for TOML.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("unable to read rule file: %w", err)
	}

	var set RuleSet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &set)
	case ".toml":
		err = toml.Unmarshal(data, &set)
	default:
		return RuleSet{}, fmt.Errorf("unsupported rule file format %q", ext)
	}
	if err != nil {
		return RuleSet{}, fmt.Errorf("unable to parse rule file %s: %w", path, err)
	}
	return set, nil
}

type compiledRule struct {
	re          *regexp2.Regexp
	replacement string
	literal     bool
}

// Pronouncer applies a compiled RuleSet.
type Pronouncer struct {
	ignore []*regexp2.Regexp
	rules  []compiledRule
	logger *log.Logger
}

// Compile prepares set for repeated use. Rules that do not compile are
// skipped and logged; the rest still apply.
func Compile(set RuleSet, logger *log.Logger) *Pronouncer {
	if logger == nil {
		logger = log.Default()
	}
	p := &Pronouncer{logger: logger}

	for _, item := range set.Ignore {
		if item == "" {
			continue
		}
		re := regexp2.MustCompile(regexp2.Escape(item), regexp2.IgnoreCase)
		re.MatchTimeout = matchTimeout
		p.ignore = append(p.ignore, re)
	}

	for i, rule := range set.Rules {
		if rule.Original == "" {
			continue
		}
		re, err := compileRule(rule)
		if err != nil {
			logger.Warn("skipping pronunciation rule", "index", i, "original", rule.Original, "err", err)
			continue
		}
		p.rules = append(p.rules, compiledRule{re: re, replacement: rule.Replacement, literal: !rule.IsRegex})
	}
	return p
}

func compileRule(rule Rule) (*regexp2.Regexp, error) {
	pattern := rule.Original
	if !rule.IsRegex {
		pattern = regexp2.Escape(pattern)
	}
	if rule.WordBoundary {
		pattern = `\b(?:` + pattern + `)\b`
	}
	opts := regexp2.None
	if !rule.MatchCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

// Apply repairs text, removes ignored phrases and applies the rules in
// order.
func (p *Pronouncer) Apply(text string) string {
	text = RepairBrokenWords(text)

	for _, re := range p.ignore {
		if out, err := re.Replace(text, "", -1, -1); err == nil {
			text = out
		}
	}

	for _, r := range p.rules {
		var (
			out string
			err error
		)
		if r.literal {
			out, err = r.re.ReplaceFunc(text, func(regexp2.Match) string { return r.replacement }, -1, -1)
		} else {
			out, err = r.re.Replace(text, r.replacement, -1, -1)
		}
		if err != nil {
			p.logger.Warn("pronunciation rule failed", "pattern", r.re.String(), "err", err)
			continue
		}
		text = out
	}
	return text
}

// Apply is a convenience for a single use of rules and ignore.
func Apply(text string, rules []Rule, ignore []string) string {
	return Compile(RuleSet{Rules: rules, Ignore: ignore}, nil).Apply(text)
}
