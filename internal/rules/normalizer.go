// Package rules rewrites recognized transcripts into the pilot vocabulary
// before keyword spotting, e.g. "lift off" => "take off".
// No rules ship by default; an empty normalizer leaves text untouched.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Rule rewrites a transcript and reports whether it changed anything.
type Rule interface {
	Rewrite(input string) (output string, changed bool)
}

// LineParser compiles one rules-file line.
type LineParser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Normalizer applies user rules in file order until the text is stable.
type Normalizer struct {
	rules     []Rule
	loopLimit int
}

// Load compiles the rules file at path. An empty path or a missing file
// yields a normalizer with no rules.
func Load(path string, loopLimit int) (*Normalizer, error) {
	return LoadWithParsers(path, loopLimit, defaultLineParsers())
}

// LoadWithParsers allows extra line syntaxes for the rules file.
func LoadWithParsers(path string, loopLimit int, parsers []LineParser) (*Normalizer, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if len(parsers) == 0 {
		parsers = defaultLineParsers()
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return &Normalizer{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Normalizer{loopLimit: loopLimit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	rules, err := compile(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}

	return &Normalizer{rules: rules, loopLimit: loopLimit}, nil
}

// Apply implements ports.Normalizer.
func (n *Normalizer) Apply(text string) (string, error) {
	result := text
	for pass := 0; pass < n.loopLimit; pass++ {
		changed := false
		for _, rule := range n.rules {
			if next, ok := rule.Rewrite(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

// Len returns the number of compiled rules.
func (n *Normalizer) Len() int {
	return len(n.rules)
}

func compile(contents string, parsers []LineParser) ([]Rule, error) {
	var rules []Rule
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var parser LineParser
		for _, candidate := range parsers {
			if candidate.CanParse(line) {
				parser = candidate
				break
			}
		}
		if parser == nil {
			return nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}

		rule, err := parser.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
