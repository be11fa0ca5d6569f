package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

func defaultLineParsers() []LineParser {
	return []LineParser{substitutionParser{}, aliasParser{}}
}

// aliasParser handles "phrase => replacement". Phrases match whole words, ignoring case.
type aliasParser struct{}

func (aliasParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (aliasParser) Parse(line string) (Rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("alias phrase cannot be empty")
	}

	words := strings.Fields(regexp.QuoteMeta(from))
	re, err := regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("invalid alias phrase: %w", err)
	}
	return regexRule{re: re, replacement: strings.ReplaceAll(to, "$", "$$"), global: true, literal: true}, nil
}

// substitutionParser handles sed-style "s/pattern/replacement/flags" with the
// flags g (all matches), i (ignore case, the default), m and s.
type substitutionParser struct{}

func (substitutionParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordOrSpace(line[1])
}

func (substitutionParser) Parse(line string) (Rule, error) {
	delim := line[1]
	pattern, next, err := readDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	replacement, next, err := readDelimited(line, next, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid replacement: %w", err)
	}

	global := false
	prefix := "i"
	for _, flag := range strings.TrimSpace(line[next:]) {
		switch flag {
		case 'g':
			global = true
		case 'i':
		case 'm', 's':
			prefix += string(flag)
		default:
			return nil, fmt.Errorf("unsupported flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool

	// literal rules stop once their replacement is in place so an alias whose
	// output still contains the phrase cannot loop.
	literal bool
}

func (r regexRule) Rewrite(input string) (string, bool) {
	var output string
	if r.global {
		output = r.re.ReplaceAllString(input, r.replacement)
	} else {
		loc := r.re.FindStringSubmatchIndex(input)
		if loc == nil {
			return input, false
		}
		var expanded []byte
		expanded = r.re.ExpandString(expanded, r.replacement, input, loc)
		output = input[:loc[0]] + string(expanded) + input[loc[1]:]
	}
	if r.literal && strings.EqualFold(output, input) {
		return input, false
	}
	return output, output != input
}

func readDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var b strings.Builder
	escaped := false
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			if c != delim {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordOrSpace(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == ' ' || c == '\t'
}
