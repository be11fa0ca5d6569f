package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const aliasRules = `
takeoff => take off
take of => take off
lift off => take off
for word => forward
hover => hold
freeze => stop
s/\bturn (write|rite)\b/turn right/g
`

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestAliasRules(t *testing.T) {
	t.Parallel()

	n, err := Load(writeRules(t, aliasRules), 0)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	tests := map[string]string{
		"takeoff now":         "take off now",
		"please take of":      "please take off",
		"Lift   Off":          "take off",
		"take off":            "take off",
		"go for word":         "go forward",
		"hover there":         "hold there",
		"turn write":          "turn right",
		"offshore forwarding": "offshore forwarding",
		"touch down":          "touch down",
		"freeze":              "stop",
	}
	for input, want := range tests {
		input, want := input, want
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			got, err := n.Apply(input)
			if err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			if got != want {
				t.Fatalf("Apply(%q) = %q, want %q", input, got, want)
			}
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "commands.rules")
	contents := strings.Join([]string{
		"# comments are ignored",
		"",
		"scoot => left",
		"s/\\bgo (\\w+)ward\\b/$1/g",
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	n, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, _ := n.Apply("scoot then go upward")
	if got != "left then up" {
		t.Fatalf("Apply = %q, want %q", got, "left then up")
	}
}

func TestLoadWithoutRulesFileLeavesTextUntouched(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.rules")} {
		n, err := Load(path, 0)
		if err != nil {
			t.Fatalf("Load(%q) returned error: %v", path, err)
		}
		if n.Len() != 0 {
			t.Fatalf("Load(%q) compiled %d rules, want none", path, n.Len())
		}
		for _, input := range []string{"touch down", "lift off", "reverse", "climb", "ahead", "takeoff"} {
			if got, _ := n.Apply(input); got != input {
				t.Fatalf("Apply(%q) = %q, want it unchanged", input, got)
			}
		}
	}
}

func TestLoadRejectsBadLines(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unsupported":  "just some words",
		"empty alias":  " => up",
		"bad regex":    "s/(/x/",
		"bad flag":     "s/a/b/q",
		"unterminated": "s/a/b",
	}
	for name, line := range tests {
		name, line := name, line
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "bad.rules")
			if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
				t.Fatalf("write rules: %v", err)
			}
			if _, err := Load(path, 0); err == nil {
				t.Fatalf("expected error for %q", line)
			} else if !strings.Contains(err.Error(), "line 1") {
				t.Fatalf("error %q does not name the line", err)
			}
		})
	}
}

func TestApplyStopsAtLoopLimit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loop.rules")
	if err := os.WriteFile(path, []byte("s/x/xx/"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	n, err := Load(path, 3)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, _ := n.Apply("x")
	if got != "xxxx" {
		t.Fatalf("Apply = %q, want %q", got, "xxxx")
	}
}

type upperParser struct{}

func (upperParser) CanParse(line string) bool { return line == "UPPER" }

func (upperParser) Parse(string) (Rule, error) { return upperRule{}, nil }

type upperRule struct{}

func (upperRule) Rewrite(input string) (string, bool) {
	out := strings.ToUpper(input)
	return out, out != input
}

func TestLoadWithCustomParser(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.rules")
	if err := os.WriteFile(path, []byte("UPPER"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	parsers := append([]LineParser{upperParser{}}, defaultLineParsers()...)
	n, err := LoadWithParsers(path, 0, parsers)
	if err != nil {
		t.Fatalf("LoadWithParsers returned error: %v", err)
	}
	got, _ := n.Apply("hover")
	if got != "HOVER" {
		t.Fatalf("Apply = %q, want %q", got, "HOVER")
	}
}
