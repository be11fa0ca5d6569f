// Package command reduces recognized utterances to pilot commands by keyword spotting.
package command

import (
	"strings"

	"skyvox/internal/domain"
)

type keywordRule struct {
	command  domain.Command
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{domain.CommandForward, []string{"forward"}},
	{domain.CommandBackward, []string{"back", "backward"}},
	{domain.CommandLeft, []string{"left"}},
	{domain.CommandRight, []string{"right"}},
	{domain.CommandUp, []string{"up"}},
	{domain.CommandDown, []string{"down"}},
	{domain.CommandStop, []string{"stop", "hold", "stay"}},
	{domain.CommandLand, []string{"land"}},
	{domain.CommandTakeoff, []string{"take off"}},
}

// Parse maps an utterance to a command. Matching is substring based and
// case-insensitive; an utterance with no keyword yields CommandStop.
func Parse(utterance string) domain.Command {
	lower := strings.ToLower(utterance)
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.command
			}
		}
	}
	return domain.CommandStop
}
