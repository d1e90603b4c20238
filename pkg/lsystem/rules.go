// Package lsystem rewrites bracketed L-system grammars and interprets the
// result with a 3D turtle, producing branch polylines and leaf markers.
package lsystem

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/chazu/verdant/pkg/logging"
)

// Rules maps a command character to its replacement.
type Rules map[rune]string

// ParseRules reads rules written as "k=v". Only the first character of the
// key is used, and a later rule for the same key replaces an earlier one.
// Entries without '=' or with an empty key are logged and skipped.
func ParseRules(lines []string, logger *log.Logger) Rules {
	logger = logging.OrDiscard(logger)
	rules := make(Rules, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			logger.Error("invalid rule", "rule", line)
			continue
		}
		r := []rune(key)[0]
		rules[r] = value
	}
	return rules
}

// Rewrite applies rules to every character of axiom in parallel,
// iterations times. Characters without a rule are copied unchanged.
func Rewrite(axiom string, rules Rules, iterations int) string {
	sentence := axiom
	for i := 0; i < iterations; i++ {
		var sb strings.Builder
		sb.Grow(len(sentence) * 2)
		for _, c := range sentence {
			if rep, ok := rules[c]; ok {
				sb.WriteString(rep)
			} else {
				sb.WriteRune(c)
			}
		}
		sentence = sb.String()
	}
	return sentence
}
