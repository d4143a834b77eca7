package handoff

import (
	"regexp"
	"strings"

	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
)

// summaryMarker matches "**Summary:**", "**Summary**:" and "## Summary" style markers.
var summaryMarker = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*summary[ \t]*:?|\*\*[ \t]*summary[ \t]*:?[ \t]*\*\*[ \t]*:?|summary[ \t]*:)[ \t]*`)

// NextQuery picks the text handed to the next agent. Preference order:
// the JSON summary when one was genuinely parsed, then a Markdown summary
// section, then the first NextQueryCap characters of the reply.
func NextQuery(reply string) string {
	if h, ok := ExtractHandoff(reply); ok {
		if s := strings.TrimSpace(h.Summary); s != "" {
			return promptx.Truncate(s, NextQueryCap)
		}
	}
	if s := MarkdownSummary(reply); s != "" {
		return promptx.Truncate(s, NextQueryCap)
	}
	return promptx.Truncate(strings.TrimSpace(reply), NextQueryCap)
}

// MarkdownSummary returns the paragraph following a summary marker, up to the
// next blank line or heading.
func MarkdownSummary(reply string) string {
	loc := summaryMarker.FindStringIndex(reply)
	if loc == nil {
		return ""
	}

	rest := reply[loc[1]:]
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if len(lines) > 0 && (strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "**")) {
			break
		}
		lines = append(lines, trimmed)
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
