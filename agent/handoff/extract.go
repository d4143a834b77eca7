// Package handoff pulls the structured hand-off summary out of an agent's
// free-text reply.
//
// Extraction is a heuristic: the last '{' in the reply is taken as the start
// of a JSON object running to the end of the text. No brace matching or schema
// validation is done, so an object that is not the final thing in the reply,
// or a nested object, defeats it and the fallback is used instead.
package handoff

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
)

const (
	FallbackSummaryCap = 800
	NextQueryCap       = 1600
)

// ExtractHandoff parses the trailing JSON object of reply. When that fails it
// returns a fallback whose Summary is the start of the reply, and ok=false.
func ExtractHandoff(reply string) (contractx.Handoff, bool) {
	if h, ok := parseTrailingObject(reply); ok {
		return h, true
	}
	return Fallback(reply), false
}

// Fallback is the hand-off used when the reply carries no parseable object.
func Fallback(reply string) contractx.Handoff {
	return contractx.Handoff{Summary: promptx.Truncate(reply, FallbackSummaryCap)}
}

func parseTrailingObject(reply string) (contractx.Handoff, bool) {
	idx := strings.LastIndex(reply, "{")
	if idx < 0 {
		return contractx.Handoff{}, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply[idx:])), &fields); err != nil {
		return contractx.Handoff{}, false
	}

	return contractx.Handoff{
		Summary:   stringify(fields["summary"]),
		Insights:  stringify(fields["insights"]),
		NextSteps: stringify(fields["next_steps"]),
	}, true
}

// Models often answer with lists where strings were asked for. String values
// are returned exactly as the model wrote them; only list items are trimmed.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case float64, bool:
		return fmt.Sprint(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
