package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

var (
	//go:embed template/system.txt
	systemRaw string

	systemTemplate = template.Must(template.New("system").Option("missingkey=error").Parse(strings.TrimSpace(systemRaw)))
)

// SystemPrompt renders the persona system message for one agent.
func SystemPrompt(agent personax.Agent) (string, error) {
	if strings.TrimSpace(agent.Mission) == "" {
		return "", fmt.Errorf("%w: mission for agent=%s", contractx.ErrPromptMissing, agent.Key)
	}

	var b strings.Builder
	if err := systemTemplate.Execute(&b, agent); err != nil {
		return "", fmt.Errorf("%w: render system prompt: %v", contractx.ErrPromptMissing, err)
	}
	return b.String(), nil
}
