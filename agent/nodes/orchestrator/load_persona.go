package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
)

func LoadPersona(in *GraphState, personas *personax.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	agent, err := personas.Lookup(in.AgentKey)
	if err != nil {
		return nil, err
	}
	system, err := promptx.SystemPrompt(agent)
	if err != nil {
		return nil, err
	}

	in.Agent = agent
	in.System = system
	return in, nil
}
