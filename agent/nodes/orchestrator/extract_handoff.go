package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	handoffx "github.com/tanpawarit/sentinel-orchestrator/agent/handoff"
)

func ExtractHandoff(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Handoff, in.Parsed = handoffx.ExtractHandoff(in.Reply)
	return in, nil
}
