package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: specialist returned empty message", contractx.ErrValidation)
	}
	return GraphOutput{Response: contractx.AskResponse{
		Agent:   in.Agent.Key,
		Reply:   reply,
		Handoff: in.Handoff,
		Parsed:  in.Parsed,
		Failed:  in.Failed,
	}}, nil
}
