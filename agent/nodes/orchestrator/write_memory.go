package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

// WriteMemory appends the exchange to the agent's rolling memory. Failed
// calls are not remembered.
func WriteMemory(
	ctx context.Context,
	in *GraphState,
	memory contractx.MemoryStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed {
		return in, nil
	}

	if err := memory.Append(ctx, in.SessionID, in.Agent.Key,
		contractx.Turn{Role: contractx.RoleUser, Content: in.Query},
		contractx.Turn{Role: contractx.RoleAssistant, Content: in.Reply},
	); err != nil {
		return nil, err
	}
	return in, nil
}
