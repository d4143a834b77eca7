package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

func ReadMemory(
	ctx context.Context,
	in *GraphState,
	memory contractx.MemoryStore,
	limit int,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	history, err := memory.Recent(ctx, in.SessionID, in.Agent.Key, limit)
	if err != nil {
		return nil, err
	}
	in.History = history
	return in, nil
}
