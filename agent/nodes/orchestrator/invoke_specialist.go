package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	logx "github.com/tanpawarit/sentinel-orchestrator/pkg/logger"
)

// InvokeSpecialist makes the single completion call. A model failure is not
// returned as an error: it becomes the reply text and Failed is set.
func InvokeSpecialist(
	ctx context.Context,
	in *GraphState,
	models contractx.Registry,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	logger := logx.Agent(string(in.Agent.Key))
	specialist, err := models.Specialist(in.Agent.Key)
	if err != nil {
		return nil, err
	}

	reply, err := specialist.Complete(ctx, contractx.CompletionRequest{
		System:  in.System,
		History: in.History,
		Input:   in.Query,
	})
	if err != nil {
		logger.Warn().Err(err).Str("session", in.SessionID).Msg("completion failed")
		in.Reply = FailureReply(in.Agent.Name, err)
		in.Failed = true
		return in, nil
	}

	logger.Debug().Int("reply_chars", len(reply)).Msg("completion done")
	in.Reply = reply
	return in, nil
}

func FailureReply(agentName string, err error) string {
	return fmt.Sprintf("%s %s error: %v", contractx.WarningGlyph, agentName, err)
}
