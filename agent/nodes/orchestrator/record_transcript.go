package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

// RecordTranscript logs the exchange for auditing. The transcript is best
// effort and never fails the ask.
func RecordTranscript(
	ctx context.Context,
	in *GraphState,
	transcript contractx.TranscriptStore,
	newID func() string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed {
		return in, nil
	}

	err := transcript.Record(ctx, contractx.Exchange{
		ID:        newID(),
		SessionID: in.SessionID,
		Agent:     in.Agent.Key,
		Query:     in.Query,
		Reply:     in.Reply,
		Handoff:   in.Handoff,
		Parsed:    in.Parsed,
		CreatedAt: in.Now,
	})
	if err != nil {
		log.Warn().Err(err).Str("agent", string(in.Agent.Key)).Msg("record transcript failed")
	}
	return in, nil
}
