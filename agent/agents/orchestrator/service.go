package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	nodex "github.com/tanpawarit/sentinel-orchestrator/agent/nodes/orchestrator"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

// DefaultSessionID is used by callers that do not track sessions, such as
// the one-shot ask command.
const DefaultSessionID = "default"

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

var _ contractx.Orchestrator = (*Orchestrator)(nil)

type Config struct {
	HistoryTurns int
}

type Orchestrator struct {
	personas   *personax.Registry
	models     contractx.Registry
	memory     contractx.MemoryStore
	transcript contractx.TranscriptStore

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	historyTurns int

	now   func() time.Time
	newID func() string
}

func New(
	personas *personax.Registry,
	models contractx.Registry,
	memory contractx.MemoryStore,
	transcript contractx.TranscriptStore,
	cfg Config,
) (*Orchestrator, error) {
	if personas == nil {
		return nil, errors.New("persona registry is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if memory == nil {
		memory = noopMemoryStore{}
	}
	if transcript == nil {
		transcript = noopTranscript{}
	}

	historyTurns := cfg.HistoryTurns
	if historyTurns < 0 {
		historyTurns = 0
	}

	o := &Orchestrator{
		personas:     personas,
		models:       models,
		memory:       memory,
		transcript:   transcript,
		historyTurns: historyTurns,
		now:          time.Now,
		newID:        uuid.NewString,
	}

	graphRunner, err := o.compileAskGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Ask runs one agent call. Unknown agents and empty queries are errors; a
// failed completion is reported inside the response with Failed set.
func (o *Orchestrator) Ask(ctx context.Context, req contractx.AskRequest) (contractx.AskResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Agent:     string(req.Agent),
		Query:     req.Query,
	})
	if err != nil {
		return contractx.AskResponse{}, err
	}
	return out.Response, nil
}

// Reset clears the rolling memory of one agent, or of every agent when agent is empty.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string, agent contractx.AgentKey) error {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if agent == "" {
		return o.memory.Reset(ctx, sessionID, "")
	}
	a, err := o.personas.Lookup(string(agent))
	if err != nil {
		return err
	}
	return o.memory.Reset(ctx, sessionID, a.Key)
}

type noopMemoryStore struct{}

func (noopMemoryStore) Recent(context.Context, string, contractx.AgentKey, int) ([]contractx.Turn, error) {
	return nil, nil
}

func (noopMemoryStore) Append(context.Context, string, contractx.AgentKey, ...contractx.Turn) error {
	return nil
}

func (noopMemoryStore) Reset(context.Context, string, contractx.AgentKey) error {
	return nil
}

type noopTranscript struct{}

func (noopTranscript) Record(context.Context, contractx.Exchange) error {
	return nil
}

func (noopTranscript) List(context.Context, contractx.AgentKey, int) ([]contractx.Exchange, error) {
	return nil, nil
}
