package contract

import "context"

// Orchestrator answers one agent question per call.
type Orchestrator interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// MemoryStore holds the rolling per-agent conversation memory of a session.
type MemoryStore interface {
	Recent(ctx context.Context, sessionID string, agent AgentKey, limit int) ([]Turn, error)
	Append(ctx context.Context, sessionID string, agent AgentKey, turns ...Turn) error
	Reset(ctx context.Context, sessionID string, agent AgentKey) error
}

// TranscriptStore records completed exchanges for auditing.
type TranscriptStore interface {
	Record(ctx context.Context, ex Exchange) error
	List(ctx context.Context, agent AgentKey, limit int) ([]Exchange, error)
}

// Specialist runs the completion call for one agent.
type Specialist interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Registry interface {
	Specialist(agent AgentKey) (Specialist, error)
}
