package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

var (
	ErrInvalidMessage = contractx.ErrEmptyQuery
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Agent     string
	Query     string
}

type GraphOutput struct {
	Response contractx.AskResponse
}

type GraphState struct {
	SessionID string
	AgentKey  string
	Query     string
	Now       time.Time

	Agent   personax.Agent
	System  string
	History []contractx.Turn

	Reply   string
	Failed  bool
	Handoff contractx.Handoff
	Parsed  bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		AgentKey:  in.Agent,
		Query:     query,
		Now:       nowFn().UTC(),
	}, nil
}
