// Package transport carries one agent question from a front end to the
// orchestrator and brings the reply back.
package transport

import (
	"context"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

type Request struct {
	SessionID string
	Agent     contractx.AgentKey
	Text      string
}

// Transport runs one blocking agent call.
type Transport interface {
	Invoke(ctx context.Context, req Request) (contractx.AskResponse, error)
}

// Resetter is implemented by transports whose far side keeps memory that
// outlives a single call.
type Resetter interface {
	Reset(ctx context.Context, sessionID string, agent contractx.AgentKey) error
}
