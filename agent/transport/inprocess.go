package transport

import (
	"context"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

// Service is the orchestrator surface the in-process transport needs.
type Service interface {
	contractx.Orchestrator
	Reset(ctx context.Context, sessionID string, agent contractx.AgentKey) error
}

var (
	_ Transport = (*InProcess)(nil)
	_ Resetter  = (*InProcess)(nil)
)

// InProcess calls the orchestrator directly. Memory is kept per session id.
type InProcess struct {
	service Service
}

func NewInProcess(service Service) *InProcess {
	return &InProcess{service: service}
}

func (p *InProcess) Invoke(ctx context.Context, req Request) (contractx.AskResponse, error) {
	return p.service.Ask(ctx, contractx.AskRequest{
		SessionID: req.SessionID,
		Agent:     req.Agent,
		Query:     req.Text,
	})
}

func (p *InProcess) Reset(ctx context.Context, sessionID string, agent contractx.AgentKey) error {
	return p.service.Reset(ctx, sessionID, agent)
}
