// Package frontend is the side-effect boundary shared by the terminal and web
// front ends: it applies pure session updates and performs the agent calls
// they ask for.
package frontend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
	statex "github.com/tanpawarit/sentinel-orchestrator/agent/state"
	transportx "github.com/tanpawarit/sentinel-orchestrator/agent/transport"
)

type Controller struct {
	personas  *personax.Registry
	transport transportx.Transport
	limits    promptx.Limits

	now func() time.Time
}

func NewController(personas *personax.Registry, transport transportx.Transport, limits promptx.Limits) (*Controller, error) {
	if personas == nil {
		return nil, errors.New("persona registry is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	return &Controller{
		personas:  personas,
		transport: transport,
		limits:    limits,
		now:       time.Now,
	}, nil
}

func (c *Controller) Personas() *personax.Registry {
	return c.personas
}

// Ask sends query to the selected agent. Invalid input returns the state
// unchanged together with the error and performs no call.
func (c *Controller) Ask(ctx context.Context, st statex.SessionState, query string) (statex.SessionState, error) {
	next, pending, err := st.BeginAsk(query, c.limits, c.now())
	if err != nil {
		return st, err
	}
	return c.run(ctx, next, st.SessionID, pending), nil
}

// SendToNext hands the last reply's summary, plus an optional follow-up
// question, to the following agent.
func (c *Controller) SendToNext(ctx context.Context, st statex.SessionState, followUp string) (statex.SessionState, error) {
	next, pending, err := st.PlanHandoff(c.personas, followUp, c.now())
	if err != nil {
		return st, err
	}
	log.Info().
		Str("from", string(st.LastAgent)).
		Str("to", string(pending.Agent)).
		Msg("hand-off")
	return c.run(ctx, next, st.SessionID, pending), nil
}

// Reset clears one agent, or every agent when agent is empty, on both sides
// of the transport.
func (c *Controller) Reset(ctx context.Context, st statex.SessionState, agent contractx.AgentKey) (statex.SessionState, error) {
	if agent != "" {
		a, err := c.personas.Lookup(string(agent))
		if err != nil {
			return st, err
		}
		agent = a.Key
	}
	if rs, ok := c.transport.(transportx.Resetter); ok {
		if err := rs.Reset(ctx, st.SessionID, agent); err != nil {
			return st, err
		}
	}
	if agent == "" {
		return st.ResetAll(c.personas, c.now()), nil
	}
	return st.ResetAgent(agent, c.now()), nil
}

// Start returns the state after a pending call has been begun. Front ends that
// run the call asynchronously use Start and Finish instead of Ask.
func (c *Controller) Start(st statex.SessionState, query string) (statex.SessionState, statex.Pending, error) {
	return st.BeginAsk(query, c.limits, c.now())
}

// StartHandoff is the asynchronous form of SendToNext.
func (c *Controller) StartHandoff(st statex.SessionState, followUp string) (statex.SessionState, statex.Pending, error) {
	return st.PlanHandoff(c.personas, followUp, c.now())
}

// Call performs the side effect of a pending update.
func (c *Controller) Call(ctx context.Context, sessionID string, pending statex.Pending) contractx.AskResponse {
	resp, err := c.transport.Invoke(ctx, transportx.Request{
		SessionID: sessionID,
		Agent:     pending.Agent,
		Text:      pending.Text,
	})
	if err != nil {
		log.Warn().Err(err).Str("agent", string(pending.Agent)).Msg("agent call failed")
		name := string(pending.Agent)
		if a, lerr := c.personas.Lookup(name); lerr == nil {
			name = a.Name
		}
		return contractx.AskResponse{
			Agent:  pending.Agent,
			Reply:  contractx.WarningGlyph + " " + name + " error: " + err.Error(),
			Failed: true,
		}
	}
	if resp.Agent == "" {
		resp.Agent = pending.Agent
	}
	return resp
}

// Finish applies the result of Call.
func (c *Controller) Finish(st statex.SessionState, resp contractx.AskResponse) statex.SessionState {
	return st.ApplyReply(resp, c.now())
}

func (c *Controller) run(ctx context.Context, st statex.SessionState, sessionID string, pending statex.Pending) statex.SessionState {
	return c.Finish(st, c.Call(ctx, sessionID, pending))
}
