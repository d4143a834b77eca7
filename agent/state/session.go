package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	handoffx "github.com/tanpawarit/sentinel-orchestrator/agent/handoff"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
)

var (
	ErrBusy    = errors.New("an agent call is already running")
	ErrNoReply = errors.New("no reply to hand off yet")
)

// SessionState is everything a front end knows about one user session.
// Update methods never mutate the receiver; they return the next state.
type SessionState struct {
	SessionID string `json:"session_id"`
	Version   int    `json:"version"`

	// Threads holds the visible transcript of each agent.
	Threads  map[contractx.AgentKey][]Message `json:"threads,omitempty"`
	Selected contractx.AgentKey               `json:"selected"`
	Position int                              `json:"position"`

	Running      bool               `json:"running"`
	LastAgent    contractx.AgentKey `json:"last_agent,omitempty"`
	LastResponse string             `json:"last_response,omitempty"`

	DocumentName string `json:"document_name,omitempty"`
	Document     string `json:"document,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	Role    contractx.Role     `json:"role"`
	Agent   contractx.AgentKey `json:"agent"`
	Content string             `json:"content"`
	Handoff *contractx.Handoff `json:"handoff,omitempty"`
	Parsed  bool               `json:"parsed,omitempty"`
	Failed  bool               `json:"failed,omitempty"`
	At      time.Time          `json:"at"`
}

// Pending is the side effect an update asks the caller to perform: invoke
// Agent with Text, then feed the result to ApplyReply.
type Pending struct {
	Agent contractx.AgentKey
	Text  string
}

func NewSessionState(sessionID string, personas *personax.Registry, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Version:   1,
		Threads:   make(map[contractx.AgentKey][]Message, 5),
		Selected:  personas.First().Key,
		Position:  0,
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *SessionState) EnsureThreads() {
	if s.Threads == nil {
		s.Threads = make(map[contractx.AgentKey][]Message, 5)
	}
}

// Thread returns the visible messages of agent.
func (s SessionState) Thread(agent contractx.AgentKey) []Message {
	return s.Threads[agent]
}

// Replies returns the assistant replies of agent, oldest first.
func (s SessionState) Replies(agent contractx.AgentKey) []string {
	var out []string
	for _, m := range s.Threads[agent] {
		if m.Role == contractx.RoleAssistant && !m.Failed {
			out = append(out, m.Content)
		}
	}
	return out
}

// Select switches the active agent.
func (s SessionState) Select(personas *personax.Registry, key string) (SessionState, error) {
	agent, err := personas.Lookup(key)
	if err != nil {
		return s, err
	}
	next := s.clone()
	next.Selected = agent.Key
	next.Position = personas.Position(agent.Key)
	return next, nil
}

// SetDocument attaches text used as context for every ask. Empty text clears it.
func (s SessionState) SetDocument(name, text string, now time.Time) SessionState {
	next := s.clone()
	next.Document = strings.TrimSpace(text)
	next.DocumentName = strings.TrimSpace(name)
	if next.Document == "" {
		next.DocumentName = ""
	}
	next.Touch(now)
	return next
}

// BeginAsk validates the user's question for the selected agent and composes
// the text to send. An empty question returns contract.ErrEmptyQuery and
// nothing to invoke.
func (s SessionState) BeginAsk(query string, limits promptx.Limits, now time.Time) (SessionState, Pending, error) {
	if s.Running {
		return s, Pending{}, ErrBusy
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return s, Pending{}, contractx.ErrEmptyQuery
	}

	text, err := promptx.Compose(promptx.Input{
		Query:    query,
		Document: s.Document,
		Memory:   s.Replies(s.Selected),
	}, limits)
	if err != nil {
		return s, Pending{}, err
	}

	next := s.clone()
	next.appendMessage(Message{Role: contractx.RoleUser, Agent: s.Selected, Content: query, At: now.UTC()})
	next.Running = true
	next.Touch(now)
	return next, Pending{Agent: s.Selected, Text: text}, nil
}

// ApplyReply records the agent's answer and clears the running flag.
func (s SessionState) ApplyReply(resp contractx.AskResponse, now time.Time) SessionState {
	next := s.clone()
	h := resp.Handoff
	next.appendMessage(Message{
		Role:    contractx.RoleAssistant,
		Agent:   resp.Agent,
		Content: resp.Reply,
		Handoff: &h,
		Parsed:  resp.Parsed,
		Failed:  resp.Failed,
		At:      now.UTC(),
	})
	next.Running = false
	if !resp.Failed {
		next.LastAgent = resp.Agent
		next.LastResponse = resp.Reply
	}
	next.Touch(now)
	return next
}

// Abort clears the running flag after a call that produced no reply.
func (s SessionState) Abort(now time.Time) SessionState {
	next := s.clone()
	next.Running = false
	next.Touch(now)
	return next
}

// NextAgent reports the agent after the selected one.
func (s SessionState) NextAgent(personas *personax.Registry) (personax.Agent, bool) {
	return personas.Next(s.Selected)
}

// CanSendNext reports whether the hand-off control should be enabled.
func (s SessionState) CanSendNext(personas *personax.Registry) bool {
	if s.Running || s.LastAgent != s.Selected || strings.TrimSpace(s.LastResponse) == "" {
		return false
	}
	_, ok := personas.Next(s.Selected)
	return ok
}

// PlanHandoff moves the pipeline to the agent after the one that answered
// last and returns the summary of that answer as its question. A non-empty
// followUp is appended after the summary.
func (s SessionState) PlanHandoff(personas *personax.Registry, followUp string, now time.Time) (SessionState, Pending, error) {
	if s.Running {
		return s, Pending{}, ErrBusy
	}
	if s.LastAgent == "" || strings.TrimSpace(s.LastResponse) == "" {
		return s, Pending{}, ErrNoReply
	}
	target, ok := personas.Next(s.LastAgent)
	if !ok {
		return s, Pending{}, fmt.Errorf("%w after %s", contractx.ErrNoNextAgent, s.LastAgent)
	}

	query := handoffx.NextQuery(s.LastResponse)
	if f := strings.TrimSpace(followUp); f != "" {
		query += "\n\nFollow-up:\n" + f
	}
	next := s.clone()
	next.Selected = target.Key
	next.Position = personas.Position(target.Key)
	next.appendMessage(Message{Role: contractx.RoleUser, Agent: target.Key, Content: query, At: now.UTC()})
	next.Running = true
	next.Touch(now)
	return next, Pending{Agent: target.Key, Text: query}, nil
}

// ResetAgent clears one agent's thread.
func (s SessionState) ResetAgent(agent contractx.AgentKey, now time.Time) SessionState {
	next := s.clone()
	delete(next.Threads, agent)
	if next.LastAgent == agent {
		next.LastAgent = ""
		next.LastResponse = ""
	}
	next.Running = false
	next.Touch(now)
	return next
}

// ResetAll clears every thread and returns the pipeline to its first agent.
// The attached document is kept.
func (s SessionState) ResetAll(personas *personax.Registry, now time.Time) SessionState {
	next := s.clone()
	next.Threads = make(map[contractx.AgentKey][]Message, 5)
	next.Selected = personas.First().Key
	next.Position = 0
	next.Running = false
	next.LastAgent = ""
	next.LastResponse = ""
	next.Touch(now)
	return next
}

func (s *SessionState) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.Selected == "" {
		return fmt.Errorf("%w: selected agent is empty", contractx.ErrValidation)
	}
	if s.Position < 0 {
		return fmt.Errorf("%w: negative pipeline position", contractx.ErrValidation)
	}
	for agent, thread := range s.Threads {
		for _, m := range thread {
			if m.Agent != agent {
				return fmt.Errorf("%w: message for %s filed under %s", contractx.ErrValidation, m.Agent, agent)
			}
		}
	}
	return nil
}

func (s *SessionState) appendMessage(m Message) {
	s.EnsureThreads()
	s.Threads[m.Agent] = append(s.Threads[m.Agent], m)
}

func (s SessionState) clone() SessionState {
	out := s
	out.Threads = make(map[contractx.AgentKey][]Message, len(s.Threads))
	for k, v := range s.Threads {
		out.Threads[k] = append([]Message(nil), v...)
	}
	return out
}
