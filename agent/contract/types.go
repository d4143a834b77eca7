package contract

import "time"

type AgentKey string

const (
	AgentStrata   AgentKey = "strata"
	AgentDealhawk AgentKey = "dealhawk"
	AgentNeo      AgentKey = "neo"
	AgentProforma AgentKey = "proforma"
	AgentCipher   AgentKey = "cipher"
)

// WarningGlyph prefixes replies that carry an error instead of model output.
const WarningGlyph = "⚠️"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of an agent's rolling memory.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Handoff is the structured summary that crosses the agent boundary.
type Handoff struct {
	Summary   string `json:"summary"`
	Insights  string `json:"insights"`
	NextSteps string `json:"next_steps"`
}

type AskRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Agent     AgentKey `json:"agent"`
	Query     string   `json:"query"`
}

type AskResponse struct {
	Agent   AgentKey `json:"agent"`
	Reply   string   `json:"reply"`
	Handoff Handoff  `json:"handoff"`
	// Parsed reports whether Handoff came from a trailing JSON object in the reply.
	Parsed bool `json:"parsed"`
	// Failed is set when Reply carries an embedded model error.
	Failed bool `json:"failed,omitempty"`
}

// Exchange is one completed ask, as recorded by the transcript log.
type Exchange struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Agent     AgentKey  `json:"agent"`
	Query     string    `json:"query"`
	Reply     string    `json:"reply"`
	Handoff   Handoff   `json:"handoff"`
	Parsed    bool      `json:"parsed"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionRequest is one chat-completion call for a single agent.
type CompletionRequest struct {
	System  string
	History []Turn
	Input   string
}
