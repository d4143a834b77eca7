// Package persona holds the fixed, ordered table of pipeline agents.
package persona

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

type Agent struct {
	Key     contractx.AgentKey `json:"key" yaml:"key"`
	Name    string             `json:"name" yaml:"name"`
	Stage   string             `json:"stage" yaml:"stage"`
	Role    string             `json:"role" yaml:"role"`
	Mission string             `json:"mission" yaml:"mission"`
}

// Registry is an immutable lookup over the five pipeline agents.
type Registry struct {
	agents []Agent
	index  map[contractx.AgentKey]int
}

var defaultAgents = []Agent{
	{
		Key:   contractx.AgentStrata,
		Name:  "STRATA",
		Stage: "research",
		Role:  "Strategic Research Analyst",
		Mission: "You map markets, industries and ecosystems. Identify the key players, value chains, " +
			"policy drivers, capital flows and structural trends, and separate established facts from " +
			"emerging signals so the sourcing stage knows where to look.",
	},
	{
		Key:   contractx.AgentDealhawk,
		Name:  "DEALHAWK",
		Stage: "sourcing",
		Role:  "Deal Sourcing Specialist",
		Mission: "You turn research into a concrete pipeline of opportunities. Surface candidate companies, " +
			"assets or partners, explain why each fits the thesis, flag ownership and transaction signals, " +
			"and rank the shortlist by attractiveness and accessibility.",
	},
	{
		Key:   contractx.AgentNeo,
		Name:  "NEO",
		Stage: "modeling",
		Role:  "Financial Modeling Lead",
		Mission: "You build the numbers behind the shortlist. Lay out revenue drivers, cost structure, " +
			"capital needs, valuation ranges and scenario sensitivities, and state every assumption " +
			"explicitly so it can be challenged.",
	},
	{
		Key:   contractx.AgentProforma,
		Name:  "PROFORMA",
		Stage: "critical review",
		Role:  "Critical Review Partner",
		Mission: "You stress-test the model and the thesis. Challenge assumptions, find missing risks, " +
			"compare against base rates and comparable transactions, and give a clear verdict on what " +
			"survives scrutiny and what must change.",
	},
	{
		Key:   contractx.AgentCipher,
		Name:  "CIPHER",
		Stage: "governance assembly",
		Role:  "Governance and Decision Architect",
		Mission: "You assemble the final decision package. Consolidate the upstream findings into an " +
			"investment-committee ready brief with recommendation, conditions, risk mitigations, " +
			"governance requirements and an execution timeline.",
	},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := newRegistry(defaultAgents)
	if err != nil {
		panic(err)
	}
	return r
}

func newRegistry(agents []Agent) (*Registry, error) {
	r := &Registry{
		agents: make([]Agent, len(agents)),
		index:  make(map[contractx.AgentKey]int, len(agents)),
	}
	copy(r.agents, agents)
	for i, a := range r.agents {
		if _, dup := r.index[a.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate agent %q", contractx.ErrValidation, a.Key)
		}
		r.index[a.Key] = i
	}
	return r, nil
}

// Normalize maps user input onto an agent key without checking membership.
func Normalize(key string) contractx.AgentKey {
	return contractx.AgentKey(strings.ToLower(strings.TrimSpace(key)))
}

func (r *Registry) Lookup(key string) (Agent, error) {
	k := Normalize(key)
	i, ok := r.index[k]
	if !ok {
		return Agent{}, fmt.Errorf("%w %q (valid: %s)", contractx.ErrUnknownAgent, key, strings.Join(r.Keys(), ", "))
	}
	return r.agents[i], nil
}

func (r *Registry) Has(key contractx.AgentKey) bool {
	_, ok := r.index[key]
	return ok
}

// Order returns the agents in pipeline order.
func (r *Registry) Order() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.agents))
	for _, a := range r.agents {
		keys = append(keys, string(a.Key))
	}
	return keys
}

// Position returns the pipeline index of key, or -1.
func (r *Registry) Position(key contractx.AgentKey) int {
	i, ok := r.index[key]
	if !ok {
		return -1
	}
	return i
}

// Next returns the agent after key. ok is false for the terminal agent and unknown keys.
func (r *Registry) Next(key contractx.AgentKey) (Agent, bool) {
	i, ok := r.index[key]
	if !ok || i+1 >= len(r.agents) {
		return Agent{}, false
	}
	return r.agents[i+1], true
}

func (r *Registry) First() Agent {
	return r.agents[0]
}
