// Package memory keeps the rolling per-agent conversation memory in process.
package memory

import (
	"context"
	"sync"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

const DefaultMaxTurns = 40

var _ contractx.MemoryStore = (*Store)(nil)

type key struct {
	session string
	agent   contractx.AgentKey
}

// Store is an addressable conversation memory keyed by session and agent.
// Each key holds at most maxTurns turns; older turns are dropped first.
type Store struct {
	mu       sync.Mutex
	maxTurns int
	threads  map[key][]contractx.Turn
}

func New(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		maxTurns: maxTurns,
		threads:  make(map[key][]contractx.Turn, 8),
	}
}

// Recent returns the latest turns, oldest first, as whole (user, assistant)
// pairs: an odd limit is rounded down and the window never opens on a reply.
func (s *Store) Recent(_ context.Context, sessionID string, agent contractx.AgentKey, limit int) ([]contractx.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.threads[key{sessionID, agent}]
	limit -= limit % 2
	if limit <= 0 || len(thread) == 0 {
		return nil, nil
	}
	if len(thread) > limit {
		thread = thread[len(thread)-limit:]
	}
	for len(thread) > 0 && thread[0].Role != contractx.RoleUser {
		thread = thread[1:]
	}
	if len(thread) == 0 {
		return nil, nil
	}
	out := make([]contractx.Turn, len(thread))
	copy(out, thread)
	return out, nil
}

func (s *Store) Append(_ context.Context, sessionID string, agent contractx.AgentKey, turns ...contractx.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{sessionID, agent}
	thread := append(s.threads[k], turns...)
	if len(thread) > s.maxTurns {
		thread = append([]contractx.Turn(nil), thread[len(thread)-s.maxTurns:]...)
	}
	s.threads[k] = thread
	return nil
}

// Reset clears one agent's memory, or every agent of the session when agent is empty.
func (s *Store) Reset(_ context.Context, sessionID string, agent contractx.AgentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent != "" {
		delete(s.threads, key{sessionID, agent})
		return nil
	}
	for k := range s.threads {
		if k.session == sessionID {
			delete(s.threads, k)
		}
	}
	return nil
}
