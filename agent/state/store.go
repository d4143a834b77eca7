package state

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

// Store persists front-end sessions between requests.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*UpstashStore)(nil)
)

// MemoryStore keeps sessions in process. Values are copied in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]SessionState, 8)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	st, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	out := st.clone()
	return &out, nil
}

func (m *MemoryStore) Save(_ context.Context, st *SessionState) error {
	if err := prepareSave(st); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[st.SessionID] = st.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// prepareSave normalises st in place before it is written by any store.
func prepareSave(st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if st.Version <= 0 {
		st.Version = 1
	}
	st.EnsureThreads()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st.Validate()
}
