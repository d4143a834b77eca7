package transcript

import (
	"context"
	"sync"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

var _ Store = (*MemoryLog)(nil)

// MemoryLog keeps the newest exchanges in a bounded slice.
type MemoryLog struct {
	mu        sync.Mutex
	capacity  int
	exchanges []contractx.Exchange
}

func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryLog{capacity: capacity}
}

func (m *MemoryLog) Record(_ context.Context, ex contractx.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exchanges = append(m.exchanges, ex)
	if over := len(m.exchanges) - m.capacity; over > 0 {
		m.exchanges = append([]contractx.Exchange(nil), m.exchanges[over:]...)
	}
	return nil
}

// List returns up to limit exchanges, newest first. An empty agent lists all.
func (m *MemoryLog) List(_ context.Context, agent contractx.AgentKey, limit int) ([]contractx.Exchange, error) {
	limit = normalizeLimit(limit)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]contractx.Exchange, 0, min(limit, len(m.exchanges)))
	for i := len(m.exchanges) - 1; i >= 0 && len(out) < limit; i-- {
		ex := m.exchanges[i]
		if agent != "" && ex.Agent != agent {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

func (m *MemoryLog) Close() error {
	return nil
}
