// Package transcript is the audit log of completed agent exchanges. It never
// feeds conversation memory.
package transcript

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

const (
	DefaultCapacity = 500
	DefaultLimit    = 20
)

// Config is decoded with the SENTINEL_TRANSCRIPT prefix.
type Config struct {
	DSN      string `envconfig:"DSN"`
	Capacity int    `envconfig:"CAPACITY" default:"500"`
}

// Store is a TranscriptStore that owns resources.
type Store interface {
	contractx.TranscriptStore
	Close() error
}

// Open returns a Postgres store when a DSN is configured, otherwise an
// in-memory log.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return OpenPostgres(ctx, dsn)
	}
	return NewMemoryLog(cfg.Capacity), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
