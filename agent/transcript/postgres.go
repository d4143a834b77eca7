package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

var _ Store = (*PostgresStore)(nil)

type exchangeRow struct {
	bun.BaseModel `bun:"table:sentinel_exchanges,alias:ex"`

	ID        string    `bun:"id,pk"`
	SessionID string    `bun:"session_id,notnull"`
	Agent     string    `bun:"agent,notnull"`
	Query     string    `bun:"query,notnull"`
	Reply     string    `bun:"reply,notnull"`
	Summary   string    `bun:"summary"`
	Insights  string    `bun:"insights"`
	NextSteps string    `bun:"next_steps"`
	Parsed    bool      `bun:"parsed,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func toRow(ex contractx.Exchange) exchangeRow {
	return exchangeRow{
		ID:        ex.ID,
		SessionID: ex.SessionID,
		Agent:     string(ex.Agent),
		Query:     ex.Query,
		Reply:     ex.Reply,
		Summary:   ex.Handoff.Summary,
		Insights:  ex.Handoff.Insights,
		NextSteps: ex.Handoff.NextSteps,
		Parsed:    ex.Parsed,
		CreatedAt: ex.CreatedAt.UTC(),
	}
}

func (r exchangeRow) exchange() contractx.Exchange {
	return contractx.Exchange{
		ID:        r.ID,
		SessionID: r.SessionID,
		Agent:     contractx.AgentKey(r.Agent),
		Query:     r.Query,
		Reply:     r.Reply,
		Handoff: contractx.Handoff{
			Summary:   r.Summary,
			Insights:  r.Insights,
			NextSteps: r.NextSteps,
		},
		Parsed:    r.Parsed,
		CreatedAt: r.CreatedAt,
	}
}

// PostgresStore writes exchanges to the sentinel_exchanges table.
type PostgresStore struct {
	db *bun.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*exchangeRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("transcript: create table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*exchangeRow)(nil)).
		Index("sentinel_exchanges_agent_created_idx").
		Column("agent", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("transcript: create index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, ex contractx.Exchange) error {
	row := toRow(ex)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("transcript: insert exchange %s: %w", ex.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, agent contractx.AgentKey, limit int) ([]contractx.Exchange, error) {
	var rows []exchangeRow
	q := s.db.NewSelect().
		Model(&rows).
		Order("created_at DESC").
		Limit(normalizeLimit(limit))
	if agent != "" {
		q = q.Where("agent = ?", string(agent))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("transcript: list exchanges: %w", err)
	}

	out := make([]contractx.Exchange, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.exchange())
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
