package flush

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flushworks/flushd/pkg/postgres"
)

const createEpisodesTable = `
CREATE TABLE IF NOT EXISTS flush_episodes (
	id UUID PRIMARY KEY,
	location TEXT NOT NULL,
	fired_at TIMESTAMPTZ NOT NULL,
	flush_count BIGINT NOT NULL,
	presence_events BIGINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_flush_episodes_location_fired_at
	ON flush_episodes (location, fired_at);`

const insertEpisode = `
INSERT INTO flush_episodes (id, location, fired_at, flush_count, presence_events)
VALUES ($1, $2, $3, $4, $5)`

// Journal records completed flushes in Postgres as an audit trail. Rows are
// never read back by the agent: counters always restart from zero, the
// journal exists for reporting and maintenance queries.
type Journal struct {
	db     postgres.Client
	logger *slog.Logger
}

// NewJournal creates a journal backed by the given Postgres client
func NewJournal(db postgres.Client, logger *slog.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: logger,
	}
}

// Init creates the episode table if it does not exist
func (j *Journal) Init(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createEpisodesTable); err != nil {
		return fmt.Errorf("failed to create flush episode table: %w", err)
	}
	return nil
}

// RecordFlush inserts one row for a completed flush. The counters are the
// controller's values at the time of firing.
func (j *Journal) RecordFlush(ctx context.Context, location string, firedAt time.Time, m Metrics) error {
	id := uuid.New()

	if _, err := j.db.Exec(ctx, insertEpisode, id, location, firedAt, m.FlushCount, m.PresenceEvents); err != nil {
		return fmt.Errorf("failed to record flush episode: %w", err)
	}

	j.logger.Debug("Recorded flush episode",
		"id", id,
		"location", location,
		"fired_at", firedAt)

	return nil
}
