package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient full-text search on session topics and turn
// dialogue, which the migration files leave out because CREATE INDEX with
// to_tsvector is easier to evolve outside the versioned schema.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_court_sessions_topic_gin
		ON court_sessions USING gin(to_tsvector('english', topic))`)
	if err != nil {
		return fmt.Errorf("failed to create topic GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_court_turns_dialogue_gin
		ON court_turns USING gin(to_tsvector('english', dialogue))`)
	if err != nil {
		return fmt.Errorf("failed to create dialogue GIN index: %w", err)
	}

	return nil
}
