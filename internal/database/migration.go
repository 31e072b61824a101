package database

import (
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so the server can run them on every start.
func Migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			scheduled_at TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			user_timezone TEXT NOT NULL DEFAULT '',
			original_scheduled_time TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_due
			ON posts (scheduled_at) WHERE status = 'scheduled'`,
		`CREATE TABLE IF NOT EXISTS scheduler_executions (
			execution_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			posts_processed INT NOT NULL DEFAULT 0,
			posts_published INT NOT NULL DEFAULT 0,
			error_count INT NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduler_executions_started_at
			ON scheduler_executions (started_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
