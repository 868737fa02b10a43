package database

import (
	"context"
	"fmt"
	"regexp"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// EnsureSchema creates the item table and the outbox if they are missing.
func (db *DB) EnsureSchema(ctx context.Context, itemTable string) error {
	if !tableName.MatchString(itemTable) {
		return fmt.Errorf("invalid table name: %q", itemTable)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + itemTable + ` (
			vendor_item_id TEXT PRIMARY KEY,
			item_url       TEXT NOT NULL,
			brand          TEXT,
			price_value    NUMERIC(12, 2),
			price_text     TEXT,
			availability   JSONB NOT NULL DEFAULT '{}'::jsonb,
			discontinued   BOOLEAN NOT NULL DEFAULT FALSE,
			data           JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_event (
			id             UUID PRIMARY KEY,
			aggregate_type TEXT NOT NULL CHECK (aggregate_type <> ''),
			aggregate_id   TEXT NOT NULL,
			event_type     TEXT NOT NULL CHECK (event_type <> ''),
			payload        JSONB NOT NULL,
			target_stream  TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			retry_count    INTEGER NOT NULL DEFAULT 0,
			error_message  TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at   TIMESTAMPTZ,
			next_retry_at  TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_event_pending
			ON outbox_event (status, next_retry_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}
