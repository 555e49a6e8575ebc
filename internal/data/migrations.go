package data

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the job store DDL. Applied idempotently at startup; there is a
// single table so a migration framework would be overhead without benefit.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           UUID PRIMARY KEY,
	filename     TEXT NOT NULL,
	status       TEXT NOT NULL,
	options      JSONB NOT NULL DEFAULT '{}'::jsonb,
	transcript   TEXT,
	summary      TEXT,
	error_detail TEXT,
	degraded     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_updated_at ON jobs (status, updated_at);
`

// RunMigrations applies the schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
