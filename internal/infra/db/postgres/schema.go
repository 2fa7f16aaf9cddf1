package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	source_lang     TEXT NOT NULL,
	target_lang     TEXT NOT NULL,
	function_name   TEXT NOT NULL,
	source_code     TEXT NOT NULL,
	translated_code TEXT NOT NULL DEFAULT '',
	param_count     INTEGER NOT NULL DEFAULT 0,
	test_cases      JSONB NOT NULL DEFAULT '[]',
	report          JSONB,
	verified        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC, id DESC);
`

// Migrate creates the jobs table when missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
