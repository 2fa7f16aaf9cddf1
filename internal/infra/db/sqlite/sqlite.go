// Package sqlite is the single-node job store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
	"code-translator/internal/infra/db"
)

var (
	_ repository.JobRepository      = (*JobRepo)(nil)
	_ repository.TransactionManager = (*JobRepo)(nil)
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
	test_cases      TEXT NOT NULL DEFAULT '[]',
	report          TEXT,
	verified        INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC, id DESC);
`

// JobRepo stores jobs in one SQLite file. created_at is kept as unix
// nanoseconds so ordering is numeric.
type JobRepo struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path; ":memory:" works
// for tests.
func Open(path string) (*JobRepo, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &JobRepo{db: conn}, nil
}

func (r *JobRepo) Close() error { return r.db.Close() }

func (r *JobRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// WithTx runs fn inside one transaction; the handle is a *sql.Tx.
func (r *JobRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *JobRepo) exec(tx repository.Tx) (querier, error) {
	switch v := tx.(type) {
	case nil:
		return r.db, nil
	case *sql.Tx:
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func (r *JobRepo) Record(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	q, err := r.exec(tx)
	if err != nil {
		return err
	}
	args := db.RowOf(job).Args()
	args[9] = boolInt(job.Verified)
	args[10] = job.CreatedAt.UTC().UnixNano()
	_, err = q.ExecContext(ctx, `INSERT INTO jobs (`+db.Columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	var se *sqlite.Error
	if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
		return fmt.Errorf("%w: job %s", domain.ErrAlreadyExists, job.ID)
	}
	return err
}

func (r *JobRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Job, error) {
	q, err := r.exec(tx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT `+db.Columns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Job, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepo) Get(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	q, err := r.exec(tx)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(q.QueryRowContext(ctx, `SELECT `+db.Columns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return j, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*model.Job, error) {
	var (
		r        db.JobRow
		cases    string
		report   sql.NullString
		verified int
		created  int64
	)
	err := s.Scan(&r.ID, &r.SourceLang, &r.TargetLang, &r.FunctionName, &r.SourceCode, &r.TranslatedCode,
		&r.ParamCount, &cases, &report, &verified, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	r.TestCases = []byte(cases)
	if report.Valid {
		r.Report = []byte(report.String)
	}
	r.Verified = verified != 0
	r.CreatedAt = time.Unix(0, created).UTC()
	return r.Job()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
