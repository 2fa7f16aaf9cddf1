package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
	"code-translator/internal/infra/db"
)

var _ repository.JobRepository = (*jobRepo)(nil)

const uniqueViolation = "23505"

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Record(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO jobs (` + db.Columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11);`

	_, err := execSQL(ctx, r.pool, tx, q, db.RowOf(job).Args()...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: job %s", domain.ErrAlreadyExists, job.ID)
	}
	return err
}

func (r *jobRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Job, error) {
	const q = `SELECT ` + db.Columns + ` FROM jobs
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, limit, offset)
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

func (r *jobRepo) Get(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	const q = `SELECT ` + db.Columns + ` FROM jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return j, err
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		r      db.JobRow
		cases  string
		report *string
	)
	err := row.Scan(&r.ID, &r.SourceLang, &r.TargetLang, &r.FunctionName, &r.SourceCode, &r.TranslatedCode,
		&r.ParamCount, &cases, &report, &r.Verified, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	r.TestCases = []byte(cases)
	if report != nil {
		r.Report = []byte(*report)
	}
	return r.Job()
}
