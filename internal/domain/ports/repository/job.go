package repository

import (
	"context"

	"code-translator/internal/domain/model"
)

// JobRepository is the append-only job store.
type JobRepository interface {
	// Record inserts a fully resolved job. A second Record with the same ID
	// fails with domain.ErrAlreadyExists; stored jobs are never updated.
	Record(ctx context.Context, tx Tx, job *model.Job) error
	// List returns jobs newest first.
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Job, error)
	// Get returns domain.ErrJobNotFound when the id is unknown.
	Get(ctx context.Context, tx Tx, id string) (*model.Job, error)
}
