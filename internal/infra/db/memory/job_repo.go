// Package memory is the in-process job store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	mu   sync.RWMutex
	byID map[string]*model.Job
	// newest first
	order []*model.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{byID: map[string]*model.Job{}}
}

func (r *JobRepo) Record(_ context.Context, _ repository.Tx, job *model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	cp := job.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[cp.ID]; ok {
		return fmt.Errorf("%w: job %s", domain.ErrAlreadyExists, cp.ID)
	}
	r.byID[cp.ID] = cp
	i := sort.Search(len(r.order), func(i int) bool { return newer(cp, r.order[i]) })
	r.order = append(r.order, nil)
	copy(r.order[i+1:], r.order[i:])
	r.order[i] = cp
	return nil
}

func (r *JobRepo) List(_ context.Context, _ repository.Tx, limit, offset int) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if offset >= len(r.order) {
		return []*model.Job{}, nil
	}
	end := len(r.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*model.Job, 0, end-offset)
	for _, j := range r.order[offset:end] {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (r *JobRepo) Get(_ context.Context, _ repository.Tx, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return j.Clone(), nil
}

// newer orders by creation time, then id; ULIDs break same-instant ties.
func newer(a, b *model.Job) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
