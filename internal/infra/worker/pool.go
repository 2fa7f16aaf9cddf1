// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"code-translator/internal/infra/metrics"
)

// Pool is the fixed set of sandbox workers shared by every job. Do blocks
// the caller until a worker has run its task; Submit queues background work
// (artifact archival) and drops it when the queue is full.

type Task func(ctx context.Context) error

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue full")
)

type request struct {
	ctx  context.Context
	task Task
	done chan error // nil for fire-and-forget
}

type Pool struct {
	wg    sync.WaitGroup
	calls chan request // unbuffered: a successful send means a worker owns the task
	jobs  chan request
	quit  chan struct{}
	n     int
	log   *zerolog.Logger

	stopOnce sync.Once
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{calls: make(chan request), jobs: make(chan request, workers*4), quit: make(chan struct{}), n: workers, log: logger}
}

// Size is the number of workers.
func (p *Pool) Size() int { return p.n }

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case r := <-p.calls:
					p.run(id, r)
				case r := <-p.jobs:
					p.run(id, r)
				}
			}
		}(i)
	}
}

func (p *Pool) run(id int, r request) {
	if r.ctx.Err() != nil {
		if r.done != nil {
			r.done <- r.ctx.Err()
		}
		return
	}
	metrics.AddPoolBusy(1)
	err := r.task(r.ctx)
	metrics.AddPoolBusy(-1)
	if r.done != nil {
		r.done <- err
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("background task failed")
	}
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Do runs task on a pool worker and waits for it. It returns ctx.Err() when
// no worker frees up before ctx ends; once started, the task itself is
// expected to honour ctx.
func (p *Pool) Do(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	r := request{ctx: ctx, task: task, done: make(chan error, 1)}
	select {
	case p.calls <- r:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolStopped
	}
	return <-r.done
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	select {
	case p.jobs <- request{ctx: context.Background(), task: task}:
		return nil
	default:
		// drop when saturated rather than block the request path
		return ErrQueueFull
	}
}
