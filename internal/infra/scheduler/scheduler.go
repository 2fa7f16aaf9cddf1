package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Runner is one periodic chore. Run returns how many items it handled.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

type RunnerFunc func(ctx context.Context) (int, error)

func (f RunnerFunc) Run(ctx context.Context) (int, error) { return f(ctx) }

// Scheduler periodically runs a Runner.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	runner   Runner
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler constructs a scheduler that runs r every interval.
// If interval <= 0 it defaults to 1 minute.
func NewScheduler(name string, interval time.Duration, r Runner, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  30 * time.Second,
		runner:   r,
		log:      logger.With().Str("component", name).Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins the loop in a background goroutine; calling it again has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	go s.loop(s.ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	s.log.Debug().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.runner.Run(runCtx)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled run failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("scheduled run done")
	}
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
}
