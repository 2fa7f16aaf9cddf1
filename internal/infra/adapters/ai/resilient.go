package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*ResilientAI)(nil)

type ResilientOptions struct {
	Provider    string
	Retries     uint64
	CallTimeout time.Duration
	// consecutive failures that open the breaker
	Failures uint32
	Cooldown time.Duration
}

// ResilientAI retries transient backend failures with exponential backoff
// behind a circuit breaker. Errors that survive are classified as
// domain.ErrBackendUnavailable.
type ResilientAI struct {
	inner   adapter.AIServiceAdapter
	breaker *gobreaker.CircuitBreaker
	opts    ResilientOptions
	log     *zerolog.Logger
	// newBackOff is swapped in tests
	newBackOff func() backoff.BackOff
}

func NewResilientAI(inner adapter.AIServiceAdapter, opts ResilientOptions, logger *zerolog.Logger) *ResilientAI {
	if opts.Failures == 0 {
		opts.Failures = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &ResilientAI{inner: inner, opts: opts, log: logger}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ai-" + opts.Provider,
		Timeout: opts.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.Failures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("ai breaker state change")
			metrics.SetBreakerState(opts.Provider, int(to))
		},
	})
	r.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 250 * time.Millisecond
		b.MaxInterval = 4 * time.Second
		return b
	}
	return r
}

func (r *ResilientAI) ListModels(ctx context.Context) ([]string, error) {
	return r.inner.ListModels(ctx)
}

func (r *ResilientAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return r.inner.GetModelInfo(model)
}

func (r *ResilientAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return r.inner.CountTokens(ctx, model, messages)
}

func (r *ResilientAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := r.ChatWithUsage(ctx, model, messages)
	return reply, err
}

type chatResult struct {
	reply string
	usage adapter.Usage
}

func (r *ResilientAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	var (
		out     chatResult
		attempt int
	)
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.IncAIRetry(r.opts.Provider)
		}
		res, err := r.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := r.callContext(ctx)
			defer cancel()

			start := time.Now()
			reply, u, err := r.inner.ChatWithUsage(callCtx, model, messages)
			metrics.ObserveChatUsage(r.opts.Provider, model, u.PromptTokens, u.CompletionTokens, u.TotalTokens,
				int(time.Since(start).Milliseconds()), err == nil)
			if err != nil {
				return nil, err
			}
			return chatResult{reply: reply, usage: u}, nil
		})
		switch {
		case err == nil:
			out = res.(chatResult)
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(err)
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		}
		r.log.Debug().Err(err).Int("attempt", attempt).Str("provider", r.opts.Provider).Msg("ai call failed")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.opts.Retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return "", adapter.Usage{}, ctx.Err()
		}
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return "", adapter.Usage{}, err
		}
		return "", adapter.Usage{}, fmt.Errorf("%w: %s: %v", domain.ErrBackendUnavailable, r.opts.Provider, err)
	}
	return out.reply, out.usage, nil
}

func (r *ResilientAI) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}
