// Package application assembles the pipeline and its infrastructure from
// configuration. Both binaries share it.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"code-translator/internal/config"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/domain/ports/repository"
	"code-translator/internal/domain/ports/usecase"
	aiAdapters "code-translator/internal/infra/adapters/ai"
	"code-translator/internal/infra/api"
	"code-translator/internal/infra/archive"
	"code-translator/internal/infra/db/memory"
	pg "code-translator/internal/infra/db/postgres"
	"code-translator/internal/infra/db/sqlite"
	red "code-translator/internal/infra/redis"
	"code-translator/internal/infra/scheduler"
	"code-translator/internal/infra/worker"
	"code-translator/internal/sandbox"
	"code-translator/internal/signature"
	"code-translator/internal/testgen"
	"code-translator/internal/translator"
	uc "code-translator/internal/usecase"
	"code-translator/internal/verifier"
)

// App owns every long-lived component; Close releases them in reverse order.
type App struct {
	Config   *config.Config
	Pipeline usecase.Pipeline
	Probes   map[string]api.Probe
	// Limiter is nil without Redis.
	Limiter api.Limiter
	// Artifacts is nil unless archiving is enabled.
	Artifacts repository.ArtifactReader

	closers []func() error
	log     *zerolog.Logger
}

func (a *App) onClose(f func() error) { a.closers = append(a.closers, f) }

// Build wires the configured store, backend, sandbox and optional Redis and
// object storage. On error everything built so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (_ *App, err error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	a := &App{Config: cfg, Probes: map[string]api.Probe{}, log: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// ---- Job store ----
	jobs, tm, err := a.store(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	// ---- Redis (optional) ----
	var (
		locker repository.Locker
		cache  translator.Cache
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.onClose(rc.Close)
		locker = red.NewLocker(rc)
		cache = red.NewTranslationCache(rc, cfg.Redis.TTL)
		a.Limiter = red.NewRateLimiter(rc)
		a.Probes["redis"] = rc.Ping
	}

	// ---- AI backend ----
	ai, err := buildAI(ctx, cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	a.Probes["backend"] = func(context.Context) error {
		if cfg.AI.Provider == "noop" {
			return errors.New("no ai provider configured")
		}
		return nil
	}

	// ---- Sandbox ----
	exec, err := sandbox.New(cfg.Sandbox, logger)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	a.onClose(exec.Close)
	if cfg.Sandbox.Isolation == "docker" {
		a.Probes["sandbox"] = exec.Ping
	}
	slots := worker.NewPool(cfg.Sandbox.Workers, logger)
	slots.Start(ctx)
	a.onClose(func() error { slots.Stop(); return nil })
	sweeper := scheduler.NewScheduler("sandbox-sweep", 10*time.Minute, scheduler.RunnerFunc(func(context.Context) (int, error) {
		return sandbox.Sweep(cfg.Sandbox.WorkDir, 2*cfg.Job.Deadline, time.Now())
	}), logger)
	sweeper.Start(ctx)
	a.onClose(func() error { sweeper.Stop(); return nil })

	// ---- Translator ----
	extractor := signature.New(logger)
	reg := translator.NewRegistry(extractor, exec, logger)
	reg.Register(translator.Any, translator.Any, translator.NewLLM(ai, cfg.AI.Provider, cfg.AI.DefaultModel, cfg.AI.MaxPromptTokens, logger))
	for _, l := range model.Languages {
		reg.Register(l, l, translator.Identity{})
	}
	var tr adapter.Translator = reg
	if cache != nil {
		tr = translator.NewCached(reg, cache, cfg.AI.Provider+"/"+cfg.AI.DefaultModel, logger)
	}

	// ---- Archive (optional) ----
	var archiver uc.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		uploads := worker.NewPool(2, logger)
		uploads.Start(ctx)
		a.onClose(func() error { uploads.Stop(); return nil })
		archiver = worker.NewArchiver(store, uploads, logger)
		a.Artifacts = store
	}

	a.Pipeline = uc.NewTranslationUseCase(uc.Deps{
		Signatures: extractor,
		Cases:      testgen.New(cfg.TestGen),
		Translator: tr,
		Verifier:   verifier.New(exec, slots, cfg.Verify, logger),
		Jobs:       jobs,
		TM:         tm,
		Locker:     locker,
		Archive:    archiver,
	}, cfg.Job, cfg.Redis.LockTTL, logger)

	logger.Info().
		Str("store", cfg.Database.Driver).
		Str("ai_provider", cfg.AI.Provider).
		Str("isolation", cfg.Sandbox.Isolation).
		Bool("redis", cfg.Redis.URL != "").
		Bool("archive", cfg.Archive.Enabled).
		Msg("application assembled")
	return a, nil
}

func (a *App) store(ctx context.Context, cfg config.DatabaseConfig) (repository.JobRepository, repository.TransactionManager, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		a.onClose(func() error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool); err != nil {
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		a.Probes["store"] = pool.Ping
		return pg.NewJobRepo(pool), pg.NewTxManager(pool), nil
	case "sqlite":
		repo, err := sqlite.Open(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		a.onClose(repo.Close)
		a.Probes["store"] = repo.Ping
		return repo, repo, nil
	}
	return memory.NewJobRepo(), nil, nil
}

func buildAI(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	resilient := func(provider string, inner adapter.AIServiceAdapter) adapter.AIServiceAdapter {
		return aiAdapters.NewResilientAI(inner, aiAdapters.ResilientOptions{
			Provider:    provider,
			Retries:     cfg.Retries,
			CallTimeout: cfg.CallTimeout,
			Failures:    cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
		}, logger)
	}
	openAI := func() (adapter.AIServiceAdapter, error) {
		key, base := cfg.OpenAIKey, cfg.OpenAIBaseURL
		if key == "" && cfg.MetisKey != "" {
			key, base = cfg.MetisKey, cfg.MetisBaseURL
		}
		a, err := aiAdapters.NewOpenAIAdapter(key, base, cfg.DefaultModel, 0)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		return resilient("openai", a), nil
	}
	gemini := func() (adapter.AIServiceAdapter, error) {
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.DefaultModel, 0)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		return resilient("gemini", a), nil
	}

	var (
		ai  adapter.AIServiceAdapter
		err error
	)
	switch cfg.Provider {
	case "openai":
		ai, err = openAI()
	case "gemini":
		ai, err = gemini()
	case "multi":
		byProvider := map[string]adapter.AIServiceAdapter{}
		if cfg.OpenAIKey != "" || cfg.MetisKey != "" {
			if byProvider["openai"], err = openAI(); err != nil {
				return nil, err
			}
		}
		if cfg.GeminiKey != "" {
			if byProvider["gemini"], err = gemini(); err != nil {
				return nil, err
			}
		}
		ai = aiAdapters.NewMultiAIAdapter("openai", byProvider, nil)
	default:
		return aiAdapters.NewNoopAIAdapter(), nil
	}
	if err != nil {
		return nil, err
	}
	return aiAdapters.NewLimitedAI(ai, cfg.ConcurrentLimit), nil
}

// Server builds the HTTP layer over the pipeline.
func (a *App) Server() *api.Server {
	opts := api.Options{
		Limiter:        a.Limiter,
		Limit:          a.Config.API.RateLimit,
		Window:         a.Config.API.RateWindow,
		RequestTimeout: a.Config.HTTP.RequestTimeout,
		Probes:         a.Probes,
		Artifacts:      a.Artifacts,
	}
	if a.Config.API.JWTSecret != "" {
		opts.Auth = api.NewAuth(a.Config.API.JWTSecret)
	}
	return api.NewServer(a.Pipeline, opts, a.log)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
