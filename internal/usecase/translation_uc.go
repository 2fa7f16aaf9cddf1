// File: internal/usecase/translation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/domain/ports/repository"
	"code-translator/internal/domain/ports/usecase"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/metrics"
	"code-translator/internal/verifier"
)

// Compile-time check
var _ usecase.Pipeline = (*translationUC)(nil)

type SignatureExtractor interface {
	Extract(ctx context.Context, lang model.Language, code, fn string) (model.Signature, error)
}

type CaseProvider interface {
	Cases(raw []byte, sig model.Signature) ([]model.TestCase, error)
}

type Verifier interface {
	Verify(ctx context.Context, in verifier.Input) (*model.Report, error)
}

// Archiver receives every recorded job; it must not block.
type Archiver interface {
	Enqueue(job *model.Job)
}

// Deps groups the collaborators of the pipeline. Locker, TM and Archive are
// optional.
type Deps struct {
	Signatures SignatureExtractor
	Cases      CaseProvider
	Translator adapter.Translator
	Verifier   Verifier
	Jobs       repository.JobRepository
	TM         repository.TransactionManager
	Locker     repository.Locker
	Archive    Archiver
}

type translationUC struct {
	Deps
	ids     *IDGenerator
	cfg     config.JobConfig
	lockTTL time.Duration
	now     func() time.Time
	log     *zerolog.Logger
}

func NewTranslationUseCase(d Deps, cfg config.JobConfig, lockTTL time.Duration, logger *zerolog.Logger) *translationUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 2 * time.Minute
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 25
	}
	return &translationUC{Deps: d, ids: NewIDGenerator(), cfg: cfg, lockTTL: lockTTL, now: time.Now, log: logger}
}

// request is a validated TranslateInput.
type request struct {
	src, dst model.Language
	fn, code string
	sig      model.Signature
}

func (uc *translationUC) prepare(ctx context.Context, in usecase.TranslateInput) (*request, error) {
	src, err := model.ParseLanguage(in.SourceLang)
	if err != nil {
		return nil, fmt.Errorf("source language %q: %w", in.SourceLang, err)
	}
	dst, err := model.ParseLanguage(in.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("target language %q: %w", in.TargetLang, err)
	}
	fn := strings.TrimSpace(in.FunctionName)
	if fn == "" {
		return nil, fmt.Errorf("%w: function_name is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrInvalidArgument)
	}
	sig, err := uc.Signatures.Extract(ctx, src, in.Code, fn)
	if err != nil {
		return nil, err
	}
	if in.ParamCount != nil && *in.ParamCount != sig.Arity() {
		return nil, fmt.Errorf("%w: param_count %d but %s takes %d parameters",
			domain.ErrInvalidTestInput, *in.ParamCount, fn, sig.Arity())
	}
	return &request{src: src, dst: dst, fn: fn, code: in.Code, sig: sig}, nil
}

func (uc *translationUC) translate(ctx context.Context, r *request) (string, error) {
	return uc.Translator.Translate(ctx, adapter.TranslationRequest{
		SourceLang:   r.src,
		TargetLang:   r.dst,
		FunctionName: r.fn,
		Code:         r.code,
		Signature:    r.sig,
	})
}

// Translate translates without verifying and records an unverified job.
func (uc *translationUC) Translate(ctx context.Context, in usecase.TranslateInput) (res *usecase.TranslateResult, err error) {
	defer func() { metrics.IncJob("translate", status(err)) }()
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Deadline)
	defer cancel()
	ctx = logging.WithPair(ctx, in.SourceLang, in.TargetLang)

	r, err := uc.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	code, err := uc.translate(ctx, r)
	if err != nil {
		return nil, err
	}

	job, err := model.NewJob(uc.ids.New(uc.now()), r.src, r.dst, r.fn, r.code, uc.now())
	if err != nil {
		return nil, err
	}
	job.TranslatedCode = code
	job.ParamCount = r.sig.Arity()
	if err := uc.record(ctx, job); err != nil {
		return nil, err
	}
	return &usecase.TranslateResult{JobID: job.ID, TranslatedCode: code}, nil
}

// TranslateAndVerify translates, runs both functions over the test cases and
// records the verified job. Malformed explicit inputs fail before anything
// is translated; per-case failures only lower the pass rate.
func (uc *translationUC) TranslateAndVerify(ctx context.Context, in usecase.TranslateInput) (res *usecase.TranslateResult, err error) {
	defer func() { metrics.IncJob("verify", status(err)) }()
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Deadline)
	defer cancel()
	ctx = logging.WithPair(ctx, in.SourceLang, in.TargetLang)

	r, err := uc.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	cases, err := uc.Cases.Cases(in.Inputs, r.sig)
	if err != nil {
		return nil, err
	}
	code, err := uc.translate(ctx, r)
	if err != nil {
		return nil, err
	}
	tsig, err := uc.Signatures.Extract(ctx, r.dst, code, r.fn)
	if err != nil {
		// the translator validated this already; a miss here is its bug
		return nil, fmt.Errorf("%w: %v", domain.ErrTranslationFailed, err)
	}

	id := uc.ids.New(uc.now())
	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, uc.log)

	rep, err := uc.Verifier.Verify(ctx, verifier.Input{
		SourceLang: r.src,
		TargetLang: r.dst,
		SourceCode: r.code,
		TargetCode: code,
		SourceSig:  r.sig,
		TargetSig:  tsig,
		Cases:      cases,
	})
	if err != nil {
		log.Warn().Err(err).Msg("verification failed")
		return nil, err
	}
	metrics.ObservePassRate(rep.PassRate)

	job, err := model.NewJob(id, r.src, r.dst, r.fn, r.code, uc.now())
	if err != nil {
		return nil, err
	}
	job.TranslatedCode = code
	job.ParamCount = r.sig.Arity()
	job.TestCases = rep.Cases
	job.Report = rep
	job.Verified = true
	if err := uc.record(ctx, job); err != nil {
		return nil, err
	}
	log.Info().Int("passed", rep.Passed).Int("total", rep.Total).Msg("job verified")
	return &usecase.TranslateResult{JobID: job.ID, TranslatedCode: code, Report: rep}, nil
}

// record stores job once under its per-id lock. It runs detached from the
// job deadline so a partial report that used up the budget is still kept.
func (uc *translationUC) record(ctx context.Context, job *model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	key := "job:" + job.ID
	token, err := uc.Locker.TryLock(ctx, key, uc.lockTTL)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() { _ = uc.Locker.Unlock(ctx, key, token) }()

	write := func(ctx context.Context, tx repository.Tx) error { return uc.Jobs.Record(ctx, tx, job) }
	if uc.TM != nil {
		err = uc.TM.WithTx(ctx, write)
	} else {
		err = write(ctx, repository.NoTX)
	}
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	if uc.Archive != nil {
		uc.Archive.Enqueue(job)
	}
	return nil
}

// History lists recorded jobs newest first. limit falls back to the
// configured page size and is capped by the configured maximum.
func (uc *translationUC) History(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = uc.cfg.HistoryLimit
	}
	if uc.cfg.HistoryMax > 0 && limit > uc.cfg.HistoryMax {
		limit = uc.cfg.HistoryMax
	}
	if offset < 0 {
		offset = 0
	}
	return uc.Jobs.List(ctx, repository.NoTX, limit, offset)
}

func (uc *translationUC) GetJob(ctx context.Context, id string) (*model.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrJobNotFound
	}
	job, err := uc.Jobs.Get(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return job, err
}

func status(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
