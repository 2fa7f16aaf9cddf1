// Package verifier runs the source and the translated function side by side
// over a set of test cases and judges every case.
package verifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/worker"
	"code-translator/internal/report"
)

// Slots hands out sandbox capacity shared across jobs.
type Slots interface {
	Do(ctx context.Context, task worker.Task) error
}

// Input is one verification run.
type Input struct {
	SourceLang model.Language
	TargetLang model.Language
	SourceCode string
	TargetCode string
	SourceSig  model.Signature
	TargetSig  model.Signature
	Cases      []model.TestCase
}

type Verifier struct {
	exec        adapter.Executor
	slots       Slots
	policy      Policy
	parallelism int
	log         *zerolog.Logger
}

// New builds a verifier. A nil slots runs executions directly.
func New(exec adapter.Executor, slots Slots, cfg config.VerifyConfig, logger *zerolog.Logger) *Verifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	n := cfg.Parallelism
	if n <= 0 {
		n = 1
	}
	return &Verifier{exec: exec, slots: slots, policy: PolicyFrom(cfg), parallelism: n, log: logger}
}

// Verify fills Expected (when missing), Got and OK for every case and builds
// the report. Cases keep their input order whatever order they finish in.
// Per-case failures are folded into the report; when no case ends with a
// value on both sides the partial report is returned with
// domain.ErrVerificationAborted.
func (v *Verifier) Verify(ctx context.Context, in Input) (*model.Report, error) {
	log := logging.With(ctx, v.log)
	defer logging.TraceDuration(log, "verify")()

	cases := make([]model.TestCase, len(in.Cases))
	copy(cases, in.Cases)

	var src adapter.Program
	if needsExpected(cases) {
		p, err := v.prepare(ctx, in.SourceLang, in.SourceCode, in.SourceSig)
		if err != nil {
			return nil, fmt.Errorf("prepare %s source: %w", in.SourceLang, err)
		}
		defer p.Close()
		src = p
	}
	dst, err := v.prepare(ctx, in.TargetLang, in.TargetCode, in.TargetSig)
	if err != nil {
		return nil, fmt.Errorf("prepare %s translation: %w", in.TargetLang, err)
	}
	defer dst.Close()

	ret := in.SourceSig.Return
	if ret == model.TypeUnknown {
		ret = in.TargetSig.Return
	}

	var g errgroup.Group
	g.SetLimit(v.parallelism)
	for i := range cases {
		c := &cases[i]
		g.Go(func() error {
			if c.Expected == nil {
				c.Expected = v.run(ctx, src, c.Args)
			}
			c.Got = v.run(ctx, dst, c.Args)
			c.OK = v.judge(c, ret)
			return nil
		})
	}
	_ = g.Wait()

	rep := report.Build(cases)
	log.Debug().Int("passed", rep.Passed).Int("total", rep.Total).Int("completed", rep.Completed()).Msg("verification finished")
	if rep.Total > 0 && rep.Completed() == 0 {
		return &rep, fmt.Errorf("%w (%s)", domain.ErrVerificationAborted, firstFailure(cases))
	}
	return &rep, nil
}

// prepare builds a program inside a sandbox slot; compilers count against
// the same capacity as invocations.
func (v *Verifier) prepare(ctx context.Context, lang model.Language, code string, sig model.Signature) (adapter.Program, error) {
	if v.slots == nil {
		return v.exec.Prepare(ctx, lang, code, sig)
	}
	var p adapter.Program
	err := v.slots.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = v.exec.Prepare(ctx, lang, code, sig)
		return err
	})
	if err != nil {
		if p != nil {
			_ = p.Close()
		}
		return nil, err
	}
	return p, nil
}

func (v *Verifier) run(ctx context.Context, p adapter.Program, args []model.Value) *model.ExecutionResult {
	if v.slots == nil {
		if ctx.Err() != nil {
			return model.Failed(domain.KindExecutionTimeout, "job deadline reached")
		}
		return p.Invoke(ctx, args)
	}
	var res *model.ExecutionResult
	err := v.slots.Do(ctx, func(ctx context.Context) error {
		res = p.Invoke(ctx, args)
		return nil
	})
	switch {
	case err == nil:
		return res
	case ctx.Err() != nil:
		return model.Failed(domain.KindExecutionTimeout, "job deadline reached")
	default:
		return model.Failed(domain.KindRuntimeFailure, err.Error())
	}
}

func (v *Verifier) judge(c *model.TestCase, ret model.TypeTag) bool {
	want, ok := c.Expected.Value()
	if !ok {
		return false
	}
	got, ok := c.Got.Value()
	if !ok {
		return false
	}
	return v.policy.Equal(want, got, ret)
}

func needsExpected(cases []model.TestCase) bool {
	for _, c := range cases {
		if c.Expected == nil {
			return true
		}
	}
	return false
}

func firstFailure(cases []model.TestCase) string {
	for _, c := range cases {
		if f := c.Got.Failure(); f != nil {
			return "translation: " + f.Marker()
		}
		if f := c.Expected.Failure(); f != nil {
			return "source: " + f.Marker()
		}
	}
	return "no cases"
}
