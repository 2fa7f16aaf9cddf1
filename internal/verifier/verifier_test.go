package verifier

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/worker"
	"code-translator/internal/sandbox"
	"code-translator/internal/signature"
	"code-translator/internal/testgen"
)

var policy = Policy{AbsEpsilon: 1e-9, RelEpsilon: 1e-6}

func TestPolicyEqual(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		a, b model.Value
		ret  model.TypeTag
		want bool
	}{
		{"ints", model.Int(6), model.Int(6), model.TypeInteger, true},
		{"ints differ", model.Int(6), model.Int(7), model.TypeInteger, false},
		{"relative float", model.Float(1e10), model.Float(1e10 + 1), model.TypeFloat, true},
		{"absolute float", model.Float(0), model.Float(1e-12), model.TypeFloat, true},
		{"float too far", model.Float(1), model.Float(1.001), model.TypeFloat, false},
		{"int vs float", model.Int(2), model.Float(2.0), model.TypeUnknown, true},
		{"nan", model.Float(nan), model.Float(nan), model.TypeFloat, true},
		{"nan vs number", model.Float(nan), model.Float(0), model.TypeFloat, false},
		{"inf", model.Float(math.Inf(1)), model.Float(math.Inf(1)), model.TypeFloat, true},
		{"inf signs", model.Float(math.Inf(1)), model.Float(math.Inf(-1)), model.TypeFloat, false},
		{"strings", model.String("a"), model.String("a"), model.TypeString, true},
		{"string vs int", model.String("1"), model.Int(1), model.TypeUnknown, false},
		{"bool as int for boolean return", model.Bool(true), model.Int(1), model.TypeBoolean, true},
		{"bool as int otherwise", model.Bool(true), model.Int(1), model.TypeInteger, false},
		{"seq order matters", model.Seq(model.Ints(1, 2)...), model.Seq(model.Ints(2, 1)...), model.TypeSequence, false},
		{"seq equal", model.Seq(model.Ints(1, 2)...), model.Seq(model.Ints(1, 2)...), model.TypeSequence, true},
		{"sets unordered", model.Set(model.Ints(1, 2, 3)...), model.Set(model.Ints(3, 1, 2)...), model.TypeSet, true},
		{"set vs seq for set return", model.Set(model.Ints(1, 2)...), model.Seq(model.Ints(2, 1)...), model.TypeSet, true},
		{"seq vs seq for set return", model.Seq(model.Ints(1, 2)...), model.Seq(model.Ints(2, 1)...), model.TypeSet, true},
		{"set sizes", model.Set(model.Ints(1, 2)...), model.Set(model.Ints(1)...), model.TypeSet, false},
		{"multiset", model.Seq(model.Ints(1, 1, 2)...), model.Seq(model.Ints(1, 2, 2)...), model.TypeSet, false},
		{"maps unordered", model.Map(model.Entry{Key: "a", Value: model.Int(1)}, model.Entry{Key: "b", Value: model.Float(0.5)}),
			model.Map(model.Entry{Key: "b", Value: model.Float(0.5 + 1e-12)}, model.Entry{Key: "a", Value: model.Int(1)}), model.TypeMapping, true},
		{"maps differ", model.Map(model.Entry{Key: "a", Value: model.Int(1)}), model.Map(model.Entry{Key: "a", Value: model.Int(2)}), model.TypeMapping, false},
		{"nested", model.Seq(model.Set(model.Ints(1, 2)...)), model.Seq(model.Set(model.Ints(2, 1)...)), model.TypeSequence, true},
		{"null", model.Null(), model.Null(), model.TypeUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, policy.Equal(tt.a, tt.b, tt.ret))
		})
	}
}

// fakeProgram answers through fn; calls counts invocations.
type fakeProgram struct {
	fn    func(ctx context.Context, args []model.Value) *model.ExecutionResult
	calls int32
}

func (p *fakeProgram) Invoke(ctx context.Context, args []model.Value) *model.ExecutionResult {
	atomic.AddInt32(&p.calls, 1)
	return p.fn(ctx, args)
}

func (p *fakeProgram) Close() error { return nil }

type fakeExecutor struct {
	programs map[model.Language]*fakeProgram
	prepared []model.Language
}

func (e *fakeExecutor) Prepare(_ context.Context, lang model.Language, _ string, _ model.Signature) (adapter.Program, error) {
	e.prepared = append(e.prepared, lang)
	p, ok := e.programs[lang]
	if !ok {
		return nil, domain.ErrUnsupportedLanguage
	}
	return p, nil
}

func (e *fakeExecutor) Languages() []model.Language { return nil }

func double(_ context.Context, args []model.Value) *model.ExecutionResult {
	n, _ := args[0].Int()
	return model.Succeeded(model.Int(2 * n))
}

func input(n int) Input {
	in := Input{
		SourceLang: model.LangPython, TargetLang: model.LangC,
		SourceSig: model.Signature{Name: "f", Params: []model.Param{{Name: "n", Type: model.TypeInteger}}, Return: model.TypeInteger},
	}
	in.TargetSig = in.SourceSig
	for i := 0; i < n; i++ {
		in.Cases = append(in.Cases, model.TestCase{Args: model.Ints(int64(i))})
	}
	return in
}

func TestVerifyKeepsGenerationOrder(t *testing.T) {
	jitter := func(ctx context.Context, args []model.Value) *model.ExecutionResult {
		n, _ := args[0].Int()
		time.Sleep(time.Duration(20-n) * time.Millisecond)
		return double(ctx, args)
	}
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: {fn: double}, model.LangC: {fn: jitter}}}
	pool := worker.NewPool(4, nil)
	pool.Start(context.Background())
	defer pool.Stop()

	rep, err := New(ex, pool, config.VerifyConfig{Parallelism: 8}, nil).Verify(context.Background(), input(20))
	require.NoError(t, err)
	require.Equal(t, 20, rep.Passed)
	for i, c := range rep.Cases {
		n, _ := c.Args[0].Int()
		require.EqualValues(t, i, n)
		require.Equal(t, model.Int(int64(2*i)).String(), c.Got.String())
	}
}

func TestVerifyToleratesSingleFailure(t *testing.T) {
	flaky := func(ctx context.Context, args []model.Value) *model.ExecutionResult {
		if n, _ := args[0].Int(); n == 3 {
			return model.Failed(domain.KindExecutionTimeout, "exceeded 5s")
		}
		return double(ctx, args)
	}
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: {fn: double}, model.LangC: {fn: flaky}}}
	rep, err := New(ex, nil, config.VerifyConfig{Parallelism: 2}, nil).Verify(context.Background(), input(6))
	require.NoError(t, err)
	require.Equal(t, 5, rep.Passed)
	require.Equal(t, 6, rep.Total)
	require.False(t, rep.Cases[3].OK)
	require.Equal(t, "ExecutionTimeout: exceeded 5s", rep.Cases[3].Got.String())
	require.NoError(t, rep.Validate())
}

func TestVerifyUsesExplicitExpectations(t *testing.T) {
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangC: {fn: double}}}
	in := input(2)
	in.Cases[0].Expected = model.Succeeded(model.Int(0))
	in.Cases[1].Expected = model.Succeeded(model.Int(3))

	rep, err := New(ex, nil, config.VerifyConfig{}, nil).Verify(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, []model.Language{model.LangC}, ex.prepared)
	require.True(t, rep.Cases[0].OK)
	require.False(t, rep.Cases[1].OK)
	require.Nil(t, in.Cases[0].Got, "input cases must not be written")
}

func TestVerifyAbortsWhenNothingCompletes(t *testing.T) {
	broken := func(context.Context, []model.Value) *model.ExecutionResult {
		return model.Failed(domain.KindCompileFailure, "prog.c:1: error")
	}
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: {fn: double}, model.LangC: {fn: broken}}}
	rep, err := New(ex, nil, config.VerifyConfig{Parallelism: 2}, nil).Verify(context.Background(), input(3))
	require.ErrorIs(t, err, domain.ErrVerificationAborted)
	require.Contains(t, err.Error(), "CompileFailure")
	require.NotNil(t, rep)
	require.Equal(t, 0, rep.Passed)
	require.Equal(t, domain.KindVerificationAborted, domain.KindOf(err))
}

func TestVerifyDeadlineGivesPartialReport(t *testing.T) {
	slow := func(ctx context.Context, args []model.Value) *model.ExecutionResult {
		select {
		case <-time.After(40 * time.Millisecond):
			return double(ctx, args)
		case <-ctx.Done():
			return model.Failed(domain.KindExecutionTimeout, "job deadline reached")
		}
	}
	src := &fakeProgram{fn: double}
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: src, model.LangC: {fn: slow}}}
	pool := worker.NewPool(1, nil)
	pool.Start(context.Background())
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	rep, err := New(ex, pool, config.VerifyConfig{Parallelism: 1}, nil).Verify(ctx, input(10))
	require.NoError(t, err)
	require.Equal(t, 10, rep.Total)
	require.Greater(t, rep.Passed, 0)
	require.Less(t, rep.Passed, 10)
	last := rep.Cases[9]
	require.False(t, last.OK)
	require.Equal(t, domain.KindExecutionTimeout, last.Got.Failure().Kind)
}

func TestVerifyPrepareError(t *testing.T) {
	ex := &fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: {fn: double}}}
	_, err := New(ex, nil, config.VerifyConfig{}, nil).Verify(context.Background(), input(1))
	require.True(t, errors.Is(err, domain.ErrUnsupportedLanguage))
}

const pyGCD = `def gcd(a, b):
    while b:
        a, b = b, a % b
    return abs(a)
`

const cGCD = `long long gcd(long long a, long long b) {
    while (b != 0) {
        long long t = a % b;
        a = b;
        b = t;
    }
    return a < 0 ? -a : a;
}
`

func TestVerifyPythonAgainstC(t *testing.T) {
	for _, tool := range []string{"python3", "gcc"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}
	ctx := context.Background()
	cfg := config.Default()
	ex := sandbox.NewWithIsolator(cfg.Sandbox, sandbox.NewProcessIsolator(cfg.Sandbox.OutputLimit), nil)
	defer ex.Close()

	sigs := signature.New(nil)
	srcSig, err := sigs.Extract(ctx, model.LangPython, pyGCD, "gcd")
	require.NoError(t, err)
	dstSig, err := sigs.Extract(ctx, model.LangC, cGCD, "gcd")
	require.NoError(t, err)
	cases, err := testgen.New(cfg.TestGen).Cases(nil, srcSig)
	require.NoError(t, err)

	in := Input{SourceLang: model.LangPython, TargetLang: model.LangC, SourceCode: pyGCD, TargetCode: cGCD, SourceSig: srcSig, TargetSig: dstSig, Cases: cases}
	rep, err := New(ex, nil, cfg.Verify, nil).Verify(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 4, rep.Total)
	require.Equal(t, rep.Total, rep.Passed, "%+v", rep.Cases)
	require.Equal(t, 1.0, rep.PassRate)
	for i, want := range []string{"5", "5", "2", "6"} {
		require.Equal(t, want, rep.Cases[i].Expected.String())
	}
}

// countingSlots runs tasks inline and marks their context.
type countingSlots struct{ calls int32 }

type inSlotKey struct{}

func (s *countingSlots) Do(ctx context.Context, task worker.Task) error {
	atomic.AddInt32(&s.calls, 1)
	return task(context.WithValue(ctx, inSlotKey{}, true))
}

// slotExecutor records whether Prepare ran while holding a slot.
type slotExecutor struct {
	fakeExecutor
	outside int32
}

func (e *slotExecutor) Prepare(ctx context.Context, lang model.Language, code string, sig model.Signature) (adapter.Program, error) {
	if ctx.Value(inSlotKey{}) == nil {
		atomic.AddInt32(&e.outside, 1)
	}
	return e.fakeExecutor.Prepare(ctx, lang, code, sig)
}

func TestVerifyPreparesInsideSlots(t *testing.T) {
	ex := &slotExecutor{fakeExecutor: fakeExecutor{programs: map[model.Language]*fakeProgram{model.LangPython: {fn: double}, model.LangC: {fn: double}}}}
	slots := &countingSlots{}
	rep, err := New(ex, slots, config.VerifyConfig{Parallelism: 2}, nil).Verify(context.Background(), input(3))
	require.NoError(t, err)
	require.Equal(t, 3, rep.Passed)
	require.Zero(t, atomic.LoadInt32(&ex.outside))
	// two prepares plus a source and a translated run per case
	require.EqualValues(t, 2+2*3, atomic.LoadInt32(&slots.calls))
}
