package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
)

func sampleJob(i int, at time.Time) *model.Job {
	cases := []model.TestCase{
		{Args: []model.Value{model.Float(0.5), model.String("x")}, Expected: model.Succeeded(model.Set(model.Ints(1, 2)...)), Got: model.Succeeded(model.Set(model.Ints(2, 1)...)), OK: true},
	}
	return &model.Job{
		ID: fmt.Sprintf("j%02d", i), SourceLang: model.LangJava, TargetLang: model.LangPython,
		FunctionName: "f", SourceCode: "static Set<Long> f(double a, String s) {}", TranslatedCode: "def f(a, s): ...",
		ParamCount: 2, TestCases: cases, Verified: true,
		Report:    &model.Report{Passed: 1, Total: 1, PassRate: 1, Cases: cases},
		CreatedAt: at,
	}
}

func TestJobRepo(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(filepath.Join(t.TempDir(), "jobs", "jobs.db"))
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(ctx))

	base := time.Date(2024, 2, 2, 8, 0, 0, 123456789, time.UTC)
	for _, i := range []int{3, 1, 2} {
		require.NoError(t, repo.Record(ctx, nil, sampleJob(i, base.Add(time.Duration(i)*time.Millisecond))))
	}

	t.Run("round trip", func(t *testing.T) {
		j, err := repo.Get(ctx, nil, "j02")
		require.NoError(t, err)
		require.True(t, j.Verified)
		require.True(t, j.CreatedAt.Equal(base.Add(2*time.Millisecond)))
		require.Equal(t, model.KindSet, mustValue(t, j.Report.Cases[0].Got).Kind())
	})

	t.Run("duplicate", func(t *testing.T) {
		require.ErrorIs(t, repo.Record(ctx, nil, sampleJob(1, base)), domain.ErrAlreadyExists)
	})

	t.Run("newest first", func(t *testing.T) {
		jobs, err := repo.List(ctx, nil, 10, 0)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		require.Equal(t, []string{"j03", "j02", "j01"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.Get(ctx, nil, "nope")
		require.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			require.NoError(t, repo.Record(ctx, tx, sampleJob(7, base)))
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = repo.Get(ctx, nil, "j07")
		require.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("unverified job", func(t *testing.T) {
		j := &model.Job{ID: "u1", SourceLang: model.LangC, TargetLang: model.LangGo, FunctionName: "g", SourceCode: "int g();", CreatedAt: base}
		require.NoError(t, repo.Record(ctx, nil, j))
		got, err := repo.Get(ctx, nil, "u1")
		require.NoError(t, err)
		require.Nil(t, got.Report)
		require.False(t, got.Verified)
	})
}

func mustValue(t *testing.T, r *model.ExecutionResult) model.Value {
	t.Helper()
	v, ok := r.Value()
	require.True(t, ok, r.String())
	return v
}
