package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

func job(i int, at time.Time) *model.Job {
	return &model.Job{ID: fmt.Sprintf("%02d", i), SourceLang: model.LangPython, TargetLang: model.LangC, FunctionName: "f", SourceCode: "def f(): pass", CreatedAt: at}
}

func TestJobRepo(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// recorded out of order on purpose
	for _, i := range []int{2, 0, 4, 1, 3} {
		require.NoError(t, r.Record(ctx, nil, job(i, base.Add(time.Duration(i)*time.Second))))
	}

	t.Run("duplicate id", func(t *testing.T) {
		err := r.Record(ctx, nil, job(2, base))
		require.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("newest first with paging", func(t *testing.T) {
		all, err := r.List(ctx, nil, 10, 0)
		require.NoError(t, err)
		var ids []string
		for _, j := range all {
			ids = append(ids, j.ID)
		}
		require.Equal(t, []string{"04", "03", "02", "01", "00"}, ids)

		page, err := r.List(ctx, nil, 2, 3)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, "01", page[0].ID)

		empty, err := r.List(ctx, nil, 2, 9)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("get", func(t *testing.T) {
		j, err := r.Get(ctx, nil, "03")
		require.NoError(t, err)
		require.Equal(t, "f", j.FunctionName)

		_, err = r.Get(ctx, nil, "nope")
		require.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("stored jobs are not aliased", func(t *testing.T) {
		j := job(9, base)
		require.NoError(t, r.Record(ctx, nil, j))
		j.FunctionName = "changed"
		got, _ := r.Get(ctx, nil, "09")
		require.Equal(t, "f", got.FunctionName)
	})

	t.Run("cases and report are copied", func(t *testing.T) {
		c := model.TestCase{Args: []model.Value{model.Int(12), model.Int(18)}, Expected: model.Succeeded(model.Int(6)), Got: model.Succeeded(model.Int(6)), OK: true}
		j := job(8, base)
		j.TranslatedCode = "long long f(void) { return 0; }"
		j.TestCases = []model.TestCase{c}
		j.Report = &model.Report{Passed: 1, Total: 1, PassRate: 1, Cases: []model.TestCase{c}}
		j.Verified = true
		require.NoError(t, r.Record(ctx, nil, j))

		j.TestCases[0].Args[0] = model.Int(99)
		j.TestCases = append(j.TestCases, c)
		j.Report.Cases[0].OK = false
		j.Report.Cases[0].Args[1] = model.Int(0)
		j.Report.Passed = 0

		got, err := r.Get(ctx, nil, "08")
		require.NoError(t, err)
		require.Len(t, got.TestCases, 1)
		n, _ := got.TestCases[0].Args[0].Int()
		require.Equal(t, int64(12), n)
		require.Equal(t, 1, got.Report.Passed)
		require.True(t, got.Report.Cases[0].OK)
		n, _ = got.Report.Cases[0].Args[1].Int()
		require.Equal(t, int64(18), n)

		got.Report.Cases[0].Args[0] = model.Int(-1)
		again, err := r.Get(ctx, nil, "08")
		require.NoError(t, err)
		n, _ = again.Report.Cases[0].Args[0].Int()
		require.Equal(t, int64(12), n)
	})

	t.Run("invalid job", func(t *testing.T) {
		bad := job(7, base)
		bad.Verified = true
		require.ErrorIs(t, r.Record(ctx, nil, bad), domain.ErrInvalidArgument)
	})
}
