//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
)

func sampleJob(i int, at time.Time) *model.Job {
	cases := []model.TestCase{
		{Args: model.Ints(12, 18), Expected: model.Succeeded(model.Int(6)), Got: model.Succeeded(model.Int(6)), OK: true},
		{Args: model.Ints(0, 0), Expected: model.Succeeded(model.Int(0)), Got: model.Failed(domain.KindRuntimeFailure, "division by zero")},
	}
	return &model.Job{
		ID: fmt.Sprintf("job-%02d", i), SourceLang: model.LangPython, TargetLang: model.LangC,
		FunctionName: "gcd", SourceCode: "def gcd(a, b): ...", TranslatedCode: "long long gcd(long long a, long long b) {}",
		ParamCount: 2, TestCases: cases, Verified: true,
		Report:    &model.Report{Passed: 1, Total: 2, PassRate: 0.5, Cases: cases},
		CreatedAt: at,
	}
}

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewJobRepo(testPool)
	tm := NewTxManager(testPool)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("should record and read back a job", func(t *testing.T) {
		cleanup(t)
		job := sampleJob(1, base)
		if err := repo.Record(ctx, nil, job); err != nil {
			t.Fatalf("record: %v", err)
		}
		got, err := repo.Get(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Report == nil || got.Report.Passed != 1 || len(got.TestCases) != 2 {
			t.Fatalf("unexpected job: %+v", got)
		}
		if got.Report.Cases[1].Got.String() != "RuntimeFailure: division by zero" {
			t.Errorf("failure marker lost: %s", got.Report.Cases[1].Got)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("created_at = %v", got.CreatedAt)
		}
	})

	t.Run("should refuse a second record with the same id", func(t *testing.T) {
		cleanup(t)
		job := sampleJob(2, base)
		if err := repo.Record(ctx, nil, job); err != nil {
			t.Fatal(err)
		}
		err := repo.Record(ctx, nil, job)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should list newest first", func(t *testing.T) {
		cleanup(t)
		for i := 0; i < 5; i++ {
			if err := repo.Record(ctx, nil, sampleJob(i, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatal(err)
			}
		}
		jobs, err := repo.List(ctx, nil, 3, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 3 || jobs[0].ID != "job-03" || jobs[2].ID != "job-01" {
			t.Fatalf("unexpected page: %v %v %v", jobs[0].ID, jobs[1].ID, jobs[2].ID)
		}
	})

	t.Run("should report a missing job", func(t *testing.T) {
		_, err := repo.Get(ctx, nil, "missing")
		if !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("should roll back with the transaction", func(t *testing.T) {
		cleanup(t)
		boom := errors.New("boom")
		err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Record(ctx, tx, sampleJob(9, base)); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := repo.Get(ctx, nil, "job-09"); !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("rolled back job is visible: %v", err)
		}
	})
}
