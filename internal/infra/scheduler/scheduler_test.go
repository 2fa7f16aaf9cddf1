package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	var runs int32
	s := NewScheduler("test", 5*time.Millisecond, RunnerFunc(func(context.Context) (int, error) {
		n := atomic.AddInt32(&runs, 1)
		if n%2 == 0 {
			return 0, errors.New("every other run fails")
		}
		return 1, nil
	}), nil)

	s.Start(context.Background())
	s.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runs) < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if got := atomic.LoadInt32(&runs); got < 3 {
		t.Fatalf("runs = %d, want at least 3", got)
	}
	after := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != after {
		t.Fatalf("runner kept running after Stop: %d -> %d", after, got)
	}
}

func TestSchedulerStopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler("test", time.Hour, RunnerFunc(func(context.Context) (int, error) { return 0, nil }), nil)
	s.Start(ctx)
	cancel()
	s.Stop()
}
