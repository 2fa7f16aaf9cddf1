package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code-translator/internal/domain"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	tok, err := l.TryLock(ctx, "job:a", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.TryLock(short, "job:a", time.Second)
	require.ErrorIs(t, err, domain.ErrLocked)

	// other keys are independent
	other, err := l.TryLock(ctx, "job:b", time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Unlock(ctx, "job:b", other))

	// a foreign token leaves the holder in place
	require.NoError(t, l.Unlock(ctx, "job:a", "bogus"))

	got := make(chan string, 1)
	go func() {
		tok2, err := l.TryLock(ctx, "job:a", time.Second)
		if err == nil {
			got <- tok2
		}
	}()
	select {
	case <-got:
		t.Fatal("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, l.Unlock(ctx, "job:a", tok))
	select {
	case tok2 := <-got:
		require.NotEqual(t, tok, tok2)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestIDGeneratorMonotonic(t *testing.T) {
	g := NewIDGenerator()
	now := time.Now()
	prev := g.New(now)
	require.Len(t, prev, 26)
	for i := 0; i < 100; i++ {
		id := g.New(now)
		require.Greater(t, id, prev)
		prev = id
	}
}
