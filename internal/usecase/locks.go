package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/repository"
)

var _ repository.Locker = (*LocalLocker)(nil)

// LocalLocker is the in-process Locker used when no Redis is configured.
// TryLock waits for the key while ctx allows; ttl is not enforced because a
// holder cannot outlive the process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]*hold
	seq  uint64
}

type hold struct {
	token string
	done  chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]*hold{}}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, _ time.Duration) (string, error) {
	for {
		l.mu.Lock()
		h, busy := l.held[key]
		if !busy {
			l.seq++
			h = &hold{token: strconv.FormatUint(l.seq, 10), done: make(chan struct{})}
			l.held[key] = h
			l.mu.Unlock()
			return h.token, nil
		}
		l.mu.Unlock()
		select {
		case <-h.done:
		case <-ctx.Done():
			return "", domain.ErrLocked
		}
	}
}

// Unlock releases key if token still owns it.
func (l *LocalLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.token == token {
		close(h.done)
		delete(l.held, key)
	}
	return nil
}
