package repository

import (
	"context"
	"time"
)

// Locker serializes writes per key. The returned token must be passed to Unlock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// ArtifactStore keeps a copy of a job's files outside the primary store.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ArtifactReader reads an archived file back; a missing key is
// domain.ErrNotFound.
type ArtifactReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}
