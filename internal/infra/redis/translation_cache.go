package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"code-translator/internal/translator"
)

var _ translator.Cache = (*TranslationCache)(nil)

// TranslationCache keeps accepted translations for ttl.
type TranslationCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewTranslationCache(client RedisClient, ttl time.Duration) *TranslationCache {
	return &TranslationCache{client: client, ttl: ttl}
}

func (c *TranslationCache) Get(ctx context.Context, key string) (string, bool, error) {
	code, err := c.client.Get(ctx, "translation:"+key)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (c *TranslationCache) Set(ctx context.Context, key, code string) error {
	return c.client.Set(ctx, "translation:"+key, code, c.ttl)
}
