package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"

	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/metrics"
)

// Cache stores accepted translations by request digest.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, code string) error
}

// Cached memoizes a Translator. Only accepted translations are stored, so
// a rejected reply is retried on the next request.
type Cached struct {
	next  adapter.Translator
	cache Cache
	// salt separates caches of different backends or models
	salt string
	log  *zerolog.Logger
}

var _ adapter.Translator = (*Cached)(nil)

func NewCached(next adapter.Translator, cache Cache, salt string, logger *zerolog.Logger) *Cached {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Cached{next: next, cache: cache, salt: salt, log: logger}
}

func (c *Cached) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	log := logging.With(ctx, c.log)
	key := c.key(req)
	code, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.IncCacheRequest("translation", "error")
		log.Warn().Err(err).Msg("translation cache get failed")
	case ok:
		metrics.IncCacheRequest("translation", "hit")
		return code, nil
	default:
		metrics.IncCacheRequest("translation", "miss")
	}

	code, err = c.next.Translate(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, code); err != nil {
		log.Warn().Err(err).Msg("translation cache set failed")
	}
	return code, nil
}

func (c *Cached) key(req adapter.TranslationRequest) string {
	h := sha256.New()
	for _, part := range []string{c.salt, string(req.SourceLang), string(req.TargetLang), req.FunctionName, req.Code} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
