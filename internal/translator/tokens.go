package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/metrics"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// localCount estimates prompt tokens with cl100k when the provider cannot count.
func localCount(messages []adapter.Message) (int, error) {
	encOnce.Do(func() { enc, encErr = tiktoken.GetEncoding("cl100k_base") })
	if encErr != nil {
		return 0, encErr
	}
	n := 2
	for _, m := range messages {
		n += 4 + len(enc.Encode(m.Content, nil, nil))
	}
	return n, nil
}

// Budget refuses prompts larger than Max tokens before any backend call.
type Budget struct {
	AI       adapter.AIServiceAdapter
	Provider string
	Model    string
	Max      int
}

func (b Budget) Check(ctx context.Context, messages []adapter.Message) (int, error) {
	if b.Max <= 0 {
		return 0, nil
	}
	n, err := b.AI.CountTokens(ctx, b.Model, messages)
	if err != nil || n <= 0 {
		if n, err = localCount(messages); err != nil {
			// without a counter the backend enforces its own limit
			return 0, nil
		}
	}
	if n > b.Max {
		metrics.PrecheckBlocked(b.Provider, b.Model)
		return n, fmt.Errorf("%w: prompt needs %d tokens, limit is %d", domain.ErrSourceTooLarge, n, b.Max)
	}
	return n, nil
}
