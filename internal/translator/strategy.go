package translator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/logging"
)

// Identity returns the source untouched; it serves same-language requests.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Translate(_ context.Context, req adapter.TranslationRequest) (string, error) {
	if req.SourceLang != req.TargetLang {
		return "", fmt.Errorf("%w: identity cannot translate %s to %s", domain.ErrUnsupportedLanguage, req.SourceLang, req.TargetLang)
	}
	return req.Code, nil
}

// LLM asks a chat backend for the translation.
type LLM struct {
	ai     adapter.AIServiceAdapter
	model  string
	budget Budget
	log    *zerolog.Logger
}

func NewLLM(ai adapter.AIServiceAdapter, provider, model string, maxPromptTokens int, logger *zerolog.Logger) *LLM {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LLM{
		ai:     ai,
		model:  model,
		budget: Budget{AI: ai, Provider: provider, Model: model, Max: maxPromptTokens},
		log:    logger,
	}
}

func (l *LLM) Name() string { return "llm" }

func (l *LLM) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	log := logging.With(ctx, l.log)
	msgs := BuildMessages(req)
	n, err := l.budget.Check(ctx, msgs)
	if err != nil {
		return "", err
	}
	reply, err := l.ai.Chat(ctx, l.model, msgs)
	if err != nil {
		return "", err
	}
	log.Debug().Int("prompt_tokens", n).Int("reply_bytes", len(reply)).Msg("llm reply")
	return reply, nil
}
