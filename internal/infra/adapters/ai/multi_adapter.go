// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes by model name and fails over to the remaining
// providers when the routed one is unavailable.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.AIServiceAdapter
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiAIAdapter does not inject any default model; it only knows a default provider.
// Each provider adapter is responsible for its own default model.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.AIServiceAdapter,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

// order lists the routed provider first, then the others by name.
func (m *MultiAIAdapter) order(model string) []adapter.AIServiceAdapter {
	first := m.resolveProvider(model)
	var out []adapter.AIServiceAdapter
	if a := m.byProvider[first]; a != nil {
		out = append(out, a)
	}
	names := make([]string, 0, len(m.byProvider))
	for name := range m.byProvider {
		if name != first {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if a := m.byProvider[name]; a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (m *MultiAIAdapter) pick(model string) adapter.AIServiceAdapter {
	if o := m.order(model); len(o) > 0 {
		return o[0]
	}
	return nil
}

func errNoProvider(model string) error {
	return fmt.Errorf("%w: no provider for model %q", domain.ErrBackendUnavailable, model)
}

func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.modelToProvider)+4)

	// 1) models explicitly mapped in config
	for model := range m.modelToProvider {
		if _, ok := seen[model]; !ok {
			seen[model] = struct{}{}
			out = append(out, model)
		}
	}

	// 2) union of each provider's ListModels (often returns their default)
	for _, a := range m.byProvider {
		list, _ := a.ListModels(ctx)
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (m *MultiAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	a := m.pick(model)
	if a == nil {
		return adapter.ModelInfo{Name: model}, nil
	}
	return a.GetModelInfo(model)
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	a := m.pick(model)
	if a == nil {
		return 0, errNoProvider(model)
	}
	return a.CountTokens(ctx, model, messages)
}

func (m *MultiAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := m.ChatWithUsage(ctx, model, messages)
	return reply, err
}

// ChatWithUsage fails over only on ErrBackendUnavailable; the routed model
// name is passed to fallbacks empty so they use their own default.
func (m *MultiAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	providers := m.order(model)
	if len(providers) == 0 {
		return "", adapter.Usage{}, errNoProvider(model)
	}
	var lastErr error
	for i, a := range providers {
		name := model
		if i > 0 {
			name = ""
		}
		reply, u, err := a.ChatWithUsage(ctx, name, messages)
		if err == nil {
			return reply, u, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrBackendUnavailable) || ctx.Err() != nil {
			break
		}
	}
	return "", adapter.Usage{}, lastErr
}
