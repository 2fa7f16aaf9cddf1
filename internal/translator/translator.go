// Package translator turns one function into an equivalent function in
// another language through pluggable strategies.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/metrics"
	"code-translator/internal/signature"
)

var _ adapter.Translator = (*Registry)(nil)

// Any matches every language when registering a strategy.
const Any model.Language = "*"

// Strategy produces raw target source; validation happens in the Registry.
type Strategy interface {
	Name() string
	Translate(ctx context.Context, req adapter.TranslationRequest) (string, error)
}

// Marshaler reports whether a runtime can pass a value of type t in or out.
type Marshaler interface {
	CanMarshal(lang model.Language, t model.TypeTag, result bool) bool
}

type pair struct{ src, dst model.Language }

// Registry selects a strategy per (source, target) with wildcard fallback
// and enforces the output contract: same name, same arity, no empty success.
type Registry struct {
	mu         sync.RWMutex
	strategies map[pair]Strategy
	extractor  *signature.Extractor
	marshaler  Marshaler
	log        *zerolog.Logger
}

func NewRegistry(ex *signature.Extractor, m Marshaler, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{strategies: map[pair]Strategy{}, extractor: ex, marshaler: m, log: logger}
}

// Register binds s to src->dst; either side may be Any.
func (r *Registry) Register(src, dst model.Language, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[pair{src, dst}] = s
}

func (r *Registry) lookup(src, dst model.Language) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range []pair{{src, dst}, {src, Any}, {Any, dst}, {Any, Any}} {
		if s, ok := r.strategies[k]; ok {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	log := logging.With(ctx, r.log)
	defer logging.TraceDuration(log, "Registry.Translate")()

	fn, err := r.extractor.Inspect(ctx, req.SourceLang, req.Code, req.FunctionName)
	if err != nil {
		return "", err
	}
	if err := r.precheck(req.TargetLang, fn); err != nil {
		metrics.IncTranslation(string(req.SourceLang), string(req.TargetLang), string(domain.KindOf(err)))
		return "", err
	}
	req.Signature = fn.Signature

	s, ok := r.lookup(req.SourceLang, req.TargetLang)
	if !ok {
		return "", fmt.Errorf("%w: no strategy for %s -> %s", domain.ErrUnsupportedLanguage, req.SourceLang, req.TargetLang)
	}

	raw, err := s.Translate(ctx, req)
	if err != nil {
		metrics.IncTranslation(string(req.SourceLang), string(req.TargetLang), string(domain.KindOf(err)))
		return "", err
	}
	code, err := r.validate(ctx, req, raw)
	status := "ok"
	if err != nil {
		status = string(domain.KindOf(err))
	}
	metrics.IncTranslation(string(req.SourceLang), string(req.TargetLang), status)
	if err != nil {
		log.Warn().Err(err).Str("strategy", s.Name()).Msg("translation rejected")
		return "", err
	}
	log.Info().Str("strategy", s.Name()).Int("bytes", len(code)).Msg("translation accepted")
	return code, nil
}

// precheck refuses functions the pipeline cannot translate faithfully.
func (r *Registry) precheck(target model.Language, fn *signature.Function) error {
	if len(fn.Constructs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedConstruct, strings.Join(fn.Constructs, ", "))
	}
	sig := fn.Signature
	if sig.Variadic {
		return fmt.Errorf("%w: variadic parameters", domain.ErrUnsupportedConstruct)
	}
	if r.marshaler == nil {
		return nil
	}
	for _, p := range sig.Params {
		if !r.marshaler.CanMarshal(target, p.Type, false) {
			return fmt.Errorf("%w: %s parameter %q cannot be passed to %s", domain.ErrUnsupportedConstruct, p.Type, p.Name, target)
		}
	}
	if !r.marshaler.CanMarshal(target, sig.Return, true) {
		return fmt.Errorf("%w: %s return value cannot be read back from %s", domain.ErrUnsupportedConstruct, sig.Return, target)
	}
	return nil
}

func (r *Registry) validate(ctx context.Context, req adapter.TranslationRequest, raw string) (string, error) {
	code, construct, refused := Postprocess(raw)
	if refused {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedConstruct, construct)
	}
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: empty output", domain.ErrTranslationFailed)
	}
	got, err := r.extractor.Extract(ctx, req.TargetLang, code, req.FunctionName)
	if errors.Is(err, domain.ErrSignatureNotFound) {
		return "", fmt.Errorf("%w: output has no function %q", domain.ErrTranslationFailed, req.FunctionName)
	}
	if err != nil {
		return "", err
	}
	if got.Arity() != req.Signature.Arity() {
		return "", fmt.Errorf("%w: %s takes %d parameters, source takes %d",
			domain.ErrTranslationFailed, req.FunctionName, got.Arity(), req.Signature.Arity())
	}
	for i, want := range req.Signature.Params {
		have := got.Params[i]
		if !sameType(req.TargetLang, want.Type, have.Type) {
			return "", fmt.Errorf("%w: %s parameter %d is %s, source has %s",
				domain.ErrTranslationFailed, req.FunctionName, i+1, have.Type, want.Type)
		}
	}
	if !sameType(req.TargetLang, req.Signature.Return, got.Return) {
		return "", fmt.Errorf("%w: %s returns %s, source returns %s",
			domain.ErrTranslationFailed, req.FunctionName, got.Return, req.Signature.Return)
	}
	return code, nil
}

// sameType treats unknown as matching anything. C spells booleans as int.
func sameType(target model.Language, want, have model.TypeTag) bool {
	if want == model.TypeUnknown || have == model.TypeUnknown || want == "" || have == "" || want == have {
		return true
	}
	intLike := func(t model.TypeTag) bool { return t == model.TypeInteger || t == model.TypeBoolean }
	return (target == model.LangC || target == model.LangCPP) && intLike(want) && intLike(have)
}
