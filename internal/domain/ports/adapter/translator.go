package adapter

import (
	"context"

	"code-translator/internal/domain/model"
)

type TranslationRequest struct {
	SourceLang   model.Language
	TargetLang   model.Language
	FunctionName string
	Code         string
	Signature    model.Signature
}

// Translator turns one function into an equivalent function in another language.
type Translator interface {
	Translate(ctx context.Context, req TranslationRequest) (string, error)
}
