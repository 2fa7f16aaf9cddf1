package usecase

import (
	"context"

	"code-translator/internal/domain/model"
)

// TranslateInput is the request shared by both pipeline entry points.
// Inputs is the raw JSON test payload; nil, "null" and "[]" select auto mode.
type TranslateInput struct {
	SourceLang   string
	TargetLang   string
	FunctionName string
	Code         string
	ParamCount   *int
	Inputs       []byte
}

type TranslateResult struct {
	JobID          string
	TranslatedCode string
	Report         *model.Report
}

// Pipeline defines the operations exposed to the HTTP API and the CLI.
type Pipeline interface {
	Translate(ctx context.Context, in TranslateInput) (*TranslateResult, error)
	TranslateAndVerify(ctx context.Context, in TranslateInput) (*TranslateResult, error)
	History(ctx context.Context, limit, offset int) ([]*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
}
