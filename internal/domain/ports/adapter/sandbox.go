package adapter

import (
	"context"

	"code-translator/internal/domain/model"
)

// Program is one function prepared (written, compiled) in a private workdir.
// Invoke may be called concurrently; every call runs in a fresh process or
// interpreter. Close removes the workdir.
type Program interface {
	Invoke(ctx context.Context, args []model.Value) *model.ExecutionResult
	Close() error
}

// Executor prepares programs for the sandboxed runtimes.
type Executor interface {
	// Prepare fails only for infrastructure problems or an unknown language;
	// compile errors come back as CompileFailure results from Invoke.
	Prepare(ctx context.Context, lang model.Language, code string, sig model.Signature) (Program, error)
	Languages() []model.Language
}
