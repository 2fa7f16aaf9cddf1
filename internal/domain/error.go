package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidExecContext   = errors.New("invalid execution context")
	ErrReadDatabaseRow      = errors.New("could not read database row")
	ErrBackendUnavailable   = errors.New("translation backend unavailable")
	ErrSourceTooLarge       = errors.New("source exceeds prompt token budget")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrSignatureNotFound    = errors.New("function signature not found")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrTranslationFailed    = errors.New("translation failed")
	ErrInvalidTestInput     = errors.New("invalid test input")
	ErrVerificationAborted  = errors.New("verification aborted: no test case completed")
	ErrJobNotFound          = errors.New("job not found")
	ErrLocked               = errors.New("resource is locked by another writer")
)

// Kind is the stable wire name of an error category.
type Kind string

const (
	KindSignatureNotFound    Kind = "SignatureNotFound"
	KindUnsupportedConstruct Kind = "UnsupportedConstruct"
	KindUnsupportedLanguage  Kind = "UnsupportedLanguage"
	KindTranslationFailed    Kind = "TranslationFailed"
	KindInvalidTestInput     Kind = "InvalidTestInput"
	KindExecutionTimeout     Kind = "ExecutionTimeout"
	KindResourceExceeded     Kind = "ResourceExceeded"
	KindRuntimeFailure       Kind = "RuntimeFailure"
	KindCompileFailure       Kind = "CompileFailure"
	KindVerificationAborted  Kind = "VerificationAborted"
	KindJobNotFound          Kind = "JobNotFound"
	KindBackendUnavailable   Kind = "BackendUnavailable"
	KindInvalidArgument      Kind = "InvalidArgument"
	KindInternal             Kind = "Internal"
)

var kindBySentinel = []struct {
	err  error
	kind Kind
}{
	{ErrSignatureNotFound, KindSignatureNotFound},
	{ErrUnsupportedConstruct, KindUnsupportedConstruct},
	{ErrUnsupportedLanguage, KindUnsupportedLanguage},
	{ErrTranslationFailed, KindTranslationFailed},
	{ErrInvalidTestInput, KindInvalidTestInput},
	{ErrVerificationAborted, KindVerificationAborted},
	{ErrJobNotFound, KindJobNotFound},
	{ErrBackendUnavailable, KindBackendUnavailable},
	{ErrSourceTooLarge, KindInvalidArgument},
	{ErrInvalidArgument, KindInvalidArgument},
}

// KindOf maps a (possibly wrapped) error onto its wire kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kindBySentinel {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
