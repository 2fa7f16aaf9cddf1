// Package sandbox runs single functions in isolated per-language runtimes.
//
// A Program is prepared once per job (sources written, compiled) in a
// private workdir and invoked many times; every invocation is a new process.
// Go runs in the embedded interpreter inside such a process. Failures are values, never errors: a
// timeout, a crash or an exception comes back as a failed ExecutionResult
// and the executor stays usable.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/infra/metrics"
)

var _ adapter.Executor = (*Executor)(nil)

// processRuntime describes how a language is built and launched.
type processRuntime interface {
	// sources returns file name -> content for the program workdir.
	sources(code string, sig model.Signature) (map[string]string, error)
	// compile lists build commands run once at Prepare.
	compile(sig model.Signature, files []string) [][]string
	// invocation builds argv and stdin for one call.
	invocation(sig model.Signature, args []model.Value) (argv []string, stdin []byte, err error)
	// tools are binaries that must exist for process isolation.
	tools() []string
	// memoryByFlag means the runtime enforces memory itself (JVM heap).
	memoryByFlag() bool
}

// stager is implemented by runtimes that need more than source files in the
// workdir.
type stager interface {
	stage(dir string) error
}

type Executor struct {
	cfg      config.SandboxConfig
	iso      Isolator
	runtimes map[model.Language]processRuntime
	runner   *runnerBinary
	langs    []model.Language
	log      *zerolog.Logger
}

// New builds an executor over the configured isolation backend.
func New(cfg config.SandboxConfig, logger *zerolog.Logger) (*Executor, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	var (
		iso Isolator
		err error
	)
	switch cfg.Isolation {
	case "", "process":
		pi := NewProcessIsolator(cfg.OutputLimit)
		if !cfg.AllowNetwork {
			if err := pi.IsolateNetwork(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("network namespaces unavailable; sandboxed code keeps host network")
			}
		}
		iso = pi
	case "docker":
		if iso, err = NewDockerIsolator(cfg.DockerImages, cfg.OutputLimit); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown isolation %q", cfg.Isolation)
	}
	return NewWithIsolator(cfg, iso, logger), nil
}

// NewWithIsolator is New with an explicit backend.
func NewWithIsolator(cfg config.SandboxConfig, iso Isolator, logger *zerolog.Logger) *Executor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	runner := &runnerBinary{dir: cfg.WorkDir}
	e := &Executor{
		cfg: cfg,
		iso: iso,
		runtimes: map[model.Language]processRuntime{
			model.LangPython: pythonRuntime{bin: cfg.Python},
			model.LangC:      cRuntime{cc: cfg.CC},
			model.LangCPP:    cppRuntime{cxx: cfg.CXX},
			model.LangJava:   javaRuntime{javac: cfg.Javac, java: cfg.Java, heapMB: cfg.MemoryMB},
			model.LangGo:     goRuntime{runner: runner, memoryMB: cfg.MemoryMB},
		},
		runner: runner,
		log:    logger,
	}
	for lang, rt := range e.runtimes {
		if iso.Name() == "process" && !installed(rt.tools()) {
			logger.Warn().Str("lang", string(lang)).Strs("tools", rt.tools()).Msg("toolchain not found; language disabled")
			continue
		}
		e.langs = append(e.langs, lang)
	}
	sort.Slice(e.langs, func(i, j int) bool { return e.langs[i] < e.langs[j] })
	return e
}

func installed(tools []string) bool {
	for _, t := range tools {
		if _, err := exec.LookPath(t); err != nil {
			return false
		}
	}
	return true
}

func (e *Executor) Languages() []model.Language {
	return append([]model.Language(nil), e.langs...)
}

// Ping checks the isolation backend when it can be checked.
func (e *Executor) Ping(ctx context.Context) error {
	if p, ok := e.iso.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (e *Executor) Close() error {
	return errors.Join(e.iso.Close(), e.runner.remove())
}

func (e *Executor) supports(lang model.Language) bool {
	for _, l := range e.langs {
		if l == lang {
			return true
		}
	}
	return false
}

// CanMarshal reports whether lang can receive (result=false) or return
// (result=true) a value of type t. Untyped slots are integers.
func (e *Executor) CanMarshal(lang model.Language, t model.TypeTag, result bool) bool {
	scalar := t.Scalar() || t == model.TypeUnknown
	switch lang {
	case model.LangPython, model.LangGo:
		return true
	case model.LangC:
		return scalar
	case model.LangCPP, model.LangJava:
		return scalar || result
	}
	return false
}

func (e *Executor) Prepare(ctx context.Context, lang model.Language, code string, sig model.Signature) (adapter.Program, error) {
	if !e.supports(lang) {
		return nil, fmt.Errorf("%w: no runtime for %s", domain.ErrUnsupportedLanguage, lang)
	}
	rt := e.runtimes[lang]

	files, err := rt.sources(code, sig)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(e.cfg.WorkDir, "ct-"+string(lang)+"-")
	if err != nil {
		return nil, fmt.Errorf("sandbox: workdir: %w", err)
	}
	// containers run as another user and must read and write the workdir
	_ = os.Chmod(dir, 0o777)
	p := &processProgram{exec: e, rt: rt, lang: lang, dir: dir, sig: sig}
	names := make([]string, 0, len(files))
	for name, content := range files {
		names = append(names, name)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("sandbox: write %s: %w", name, err)
		}
	}
	if s, ok := rt.(stager); ok {
		if err := s.stage(dir); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	sort.Strings(names)
	for _, argv := range rt.compile(sig, names) {
		out, err := e.iso.Run(ctx, Cmd{Lang: lang, Dir: dir, Argv: argv, Timeout: e.cfg.CompileTimeout})
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		if out.TimedOut || out.ExitCode != 0 {
			p.compileErr = compileFailure(out, e.cfg.CompileTimeout)
			e.log.Debug().Str("lang", string(lang)).Str("failure", p.compileErr.String()).Msg("compile failed")
			break
		}
	}
	return p, nil
}

// Execute prepares, invokes once and cleans up.
func (e *Executor) Execute(ctx context.Context, lang model.Language, code string, sig model.Signature, args []model.Value) (*model.ExecutionResult, error) {
	p, err := e.Prepare(ctx, lang, code, sig)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Invoke(ctx, args), nil
}

type processProgram struct {
	exec       *Executor
	rt         processRuntime
	lang       model.Language
	dir        string
	sig        model.Signature
	compileErr *model.ExecutionResult
	closeOnce  sync.Once
}

func (p *processProgram) Invoke(ctx context.Context, args []model.Value) *model.ExecutionResult {
	if p.compileErr != nil {
		return p.compileErr
	}
	if len(args) != p.sig.Arity() {
		return model.Failed(domain.KindRuntimeFailure, fmt.Sprintf("%s takes %d arguments, got %d", p.sig.Name, p.sig.Arity(), len(args)))
	}
	argv, stdin, err := p.rt.invocation(p.sig, args)
	if err != nil {
		return model.Failed(domain.KindRuntimeFailure, err.Error())
	}
	cfg := p.exec.cfg
	cmd := Cmd{Lang: p.lang, Dir: p.dir, Argv: argv, Stdin: stdin, Timeout: cfg.Timeout, MemoryMB: cfg.MemoryMB}
	if p.rt.memoryByFlag() {
		cmd.MemoryMB = 0
	}

	start := time.Now()
	out, err := p.exec.iso.Run(ctx, cmd)
	var res *model.ExecutionResult
	switch {
	case ctx.Err() != nil:
		res = model.Failed(domain.KindExecutionTimeout, "job deadline reached")
	case err != nil:
		p.exec.log.Error().Err(err).Str("lang", string(p.lang)).Msg("sandbox run failed")
		res = model.Failed(domain.KindRuntimeFailure, err.Error())
	default:
		res = classify(out, cfg.Timeout, cfg.OutputLimit)
	}
	metrics.ObserveExecution(string(p.lang), outcomeLabel(res), time.Since(start))
	return res
}

func (p *processProgram) Close() error {
	var err error
	p.closeOnce.Do(func() { err = os.RemoveAll(p.dir) })
	return err
}

func outcomeLabel(r *model.ExecutionResult) string {
	if f := r.Failure(); f != nil {
		return string(f.Kind)
	}
	return "ok"
}
