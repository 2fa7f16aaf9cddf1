package sandbox

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"runtime/metrics"
	"strings"
	"sync"
	"time"

	"code-translator/internal/domain/model"
)

// ServeGoRunner interprets a Go program and exits when the process was
// started as the go runner. Otherwise it returns at once. Every binary that
// hosts an Executor calls it first thing in main.
func ServeGoRunner() {
	if filepath.Base(os.Args[0]) != goRunnerName {
		return
	}
	os.Exit(goRunnerMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// goRunnerMain runs "check NAME" or "run NAME [-memory-mb N]" against
// solution.go in the working directory. Arguments arrive on stdin as a
// canonical JSON array; the result leaves as one marker line.
func goRunnerMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(stderr, "error: usage: "+goRunnerName+" check|run NAME [-memory-mb N]")
		return 2
	}
	mode, name := args[0], args[1]
	fs := flag.NewFlagSet(goRunnerName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	memoryMB := fs.Int("memory-mb", 0, "heap ceiling in MiB, 0 for none")
	if err := fs.Parse(args[2:]); err != nil {
		return 2
	}
	code, err := os.ReadFile(goSourceFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	src := string(code)

	switch mode {
	case "check":
		if bad := forbiddenImports(src); len(bad) > 0 {
			fmt.Fprintf(stderr, "error: forbidden imports: %s\n", strings.Join(bad, ", "))
			return 1
		}
		if _, _, err := loadGo(src, name); err != nil {
			fmt.Fprintf(stderr, "error: %s\n", err)
			return 1
		}
		return 0
	case "run":
		if *memoryMB > 0 {
			stop := watchHeap(int64(*memoryMB)<<20, stdout)
			defer stop()
		}
		raw, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stdout, "%s cannot read arguments: %v\n", errorMarker, err)
			return 0
		}
		argv, err := model.ParseValue(string(raw))
		if err != nil {
			fmt.Fprintf(stdout, "%s cannot read arguments: %v\n", errorMarker, err)
			return 0
		}
		writeGoResult(stdout, invokeGo(src, name, argv.Items()))
		return 0
	}
	fmt.Fprintf(stderr, "error: unknown mode %q\n", mode)
	return 2
}

func writeGoResult(w io.Writer, res *model.ExecutionResult) {
	if f := res.Failure(); f != nil {
		fmt.Fprintf(w, "%s %s\n", errorMarker, strings.ReplaceAll(f.Message, "\n", " "))
		return
	}
	v, _ := res.Value()
	fmt.Fprintf(w, "%s %s\n", resultMarker, v.Canonical())
}

// watchHeap ends the process with a memory failure once live heap passes
// limit. The soft limit makes the collector work hard before that.
func watchHeap(limit int64, out io.Writer) (stop func()) {
	debug.SetMemoryLimit(limit)
	sample := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(5 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				metrics.Read(sample)
				if sample[0].Value.Kind() == metrics.KindUint64 && int64(sample[0].Value.Uint64()) > limit {
					fmt.Fprintf(out, "%s out of memory: heap exceeded %d MiB\n", errorMarker, limit>>20)
					os.Exit(0)
				}
			}
		}
	}()
	return func() { close(done) }
}

// runnerBinary is a private copy of the host executable, made once per
// executor and hard linked into each Go program workdir.
type runnerBinary struct {
	dir  string
	once sync.Once
	path string
	err  error
}

func (b *runnerBinary) staged() (string, error) {
	b.once.Do(func() { b.path, b.err = stageExecutable(b.dir) })
	return b.path, b.err
}

func (b *runnerBinary) linkInto(dir string) error {
	src, err := b.staged()
	if err != nil {
		return fmt.Errorf("sandbox: stage go runner: %w", err)
	}
	dst := filepath.Join(dir, goRunnerName)
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	return copyExecutable(src, dst)
}

func (b *runnerBinary) remove() error {
	if b.path == "" {
		return nil
	}
	return os.Remove(b.path)
}

func stageExecutable(dir string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "gorun-")
	if err != nil {
		return "", err
	}
	path := f.Name()
	_ = f.Close()
	if err := copyExecutable(exe, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, 0o755)
}
