package sandbox

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

const (
	resultMarker = "__CT_RESULT__"
	errorMarker  = "__CT_ERROR__"
	// exit code of a SIGKILLed child as reported by a shell or container
	exitKilled = 137
)

var memorySignals = []string{"MemoryError", "std::bad_alloc", "OutOfMemoryError", "Cannot allocate memory", "out of memory"}

func mentionsMemory(s string) bool {
	for _, m := range memorySignals {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// classify folds an invocation outcome into an ExecutionResult.
func classify(o Outcome, timeout time.Duration, outputLimit int) *model.ExecutionResult {
	switch {
	case o.TimedOut:
		return model.Failed(domain.KindExecutionTimeout, fmt.Sprintf("exceeded %s", timeout))
	case o.Truncated:
		return model.Failed(domain.KindResourceExceeded, fmt.Sprintf("output exceeded %d bytes", outputLimit))
	}

	if line, ok := lastMarked(o.Stdout, errorMarker); ok {
		if mentionsMemory(line) {
			return model.Failed(domain.KindResourceExceeded, line)
		}
		return model.Failed(domain.KindRuntimeFailure, line)
	}
	if o.Killed || o.ExitCode == exitKilled {
		return model.Failed(domain.KindResourceExceeded, "killed: memory limit")
	}
	if line, ok := lastMarked(o.Stdout, resultMarker); ok && o.ExitCode == 0 {
		v, err := model.ParseValue(line)
		if err != nil {
			return model.Failed(domain.KindRuntimeFailure, "unreadable result: "+clip(line, 120))
		}
		return model.Succeeded(v)
	}

	stderr := strings.TrimSpace(string(o.Stderr))
	if mentionsMemory(stderr) {
		return model.Failed(domain.KindResourceExceeded, lastLine(stderr))
	}
	if o.ExitCode != 0 {
		msg := fmt.Sprintf("exit status %d", o.ExitCode)
		if stderr != "" {
			msg += ": " + lastLine(stderr)
		}
		return model.Failed(domain.KindRuntimeFailure, msg)
	}
	return model.Failed(domain.KindRuntimeFailure, "no result produced")
}

// compileFailure summarizes compiler diagnostics.
func compileFailure(o Outcome, timeout time.Duration) *model.ExecutionResult {
	if o.TimedOut {
		return model.Failed(domain.KindCompileFailure, fmt.Sprintf("compiler exceeded %s", timeout))
	}
	diag := strings.TrimSpace(string(o.Stderr))
	if diag == "" {
		diag = strings.TrimSpace(string(o.Stdout))
	}
	if diag == "" {
		diag = fmt.Sprintf("exit status %d", o.ExitCode)
	}
	return model.Failed(domain.KindCompileFailure, clip(firstError(diag), 500))
}

func lastMarked(out []byte, marker string) (string, bool) {
	lines := bytes.Split(out, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		l := bytes.TrimRight(lines[i], "\r")
		if bytes.HasPrefix(l, []byte(marker)) {
			return strings.TrimSpace(string(l[len(marker):])), true
		}
	}
	return "", false
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return clip(strings.TrimSpace(s), 300)
}

// firstError keeps the first diagnostic mentioning an error, if any.
func firstError(diag string) string {
	for _, l := range strings.Split(diag, "\n") {
		if strings.Contains(l, "error") {
			return strings.TrimSpace(l)
		}
	}
	return diag
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
