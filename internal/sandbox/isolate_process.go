package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

const ulimitScript = `ulimit -t %d 2>/dev/null; %sexec "$@"`

// ProcessIsolator runs each command as a fresh child in its own process
// group with a minimal environment, killing the whole group on timeout.
// After IsolateNetwork the child also gets an empty network namespace.
// Filesystem access is that of the server user; use DockerIsolator where
// that matters.
type ProcessIsolator struct {
	outputLimit int
	env         []string
	unshare     string // set once network isolation is verified
}

func NewProcessIsolator(outputLimit int) *ProcessIsolator {
	return &ProcessIsolator{
		outputLimit: outputLimit,
		env:         []string{"PATH=/usr/local/bin:/usr/bin:/bin", "LANG=C.UTF-8", "HOME=/tmp"},
	}
}

// IsolateNetwork verifies that unprivileged user and network namespaces are
// available and, if so, starts every later command inside fresh ones.
func (p *ProcessIsolator) IsolateNetwork(ctx context.Context) error {
	bin, err := exec.LookPath("unshare")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, bin, "-r", "-n", "true").CombinedOutput(); err != nil {
		return fmt.Errorf("unshare: %w: %s", err, bytes.TrimSpace(out))
	}
	p.unshare = bin
	return nil
}

func (p *ProcessIsolator) Name() string { return "process" }
func (p *ProcessIsolator) Close() error { return nil }

func (p *ProcessIsolator) Run(ctx context.Context, c Cmd) (Outcome, error) {
	if len(c.Argv) == 0 {
		return Outcome{}, errors.New("sandbox: empty command")
	}
	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cpu := int(c.Timeout/time.Second) + 1
	mem := ""
	if c.MemoryMB > 0 {
		mem = fmt.Sprintf("ulimit -v %d 2>/dev/null; ", c.MemoryMB*1024)
	}
	args := append([]string{"-c", fmt.Sprintf(ulimitScript, cpu, mem), "sh"}, c.Argv...)
	cmd := exec.Command("/bin/sh", args...)
	if p.unshare != "" {
		cmd = exec.Command(p.unshare, append([]string{"-r", "-n", "/bin/sh"}, args...)...)
	}
	cmd.Dir = c.Dir
	cmd.Env = p.env
	cmd.WaitDelay = time.Second
	setProcessGroup(cmd)
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() {
			if cmd.Process != nil {
				killProcessGroup(cmd.Process.Pid)
			}
		})
	}
	stdout := newCappedBuffer(p.outputLimit, kill)
	stderr := newCappedBuffer(p.outputLimit, kill)
	cmd.Stdout, cmd.Stderr = stdout, stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("sandbox: start %s: %w", c.Argv[0], err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var (
		waitErr  error
		timedOut bool
	)
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		timedOut = true
		kill()
		waitErr = <-done
	}

	out := Outcome{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		TimedOut:  timedOut,
		Truncated: stdout.Overflowed() || stderr.Overflowed(),
		Duration:  time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
		out.Killed = !timedOut && !out.Truncated && killedBySignal(cmd.ProcessState)
		if cpuExceeded(cmd.ProcessState) {
			out.TimedOut = true
		}
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) && !timedOut {
		return out, fmt.Errorf("sandbox: wait: %w", waitErr)
	}
	return out, nil
}
