package sandbox

import (
	"bytes"
	"context"
	"sync"
	"time"

	"code-translator/internal/domain/model"
)

// Cmd is one process launch inside a program's workdir. Argv paths are
// relative to Dir so the same command runs on the host or in a container.
type Cmd struct {
	Lang     model.Language
	Dir      string
	Argv     []string
	Stdin    []byte
	Timeout  time.Duration
	MemoryMB int // 0 disables the address-space ceiling
}

// Outcome is what an Isolator observed; classification happens later.
type Outcome struct {
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Killed    bool // killed by the kernel or the container runtime
	Duration  time.Duration
}

// Isolator runs commands under resource ceilings.
type Isolator interface {
	Name() string
	Run(ctx context.Context, c Cmd) (Outcome, error)
	Close() error
}

// cappedBuffer keeps at most limit bytes and fires onOverflow once.
type cappedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int
	overflowed bool
	onOverflow func()
}

func newCappedBuffer(limit int, onOverflow func()) *cappedBuffer {
	return &cappedBuffer{limit: limit, onOverflow: onOverflow}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	room := b.limit - b.buf.Len()
	if len(p) <= room {
		b.buf.Write(p)
		b.mu.Unlock()
		return len(p), nil
	}
	if room > 0 {
		b.buf.Write(p[:room])
	}
	fire := !b.overflowed
	b.overflowed = true
	b.mu.Unlock()
	if fire && b.onOverflow != nil {
		b.onOverflow()
	}
	// pretend success so the copier drains instead of blocking the child
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflowed
}
