package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerIsolator runs every command in a throwaway container with no
// network, a memory ceiling and a pids limit. The program workdir is bind
// mounted at /work.
type DockerIsolator struct {
	cli         *client.Client
	images      map[string]string
	outputLimit int
}

func NewDockerIsolator(images map[string]string, outputLimit int) (*DockerIsolator, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerIsolator{cli: cli, images: images, outputLimit: outputLimit}, nil
}

func (d *DockerIsolator) Name() string { return "docker" }
func (d *DockerIsolator) Close() error { return d.cli.Close() }

// Ping reports whether the daemon answers.
func (d *DockerIsolator) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

func (d *DockerIsolator) Run(ctx context.Context, c Cmd) (Outcome, error) {
	image, ok := d.images[string(c.Lang)]
	if !ok {
		return Outcome{}, fmt.Errorf("sandbox: no docker image for %s", c.Lang)
	}
	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	created, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:           image,
		Cmd:             c.Argv,
		WorkingDir:      "/work",
		Env:             []string{"LANG=C.UTF-8", "HOME=/tmp"},
		AttachStdin:     c.Stdin != nil,
		AttachStdout:    true,
		AttachStderr:    true,
		OpenStdin:       c.Stdin != nil,
		StdinOnce:       c.Stdin != nil,
		NetworkDisabled: true,
	}, dockerHostConfig(c), nil, nil, "")
	if err != nil {
		return Outcome{}, fmt.Errorf("sandbox: create container: %w", err)
	}
	defer func() {
		rmCtx, rmCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer rmCancel()
		_ = d.cli.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true})
	}()

	att, err := d.cli.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true, Stdin: c.Stdin != nil, Stdout: true, Stderr: true,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("sandbox: attach: %w", err)
	}
	defer att.Close()

	kill := func() { _ = d.cli.ContainerKill(context.Background(), created.ID, "KILL") }
	stdout := newCappedBuffer(d.outputLimit, kill)
	stderr := newCappedBuffer(d.outputLimit, kill)

	start := time.Now()
	if err := d.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return Outcome{}, fmt.Errorf("sandbox: start container: %w", err)
	}
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		_, _ = stdcopy.StdCopy(stdout, stderr, att.Reader)
	}()
	if c.Stdin != nil {
		_, _ = att.Conn.Write(c.Stdin)
		_ = att.CloseWrite()
	}

	out := Outcome{}
	waitC, errC := d.cli.ContainerWait(runCtx, created.ID, container.WaitConditionNotRunning)
	select {
	case res := <-waitC:
		out.ExitCode = int(res.StatusCode)
	case err := <-errC:
		if runCtx.Err() == nil {
			return Outcome{}, fmt.Errorf("sandbox: wait: %w", err)
		}
		out.TimedOut = true
		kill()
	}
	select {
	case <-copied:
	case <-time.After(time.Second):
		att.Close()
		<-copied
	}

	out.Stdout, out.Stderr = stdout.Bytes(), stderr.Bytes()
	out.Truncated = stdout.Overflowed() || stderr.Overflowed()
	out.Duration = time.Since(start)
	if !out.TimedOut && !out.Truncated {
		inspected, err := d.cli.ContainerInspect(context.Background(), created.ID)
		if err == nil && inspected.State != nil && inspected.State.OOMKilled {
			out.Killed = true
		}
	}
	return out, nil
}

// dockerHostConfig keeps the container offline with a read-only root. Only
// the bound workdir and a small /tmp are writable.
func dockerHostConfig(c Cmd) *container.HostConfig {
	pids := int64(64)
	resources := container.Resources{PidsLimit: &pids, NanoCPUs: 1e9}
	if c.MemoryMB > 0 {
		resources.Memory = int64(c.MemoryMB) << 20
		resources.MemorySwap = resources.Memory
	}
	return &container.HostConfig{
		NetworkMode:    "none",
		Binds:          []string{c.Dir + ":/work"},
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,nosuid,size=64m"},
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources:      resources,
	}
}
