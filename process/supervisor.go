// Package process supervises one compiled snippet program per run:
// spawning, forceful cancellation, and the duplex stream protocol that
// relays its structured results back to the orchestrator.
package process

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/result"
)

// Events receives typed protocol events for one run. Callbacks arrive from
// two concurrent readers; only per-channel ordering is guaranteed.
type Events interface {
	Dumped(*result.Dump)
	Errored(*result.Exception)
	InputRequested()
}

// Supervisor owns the child process for the lifetime of a run.
type Supervisor struct {
	quotas result.Quotas

	mu    sync.Mutex
	stdin io.WriteCloser
}

// New returns a Supervisor applying the given quotas to relayed output.
func New(quotas result.Quotas) *Supervisor {
	return &Supervisor{quotas: quotas}
}

// SendInput forwards one line to the live child's stdin. It is a no-op
// when no child is running; a write racing process teardown simply fails
// and is ignored.
func (s *Supervisor) SendInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return
	}
	io.WriteString(s.stdin, text+"\n")
}

// launchCommand builds the child invocation: the artifact directly when it
// is natively launchable, otherwise the platform's launcher with the
// artifact path as its first argument. The host pid lets the child detect
// a dead host and self-terminate.
func launchCommand(artifact string, p platform.Platform, hostPID int) (string, []string) {
	pid := strconv.Itoa(hostPID)
	if p.LauncherPath != "" {
		return p.LauncherPath, []string{artifact, "--pid", pid}
	}
	return artifact, []string{"--pid", pid}
}

// Run launches the artifact and blocks until the process exits and both
// output streams drain. Cancelling the context drops the input writer and
// forcibly kills the process; kill failures are swallowed since the
// process may have already exited.
func (s *Supervisor) Run(ctx context.Context, artifact, workDir string, p platform.Platform, hostPID int, sink Events) error {
	name, args := launchCommand(artifact, p, hostPID)
	cmd := exec.Command(name, args...)
	cmd.Dir = workDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	s.mu.Lock()
	s.stdin = stdin
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.stdin = nil
		s.mu.Unlock()
		cmd.Process.Kill()
	})
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readRecords(stdout, sink)
	}()
	go func() {
		defer wg.Done()
		s.readLines(stderr, sink)
	}()
	wg.Wait()

	cmd.Wait() // child exit codes are not interpreted

	s.mu.Lock()
	s.stdin = nil
	s.mu.Unlock()

	return ctx.Err()
}
