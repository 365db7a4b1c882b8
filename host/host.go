// Package host orchestrates the out-of-process execution pipeline:
// configuration, chained restores, compilation, and supervised runs of the
// compiled snippet program.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/caffeineduck/gopad/compiler"
	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/process"
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/result"
)

var (
	ErrBusy     = errors.New("an execution is already running")
	ErrNotReady = errors.New("no platform selected")
)

// Restorer resolves the library set into a build directory.
type Restorer interface {
	Restore(ctx context.Context, p platform.Platform, v *platform.Version, libs []restore.LibraryRef, buildDir string) (restore.Result, error)
}

// Compiler builds a snippet into an artifact.
type Compiler interface {
	Compile(ctx context.Context, src string, p platform.Platform, v *platform.Version, buildDir string, opts compiler.Options) ([]result.CompileError, string, error)
}

// Runner supervises one child process per run.
type Runner interface {
	Run(ctx context.Context, artifact, workDir string, p platform.Platform, hostPID int, sink process.Events) error
	SendInput(text string)
}

// Parameters fix host-wide build settings for the host's lifetime.
type Parameters struct {
	BuildRoot           string
	WorkingDir          string
	Imports             []string
	DisabledDiagnostics []string
	Optimization        compiler.OptimizationLevel
	OverflowChecks      bool
	AllowUnsafe         bool
	Vet                 bool
}

// Host owns the execution configuration and serializes restores and runs
// against its build directory.
type Host struct {
	params Parameters
	pid    int
	quotas result.Quotas

	restorer  Restorer
	comp      Compiler
	disasm    Disassembler
	newRunner func(result.Quotas) Runner

	subMu sync.Mutex
	subs  map[chan Event]struct{}

	mu           sync.Mutex
	plat         *platform.Platform
	version      *platform.Version
	name         string
	libraries    []restore.LibraryRef
	refs         []restore.Reference
	buildDir     string
	job          *restoreJob
	running      bool
	execCancel   context.CancelFunc
	cur          Runner
	pendingClear bool
}

type restoreJob struct {
	cancel context.CancelFunc
	done   chan struct{}
	result restore.Result // valid once done is closed and the job was not superseded
}

// Option configures a Host at creation time.
type Option func(*Host)

// WithRestorer substitutes the build coordinator.
func WithRestorer(r Restorer) Option {
	return func(h *Host) { h.restorer = r }
}

// WithCompiler substitutes the script compiler.
func WithCompiler(c Compiler) Option {
	return func(h *Host) { h.comp = c }
}

// WithDisassembler substitutes the artifact disassembler.
func WithDisassembler(d Disassembler) Option {
	return func(h *Host) { h.disasm = d }
}

// WithRunnerFactory substitutes the process supervisor constructor.
func WithRunnerFactory(f func(result.Quotas) Runner) Option {
	return func(h *Host) { h.newRunner = f }
}

// WithQuotas overrides the output quotas.
func WithQuotas(q result.Quotas) Option {
	return func(h *Host) { h.quotas = q }
}

// New creates a Host. No platform is selected yet; Execute and restores
// are no-ops until one is.
func New(params Parameters, opts ...Option) *Host {
	h := &Host{
		params:   params,
		pid:      os.Getpid(),
		quotas:   result.DefaultQuotas(),
		restorer: restore.New(),
		comp:     compiler.New(),
		disasm:   Objdump(),
		name:     "scratch",
		subs:     make(map[chan Event]struct{}),
	}
	h.newRunner = func(q result.Quotas) Runner { return process.New(q) }
	for _, opt := range opts {
		opt(h)
	}
	h.buildDir = h.newBuildDir()
	return h
}

func (h *Host) newBuildDir() string {
	return filepath.Join(h.params.BuildRoot, fmt.Sprintf("%s-%s", h.name, uuid.NewString()[:8]))
}

// BuildDir returns the current build directory.
func (h *Host) BuildDir() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buildDir
}

// Ready reports whether a platform is selected and, when it requires one,
// a version has been chosen.
func (h *Host) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready()
}

func (h *Host) ready() bool {
	return h.plat != nil && h.plat.Ready(h.version)
}

// SetPlatform selects the build target. Any previously chosen version is
// discarded. A run in progress is stopped first.
func (h *Host) SetPlatform(p platform.Platform) {
	h.applyConfig(func() {
		h.plat = &p
		h.version = nil
	}, true)
}

// SetVersion pins the toolchain version. A run in progress is stopped
// first.
func (h *Host) SetVersion(v platform.Version) {
	h.applyConfig(func() { h.version = &v }, true)
}

// SetName renames the session, relocating the build directory. A run in
// progress is left alone; the directory swap happens once it ends.
func (h *Host) SetName(name string) {
	h.applyConfig(func() { h.name = name }, false)
}

// applyConfig runs one configuration transition: mutate, invalidate the
// build directory (now, or once the current run ends), then restore when
// the configuration is ready. While a run is in progress the restore is
// deferred along with the directory swap so it never targets a directory
// about to be cleared.
func (h *Host) applyConfig(mutate func(), stopRun bool) {
	h.mu.Lock()
	mutate()
	var cancel context.CancelFunc
	if h.running {
		if stopRun {
			cancel = h.execCancel
		}
		h.pendingClear = true
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	h.invalidateLocked()
	ready := h.ready()
	h.mu.Unlock()
	if ready {
		h.triggerRestore()
	}
}

// invalidateLocked clears the build directory and rotates to a fresh one.
func (h *Host) invalidateLocked() {
	if h.buildDir != "" {
		os.RemoveAll(h.buildDir)
	}
	h.buildDir = h.newBuildDir()
	h.refs = nil
}

// UpdateLibraries replaces the active library set. A set-equal update is a
// no-op; otherwise exactly one new restore is triggered and any in-flight
// restore is superseded.
func (h *Host) UpdateLibraries(refs []restore.LibraryRef) {
	h.mu.Lock()
	if restore.EqualSets(h.libraries, refs) {
		h.mu.Unlock()
		return
	}
	h.libraries = restore.Dedup(slices.Clone(refs))
	ready := h.ready()
	h.mu.Unlock()
	if ready {
		h.triggerRestore()
	}
}

// Libraries returns the active library set.
func (h *Host) Libraries() []restore.LibraryRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.libraries)
}

// References returns the reference set resolved by the latest successful
// restore.
func (h *Host) References() []restore.Reference {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.refs)
}

// triggerRestore submits a restore into the single-slot queue: the new
// attempt cancels any outstanding one and is chained to run only after it
// finishes, so restores never overlap on the build directory.
func (h *Host) triggerRestore() {
	h.mu.Lock()
	if !h.ready() {
		h.mu.Unlock()
		return
	}
	prev := h.job
	ctx, cancel := context.WithCancel(context.Background())
	job := &restoreJob{cancel: cancel, done: make(chan struct{})}
	h.job = job
	p, v := *h.plat, h.version
	libs := slices.Clone(h.libraries)
	dir := h.buildDir
	h.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	go func() {
		defer close(job.done)
		if prev != nil {
			<-prev.done
		}
		if ctx.Err() != nil {
			return // superseded before it began
		}
		h.publish(RestoreStartedEvent{})
		res, err := h.restorer.Restore(ctx, p, v, libs, dir)
		if err != nil {
			return // cancelled mid-flight: superseded, not an error
		}
		h.mu.Lock()
		job.result = res
		if h.job == job && res.Success {
			h.refs = res.References
		}
		h.mu.Unlock()
		h.publish(RestoreCompletedEvent{Result: res})
	}()
}

// Terminate requests cancellation of the current execution only. It is
// idempotent and a no-op when nothing is running.
func (h *Host) Terminate() {
	h.mu.Lock()
	cancel := h.execCancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SendInput forwards a line to the running snippet's input channel, if one
// exists.
func (h *Host) SendInput(text string) {
	h.mu.Lock()
	cur := h.cur
	h.mu.Unlock()
	if cur != nil {
		cur.SendInput(text)
	}
}

// Running reports whether an execution is in progress.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Close cancels any outstanding restore and execution.
func (h *Host) Close() {
	h.Terminate()
	h.mu.Lock()
	job := h.job
	h.mu.Unlock()
	if job != nil {
		job.cancel()
	}
}
