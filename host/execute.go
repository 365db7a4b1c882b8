package host

import (
	"context"
	"fmt"
	"slices"

	"github.com/caffeineduck/gopad/compiler"
	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/result"
)

// Execute compiles and runs one snippet to completion. It gates on the
// latest chained restore, reports diagnostics, and launches nothing when
// any diagnostic is error severity. Compilation errors are reported via
// events, not the returned error; cancellation via Terminate is normal
// control flow and returns nil.
func (h *Host) Execute(ctx context.Context, src string, disassemble bool, opt *compiler.OptimizationLevel) error {
	h.mu.Lock()
	if !h.ready() {
		h.mu.Unlock()
		return ErrNotReady
	}
	if h.running {
		h.mu.Unlock()
		return ErrBusy
	}
	h.running = true
	ctx, cancel := context.WithCancel(ctx)
	h.execCancel = cancel
	p, v := *h.plat, h.version
	dir := h.buildDir
	opts := h.compileOptions(opt)
	h.mu.Unlock()

	defer func() {
		cancel()
		h.mu.Lock()
		h.running = false
		h.execCancel = nil
		h.cur = nil
		pending := h.pendingClear
		if pending {
			h.pendingClear = false
			h.invalidateLocked()
		}
		ready := h.ready()
		h.mu.Unlock()
		if pending && ready {
			h.triggerRestore()
		}
	}()

	res, err := h.awaitRestore(ctx)
	if err != nil {
		return err
	}
	if !res.Success {
		// The failure already surfaced through the restore-completed
		// event; execution is never attempted against a failed restore.
		return fmt.Errorf("restore failed: %s", res.Error)
	}

	diags, artifact, err := h.comp.Compile(ctx, src, p, v, dir, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if len(diags) > 0 {
		h.publish(CompilationErrorsEvent{Diagnostics: diags})
	}
	if artifact == "" {
		return nil
	}

	if disassemble {
		if text, err := h.disasm(ctx, artifact); err == nil {
			h.publish(DisassembledEvent{Text: text})
		}
	}

	runner := h.newRunner(h.quotas)
	h.mu.Lock()
	h.cur = runner
	h.mu.Unlock()

	err = runner.Run(ctx, artifact, h.params.WorkingDir, p, h.pid, hostSink{h})
	if ctx.Err() != nil {
		return nil // terminated: not a user-visible error
	}
	return err
}

// compileOptions derives per-compilation options from the host
// parameters, with an optional optimization override. Caller holds h.mu.
func (h *Host) compileOptions(opt *compiler.OptimizationLevel) compiler.Options {
	level := h.params.Optimization
	if opt != nil {
		level = *opt
	}
	return compiler.Options{
		Imports:             slices.Clone(h.params.Imports),
		DisabledDiagnostics: slices.Clone(h.params.DisabledDiagnostics),
		Optimization:        level,
		OverflowChecks:      h.params.OverflowChecks,
		AllowUnsafe:         h.params.AllowUnsafe,
		Vet:                 h.params.Vet,
	}
}

// awaitRestore blocks until the latest restore attempt settles, following
// the chain when an attempt is superseded while we wait.
func (h *Host) awaitRestore(ctx context.Context) (restore.Result, error) {
	for {
		h.mu.Lock()
		job := h.job
		h.mu.Unlock()
		if job == nil {
			return restore.Result{}, ErrNotReady
		}
		select {
		case <-job.done:
		case <-ctx.Done():
			return restore.Result{}, ctx.Err()
		}
		h.mu.Lock()
		latest := h.job == job
		res := job.result
		h.mu.Unlock()
		if latest {
			return res, nil
		}
	}
}

// hostSink fans protocol events out to subscribers.
type hostSink struct{ h *Host }

func (s hostSink) Dumped(d *result.Dump) {
	s.h.publish(DumpedEvent{Object: d})
}

func (s hostSink) Errored(e *result.Exception) {
	s.h.publish(ErrorEvent{Exception: e})
}

func (s hostSink) InputRequested() {
	s.h.publish(ReadInputEvent{})
}

// Platform returns the selected platform, if any.
func (h *Host) Platform() (platform.Platform, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.plat == nil {
		return platform.Platform{}, false
	}
	return *h.plat, true
}
