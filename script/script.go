// Package script provides one-shot snippet execution on top of the host
// orchestrator: restore, compile, run, and collect the results.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caffeineduck/gopad/compiler"
	"github.com/caffeineduck/gopad/host"
	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/result"
)

// Options configure a one-shot run.
type Options struct {
	Platform            *platform.Platform
	Version             *platform.Version
	Libraries           []restore.LibraryRef
	Imports             []string
	DisabledDiagnostics []string
	Optimization        compiler.OptimizationLevel
	OverflowChecks      bool
	AllowUnsafe         bool
	Vet                 bool
	Timeout             time.Duration
	BuildRoot           string
	Disassemble         bool
}

// DefaultOptions returns the defaults for one-shot execution.
func DefaultOptions() Options {
	return Options{
		Timeout: 2 * time.Minute,
		Imports: []string{"fmt", "strings", "time", "math", "os"},
	}
}

// Result holds everything a one-shot run produced.
type Result struct {
	Output      string // dump headers and diagnostics joined by newlines
	Objects     []result.Object
	Diagnostics []result.CompileError
	Disassembly string
	Duration    time.Duration
	Error       error
}

// Run executes one snippet to completion. Host options allow tests to
// substitute the toolchain-touching collaborators.
func Run(ctx context.Context, source string, opts Options, hostOpts ...host.Option) Result {
	start := time.Now()

	p := platform.Native()
	if opts.Platform != nil {
		p = *opts.Platform
	}
	if !p.Ready(opts.Version) {
		return Result{
			Error:    fmt.Errorf("platform %q requires a toolchain version", p.Name),
			Duration: time.Since(start),
		}
	}

	buildRoot := opts.BuildRoot
	if buildRoot == "" {
		dir, err := os.MkdirTemp("", "gopad-*")
		if err != nil {
			return Result{Error: err, Duration: time.Since(start)}
		}
		defer os.RemoveAll(dir)
		buildRoot = dir
	}

	h := host.New(host.Parameters{
		BuildRoot:           buildRoot,
		Imports:             opts.Imports,
		DisabledDiagnostics: opts.DisabledDiagnostics,
		Optimization:        opts.Optimization,
		OverflowChecks:      opts.OverflowChecks,
		AllowUnsafe:         opts.AllowUnsafe,
		Vet:                 opts.Vet,
	}, hostOpts...)
	defer h.Close()

	events := h.Subscribe()

	var (
		mu       sync.Mutex
		res      Result
		lines    []string
		restored = make(chan restore.Result, 1)
		drained  = make(chan struct{})
	)
	go func() {
		defer close(drained)
		for e := range events {
			switch ev := e.(type) {
			case host.RestoreCompletedEvent:
				select {
				case restored <- ev.Result:
				default:
				}
			case host.DumpedEvent:
				mu.Lock()
				res.Objects = append(res.Objects, ev.Object)
				lines = append(lines, ev.Object.Header)
				mu.Unlock()
			case host.ErrorEvent:
				mu.Lock()
				res.Objects = append(res.Objects, ev.Exception)
				lines = append(lines, ev.Exception.Error())
				if res.Error == nil {
					res.Error = ev.Exception
				}
				mu.Unlock()
			case host.CompilationErrorsEvent:
				mu.Lock()
				res.Diagnostics = ev.Diagnostics
				for _, d := range ev.Diagnostics {
					lines = append(lines, d.String())
				}
				mu.Unlock()
			case host.DisassembledEvent:
				mu.Lock()
				res.Disassembly = ev.Text
				mu.Unlock()
			case host.ReadInputEvent:
				// One-shot runs have no interactive caller; unblock the
				// snippet with an empty line.
				h.SendInput("")
			}
		}
	}()

	h.UpdateLibraries(opts.Libraries)
	h.SetPlatform(p)
	if opts.Version != nil {
		h.SetVersion(*opts.Version)
	}

	finish := func() Result {
		h.Unsubscribe(events)
		<-drained
		mu.Lock()
		defer mu.Unlock()
		res.Output = strings.Join(lines, "\n")
		res.Duration = time.Since(start)
		if res.Error == nil && hasErrors(res.Diagnostics) {
			res.Error = errors.New("compilation failed")
		}
		return res
	}

	select {
	case r := <-restored:
		if !r.Success {
			mu.Lock()
			res.Error = errors.New(r.Error)
			mu.Unlock()
			return finish()
		}
	case <-ctx.Done():
		mu.Lock()
		res.Error = ctx.Err()
		mu.Unlock()
		return finish()
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := h.Execute(runCtx, source, opts.Disassemble, nil); err != nil {
		mu.Lock()
		if res.Error == nil {
			res.Error = err
		}
		mu.Unlock()
	}
	return finish()
}

func hasErrors(diags []result.CompileError) bool {
	for _, d := range diags {
		if d.Severity == result.SeverityError {
			return true
		}
	}
	return false
}
