// Package compiler turns submitted source text into a standalone compiled
// artifact, pairing the snippet with a fixed bootstrap unit that wires up
// the child side of the result protocol.
package compiler

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/result"
	"github.com/caffeineduck/gopad/toolchain"
)

//go:embed bootstrap.go.tmpl
var bootstrapSrc string

// Generated file names under the build directory.
const (
	userFile      = "main.go"
	bootstrapFile = "gopad_bootstrap.go"
	artifactName  = "scratch"
)

// OptimizationLevel selects how the artifact is built.
type OptimizationLevel int

const (
	Debug OptimizationLevel = iota
	Release
)

// Options fix per-compilation behavior.
type Options struct {
	Imports             []string
	DisabledDiagnostics []string
	Optimization        OptimizationLevel
	OverflowChecks      bool
	AllowUnsafe         bool
	Vet                 bool
}

// Compiler builds snippet programs with the external go toolchain.
type Compiler struct {
	GoTool string
	Runner toolchain.Runner
}

// New returns a Compiler using the real toolchain.
func New() *Compiler {
	return &Compiler{GoTool: toolchain.Find(), Runner: toolchain.Exec{}}
}

// Compile produces diagnostics and, when none are error severity, the path
// of the compiled artifact. A nil error with an empty artifact path means
// compilation failed and nothing should be launched.
func (c *Compiler) Compile(ctx context.Context, src string, p platform.Platform, v *platform.Version, buildDir string, opts Options) ([]result.CompileError, string, error) {
	u, diags := prepare(src, opts.Imports, opts.AllowUnsafe)
	diags = filterDiagnostics(diags, opts.DisabledDiagnostics)
	if hasErrors(diags) {
		return diags, "", nil
	}

	if err := os.WriteFile(filepath.Join(buildDir, userFile), []byte(u.Source), 0o644); err != nil {
		return nil, "", fmt.Errorf("write user unit: %w", err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, bootstrapFile), []byte(bootstrapSrc), 0o644); err != nil {
		return nil, "", fmt.Errorf("write bootstrap unit: %w", err)
	}

	artifact := filepath.Join(buildDir, artifactName+p.ArtifactExt())
	args := []string{"build", "-o", artifact}
	if opts.Optimization == Debug {
		args = append(args, "-gcflags=all=-N -l")
	}
	if opts.OverflowChecks && !p.SelfContained {
		args = append(args, "-race")
	}
	args = append(args, ".")

	var env []string
	if p.SelfContained {
		env = append(env, "GOOS="+p.OS, "GOARCH="+p.Arch)
	}
	if v != nil {
		env = append(env, "GOTOOLCHAIN=go"+v.Number)
	}

	out, err := c.Runner.Run(ctx, buildDir, env, c.GoTool, args...)
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	if err != nil {
		buildDiags := parseToolOutput(out, u.LineOffset, "build", result.SeverityError)
		if len(buildDiags) == 0 {
			buildDiags = append(buildDiags, result.CompileError{
				Severity: result.SeverityError,
				ID:       "build",
				Message:  strings.TrimSpace(string(out)),
			})
		}
		diags = append(diags, buildDiags...)
	} else if opts.Vet {
		if out, err := c.Runner.Run(ctx, buildDir, env, c.GoTool, "vet", "."); err != nil {
			diags = append(diags, parseToolOutput(out, u.LineOffset, "vet", result.SeverityWarning)...)
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}

	diags = filterDiagnostics(diags, opts.DisabledDiagnostics)
	if hasErrors(diags) {
		return diags, "", nil
	}
	return diags, artifact, nil
}

func hasErrors(diags []result.CompileError) bool {
	for _, d := range diags {
		if d.Severity == result.SeverityError {
			return true
		}
	}
	return false
}

// filterDiagnostics drops diagnostics whose id is in the disabled set.
func filterDiagnostics(diags []result.CompileError, disabled []string) []result.CompileError {
	if len(disabled) == 0 || len(diags) == 0 {
		return diags
	}
	drop := make(map[string]struct{}, len(disabled))
	for _, id := range disabled {
		drop[id] = struct{}{}
	}
	kept := diags[:0]
	for _, d := range diags {
		if _, ok := drop[d.ID]; !ok {
			kept = append(kept, d)
		}
	}
	return kept
}
