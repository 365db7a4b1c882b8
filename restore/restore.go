// Package restore drives the toolchain step that resolves library
// references into usable compilation inputs for a build directory.
package restore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/toolchain"
)

// Files generated or consumed under the build directory.
const (
	ManifestFile  = "go.mod"
	PinFile       = "sdk.json"
	ErrorLog      = "restore_errors.log"
	ReferenceList = "references.txt"
)

// Reference is one resolved compilation input produced by the toolchain.
type Reference struct {
	Path string // module path
	Dir  string // resolved location on disk, may be empty
}

// Result is the outcome of one restore attempt. Exactly one Result is
// delivered per attempt that is not superseded before completion.
type Result struct {
	Success    bool
	Error      string
	References []Reference
}

// Failure builds a failed Result carrying a human-readable message.
func Failure(msg string) Result {
	return Result{Error: msg}
}

// Coordinator generates build inputs and invokes the external toolchain.
// It holds no cross-call mutable state; the orchestrator owns sequencing.
type Coordinator struct {
	GoTool    string
	GoVersion string // go directive for generated manifests
	Runner    toolchain.Runner
}

// New returns a Coordinator using the real toolchain.
func New() *Coordinator {
	return &Coordinator{
		GoTool:    toolchain.Find(),
		GoVersion: "1.25",
		Runner:    toolchain.Exec{},
	}
}

// Restore resolves the library set for the given platform into the build
// directory. Cancellation surfaces as ctx.Err() and is treated by callers
// as "superseded", never reported as an error; every other failure is
// converted into a failure Result.
func (c *Coordinator) Restore(ctx context.Context, p platform.Platform, v *platform.Version, libs []LibraryRef, buildDir string) (Result, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return Failure(fmt.Sprintf("create build directory: %v", err)), nil
	}

	if v != nil {
		if err := writePin(buildDir, v.Number); err != nil {
			return Failure(err.Error()), nil
		}
	}
	if err := c.writeManifest(buildDir, v, libs); err != nil {
		return Failure(err.Error()), nil
	}

	logPath := filepath.Join(buildDir, ErrorLog)
	os.Remove(logPath)

	// The generated manifest must stay writable to the toolchain.
	env := []string{"GOFLAGS=-mod=mod"}

	// References without a pinned version cannot appear in the manifest;
	// the toolchain resolves them to a concrete version first.
	if unpinned := unpinnedArgs(libs); len(unpinned) > 0 {
		args := append([]string{"get"}, unpinned...)
		out, err := c.Runner.Run(ctx, buildDir, env, c.GoTool, args...)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if err != nil {
			os.WriteFile(logPath, out, 0o644)
			return Failure(readErrorLog(logPath, out)), nil
		}
	}

	out, err := c.Runner.Run(ctx, buildDir, env, c.GoTool, "mod", "download", "all")
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if err != nil {
		os.WriteFile(logPath, out, 0o644)
		msg := readErrorLog(logPath, out)
		return Failure(msg), nil
	}

	refs, err := c.listReferences(ctx, buildDir)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if err != nil {
		return Failure(err.Error()), nil
	}

	return Result{Success: true, References: refs}, nil
}

func (c *Coordinator) writeManifest(buildDir string, v *platform.Version, libs []LibraryRef) error {
	var b strings.Builder
	b.WriteString("module gopad.scratch\n\n")
	fmt.Fprintf(&b, "go %s\n", c.goDirective(v))
	if v != nil {
		fmt.Fprintf(&b, "\ntoolchain go%s\n", v.Number)
	}
	var pinned []LibraryRef
	for _, r := range Dedup(libs) {
		if r.Version != "" {
			pinned = append(pinned, r)
		}
	}
	if len(pinned) > 0 {
		b.WriteString("\nrequire (\n")
		for _, r := range pinned {
			fmt.Fprintf(&b, "\t%s %s\n", r.Name, r.Version)
		}
		b.WriteString(")\n")
	}
	path := filepath.Join(buildDir, ManifestFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// goDirective derives the language version line: a pinned toolchain wins,
// otherwise the coordinator default.
func (c *Coordinator) goDirective(v *platform.Version) string {
	if v == nil {
		return c.GoVersion
	}
	parts := strings.SplitN(v.Number, ".", 3)
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return v.Number
}

func writePin(buildDir, version string) error {
	pin := map[string]map[string]string{"sdk": {"version": version}}
	data, err := json.MarshalIndent(pin, "", "  ")
	if err != nil {
		return fmt.Errorf("encode version pin: %w", err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, PinFile), data, 0o644); err != nil {
		return fmt.Errorf("write version pin: %w", err)
	}
	return nil
}

func unpinnedArgs(libs []LibraryRef) []string {
	var args []string
	for _, r := range Dedup(libs) {
		if r.Version == "" {
			args = append(args, r.Name+"@latest")
		}
	}
	return args
}

// readErrorLog reads the captured toolchain error log, falling back to the
// in-memory process output when the log is absent or empty.
func readErrorLog(logPath string, out []byte) string {
	data, err := os.ReadFile(logPath)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(string(out))
}

// listReferences asks the toolchain for the resolved module list and
// records it as the reference list file, one reference per line.
func (c *Coordinator) listReferences(ctx context.Context, buildDir string) ([]Reference, error) {
	out, err := c.Runner.Run(ctx, buildDir, nil, c.GoTool, "list", "-m", "-f", "{{.Path}} {{.Dir}}", "all")
	if err != nil {
		return nil, fmt.Errorf("list references: %s", strings.TrimSpace(string(out)))
	}
	path := filepath.Join(buildDir, ReferenceList)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("write reference list: %w", err)
	}
	return ParseReferenceList(string(out)), nil
}

// ParseReferenceList parses one reference per line, skipping blank lines.
func ParseReferenceList(text string) []Reference {
	var refs []Reference
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path, dir, _ := strings.Cut(line, " ")
		if path == "gopad.scratch" {
			continue
		}
		refs = append(refs, Reference{Path: path, Dir: strings.TrimSpace(dir)})
	}
	return refs
}
