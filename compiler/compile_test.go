package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/result"
)

type fakeRunner struct {
	calls   [][]string
	envs    [][]string
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.envs = append(f.envs, env)
	return f.outputs[args[0]], f.errs[args[0]]
}

func newCompiler(r *fakeRunner) *Compiler {
	return &Compiler{GoTool: "go", Runner: r}
}

func TestCompileSuccess(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	c := newCompiler(runner)

	diags, artifact, err := c.Compile(context.Background(), "1+1", platform.Native(), nil, dir, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if artifact == "" {
		t.Fatal("expected an artifact path")
	}

	user, err := os.ReadFile(filepath.Join(dir, userFile))
	if err != nil {
		t.Fatalf("user unit not written: %v", err)
	}
	if !strings.Contains(string(user), "__gopad_dump(1+1)") {
		t.Errorf("user unit missing rewrite:\n%s", user)
	}

	boot, err := os.ReadFile(filepath.Join(dir, bootstrapFile))
	if err != nil {
		t.Fatalf("bootstrap unit not written: %v", err)
	}
	if !strings.Contains(string(boot), "func __gopad_main") && !strings.Contains(string(boot), "__gopad_emit") {
		t.Errorf("bootstrap unit looks wrong")
	}
}

func TestCompileSyntaxErrorSkipsBuild(t *testing.T) {
	runner := &fakeRunner{}
	c := newCompiler(runner)

	diags, artifact, err := c.Compile(context.Background(), "x := (1", platform.Native(), nil, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact != "" {
		t.Error("artifact should be empty on syntax error")
	}
	if len(diags) == 0 || diags[0].ID != "syntax" {
		t.Errorf("expected syntax diagnostics, got %v", diags)
	}
	if len(runner.calls) != 0 {
		t.Errorf("toolchain should not be invoked: %v", runner.calls)
	}
}

func TestCompileBuildFailure(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{"build": []byte("# gopad.scratch\n./main.go:4:8: undefined: foo\n")},
		errs:    map[string]error{"build": errors.New("exit status 1")},
	}
	c := newCompiler(runner)

	diags, artifact, err := c.Compile(context.Background(), "x := foo\n_ = x", platform.Native(), nil, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact != "" {
		t.Error("artifact should be empty on build failure")
	}
	if len(diags) != 1 {
		t.Fatalf("diags = %v", diags)
	}
	d := diags[0]
	if d.Severity != result.SeverityError || d.ID != "build" {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	// File line 4 with a 3-line prelude maps to snippet line 0; columns are
	// 0-based too.
	if d.Line != 0 || d.Column != 7 {
		t.Errorf("position = (%d,%d), want (0,7)", d.Line, d.Column)
	}
}

func TestCompileVetWarnings(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{"vet": []byte("./main.go:4:2: unreachable code\n")},
		errs:    map[string]error{"vet": errors.New("exit status 1")},
	}
	c := newCompiler(runner)

	diags, artifact, err := c.Compile(context.Background(), "x := 1\n_ = x", platform.Native(), nil, t.TempDir(), Options{Vet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact == "" {
		t.Fatal("warnings must not block the artifact")
	}
	if len(diags) != 1 || diags[0].Severity != result.SeverityWarning || diags[0].ID != "vet" {
		t.Errorf("diags = %v", diags)
	}
}

func TestCompileDisabledDiagnosticsFiltered(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{"vet": []byte("./main.go:4:2: unreachable code\n")},
		errs:    map[string]error{"vet": errors.New("exit status 1")},
	}
	c := newCompiler(runner)

	opts := Options{Vet: true, DisabledDiagnostics: []string{"vet"}}
	diags, artifact, err := c.Compile(context.Background(), "x := 1\n_ = x", platform.Native(), nil, t.TempDir(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact == "" {
		t.Fatal("expected an artifact")
	}
	if len(diags) != 0 {
		t.Errorf("disabled diagnostics leaked: %v", diags)
	}
}

func TestCompileDisabledErrorDiagnosticProceeds(t *testing.T) {
	runner := &fakeRunner{}
	c := newCompiler(runner)

	opts := Options{
		Imports:             []string{"unsafe"},
		DisabledDiagnostics: []string{"unsafe"},
	}
	diags, artifact, err := c.Compile(context.Background(), "unsafe.Sizeof(0)", platform.Native(), nil, t.TempDir(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("disabled diagnostics leaked: %v", diags)
	}
	if artifact == "" {
		t.Fatal("a disabled error-severity diagnostic must not suppress the artifact")
	}
	if len(runner.calls) == 0 {
		t.Error("build should have been invoked")
	}
}

func TestCompileWasmTarget(t *testing.T) {
	runner := &fakeRunner{}
	c := newCompiler(runner)

	_, artifact, err := c.Compile(context.Background(), "1+1", platform.Wasm("gopad-wasi"), nil, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(artifact, ".wasm") {
		t.Errorf("artifact = %q, want .wasm suffix", artifact)
	}

	env := runner.envs[0]
	joined := strings.Join(env, " ")
	if !strings.Contains(joined, "GOOS=wasip1") || !strings.Contains(joined, "GOARCH=wasm") {
		t.Errorf("build env = %v", env)
	}
}

func TestCompileDebugAndRaceFlags(t *testing.T) {
	runner := &fakeRunner{}
	c := newCompiler(runner)

	opts := Options{Optimization: Debug, OverflowChecks: true}
	if _, _, err := c.Compile(context.Background(), "1+1", platform.Native(), nil, t.TempDir(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	build := strings.Join(runner.calls[0], " ")
	if !strings.Contains(build, "-gcflags=all=-N -l") {
		t.Errorf("debug build missing gcflags: %s", build)
	}
	if !strings.Contains(build, "-race") {
		t.Errorf("overflow checks should enable -race: %s", build)
	}

	runner2 := &fakeRunner{}
	c2 := newCompiler(runner2)
	if _, _, err := c2.Compile(context.Background(), "1+1", platform.Native(), nil, t.TempDir(), Options{Optimization: Release}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(strings.Join(runner2.calls[0], " "), "-gcflags") {
		t.Error("release build should not disable optimizations")
	}
}

func TestCompileVersionPinsToolchain(t *testing.T) {
	runner := &fakeRunner{}
	c := newCompiler(runner)

	v := &platform.Version{Number: "1.24.3"}
	if _, _, err := c.Compile(context.Background(), "1+1", platform.Pinned(), v, t.TempDir(), Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(strings.Join(runner.envs[0], " "), "GOTOOLCHAIN=go1.24.3") {
		t.Errorf("env = %v", runner.envs[0])
	}
}
