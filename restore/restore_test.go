package restore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/gopad/platform"
)

type fakeRunner struct {
	calls   [][]string
	outputs map[string][]byte // keyed by first toolchain subcommand
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := args[0]
	return f.outputs[key], f.errs[key]
}

func newCoordinator(r *fakeRunner) *Coordinator {
	return &Coordinator{GoTool: "go", GoVersion: "1.25", Runner: r}
}

func TestRestoreSuccess(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"list": []byte("gopad.scratch\ngithub.com/google/uuid /cache/uuid@v1.6.0\n\ngolang.org/x/sys /cache/sys\n"),
		},
	}
	c := newCoordinator(runner)

	libs := []LibraryRef{{Name: "github.com/google/uuid", Version: "v1.6.0"}}
	res, err := c.Restore(context.Background(), platform.Native(), nil, libs, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got failure: %s", res.Error)
	}

	// Blank lines and the scratch module itself are skipped.
	if len(res.References) != 2 {
		t.Fatalf("references = %d, want 2: %+v", len(res.References), res.References)
	}
	if res.References[0].Path != "github.com/google/uuid" || res.References[0].Dir != "/cache/uuid@v1.6.0" {
		t.Errorf("unexpected reference: %+v", res.References[0])
	}

	manifest, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	for _, want := range []string{"module gopad.scratch", "go 1.25", "github.com/google/uuid v1.6.0"} {
		if !strings.Contains(string(manifest), want) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ReferenceList)); err != nil {
		t.Errorf("reference list not written: %v", err)
	}

	// No version selected, so no pin file.
	if _, err := os.Stat(filepath.Join(dir, PinFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("pin file should not exist without a version")
	}
}

func TestRestoreWritesVersionPin(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{outputs: map[string][]byte{"list": []byte("")}}
	c := newCoordinator(runner)

	v := &platform.Version{Number: "1.24.3", TargetID: "go1.24-linux-amd64"}
	res, err := c.Restore(context.Background(), platform.Pinned(), v, nil, dir)
	if err != nil || !res.Success {
		t.Fatalf("restore failed: %v %s", err, res.Error)
	}

	pin, err := os.ReadFile(filepath.Join(dir, PinFile))
	if err != nil {
		t.Fatalf("pin file not written: %v", err)
	}
	if !strings.Contains(string(pin), `"version": "1.24.3"`) {
		t.Errorf("pin file content: %s", pin)
	}

	manifest, _ := os.ReadFile(filepath.Join(dir, ManifestFile))
	for _, want := range []string{"go 1.24\n", "toolchain go1.24.3"} {
		if !strings.Contains(string(manifest), want) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}
}

func TestRestoreToolchainFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		outputs: map[string][]byte{"mod": []byte("go: module example.com/nope: not found\n")},
		errs:    map[string]error{"mod": errors.New("exit status 1")},
	}
	c := newCoordinator(runner)

	res, err := c.Restore(context.Background(), platform.Native(), nil, nil, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("failure message = %q", res.Error)
	}

	// The combined output was captured to the error log.
	log, err := os.ReadFile(filepath.Join(dir, ErrorLog))
	if err != nil {
		t.Fatalf("error log not written: %v", err)
	}
	if !strings.Contains(string(log), "not found") {
		t.Errorf("error log content: %s", log)
	}
}

func TestRestoreCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{
		errs: map[string]error{"mod": context.Canceled},
	}
	c := newCoordinator(runner)

	cancel()
	_, err := c.Restore(ctx, platform.Native(), nil, nil, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRestoreResolvesUnpinnedLibraries(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{outputs: map[string][]byte{"list": []byte("")}}
	c := newCoordinator(runner)

	libs := []LibraryRef{{Name: "example.com/mod"}}
	res, err := c.Restore(context.Background(), platform.Native(), nil, libs, dir)
	if err != nil || !res.Success {
		t.Fatalf("restore failed: %v %s", err, res.Error)
	}

	var sawGet bool
	for _, call := range runner.calls {
		if call[1] == "get" {
			sawGet = true
			if call[2] != "example.com/mod@latest" {
				t.Errorf("get args = %v", call)
			}
		}
	}
	if !sawGet {
		t.Error("expected a go get invocation for the unpinned reference")
	}

	// Unpinned references never appear in the manifest.
	manifest, _ := os.ReadFile(filepath.Join(dir, ManifestFile))
	if strings.Contains(string(manifest), "example.com/mod") {
		t.Errorf("manifest should not name unpinned references:\n%s", manifest)
	}
}

func TestParseReferenceList(t *testing.T) {
	refs := ParseReferenceList("a/b /x\n\n  \nc/d\n")
	if len(refs) != 2 {
		t.Fatalf("refs = %d, want 2", len(refs))
	}
	if refs[1].Path != "c/d" || refs[1].Dir != "" {
		t.Errorf("unexpected ref: %+v", refs[1])
	}
}

func TestEqualSets(t *testing.T) {
	a := LibraryRef{Name: "a", Version: "1"}
	b := LibraryRef{Name: "b", Version: "2"}

	tests := []struct {
		name string
		x, y []LibraryRef
		want bool
	}{
		{"both empty", nil, nil, true},
		{"same order", []LibraryRef{a, b}, []LibraryRef{a, b}, true},
		{"different order", []LibraryRef{a, b}, []LibraryRef{b, a}, true},
		{"duplicates ignored", []LibraryRef{a, a, b}, []LibraryRef{a, b}, true},
		{"different sets", []LibraryRef{a}, []LibraryRef{b}, false},
		{"subset", []LibraryRef{a}, []LibraryRef{a, b}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqualSets(tt.x, tt.y); got != tt.want {
				t.Errorf("EqualSets = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLibraryRef(t *testing.T) {
	r, err := ParseLibraryRef("github.com/google/uuid@v1.6.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name != "github.com/google/uuid" || r.Version != "v1.6.0" {
		t.Errorf("unexpected ref: %+v", r)
	}

	r, err = ParseLibraryRef("example.com/mod")
	if err != nil || r.Version != "" {
		t.Errorf("bare module should parse: %+v, %v", r, err)
	}

	if _, err := ParseLibraryRef("@v1"); err == nil {
		t.Error("expected error for empty module name")
	}
}
