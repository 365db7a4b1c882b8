package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"gopad",
		"snippet",
		"run",
		"repl",
		"platforms",
		"--platform",
		"--go-version",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"--code",
		"--timeout",
		"--lib",
		"--import",
		"--disassemble",
		"--vet",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("run help output should contain %q", phrase)
		}
	}
}

func TestCLIPlatforms(t *testing.T) {
	output, err := executeCommand(rootCmd, "platforms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"native", "native-pinned", "wasm"} {
		if !strings.Contains(output, name) {
			t.Errorf("platforms output should contain %q", name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config should not error: %v", err)
	}
	if cfg.Platform != "" || len(cfg.Libraries) != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `platform: wasm
go_version: 1.25.0
imports:
  - fmt
  - net/http
disabled_diagnostics:
  - vet
libraries:
  - github.com/google/uuid@v1.6.0
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != "wasm" {
		t.Errorf("platform = %q", cfg.Platform)
	}
	if cfg.GoVersion != "1.25.0" {
		t.Errorf("go_version = %q", cfg.GoVersion)
	}
	if len(cfg.Imports) != 2 || cfg.Imports[1] != "net/http" {
		t.Errorf("imports = %v", cfg.Imports)
	}
	if len(cfg.Libraries) != 1 || cfg.Libraries[0] != "github.com/google/uuid@v1.6.0" {
		t.Errorf("libraries = %v", cfg.Libraries)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("platform: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSelectPlatform(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		cfg     fileConfig
		want    string
		wantErr bool
	}{
		{name: "default native", want: "native"},
		{name: "flag wins", flag: "wasm", cfg: fileConfig{Platform: "native"}, want: "wasm"},
		{name: "config fallback", cfg: fileConfig{Platform: "native-pinned"}, want: "native-pinned"},
		{name: "unknown", flag: "plan9", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := selectPlatform(tt.flag, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != tt.want {
				t.Errorf("platform = %q, want %q", p.Name, tt.want)
			}
		})
	}
}
