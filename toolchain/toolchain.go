// Package toolchain wraps invocation of the external go build toolchain.
package toolchain

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes one toolchain command and returns its combined output.
// Tests substitute a fake so no external binary is required.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// Exec is the real Runner backed by os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	return cmd.CombinedOutput()
}

// Find returns the go binary to invoke, honoring the GOPAD_GO override.
func Find() string {
	if p := os.Getenv("GOPAD_GO"); p != "" {
		return p
	}
	return "go"
}
