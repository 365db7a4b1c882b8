// Command gopad-wasi runs a compiled wasm snippet artifact under a WASI
// runtime with inherited stdio, so the host can supervise it exactly like a
// native child process.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gopad-wasi artifact.wasm [args...]")
		return 2
	}
	artifact := os.Args[1]

	wasm, err := os.ReadFile(artifact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gopad-wasi: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The snippet's own parent-liveness watchdog sees this launcher, not the
	// host. Watch the host from out here and tear the module down when it
	// goes away.
	if pid := parsePID(os.Args[2:]); pid > 0 {
		go watchHost(ctx, pid, cancel)
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	defer rt.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	moduleConfig := wazero.NewModuleConfig().
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithArgs(append([]string{filepath.Base(artifact)}, os.Args[2:]...)...).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader).
		WithName("")

	if _, err := rt.InstantiateWithConfig(ctx, wasm, moduleConfig); err != nil {
		if exitErr, ok := err.(*sys.ExitError); ok {
			return int(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "gopad-wasi: %v\n", err)
		return 1
	}
	return 0
}

// parsePID extracts the host pid from the artifact's argument list.
func parsePID(args []string) int {
	for i, a := range args {
		if a == "--pid" && i+1 < len(args) {
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func watchHost(ctx context.Context, pid int, cancel context.CancelFunc) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !hostAlive(pid) {
				cancel()
				return
			}
		}
	}
}
