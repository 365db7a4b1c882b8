package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/gopad/platform"
)

var rootCmd = &cobra.Command{
	Use:   "gopad [file]",
	Short: "Live scratchpad for Go snippets",
	Long: `gopad - Compile and run Go snippets out of process.

Snippets are compiled with the go toolchain into a standalone program and
run as a supervised child process. A trailing bare expression is displayed
automatically, REPL style. Library references are resolved per session and
cached in a scratch build directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun, // default to run command behavior
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("platform", "p", "", "Target platform: native, native-pinned, wasm (default from config)")
	rootCmd.PersistentFlags().String("go-version", "", "Pin a specific toolchain version (native-pinned only)")
	rootCmd.PersistentFlags().String("build-root", "", "Directory for scratch build directories")

	addRunFlags(rootCmd)
}

// selectPlatform resolves the platform flag against the config default.
func selectPlatform(flag string, cfg fileConfig) (platform.Platform, error) {
	name := flag
	if name == "" {
		name = cfg.Platform
	}
	if name == "" {
		return platform.Native(), nil
	}
	return platform.Lookup(name)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
