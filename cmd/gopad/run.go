package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/gopad/compiler"
	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/script"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a snippet (one-shot execution)",
	Long: `Compile and run one snippet to completion.

The snippet can be provided via:
  - File argument: gopad run snippet.go
  - Inline flag: gopad run -c 'fmt.Println(1+1)'
  - Stdin: echo '1+1' | gopad run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Snippet to execute")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Execution timeout")
	cmd.Flags().StringSlice("lib", nil, "Library reference module[@version] (repeatable)")
	cmd.Flags().StringSlice("import", nil, "Package importable without an import clause (repeatable)")
	cmd.Flags().StringSlice("disable", nil, "Diagnostic id to suppress (repeatable)")
	cmd.Flags().Bool("release", false, "Build with optimizations (default is a debuggable build)")
	cmd.Flags().Bool("race", false, "Enable the runtime race detector (native only)")
	cmd.Flags().Bool("unsafe", false, "Allow importing unsafe")
	cmd.Flags().Bool("vet", false, "Report vet findings as warnings")
	cmd.Flags().Bool("disassemble", false, "Print the compiled artifact's disassembly")
	cmd.Flags().String("config", defaultConfigPath(), "Config file path")
}

// buildOptions merges flags with the config file, flags winning.
func buildOptions(cmd *cobra.Command) (script.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return script.Options{}, err
	}

	opts := script.DefaultOptions()

	platFlag, _ := cmd.Root().PersistentFlags().GetString("platform")
	p, err := selectPlatform(platFlag, cfg)
	if err != nil {
		return script.Options{}, err
	}
	opts.Platform = &p

	goVersion, _ := cmd.Root().PersistentFlags().GetString("go-version")
	if goVersion == "" {
		goVersion = cfg.GoVersion
	}
	if goVersion != "" {
		opts.Version = &platform.Version{Number: goVersion, TargetID: p.TargetID}
	}

	buildRoot, _ := cmd.Root().PersistentFlags().GetString("build-root")
	if buildRoot == "" {
		buildRoot = cfg.BuildRoot
	}
	opts.BuildRoot = buildRoot

	libs, _ := cmd.Flags().GetStringSlice("lib")
	libs = append(cfg.Libraries, libs...)
	for _, spec := range libs {
		ref, err := restore.ParseLibraryRef(spec)
		if err != nil {
			return script.Options{}, err
		}
		opts.Libraries = append(opts.Libraries, ref)
	}

	if imports, _ := cmd.Flags().GetStringSlice("import"); len(imports) > 0 {
		opts.Imports = append(opts.Imports, imports...)
	}
	if len(cfg.Imports) > 0 {
		opts.Imports = append(opts.Imports, cfg.Imports...)
	}

	disabled, _ := cmd.Flags().GetStringSlice("disable")
	opts.DisabledDiagnostics = append(cfg.DisabledDiagnostics, disabled...)

	if release, _ := cmd.Flags().GetBool("release"); release {
		opts.Optimization = compiler.Release
	}
	opts.OverflowChecks, _ = cmd.Flags().GetBool("race")
	opts.AllowUnsafe, _ = cmd.Flags().GetBool("unsafe")
	opts.Vet, _ = cmd.Flags().GetBool("vet")
	opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
	opts.Disassemble, _ = cmd.Flags().GetBool("disassemble")

	return opts, nil
}

func readSource(cmd *cobra.Command, args []string) (string, bool) {
	code, _ := cmd.Flags().GetString("code")
	switch {
	case code != "":
		return code, true
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		return string(data), true
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", false
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("%v", err)
		}
		if len(data) == 0 {
			return "", false
		}
		return string(data), true
	}
}

func runRun(cmd *cobra.Command, args []string) {
	source, ok := readSource(cmd, args)
	if !ok {
		cmd.Help()
		return
	}

	opts, err := buildOptions(cmd)
	if err != nil {
		fatalf("%v", err)
	}

	res := script.Run(context.Background(), source, opts)
	if res.Output != "" {
		fmt.Println(res.Output)
	}
	if res.Disassembly != "" {
		fmt.Println(res.Disassembly)
	}
	if res.Error != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", res.Error)
		os.Exit(1)
	}
}
