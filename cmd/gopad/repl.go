package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/gopad/host"
	"github.com/caffeineduck/gopad/platform"
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/result"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session with live library management",
	Long: `Start an interactive session.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Directives:
  :deps add mod[@version]   add a library reference and restore
  :deps rm mod              remove a library reference
  :deps                     list library references
  :platform <name> [ver]    switch build target
  :reset                    clear library references
  :help                     show directives

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Run: runRepl,
}

func init() {
	addRunFlags(replCmd)
	replCmd.Flags().String("history", "", "History file path (default: ~/.gopad_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".gopad_history")
	}

	opts, err := buildOptions(cmd)
	if err != nil {
		fatalf("%v", err)
	}
	buildRoot := opts.BuildRoot
	if buildRoot == "" {
		dir, err := os.MkdirTemp("", "gopad-*")
		if err != nil {
			fatalf("%v", err)
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
	})
	defer h.Close()

	events := h.Subscribe()
	go printEvents(h, events)

	h.UpdateLibraries(opts.Libraries)
	h.SetPlatform(*opts.Platform)
	if opts.Version != nil {
		h.SetVersion(*opts.Version)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fatalf("initializing readline: %v", err)
	}
	defer rl.Close()

	fmt.Fprintf(os.Stderr, "gopad %s (type 'exit' to quit, Ctrl+D to exit)\n", opts.Platform.Name)

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			break
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "quit" {
			break
		}
		if strings.HasPrefix(trimmed, ":") {
			handleDirective(h, trimmed)
			continue
		}

		ctx := context.Background()
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			err = h.Execute(ctx, line, false, nil)
			cancel()
		} else {
			err = h.Execute(ctx, line, false, nil)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// handleDirective interprets a :-prefixed session command.
func handleDirective(h *host.Host, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":deps":
		if len(fields) == 1 {
			for _, ref := range h.Libraries() {
				fmt.Println(ref.String())
			}
			return
		}
		switch fields[1] {
		case "add":
			if len(fields) < 3 {
				fmt.Fprintln(os.Stderr, "usage: :deps add mod[@version]")
				return
			}
			ref, err := restore.ParseLibraryRef(fields[2])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return
			}
			h.UpdateLibraries(append(h.Libraries(), ref))
		case "rm":
			if len(fields) < 3 {
				fmt.Fprintln(os.Stderr, "usage: :deps rm mod")
				return
			}
			var kept []restore.LibraryRef
			for _, ref := range h.Libraries() {
				if ref.Name != fields[2] {
					kept = append(kept, ref)
				}
			}
			h.UpdateLibraries(kept)
		default:
			fmt.Fprintf(os.Stderr, "unknown :deps subcommand %q\n", fields[1])
		}
	case ":platform":
		if len(fields) < 2 {
			if p, ok := h.Platform(); ok {
				fmt.Println(p.Name)
			}
			return
		}
		p, err := platform.Lookup(fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		h.SetPlatform(p)
		if len(fields) > 2 {
			h.SetVersion(platform.Version{Number: fields[2], TargetID: p.TargetID})
		}
	case ":reset":
		h.UpdateLibraries(nil)
	case ":help":
		fmt.Println("directives: :deps [add|rm] | :platform <name> [ver] | :reset | :help")
	default:
		fmt.Fprintf(os.Stderr, "unknown directive %q (try :help)\n", fields[0])
	}
}

// printEvents renders host events to the terminal until the subscription
// channel is closed.
func printEvents(h *host.Host, events <-chan host.Event) {
	for e := range events {
		switch ev := e.(type) {
		case host.RestoreCompletedEvent:
			if !ev.Result.Success {
				fmt.Fprintf(os.Stderr, "restore failed: %s\n", ev.Result.Error)
			}
		case host.CompilationErrorsEvent:
			for _, d := range ev.Diagnostics {
				fmt.Fprintln(os.Stderr, d.String())
			}
		case host.DumpedEvent:
			printDump(ev.Object, 0)
		case host.ErrorEvent:
			fmt.Fprintf(os.Stderr, "Error: %v\n", ev.Exception)
			for _, frame := range ev.Exception.Frames {
				fmt.Fprintf(os.Stderr, "  at %s\n", frame)
			}
		case host.DisassembledEvent:
			fmt.Println(ev.Text)
		case host.ReadInputEvent:
			h.SendInput(promptInput())
		}
	}
}

func printDump(d *result.Dump, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), d.Header)
	for _, child := range d.Children {
		printDump(child, depth+1)
	}
}

// promptInput reads one line directly from stdin for a snippet's input
// request. Bytes are read one at a time so no terminal input destined for
// the prompt is buffered away.
func promptInput() string {
	fmt.Fprint(os.Stderr, "input: ")
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			break
		}
	}
	return strings.TrimSuffix(sb.String(), "\r")
}
