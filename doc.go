// Package gopad compiles and runs Go snippets out of process.
//
// # Overview
//
// gopad is a live scratchpad backend: a snippet of Go source is wrapped
// into a complete program, compiled with the go toolchain, and run as a
// supervised child process. Results stream back to the host as structured
// records, so a trailing bare expression is displayed REPL style and a
// panic arrives as a typed exception rather than scraped text.
//
// # Basic Usage
//
//	res := script.Run(ctx, "1+1", script.DefaultOptions())
//	fmt.Println(res.Output) // 2
//
//	// Long-lived session with library references
//	h := host.New(host.Parameters{BuildRoot: dir})
//	defer h.Close()
//	events := h.Subscribe()
//	h.UpdateLibraries([]restore.LibraryRef{{Name: "github.com/google/uuid", Version: "v1.6.0"}})
//	h.SetPlatform(platform.Native())
//	h.Execute(ctx, `uuid.NewString()`, false, nil)
//
// # Platforms
//
// Snippets build for the native host, for a pinned toolchain version, or
// for wasip1/wasm executed under the gopad-wasi launcher.
//
// See the [host], [script], [compiler], [restore], and [process] packages
// for detailed API documentation.
package gopad
