// Package platform describes the target runtime/architecture combinations
// a compiled snippet can run under.
package platform

import (
	"fmt"
	"runtime"
)

// Platform is an immutable descriptor of a build target. A self-contained
// platform produces a library-like artifact that must run under a host
// launcher; otherwise the artifact is a natively launchable executable.
type Platform struct {
	Name          string
	OS            string
	Arch          string
	SelfContained bool
	LauncherPath  string // empty when the artifact is natively launchable
	TargetID      string
	NeedsVersion  bool
}

// Version is an optional refinement of a platform pinning a specific
// toolchain version.
type Version struct {
	Number   string
	TargetID string
}

// Ready reports whether the platform can be built against: either it needs
// no version, or one has been chosen.
func (p Platform) Ready(v *Version) bool {
	if p.Name == "" {
		return false
	}
	return !p.NeedsVersion || v != nil
}

// ArtifactExt returns the file extension of compiled artifacts for this
// platform.
func (p Platform) ArtifactExt() string {
	if p.SelfContained {
		return ".wasm"
	}
	if p.OS == "windows" {
		return ".exe"
	}
	return ""
}

// Native returns the platform of the running host, using whatever toolchain
// is on PATH.
func Native() Platform {
	return Platform{
		Name:     "native",
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		TargetID: fmt.Sprintf("go-%s-%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Pinned returns the host platform bound to an explicitly chosen toolchain
// version. It is not ready until a Version is selected.
func Pinned() Platform {
	p := Native()
	p.Name = "native-pinned"
	p.NeedsVersion = true
	return p
}

// Wasm returns the WASI platform. Artifacts are wasm libraries executed by
// the given launcher binary.
func Wasm(launcher string) Platform {
	return Platform{
		Name:          "wasm",
		OS:            "wasip1",
		Arch:          "wasm",
		SelfContained: true,
		LauncherPath:  launcher,
		TargetID:      "go-wasip1-wasm",
	}
}

// List enumerates the built-in platforms.
func List() []Platform {
	return []Platform{Native(), Pinned(), Wasm("gopad-wasi")}
}

// Lookup resolves a platform by name.
func Lookup(name string) (Platform, error) {
	for _, p := range List() {
		if p.Name == name {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("unknown platform %q", name)
}
