package platform

import "testing"

func TestReady(t *testing.T) {
	v := &Version{Number: "1.24.0", TargetID: "go1.24-linux-amd64"}

	tests := []struct {
		name     string
		platform Platform
		version  *Version
		want     bool
	}{
		{"zero platform", Platform{}, nil, false},
		{"zero platform with version", Platform{}, v, false},
		{"no version needed", Native(), nil, true},
		{"no version needed, version set anyway", Native(), v, true},
		{"version needed, none set", Pinned(), nil, false},
		{"version needed and set", Pinned(), v, true},
		{"wasm needs no version", Wasm("gopad-wasi"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.platform.Ready(tt.version); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtifactExt(t *testing.T) {
	if got := Wasm("l").ArtifactExt(); got != ".wasm" {
		t.Errorf("wasm ext = %q, want .wasm", got)
	}
	p := Platform{OS: "windows"}
	if got := p.ArtifactExt(); got != ".exe" {
		t.Errorf("windows ext = %q, want .exe", got)
	}
	p = Platform{OS: "linux"}
	if got := p.ArtifactExt(); got != "" {
		t.Errorf("linux ext = %q, want empty", got)
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup("wasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.SelfContained || p.LauncherPath == "" {
		t.Errorf("wasm platform should be self-contained with a launcher: %+v", p)
	}

	if _, err := Lookup("beos"); err == nil {
		t.Error("expected error for unknown platform")
	}
}
