package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig holds the optional per-user defaults, read from
// ~/.config/gopad/config.yaml.
type fileConfig struct {
	Platform            string   `yaml:"platform"`
	GoVersion           string   `yaml:"go_version"`
	BuildRoot           string   `yaml:"build_root"`
	Imports             []string `yaml:"imports"`
	DisabledDiagnostics []string `yaml:"disabled_diagnostics"`
	Libraries           []string `yaml:"libraries"`
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gopad", "config.yaml")
	}
	return ""
}

// loadConfig reads the config file at path. A missing file yields the zero
// config; a malformed one is an error.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
