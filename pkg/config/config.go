// Package config layers the tool configuration from defaults, an
// optional TOML file, environment variables, and command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is looked up relative to the working directory.
const ConfigFileName = "bazel-xcodegen.toml"

// EnvPrefix scopes the environment variables the loader reads
// (e.g., BAZEL_XCODEGEN_PORT=9090).
const EnvPrefix = "BAZEL_XCODEGEN_"

// Config holds all configuration for one invocation.
type Config struct {
	// Workspace is the Bazel workspace root; Output receives the
	// generated .xcodeproj bundle.
	Workspace string `koanf:"workspace"`
	Output    string `koanf:"output"`

	// Project is the project name; defaults to the workspace directory
	// name when unset.
	Project string `koanf:"project"`

	BazelPath   string `koanf:"bazel"`
	BuildScript string `koanf:"build_script"`
	CleanScript string `koanf:"clean_script"`

	// Labels are the build labels to generate product targets for.
	Labels []string `koanf:"labels"`

	// Configurations defaults to Debug and Release when empty.
	Configurations []string `koanf:"configurations"`

	// BuildOptions and StartupOptions map configuration name to extra
	// bazel option tokens baked into the generated build invocations.
	BuildOptions   map[string][]string `koanf:"build_options"`
	StartupOptions map[string][]string `koanf:"startup_options"`

	// TargetSettings maps target name to build-setting overrides applied
	// after all derived settings.
	TargetSettings map[string]map[string]string `koanf:"target_settings"`

	Serve       bool `koanf:"serve"`
	Port        int  `koanf:"port"`
	Watch       bool `koanf:"watch"`
	OpenBrowser bool `koanf:"open"`

	VerboseCnt int  `koanf:"verbose"`
	JSONLogs   bool `koanf:"json_logs"`
}

// Load loads configuration from defaults, config file, environment
// variables, and flags. Priority: Flags > Env > Config File > Defaults.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"workspace":    ".",
		"output":       ".",
		"project":      "",
		"bazel":        "bazel",
		"build_script": "scripts/bazel_build.py",
		"clean_script": "scripts/bazel_clean.sh",
		"serve":        false,
		"port":         8080,
		"watch":        false,
		"open":         true,
		"verbose":      0,
		"json_logs":    false,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// Errors are ignored; the file is not required to exist.
	_ = k.Load(file.Provider(ConfigFileName), toml.Parser())

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Project == "" {
		abs, err := filepath.Abs(cfg.Workspace)
		if err != nil {
			return nil, fmt.Errorf("resolving workspace path: %w", err)
		}
		cfg.Project = filepath.Base(abs)
	}
	return &cfg, nil
}

// Validate rejects configurations generation cannot run with.
func (c *Config) Validate() error {
	if len(c.Labels) == 0 {
		return fmt.Errorf("no build labels configured; pass --labels or set labels in %s", ConfigFileName)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
