package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BazelPath != "bazel" {
		t.Errorf("BazelPath = %q, want bazel", cfg.BazelPath)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Project == "" {
		t.Error("Project should default to the workspace directory name")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("BAZEL_XCODEGEN_PORT", "9090")
	t.Setenv("BAZEL_XCODEGEN_BAZEL", "/opt/bazel/bin/bazel")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.BazelPath != "/opt/bazel/bin/bazel" {
		t.Errorf("BazelPath = %q", cfg.BazelPath)
	}
}

func TestLoadFlagsWinOverEnv(t *testing.T) {
	t.Setenv("BAZEL_XCODEGEN_PORT", "9090")

	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Int("port", 8080, "")
	if err := f.Parse([]string{"--port", "7070"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
}

func TestValidateRequiresLabels(t *testing.T) {
	cfg := &Config{Port: 8080}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject an empty label list")
	}
	cfg.Labels = []string{"//app:App"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
