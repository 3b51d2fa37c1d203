package generator

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/ritzau/bazel-xcodegen/pkg/label"
)

func commandGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t, goldie.WithNameSuffix(".golden"))
}

func TestBuildCommandLineCollapsesAgreeingConfigurations(t *testing.T) {
	opts := CommandOptions{
		BazelPath:      "/usr/local/bin/bazel",
		BazelBinPath:   "bazel-bin",
		Verbose:        true,
		Configurations: []string{"Debug", "Release"},
		BuildOptions: map[string][]string{
			"Debug":   {"--define=foo=1"},
			"Release": {"--define=foo=1"},
		},
	}
	cmd := BuildCommandLine("scripts/bazel_build.py", label.MustParse("//app:App"), opts)

	// Identical per-configuration values produce one unqualified group.
	assert.Contains(t, cmd, "--bazel_options --define=foo=1 --")
	assert.NotContains(t, cmd, "--bazel_options[")
	commandGoldie(t).Assert(t, "command_collapsed", []byte(cmd))
}

func TestBuildCommandLineExpandsDisagreeingConfigurations(t *testing.T) {
	opts := CommandOptions{
		BazelPath:      "/usr/local/bin/bazel",
		BazelBinPath:   "bazel-bin",
		Configurations: []string{"Debug", "Release"},
		BuildOptions: map[string][]string{
			"Debug":   {"--compilation_mode=dbg"},
			"Release": {"--compilation_mode=opt"},
		},
		StartupOptions: map[string][]string{
			"Debug":   {"--host_jvm_args=-Xmx4g"},
			"Release": {"--host_jvm_args=-Xmx4g"},
		},
	}
	cmd := BuildCommandLine("scripts/bazel_build.py", label.MustParse("//app:App"), opts)

	assert.Contains(t, cmd, "--bazel_options[Debug] --compilation_mode=dbg --")
	assert.Contains(t, cmd, "--bazel_options[Release] --compilation_mode=opt --")
	// Startup options still agree, so they stay unqualified.
	assert.Contains(t, cmd, "--bazel_startup_options --host_jvm_args=-Xmx4g --")
	commandGoldie(t).Assert(t, "command_expanded", []byte(cmd))
}

func TestBuildCommandLineWithoutOptions(t *testing.T) {
	opts := CommandOptions{
		BazelPath:      "/usr/local/bin/bazel",
		BazelBinPath:   "bazel-bin",
		Configurations: []string{"Debug", "Release"},
	}
	cmd := BuildCommandLine("scripts/bazel_build.py", label.MustParse("//lib:Lib"), opts)

	assert.Equal(t,
		"scripts/bazel_build.py //lib:Lib --bazel /usr/local/bin/bazel --bazel_bin_path bazel-bin",
		cmd)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "//app:App", shellQuote("//app:App"))
	assert.Equal(t, "--define=foo=1", shellQuote("--define=foo=1"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "''", shellQuote(""))
}
