package generator

import (
	"sort"
	"strings"

	"github.com/ritzau/bazel-xcodegen/pkg/label"
)

// CommandOptions carries everything the build-invocation commandline
// depends on. Build and startup options are per-configuration; the
// builder collapses them to the unqualified form when every
// configuration agrees.
type CommandOptions struct {
	BazelPath    string
	BazelBinPath string
	Verbose      bool

	// Configurations is the ordered configuration set the project was
	// generated with (typically Debug, Release).
	Configurations []string

	// BuildOptions and StartupOptions map configuration name to the
	// option tokens passed through to bazel.
	BuildOptions   map[string][]string
	StartupOptions map[string][]string
}

// BuildCommandLine assembles the script invocation for one product
// target: script path, target label, explicit path flags, verbosity,
// then the option groups. The result is deterministic for identical
// inputs; generated settings must not churn Bazel's analysis cache.
func BuildCommandLine(scriptPath string, target label.Label, opts CommandOptions) string {
	args := []string{
		shellQuote(scriptPath),
		shellQuote(target.String()),
		"--bazel", shellQuote(opts.BazelPath),
		"--bazel_bin_path", shellQuote(opts.BazelBinPath),
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args, optionGroups("--bazel_options", opts.BuildOptions, opts.Configurations)...)
	args = append(args, optionGroups("--bazel_startup_options", opts.StartupOptions, opts.Configurations)...)
	return strings.Join(args, " ")
}

// optionGroups renders one "--flag[Config] value... --" group per
// distinct configuration, or a single unqualified group when all
// configurations share the same values.
func optionGroups(flag string, perConfig map[string][]string, configurations []string) []string {
	if len(perConfig) == 0 {
		return nil
	}

	if common, ok := commonOptions(perConfig, configurations); ok {
		if len(common) == 0 {
			return nil
		}
		return appendGroup(nil, flag, common)
	}

	// Qualified form: one group per configuration with options, in
	// configuration order for determinism.
	names := append([]string(nil), configurations...)
	for name := range perConfig {
		if !containsString(names, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var args []string
	for _, name := range names {
		options := perConfig[name]
		if len(options) == 0 {
			continue
		}
		args = appendGroup(args, flag+"["+name+"]", options)
	}
	return args
}

// commonOptions returns the shared option list iff every configuration
// resolves to the same values.
func commonOptions(perConfig map[string][]string, configurations []string) ([]string, bool) {
	names := configurations
	if len(names) == 0 {
		names = make([]string, 0, len(perConfig))
		for name := range perConfig {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, true
	}

	first := perConfig[names[0]]
	for _, name := range names[1:] {
		if !equalStringSlices(first, perConfig[name]) {
			return nil, false
		}
	}
	return first, true
}

func appendGroup(args []string, flag string, options []string) []string {
	args = append(args, flag)
	for _, opt := range options {
		args = append(args, shellQuote(opt))
	}
	return append(args, "--")
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// shellQuote quotes a token for /bin/bash when it contains characters
// outside the safe set.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.' || r == '/' || r == ':' || r == '=' ||
			r == '@' || r == '%' || r == '+' || r == ',':
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
