// Package extractor is the boundary to Bazel itself: it runs the
// extraction aspect, parses the per-rule records it emits, and fetches
// workspace-level info. Everything downstream of this package works on
// resolved rules.RuleEntry values and never shells out.
package extractor

import (
	"context"
	"fmt"
	"os/exec"
)

// Executor runs Bazel commands. The indirection exists so tests can
// substitute canned output.
type Executor interface {
	Run(ctx context.Context, workspacePath string, args ...string) ([]byte, error)
}

// DefaultExecutor runs the real bazel binary.
type DefaultExecutor struct {
	// BazelPath is the binary to invoke; empty means "bazel" from PATH.
	BazelPath string
}

// NewExecutor creates an executor invoking bazelPath.
func NewExecutor(bazelPath string) *DefaultExecutor {
	return &DefaultExecutor{BazelPath: bazelPath}
}

// Run executes bazel with the given arguments in the workspace and
// returns stdout. Stderr is folded into the returned error on failure.
func (e *DefaultExecutor) Run(ctx context.Context, workspacePath string, args ...string) ([]byte, error) {
	bazel := e.BazelPath
	if bazel == "" {
		bazel = "bazel"
	}
	cmd := exec.CommandContext(ctx, bazel, args...)
	cmd.Dir = workspacePath

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("bazel %v failed: %w\nStderr: %s", args, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("bazel %v failed: %w", args, err)
	}
	return output, nil
}
