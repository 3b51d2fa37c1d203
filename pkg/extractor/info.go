package extractor

import (
	"context"
	"strings"

	"github.com/ritzau/bazel-xcodegen/pkg/logging"
)

// WorkspaceInfo is the subset of `bazel info` the generator needs to
// resolve generated-file roots and the build script's bazel-bin path.
type WorkspaceInfo struct {
	ExecutionRoot string
	OutputBase    string
	BazelBin      string
}

// InfoFetcher runs `bazel info` once in the background. Callers block on
// Wait before resolution starts. There is deliberately no cancellation:
// a hung or failed bazel process leaves the fetch permanently blocked,
// which callers treat as fatal.
type InfoFetcher struct {
	done chan struct{}
	info *WorkspaceInfo
	err  error
}

// FetchWorkspaceInfo launches the background fetch and returns
// immediately.
func FetchWorkspaceInfo(executor Executor, workspacePath string) *InfoFetcher {
	f := &InfoFetcher{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		logging.Debug("fetching workspace info", "workspace", workspacePath)
		output, err := executor.Run(context.Background(), workspacePath, "info")
		if err != nil {
			f.err = err
			return
		}
		f.info = parseInfo(output)
	}()
	return f
}

// Wait blocks until the fetch completes and returns its result.
func (f *InfoFetcher) Wait() (*WorkspaceInfo, error) {
	<-f.done
	return f.info, f.err
}

// parseInfo reads the "key: value" lines bazel info prints.
func parseInfo(output []byte) *WorkspaceInfo {
	info := &WorkspaceInfo{}
	for _, line := range strings.Split(string(output), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "execution_root":
			info.ExecutionRoot = value
		case "output_base":
			info.OutputBase = value
		case "bazel-bin":
			info.BazelBin = value
		}
	}
	return info
}
