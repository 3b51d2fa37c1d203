// Package watcher monitors a Bazel workspace for changes that invalidate
// a generated project and drives regeneration in watch mode.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/bazel-xcodegen/pkg/logging"
)

// ChangeType classifies a batch of file system changes.
type ChangeType int

const (
	// ChangeTypeBuildFile covers BUILD, BUILD.bazel, WORKSPACE, and .bzl
	// files: the build graph itself changed.
	ChangeTypeBuildFile ChangeType = iota
	// ChangeTypeSourceFile covers compilable sources; rule srcs are
	// usually globs, so added or removed sources also shift the graph.
	ChangeTypeSourceFile
)

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a Bazel workspace for changes affecting project
// generation.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	workspace string
	events    chan ChangeEvent
	done      chan struct{}
	mu        sync.Mutex
}

// NewFileWatcher creates a new file system watcher for a Bazel workspace
func NewFileWatcher(workspace string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		workspace: workspace,
		events:    make(chan ChangeEvent, 100),
		done:      make(chan struct{}),
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.watchPackageDirectories(); err != nil {
		logging.Warn("failed to watch package directories", "error", err)
	}

	logging.Info("started watching workspace", "path", fw.workspace)

	go fw.processEvents(ctx)

	return nil
}

// watchPackageDirectories finds and watches every directory containing a
// BUILD file, plus the workspace root for WORKSPACE edits. The bazel-*
// convenience symlinks are skipped: they point into the output tree,
// which churns on every build.
func (fw *FileWatcher) watchPackageDirectories() error {
	packageDirs := map[string]bool{fw.workspace: true}

	err := filepath.Walk(fw.workspace, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() && strings.HasPrefix(info.Name(), "bazel-") {
			return filepath.SkipDir
		}

		if !info.IsDir() && isBuildFile(info.Name()) {
			packageDirs[filepath.Dir(path)] = true
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}

	for dir := range packageDirs {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}

	logging.Info("monitoring package directories", "count", len(packageDirs))
	return nil
}

// isBuildFile reports whether the name is a build-graph definition file.
func isBuildFile(name string) bool {
	switch name {
	case "BUILD", "BUILD.bazel", "WORKSPACE", "WORKSPACE.bazel", "MODULE.bazel":
		return true
	}
	return strings.HasSuffix(name, ".bzl")
}

// isSourceFile reports whether the name is a compilable source whose
// appearance or removal can change glob expansion.
func isSourceFile(name string) bool {
	switch filepath.Ext(name) {
	case ".m", ".mm", ".c", ".cc", ".cpp", ".swift", ".h", ".hh", ".hpp":
		return true
	}
	return false
}

// processEvents batches raw fsnotify events by change type.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	var buildFiles []string
	var sourceFiles []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(buildFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeBuildFile,
				Paths:     buildFiles,
				Timestamp: time.Now(),
			}
			buildFiles = nil
		}
		if len(sourceFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeSourceFile,
				Paths:     sourceFiles,
				Timestamp: time.Now(),
			}
			sourceFiles = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			close(fw.done)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			switch {
			case isBuildFile(name):
				buildFiles = append(buildFiles, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			case isSourceFile(name) && event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0:
				// Edits to existing sources don't move the graph; only
				// create/remove/rename can change glob results.
				sourceFiles = append(sourceFiles, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	close(fw.done)
	return fw.watcher.Close()
}
