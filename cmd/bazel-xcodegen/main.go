// Command bazel-xcodegen generates an Xcode project from a Bazel
// workspace. One-shot by default; --watch regenerates on workspace
// changes and --serve exposes the report over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/bazel-xcodegen/pkg/config"
	"github.com/ritzau/bazel-xcodegen/pkg/extractor"
	"github.com/ritzau/bazel-xcodegen/pkg/generator"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/output"
	"github.com/ritzau/bazel-xcodegen/pkg/watcher"
	"github.com/ritzau/bazel-xcodegen/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("bazel-xcodegen", pflag.ExitOnError)
	f.String("workspace", ".", "Path to the Bazel workspace root")
	f.String("output", ".", "Directory receiving the generated .xcodeproj bundle")
	f.String("project", "", "Project name (defaults to the workspace directory name)")
	f.String("bazel", "bazel", "Path to the bazel binary")
	f.StringSlice("labels", nil, "Build labels to generate product targets for")
	f.Bool("serve", false, "Expose the generation report over HTTP")
	f.Int("port", 8080, "Port for --serve")
	f.Bool("watch", false, "Regenerate when the workspace changes")
	f.Bool("open", true, "Open the browser in serve mode")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Bool("json_logs", false, "Emit structured JSON logs")
	if err := f.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logging.SetVerbosity(cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(slog.LevelInfo)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	labels := make([]label.Label, 0, len(cfg.Labels))
	for _, raw := range cfg.Labels {
		lbl, err := label.Parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		labels = append(labels, lbl)
	}

	executor := &extractor.DefaultExecutor{BazelPath: cfg.BazelPath}
	info := extractor.FetchWorkspaceInfo(executor, cfg.Workspace)
	ext := extractor.NewBazelExtractor(executor, cfg.Workspace)

	gen := generator.New(ext, info, generator.Options{
		ProjectName:            cfg.Project,
		WorkspaceRoot:          cfg.Workspace,
		OutputDir:              cfg.Output,
		BazelPath:              cfg.BazelPath,
		BuildScriptPath:        cfg.BuildScript,
		CleanScriptPath:        cfg.CleanScript,
		Configurations:         cfg.Configurations,
		BuildOptions:           cfg.BuildOptions,
		StartupOptions:         cfg.StartupOptions,
		TargetSettingOverrides: cfg.TargetSettings,
		Verbose:                cfg.VerboseCnt > 0,
	})

	ctx := context.Background()

	switch {
	case cfg.Serve:
		runServe(ctx, gen, labels, cfg)
	case cfg.Watch:
		runWatch(ctx, gen, labels, cfg, nil)
	default:
		report, err := gen.Generate(ctx, labels)
		if err != nil {
			if report != nil {
				output.PrintReport(os.Stderr, report)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		output.PrintReport(os.Stdout, report)
	}
}

// runServe starts the HTTP server, runs the first pass in the
// background, and optionally keeps regenerating on workspace changes.
func runServe(ctx context.Context, gen *generator.Generator, labels []label.Label, cfg *config.Config) {
	server := web.NewServer(func(ctx context.Context) (*generator.Report, error) {
		return gen.Generate(ctx, labels)
	})

	go func() {
		server.PublishStatus("generating", "running initial generation", 1, 2)
		report, err := gen.Generate(ctx, labels)
		if err != nil {
			logging.Error("initial generation failed", "error", err)
			server.PublishStatus("failed", err.Error(), 2, 2)
			return
		}
		server.SetReport(report)
		server.PublishStatus("ready", "project generated", 2, 2)
	}()

	if cfg.Watch {
		go runWatch(ctx, gen, labels, cfg, server)
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if cfg.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("web server failed", "error", err)
	}
}

// runWatch regenerates on debounced workspace changes. server may be
// nil in plain watch mode.
func runWatch(ctx context.Context, gen *generator.Generator, labels []label.Label,
	cfg *config.Config, server *web.Server) {
	if server == nil {
		// First pass before settling into the change loop.
		report, err := gen.Generate(ctx, labels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		output.PrintReport(os.Stdout, report)
	}

	fw, err := watcher.NewFileWatcher(cfg.Workspace)
	if err != nil {
		logging.Fatal("creating workspace watcher", "error", err)
	}
	if err := fw.Start(ctx); err != nil {
		logging.Fatal("starting workspace watcher", "error", err)
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 3*time.Second)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		analysis := watcher.AnalyzeChanges(event)
		if !analysis.NeedRegeneration {
			continue
		}
		logging.Info("workspace changed, regenerating",
			"files", len(analysis.ChangedFiles), "graphChanged", analysis.GraphChanged)

		if server != nil {
			server.PublishStatus("generating", "workspace changed", 1, 2)
		}
		report, err := gen.Generate(ctx, labels)
		if err != nil {
			logging.Error("regeneration failed", "error", err)
			if server != nil {
				server.PublishStatus("failed", err.Error(), 2, 2)
			}
			continue
		}
		if server != nil {
			server.SetReport(report)
			server.PublishStatus("ready", "project regenerated", 2, 2)
		} else {
			output.PrintReport(os.Stdout, report)
		}
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on platform", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
