package generator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/extractor"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
	"github.com/ritzau/bazel-xcodegen/pkg/xcodeproj"
)

// Report summarizes one generation pass for the console report and the
// serve-mode API.
type Report struct {
	ProjectName string        `json:"project_name"`
	BundlePath  string        `json:"bundle_path,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`

	ProductTargets []string `json:"product_targets"`

	IndexersRegistered   int `json:"indexers_registered"`
	IndexersMaterialized int `json:"indexers_materialized"`

	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// WarningCount returns the number of warning diagnostics in the report.
func (r *Report) WarningCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityWarning {
			n++
		}
	}
	return n
}

// Generator owns one workspace's generation pipeline: the info fetch,
// the extraction, and the project synthesis. It is reused across passes
// in watch and serve mode; per-pass state lives in the pass itself.
type Generator struct {
	extractor extractor.Extractor
	info      *extractor.InfoFetcher
	opts      Options
}

// New creates a Generator. The workspace info fetch starts immediately
// so it overlaps with extraction setup.
func New(ext extractor.Extractor, info *extractor.InfoFetcher, opts Options) *Generator {
	return &Generator{extractor: ext, info: info, opts: opts}
}

// Generate runs one full pass: resolve rules, synthesize the project,
// write the bundle to disk. A failed pass returns an error along with
// whatever diagnostics were recorded before the failure.
func (g *Generator) Generate(ctx context.Context, selected []label.Label) (*Report, error) {
	started := time.Now()
	diags := diag.NewRecorder()

	report, project, err := g.generateProject(ctx, selected, diags)
	if err != nil {
		return report, err
	}

	bundlePath, err := xcodeproj.WriteProject(project, g.opts.OutputDir)
	if err != nil {
		report.Diagnostics = diags.Diagnostics()
		return report, fmt.Errorf("writing project bundle: %w", err)
	}
	report.BundlePath = bundlePath
	report.Duration = time.Since(started)
	report.Diagnostics = diags.Diagnostics()

	logging.Info("project generated",
		"bundle", bundlePath,
		"targets", len(report.ProductTargets),
		"warnings", report.WarningCount(),
		"duration", report.Duration)
	return report, nil
}

// generateProject builds the in-memory project without writing it.
// Split from Generate so tests can assert on the object graph directly.
func (g *Generator) generateProject(ctx context.Context, selected []label.Label,
	diags *diag.Recorder) (*Report, *xcodeproj.Project, error) {
	report := &Report{
		ProjectName: g.opts.ProjectName,
		GeneratedAt: time.Now(),
	}

	info, err := g.info.Wait()
	if err != nil {
		report.Diagnostics = diags.Diagnostics()
		return report, nil, fmt.Errorf("fetching workspace info: %w", err)
	}

	ruleMap, err := g.extractor.ExtractRuleEntries(ctx, selected, diags)
	if err != nil {
		report.Diagnostics = diags.Diagnostics()
		return report, nil, fmt.Errorf("extracting rule entries: %w", err)
	}

	project := xcodeproj.NewProject(g.opts.ProjectName)
	synthesizer := NewIndexerSynthesizer(ruleMap, diags)
	targets := NewTargetGenerator(project, ruleMap, synthesizer, diags, g.opts, info.BazelBin)

	selectedEntries := make([]*rules.RuleEntry, 0, len(selected))
	for _, lbl := range selected {
		entry := ruleMap.AnyEntry(lbl)
		if entry == nil {
			// Extraction guarantees every selected label resolved.
			report.Diagnostics = diags.Diagnostics()
			return report, nil, fmt.Errorf("selected label %s missing from extraction output", lbl)
		}
		selectedEntries = append(selectedEntries, entry)
	}

	if err := targets.GenerateBuildTargets(selectedEntries); err != nil {
		report.Diagnostics = diags.Diagnostics()
		return report, nil, err
	}

	report.IndexersRegistered = synthesizer.RegisteredCount()
	report.IndexersMaterialized = synthesizer.SurvivorCount()
	for lbl := range targets.targetNames {
		if t := targets.ProductTarget(lbl); t != nil {
			report.ProductTargets = append(report.ProductTargets, t.Name())
		}
	}
	sort.Strings(report.ProductTargets)
	report.Diagnostics = diags.Diagnostics()
	return report, project, nil
}
