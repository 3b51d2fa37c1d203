package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
)

// aspectRef is the extraction aspect emitting one JSON record per
// resolved (rule, configuration) pair.
const aspectRef = "@bazel_xcodegen//aspects:info.bzl%xcodegen_info_aspect"

// Extractor resolves selected labels into a configuration-aware
// EntryMap. The generator depends on this interface, not on Bazel, so
// tests substitute canned rule data.
type Extractor interface {
	ExtractRuleEntries(ctx context.Context, selected []label.Label, diags *diag.Recorder) (*rules.EntryMap, error)
}

// BazelExtractor runs the extraction aspect through an Executor and
// parses its newline-delimited JSON output. The record schema is a
// closed 1:1 contract with the aspect: unknown keys are a hard parse
// error, never a silent cast.
type BazelExtractor struct {
	executor  Executor
	workspace string
}

// NewBazelExtractor creates an extractor for the workspace.
func NewBazelExtractor(executor Executor, workspacePath string) *BazelExtractor {
	return &BazelExtractor{executor: executor, workspace: workspacePath}
}

// ExtractRuleEntries queries the dependency closure of the selected
// labels and returns the populated EntryMap. A selected label missing
// from the aspect output is fatal.
func (x *BazelExtractor) ExtractRuleEntries(ctx context.Context, selected []label.Label, diags *diag.Recorder) (*rules.EntryMap, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("no labels selected for extraction")
	}

	expr := "deps(" + labelSetExpression(selected) + ")"
	args := []string{
		"cquery", expr,
		"--aspects", aspectRef,
		"--output_groups=xcodegen_info",
		"--output=jsonl",
	}
	logging.Info("extracting rule entries", "labels", len(selected))
	output, err := x.executor.Run(ctx, x.workspace, args...)
	if err != nil {
		return nil, fmt.Errorf("extraction aspect failed: %w", err)
	}

	entryMap, err := ParseRuleEntries(output, diags)
	if err != nil {
		return nil, err
	}

	for _, lbl := range selected {
		if entryMap.AnyEntry(lbl) == nil {
			return nil, fmt.Errorf("selected label %s did not resolve to any rule entry", lbl)
		}
	}
	logging.Debug("extraction complete", "entries", entryMap.Len())
	return entryMap, nil
}

func labelSetExpression(labels []label.Label) string {
	var buf bytes.Buffer
	buf.WriteString("set(")
	for i, l := range labels {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(l.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// wireEntry mirrors the aspect's output schema. Field names must stay in
// sync with the aspect; drift fails parsing loudly.
type wireEntry struct {
	Label             string                  `json:"label"`
	Kind              string                  `json:"kind"`
	Attr              rules.Attributes        `json:"attrs"`
	SourceFiles       []rules.FileInfo        `json:"srcs"`
	NonARCSourceFiles []rules.FileInfo        `json:"non_arc_srcs"`
	FrameworkImports  []rules.FileInfo        `json:"framework_imports"`
	Deps              []string                `json:"deps"`
	WeakDeps          []string                `json:"weak_deps"`
	Artifacts         []rules.FileInfo        `json:"artifacts"`
	DeploymentTarget  *rules.DeploymentTarget `json:"deployment_target"`
}

// knownKinds is the closed set of rule kinds the generator understands.
var knownKinds = map[rules.RuleKind]bool{
	rules.KindIOSApplication:     true,
	rules.KindIOSExtension:       true,
	rules.KindIOSFramework:       true,
	rules.KindIOSStaticFramework: true,
	rules.KindIOSUnitTest:        true,
	rules.KindIOSUITest:          true,
	rules.KindMacOSApplication:   true,
	rules.KindWatchOSApplication: true,
	rules.KindWatchOSExtension:   true,
	rules.KindObjcLibrary:        true,
	rules.KindSwiftLibrary:       true,
	rules.KindCCLibrary:          true,
	rules.KindTestSuite:          true,
	rules.KindAppleBundleImport:  true,
	rules.KindFilegroup:          true,
}

// ParseRuleEntries decodes newline-delimited JSON rule records into an
// EntryMap, preserving record order (last record wins ambiguous
// lookups).
func ParseRuleEntries(data []byte, diags *diag.Recorder) (*rules.EntryMap, error) {
	entryMap := rules.NewEntryMap(diags)
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	for recordIndex := 0; ; recordIndex++ {
		var wire wireEntry
		if err := decoder.Decode(&wire); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("parsing rule record %d: %w", recordIndex, err)
		}
		entry, err := wire.toRuleEntry()
		if err != nil {
			return nil, fmt.Errorf("validating rule record %d: %w", recordIndex, err)
		}
		entryMap.Insert(entry)
	}
	return entryMap, nil
}

func (w *wireEntry) toRuleEntry() (*rules.RuleEntry, error) {
	lbl, err := label.Parse(w.Label)
	if err != nil {
		return nil, err
	}
	kind := rules.RuleKind(w.Kind)
	if !knownKinds[kind] {
		return nil, fmt.Errorf("rule %s has unknown kind %q", lbl, w.Kind)
	}
	if kind.IsTest() && w.Attr.TestHost != "" {
		if _, err := label.Parse(string(w.Attr.TestHost)); err != nil {
			return nil, fmt.Errorf("rule %s has invalid test_host: %w", lbl, err)
		}
	}

	deps, err := parseLabels(w.Deps)
	if err != nil {
		return nil, fmt.Errorf("rule %s deps: %w", lbl, err)
	}
	weakDeps, err := parseLabels(w.WeakDeps)
	if err != nil {
		return nil, fmt.Errorf("rule %s weak deps: %w", lbl, err)
	}

	return &rules.RuleEntry{
		Label:             lbl,
		Kind:              kind,
		Attr:              w.Attr,
		SourceFiles:       w.SourceFiles,
		NonARCSourceFiles: w.NonARCSourceFiles,
		FrameworkImports:  w.FrameworkImports,
		Dependencies:      deps,
		WeakDependencies:  weakDeps,
		Artifacts:         w.Artifacts,
		DeploymentTarget:  w.DeploymentTarget,
	}, nil
}

func parseLabels(raw []string) ([]label.Label, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	labels := make([]label.Label, 0, len(raw))
	for _, s := range raw {
		l, err := label.Parse(s)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}
