package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/extractor"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
	"github.com/ritzau/bazel-xcodegen/pkg/xcodeproj"
)

func testOptions(t *testing.T) Options {
	return Options{
		ProjectName:     "Demo",
		WorkspaceRoot:   "/workspace",
		OutputDir:       t.TempDir(),
		BazelPath:       "/usr/local/bin/bazel",
		BuildScriptPath: "scripts/bazel_build.py",
		CleanScriptPath: "scripts/bazel_clean.sh",
	}
}

// runGeneration wires a TargetGenerator over the given entries and
// materializes the selected subset.
func runGeneration(t *testing.T, selected []*rules.RuleEntry,
	extra ...*rules.RuleEntry) (*TargetGenerator, *xcodeproj.Project, *diag.Recorder, error) {
	t.Helper()
	diags := diag.NewRecorder()
	ruleMap := rules.NewEntryMap(diags)
	for _, e := range selected {
		ruleMap.Insert(e)
	}
	for _, e := range extra {
		ruleMap.Insert(e)
	}

	project := xcodeproj.NewProject("Demo")
	synthesizer := NewIndexerSynthesizer(ruleMap, diags)
	tg := NewTargetGenerator(project, ruleMap, synthesizer, diags, testOptions(t), "bazel-bin")
	err := tg.GenerateBuildTargets(selected)
	return tg, project, diags, err
}

func TestGenerateBuildTargetsEndToEnd(t *testing.T) {
	lib := libraryEntry("//lib:L", []string{"-DFOO=1"}, "a.m", "b.m")
	app := &rules.RuleEntry{
		Label:        label.MustParse("//app:A"),
		Kind:         rules.KindIOSApplication,
		SourceFiles:  []rules.FileInfo{{Path: "main.m"}},
		Dependencies: []label.Label{lib.Label},
		DeploymentTarget: &rules.DeploymentTarget{
			Platform:  rules.PlatformIOS,
			OSVersion: "13.0",
		},
	}

	tg, project, diags, err := runGeneration(t, []*rules.RuleEntry{app, lib})
	require.NoError(t, err)
	assert.Equal(t, 0, diags.WarningCount())

	appTarget := project.TargetByName("A")
	require.NotNil(t, appTarget)
	libTarget := project.TargetByName("L")
	require.NotNil(t, libTarget)

	// Every source of the closure shares FOO=1, so one indexing target
	// covers all three files.
	require.Equal(t, 1, tg.indexer.SurvivorCount())
	indexerTarget := tg.indexer.TargetForAlias(IndexerNameForLabel(lib.Label, false))
	require.NotNil(t, indexerTarget)
	assert.Len(t, indexerTarget.SourcesPhase().Files, 3)

	// The product target builds through the external script, not Xcode.
	require.Len(t, appTarget.BuildPhases, 1)
	script, ok := appTarget.BuildPhases[0].(*xcodeproj.ShellScriptBuildPhase)
	require.True(t, ok)
	assert.Contains(t, script.Script, "//app:A")
	assert.Contains(t, script.Script, "--bazel /usr/local/bin/bazel")

	// The shared clean target is always the first dependency edge.
	require.NotEmpty(t, appTarget.Dependencies)
	assert.Same(t, tg.CleanTarget(), appTarget.Dependencies[0].Proxy.RemoteTarget())

	cfg := appTarget.ConfigList.GetOrCreateConfiguration("Debug")
	assert.Equal(t, "A", cfg.Settings["PRODUCT_NAME"])
	assert.Equal(t, "//app:A", cfg.Settings["BAZEL_TARGET"])
	assert.Equal(t, "iphoneos", cfg.Settings["SDKROOT"])
	assert.Equal(t, "13.0", cfg.Settings["IPHONEOS_DEPLOYMENT_TARGET"])

	// Selected labels end fully linked; the lifecycle never regresses.
	assert.Equal(t, stateLinked, tg.states[app.Label])
	assert.Equal(t, stateLinked, tg.states[lib.Label])
	tg.advanceState(app.Label, stateRegisteredForIndexing)
	assert.Equal(t, stateLinked, tg.states[app.Label])
}

func TestGenerateResolvesShortNameCollisions(t *testing.T) {
	one := libraryEntry("//foo:Same", nil, "foo.m")
	two := libraryEntry("//bar:Same", nil, "bar.m")

	_, project, _, err := runGeneration(t, []*rules.RuleEntry{one, two})
	require.NoError(t, err)

	assert.Nil(t, project.TargetByName("Same"))
	assert.NotNil(t, project.TargetByName("foo-Same"))
	assert.NotNil(t, project.TargetByName("bar-Same"))
}

func TestGenerateExpandsTestSuites(t *testing.T) {
	member := &rules.RuleEntry{
		Label:       label.MustParse("//tests:Good"),
		Kind:        rules.KindIOSUnitTest,
		SourceFiles: []rules.FileInfo{{Path: "good_test.m"}},
	}
	suite := &rules.RuleEntry{
		Label: label.MustParse("//tests:All"),
		Kind:  rules.KindTestSuite,
		WeakDependencies: []label.Label{
			member.Label,
			label.MustParse("//tests:Missing"),
		},
	}

	_, project, diags, err := runGeneration(t, []*rules.RuleEntry{suite}, member)
	require.NoError(t, err)

	assert.NotNil(t, project.TargetByName("Good"))
	assert.Nil(t, project.TargetByName("All"))
	assert.Equal(t, 1, diags.CountFor(diag.KeyUnresolvedMemberRule))
}

func TestGenerateLinksTestHost(t *testing.T) {
	app := &rules.RuleEntry{
		Label:       label.MustParse("//app:A"),
		Kind:        rules.KindIOSApplication,
		SourceFiles: []rules.FileInfo{{Path: "main.m"}},
	}
	test := &rules.RuleEntry{
		Label:       label.MustParse("//tests:T"),
		Kind:        rules.KindIOSUnitTest,
		Attr:        rules.Attributes{TestHost: app.Label},
		SourceFiles: []rules.FileInfo{{Path: "t_test.m"}},
	}

	tg, project, diags, err := runGeneration(t, []*rules.RuleEntry{app, test})
	require.NoError(t, err)
	assert.Equal(t, 0, diags.CountFor(diag.KeyMissingTestHost))

	testTarget := project.TargetByName("T")
	appTarget := project.TargetByName("A")
	require.NotNil(t, testTarget)
	require.NotNil(t, appTarget)

	assert.Same(t, tg.CleanTarget(), testTarget.Dependencies[0].Proxy.RemoteTarget())
	assert.True(t, testTarget.DependsOnTarget(appTarget))

	cfg := testTarget.ConfigList.GetOrCreateConfiguration("Debug")
	assert.Equal(t, "$(BUILT_PRODUCTS_DIR)/A.app/A", cfg.Settings["TEST_HOST"])
	assert.Equal(t, "$(TEST_HOST)", cfg.Settings["BUNDLE_LOADER"])
}

func TestGenerateSynthesizesMissingTestHost(t *testing.T) {
	test := &rules.RuleEntry{
		Label:       label.MustParse("//tests:T"),
		Kind:        rules.KindIOSUnitTest,
		Attr:        rules.Attributes{TestHost: label.MustParse("//app:Host")},
		SourceFiles: []rules.FileInfo{{Path: "t_test.m"}},
	}

	_, project, diags, err := runGeneration(t, []*rules.RuleEntry{test})
	require.NoError(t, err)

	assert.Equal(t, 1, diags.CountFor(diag.KeyMissingTestHost))

	hostTarget := project.TargetByName("Host")
	require.NotNil(t, hostTarget)
	testTarget := project.TargetByName("T")
	require.NotNil(t, testTarget)
	assert.True(t, testTarget.DependsOnTarget(hostTarget))

	cfg := testTarget.ConfigList.GetOrCreateConfiguration("Debug")
	assert.Equal(t, "$(BUILT_PRODUCTS_DIR)/Host.app/Host", cfg.Settings["TEST_HOST"])
}

func TestGenerateCreatesWatchExtensionStub(t *testing.T) {
	watch := &rules.RuleEntry{
		Label:       label.MustParse("//watch:W"),
		Kind:        rules.KindWatchOSApplication,
		SourceFiles: []rules.FileInfo{{Path: "w.m"}},
	}

	tg, project, _, err := runGeneration(t, []*rules.RuleEntry{watch})
	require.NoError(t, err)

	watchTarget := project.TargetByName("W")
	require.NotNil(t, watchTarget)
	stub := project.TargetByName("W_ext_stub")
	require.NotNil(t, stub)
	assert.Equal(t, xcodeproj.ProductTypeWatchExtension, stub.ProductType())

	// Clean edge first, then the scheduling-only stub edge.
	require.Len(t, watchTarget.Dependencies, 2)
	assert.Same(t, tg.CleanTarget(), watchTarget.Dependencies[0].Proxy.RemoteTarget())
	assert.Same(t, stub, watchTarget.Dependencies[1].Proxy.RemoteTarget())
	assert.True(t, watchTarget.Dependencies[1].BuildTimeOnly)
}

func TestGenerateRejectsUnsupportedKinds(t *testing.T) {
	files := &rules.RuleEntry{
		Label: label.MustParse("//res:Files"),
		Kind:  rules.KindFilegroup,
	}

	_, _, diags, err := runGeneration(t, []*rules.RuleEntry{files})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filegroup")
	assert.Equal(t, 1, diags.CountFor(diag.KeyUnsupportedRuleKind))
}

func TestGenerateSwiftClosureEnablesDSYM(t *testing.T) {
	swiftLib := &rules.RuleEntry{
		Label:       label.MustParse("//lib:Swifty"),
		Kind:        rules.KindSwiftLibrary,
		SourceFiles: []rules.FileInfo{{Path: "s.swift"}},
	}
	app := &rules.RuleEntry{
		Label:        label.MustParse("//app:A"),
		Kind:         rules.KindIOSApplication,
		SourceFiles:  []rules.FileInfo{{Path: "main.m"}},
		Dependencies: []label.Label{swiftLib.Label},
	}
	plainApp := &rules.RuleEntry{
		Label:       label.MustParse("//app:Plain"),
		Kind:        rules.KindIOSApplication,
		SourceFiles: []rules.FileInfo{{Path: "plain.m"}},
	}

	_, project, _, err := runGeneration(t, []*rules.RuleEntry{app, plainApp}, swiftLib)
	require.NoError(t, err)

	withSwift := project.TargetByName("A").ConfigList.GetOrCreateConfiguration("Debug")
	assert.Equal(t, "dwarf-with-dsym", withSwift.Settings["DEBUG_INFORMATION_FORMAT"])
	without := project.TargetByName("Plain").ConfigList.GetOrCreateConfiguration("Debug")
	assert.Equal(t, "dwarf", without.Settings["DEBUG_INFORMATION_FORMAT"])
}

// stubExtractor returns a prebuilt rule map, standing in for the aspect
// pipeline.
type stubExtractor struct {
	ruleMap *rules.EntryMap
}

func (s stubExtractor) ExtractRuleEntries(ctx context.Context, selected []label.Label,
	diags *diag.Recorder) (*rules.EntryMap, error) {
	return s.ruleMap, nil
}

func TestGeneratorWritesProjectBundle(t *testing.T) {
	diags := diag.NewRecorder()
	ruleMap := rules.NewEntryMap(diags)
	lib := libraryEntry("//lib:L", nil, "l.m")
	ruleMap.Insert(lib)

	executor := &extractor.MockExecutor{MockOutput: []byte("bazel-bin: /out/bazel-bin\n")}
	info := extractor.FetchWorkspaceInfo(executor, "/workspace")

	opts := testOptions(t)
	gen := New(stubExtractor{ruleMap: ruleMap}, info, opts)
	report, err := gen.Generate(context.Background(), []label.Label{lib.Label})
	require.NoError(t, err)

	assert.Equal(t, "Demo", report.ProjectName)
	assert.Equal(t, []string{"L"}, report.ProductTargets)
	assert.Equal(t, 1, report.IndexersMaterialized)
	assert.True(t, strings.HasSuffix(report.BundlePath, "Demo.xcodeproj"))

	pbxproj, err := os.ReadFile(filepath.Join(report.BundlePath, "project.pbxproj"))
	require.NoError(t, err)
	assert.Contains(t, string(pbxproj), "// !$*UTF8*$!")
	assert.Contains(t, string(pbxproj), "_bazel_clean_")
}

func TestGeneratorFailsWhenSelectedLabelMissing(t *testing.T) {
	diags := diag.NewRecorder()
	ruleMap := rules.NewEntryMap(diags)

	executor := &extractor.MockExecutor{MockOutput: []byte("bazel-bin: bazel-bin\n")}
	info := extractor.FetchWorkspaceInfo(executor, "/workspace")

	gen := New(stubExtractor{ruleMap: ruleMap}, info, testOptions(t))
	_, err := gen.Generate(context.Background(), []label.Label{label.MustParse("//gone:Gone")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "//gone:Gone")
}
