// Package generator turns a resolved rules.EntryMap into a populated
// xcodeproj.Project: synthetic indexing targets for code intelligence
// plus one Bazel-invoking product target per selected label.
package generator

import (
	"fmt"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
	"github.com/ritzau/bazel-xcodegen/pkg/xcodeproj"
)

// cleanTargetName is the shared external-clean target every product
// target depends on, ordered first so an IDE clean always runs Bazel's
// clean before anything else.
const cleanTargetName = "_bazel_clean_"

// labelState tracks how far one label has progressed through generation.
// Transitions are strictly forward; a dependency-only label may stay in
// stateRegisteredForIndexing forever.
type labelState int

const (
	stateUnregistered labelState = iota
	stateRegisteredForIndexing
	stateMaterialized
	stateLinked
)

// Options configures one generation pass.
type Options struct {
	ProjectName   string
	WorkspaceRoot string
	OutputDir     string

	BazelPath       string
	BuildScriptPath string
	CleanScriptPath string

	// Configurations defaults to Debug and Release when empty.
	Configurations []string

	BuildOptions   map[string][]string
	StartupOptions map[string][]string

	// TargetSettingOverrides maps target name to build settings applied
	// after all derived values.
	TargetSettingOverrides map[string]map[string]string

	Verbose bool
}

func (o *Options) configurations() []string {
	if len(o.Configurations) == 0 {
		return []string{"Debug", "Release"}
	}
	return o.Configurations
}

// TargetGenerator materializes real build targets and wires their
// linkage. One instance serves one generation pass; internal tables only
// accumulate.
type TargetGenerator struct {
	project *xcodeproj.Project
	ruleMap *rules.EntryMap
	indexer *IndexerSynthesizer
	diags   *diag.Recorder
	opts    Options

	bazelBinPath string

	states         map[label.Label]labelState
	targetNames    map[label.Label]string
	productTargets map[label.Label]*xcodeproj.Target
	cleanTarget    *xcodeproj.Target
	swiftMemo      map[label.Label]bool
}

// NewTargetGenerator creates a generator populating project from the
// resolved rule map.
func NewTargetGenerator(project *xcodeproj.Project, ruleMap *rules.EntryMap,
	indexer *IndexerSynthesizer, diags *diag.Recorder, opts Options, bazelBinPath string) *TargetGenerator {
	return &TargetGenerator{
		project:        project,
		ruleMap:        ruleMap,
		indexer:        indexer,
		diags:          diags,
		opts:           opts,
		bazelBinPath:   bazelBinPath,
		states:         make(map[label.Label]labelState),
		targetNames:    make(map[label.Label]string),
		productTargets: make(map[label.Label]*xcodeproj.Target),
		swiftMemo:      make(map[label.Label]bool),
	}
}

// advanceState moves a label forward; regressions are ignored, the
// machine only ever advances.
func (g *TargetGenerator) advanceState(lbl label.Label, to labelState) {
	if g.states[lbl] < to {
		g.states[lbl] = to
	}
}

// GenerateBuildTargets drives the whole pass: suite expansion, indexer
// registration and materialization, product target creation, then the
// deferred linkage passes.
func (g *TargetGenerator) GenerateBuildTargets(selected []*rules.RuleEntry) error {
	expanded := g.expandTestSuites(selected)
	ordered := sortEntriesForGeneration(expanded, g.diags)

	for _, entry := range ordered {
		g.indexer.RegisterRuleEntry(entry)
		g.advanceState(entry.Label, stateRegisteredForIndexing)
	}
	if err := g.indexer.MaterializeIndexerTargets(g.project); err != nil {
		return err
	}

	g.populateProjectSettings()
	if err := g.createCleanTarget(); err != nil {
		return err
	}

	g.resolveTargetNames(ordered)
	for _, entry := range ordered {
		if _, err := g.materializeProductTarget(entry); err != nil {
			return err
		}
	}

	if err := g.linkTestHosts(ordered); err != nil {
		return err
	}
	for _, entry := range ordered {
		g.advanceState(entry.Label, stateLinked)
	}

	logging.Info("target generation complete",
		"products", len(g.productTargets), "indexers", g.indexer.SurvivorCount())
	return nil
}

// expandTestSuites replaces test_suite entries with their resolved
// members. Weak dependencies drive the expansion only; they never become
// build edges. An unresolvable member is skipped, not fatal.
func (g *TargetGenerator) expandTestSuites(selected []*rules.RuleEntry) []*rules.RuleEntry {
	var out []*rules.RuleEntry
	seen := make(map[label.Label]bool)

	add := func(entry *rules.RuleEntry) {
		if !seen[entry.Label] {
			seen[entry.Label] = true
			out = append(out, entry)
		}
	}

	for _, entry := range selected {
		if entry.Kind != rules.KindTestSuite {
			add(entry)
			continue
		}
		for _, member := range entry.WeakDependencies {
			memberEntry := g.ruleMap.AnyEntry(member)
			if memberEntry == nil {
				g.diags.Warning(diag.KeyUnresolvedMemberRule, entry.Label, member)
				continue
			}
			if memberEntry.Kind == rules.KindTestSuite {
				for _, nested := range g.expandTestSuites([]*rules.RuleEntry{memberEntry}) {
					add(nested)
				}
			} else {
				add(memberEntry)
			}
		}
	}
	return out
}

// resolveTargetNames assigns each entry its Xcode target name: the short
// label name, or the fully qualified form for the labels that actually
// collide.
func (g *TargetGenerator) resolveTargetNames(entries []*rules.RuleEntry) {
	shortNameCount := make(map[string]int)
	for _, entry := range entries {
		shortNameCount[entry.Label.TargetName()]++
	}
	for _, entry := range entries {
		short := entry.Label.TargetName()
		if shortNameCount[short] > 1 {
			g.targetNames[entry.Label] = entry.Label.AsFullPBXTargetName()
		} else {
			g.targetNames[entry.Label] = short
		}
	}
}

func (g *TargetGenerator) targetName(lbl label.Label) string {
	if name, ok := g.targetNames[lbl]; ok {
		return name
	}
	return lbl.TargetName()
}

// productTypeForKind maps a rule kind to the Xcode product type, or an
// error for kinds that cannot be materialized as product targets.
func productTypeForKind(kind rules.RuleKind) (xcodeproj.ProductType, error) {
	switch kind {
	case rules.KindIOSApplication, rules.KindMacOSApplication:
		return xcodeproj.ProductTypeApplication, nil
	case rules.KindIOSExtension:
		return xcodeproj.ProductTypeAppExtension, nil
	case rules.KindIOSFramework:
		return xcodeproj.ProductTypeFramework, nil
	case rules.KindIOSStaticFramework:
		return xcodeproj.ProductTypeStaticFramework, nil
	case rules.KindIOSUnitTest:
		return xcodeproj.ProductTypeUnitTest, nil
	case rules.KindIOSUITest:
		return xcodeproj.ProductTypeUITest, nil
	case rules.KindWatchOSApplication:
		return xcodeproj.ProductTypeWatchApp, nil
	case rules.KindWatchOSExtension:
		return xcodeproj.ProductTypeWatchExtension, nil
	case rules.KindObjcLibrary, rules.KindSwiftLibrary, rules.KindCCLibrary:
		return xcodeproj.ProductTypeStaticLibrary, nil
	default:
		return "", fmt.Errorf("rule kind %q cannot be materialized as a product target", kind)
	}
}

// materializeProductTarget creates the Bazel-invoking target for one
// selected entry. Its single build phase runs the external build script;
// the clean target dependency is inserted first.
func (g *TargetGenerator) materializeProductTarget(entry *rules.RuleEntry) (*xcodeproj.Target, error) {
	if existing, ok := g.productTargets[entry.Label]; ok {
		return existing, nil
	}

	productType, err := productTypeForKind(entry.Kind)
	if err != nil {
		g.diags.Error(diag.KeyUnsupportedRuleKind, entry.Label, entry.Kind)
		return nil, fmt.Errorf("materializing %s: %w", entry.Label, err)
	}

	name := g.targetName(entry.Label)
	target, err := g.project.CreateNativeTarget(name, productType)
	if err != nil {
		return nil, fmt.Errorf("materializing %s: %w", entry.Label, err)
	}

	script := BuildCommandLine(g.opts.BuildScriptPath, entry.Label, CommandOptions{
		BazelPath:      g.opts.BazelPath,
		BazelBinPath:   g.bazelBinPath,
		Verbose:        g.opts.Verbose,
		Configurations: g.opts.configurations(),
		BuildOptions:   g.opts.BuildOptions,
		StartupOptions: g.opts.StartupOptions,
	})
	target.AddBuildPhase(xcodeproj.NewShellScriptBuildPhase(script))

	g.applyTargetSettings(target, entry, name)
	g.project.PrependDependency(target, g.cleanTarget)

	g.productTargets[entry.Label] = target
	g.advanceState(entry.Label, stateMaterialized)

	if entry.Kind == rules.KindWatchOSApplication {
		if err := g.createWatchExtensionStub(target, entry, name); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// createWatchExtensionStub auto-generates the companion extension target
// a watch app needs scheduled. The edge is build-time-only: Xcode builds
// the stub first without treating it as a link dependency.
func (g *TargetGenerator) createWatchExtensionStub(watchTarget *xcodeproj.Target,
	entry *rules.RuleEntry, watchName string) error {
	stubName := watchName + "_ext_stub"
	stub, err := g.project.CreateNativeTarget(stubName, xcodeproj.ProductTypeWatchExtension)
	if err != nil {
		return fmt.Errorf("creating watch extension stub for %s: %w", entry.Label, err)
	}
	for _, configName := range g.opts.configurations() {
		cfg := stub.ConfigList.GetOrCreateConfiguration(configName)
		cfg.Set("PRODUCT_NAME", stubName)
		cfg.Set("PRODUCT_BUNDLE_IDENTIFIER", entry.BundleID()+".ext_stub")
		cfg.Set("SDKROOT", rules.PlatformWatchOS.SDKRoot())
	}
	g.project.LinkDependency(watchTarget, stub, true)
	return nil
}

// applyTargetSettings assembles the per-configuration settings table:
// project-wide defaults are inherited from the project configuration
// list, rule-derived values land here, user overrides win last.
func (g *TargetGenerator) applyTargetSettings(target *xcodeproj.Target, entry *rules.RuleEntry, name string) {
	derived := map[string]string{
		"PRODUCT_NAME": name,
		"BAZEL_TARGET": entry.Label.String(),
	}
	if isBundledProduct(entry.Kind) {
		derived["PRODUCT_BUNDLE_IDENTIFIER"] = entry.BundleID()
	}
	if dt := entry.DeploymentTarget; dt != nil {
		derived["SDKROOT"] = dt.Platform.SDKRoot()
		derived[dt.Platform.DeploymentTargetSettingKey()] = dt.OSVersion
	}
	if g.hasTransitiveSwift(entry) {
		derived["DEBUG_INFORMATION_FORMAT"] = "dwarf-with-dsym"
	} else {
		derived["DEBUG_INFORMATION_FORMAT"] = "dwarf"
	}
	if entry.Attr.LaunchStoryboard != nil {
		derived["INFOPLIST_PREPROCESS"] = "NO"
	}

	overrides := g.opts.TargetSettingOverrides[name]
	for _, configName := range g.opts.configurations() {
		cfg := target.ConfigList.GetOrCreateConfiguration(configName)
		cfg.SetAll(derived)
		cfg.SetAll(overrides)
	}
}

func isBundledProduct(kind rules.RuleKind) bool {
	switch kind {
	case rules.KindIOSApplication, rules.KindMacOSApplication, rules.KindIOSExtension,
		rules.KindIOSFramework, rules.KindIOSStaticFramework, rules.KindIOSUnitTest,
		rules.KindIOSUITest, rules.KindWatchOSApplication, rules.KindWatchOSExtension:
		return true
	}
	return false
}

// hasTransitiveSwift reports whether the entry or anything in its
// dependency closure is a Swift rule; it drives the dSYM toggle since
// lldb needs dSYMs to resolve Swift module paths.
func (g *TargetGenerator) hasTransitiveSwift(entry *rules.RuleEntry) bool {
	if answer, ok := g.swiftMemo[entry.Label]; ok {
		return answer
	}
	// Seed false before recursing so cycles terminate.
	g.swiftMemo[entry.Label] = false

	answer := entry.Kind == rules.KindSwiftLibrary || entry.Attr.HasSwiftInfo
	if !answer {
		for _, depLabel := range entry.Dependencies {
			dep := g.ruleMap.EntryForDepender(depLabel, entry)
			if dep != nil && g.hasTransitiveSwift(dep) {
				answer = true
				break
			}
		}
	}
	g.swiftMemo[entry.Label] = answer
	return answer
}

// populateProjectSettings fills the project-level configuration list
// with the defaults every target inherits.
func (g *TargetGenerator) populateProjectSettings() {
	defaults := map[string]string{
		"ALWAYS_SEARCH_USER_PATHS":       "NO",
		"CLANG_ENABLE_OBJC_ARC":          "YES",
		"CODE_SIGNING_REQUIRED":          "NO",
		"CODE_SIGN_IDENTITY":             "",
		"ONLY_ACTIVE_ARCH":               "YES",
		"BAZEL_PATH":                     g.opts.BazelPath,
		"BAZEL_WORKSPACE_ROOT":           g.opts.WorkspaceRoot,
		"GCC_WARN_ABOUT_MISSING_NEWLINE": "YES",
	}
	for _, configName := range g.opts.configurations() {
		cfg := g.project.ConfigList.GetOrCreateConfiguration(configName)
		cfg.SetAll(defaults)
		switch configName {
		case "Debug":
			cfg.Set("GCC_OPTIMIZATION_LEVEL", "0")
			cfg.Set("ENABLE_TESTABILITY", "YES")
		case "Release":
			cfg.Set("GCC_OPTIMIZATION_LEVEL", "s")
		}
	}
}

// createCleanTarget registers the shared legacy target delegating clean
// actions to the external tool.
func (g *TargetGenerator) createCleanTarget() error {
	target, err := g.project.CreateLegacyTarget(cleanTargetName,
		g.opts.CleanScriptPath, `"$(ACTION)"`, g.opts.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("creating clean target: %w", err)
	}
	for _, configName := range g.opts.configurations() {
		cfg := target.ConfigList.GetOrCreateConfiguration(configName)
		cfg.Set("BAZEL_PATH", g.opts.BazelPath)
		cfg.Set("PRODUCT_NAME", cleanTargetName)
	}
	g.cleanTarget = target
	return nil
}

// CleanTarget returns the shared clean target, nil before generation.
func (g *TargetGenerator) CleanTarget() *xcodeproj.Target { return g.cleanTarget }

// ProductTarget returns the materialized product target for a label.
func (g *TargetGenerator) ProductTarget(lbl label.Label) *xcodeproj.Target {
	return g.productTargets[lbl]
}

// linkTestHosts runs after every target exists: test targets get a
// dependency edge on their host plus the bundle-loader settings copied
// from it. A host that was never selected is replaced by a synthetic
// sourceless placeholder so the test still schedules.
func (g *TargetGenerator) linkTestHosts(entries []*rules.RuleEntry) error {
	for _, entry := range entries {
		if !entry.Kind.IsTest() || entry.Attr.TestHost == "" {
			continue
		}
		testTarget := g.productTargets[entry.Label]
		if testTarget == nil {
			continue
		}
		hostLabel, err := label.Parse(string(entry.Attr.TestHost))
		if err != nil {
			return fmt.Errorf("test %s: %w", entry.Label, err)
		}

		hostTarget := g.productTargets[hostLabel]
		if hostTarget == nil {
			g.diags.Warning(diag.KeyMissingTestHost, entry.Label, hostLabel)
			placeholder := &rules.RuleEntry{
				Label:            hostLabel,
				Kind:             rules.KindIOSApplication,
				DeploymentTarget: entry.DeploymentTarget,
			}
			g.ruleMap.Insert(placeholder)
			g.targetNames[hostLabel] = g.placeholderName(hostLabel)
			hostTarget, err = g.materializeProductTarget(placeholder)
			if err != nil {
				return err
			}
		}

		g.project.LinkDependency(testTarget, hostTarget, false)
		g.applyTestHostSettings(testTarget, hostTarget, hostLabel)
		g.advanceState(entry.Label, stateLinked)
		g.advanceState(hostLabel, stateLinked)
	}
	return nil
}

// placeholderName picks a target name for a synthetic host, falling back
// to the fully qualified form if the short name is taken.
func (g *TargetGenerator) placeholderName(hostLabel label.Label) string {
	short := hostLabel.TargetName()
	if g.project.TargetByName(short) == nil {
		return short
	}
	return hostLabel.AsFullPBXTargetName()
}

// applyTestHostSettings copies the bundle-loader keys from the host's
// settings, consulting the host's indexing target when the host config
// lacks a product name (placeholder hosts have none of their own).
func (g *TargetGenerator) applyTestHostSettings(testTarget, hostTarget *xcodeproj.Target, hostLabel label.Label) {
	for _, configName := range g.opts.configurations() {
		hostProduct := hostTarget.ConfigList.GetOrCreateConfiguration(configName).Settings["PRODUCT_NAME"]
		if hostProduct == "" {
			if idx := g.indexer.TargetForAlias(IndexerNameForLabel(hostLabel, false)); idx != nil {
				hostProduct = idx.ConfigList.GetOrCreateConfiguration(configName).Settings["PRODUCT_NAME"]
			}
		}
		if hostProduct == "" {
			hostProduct = hostLabel.TargetName()
		}
		cfg := testTarget.ConfigList.GetOrCreateConfiguration(configName)
		cfg.Set("TEST_HOST", fmt.Sprintf("$(BUILT_PRODUCTS_DIR)/%s.app/%s", hostProduct, hostProduct))
		cfg.Set("BUNDLE_LOADER", "$(TEST_HOST)")
	}
}
