package generator

import (
	"sort"
	"strings"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/logging"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
	"github.com/ritzau/bazel-xcodegen/pkg/xcodeproj"
)

// Indexer target name prefixes. Framework rules index in their own
// partition so framework sources get framework compile semantics.
const (
	indexerPrefix          = "_idx_"
	frameworkIndexerPrefix = "_idx_fw_"
)

// IndexerNameForLabel returns the identity token the label's indexing
// target registers under.
func IndexerNameForLabel(lbl label.Label, framework bool) string {
	prefix := indexerPrefix
	if framework {
		prefix = frameworkIndexerPrefix
	}
	return prefix + lbl.AsFullPBXTargetName()
}

// indexerFile is one source file plus its ARC disposition.
type indexerFile struct {
	file       rules.FileInfo
	disableARC bool
}

// indexerData is the mergeable record synthesized per qualifying rule:
// everything Xcode's indexer needs to see the rule's sources with the
// same defines and search paths the real build uses. Created once per
// rule, merged zero or more times, materialized exactly once.
type indexerData struct {
	// identityTokens carries one indexer name per contributing rule;
	// after merging, every token aliases the surviving target.
	identityTokens []string
	dependencies   map[label.Label]bool

	defines              []string // sorted set
	includes             []string // ordered set
	frameworkSearchPaths []string // ordered set
	otherCFlags          []string
	generatedIncludes    []string

	files []indexerFile

	pchPath            string
	bridgingHeaderPath string
	enableModules      bool
	swiftVersion       string
	isFramework        bool
}

// mergeableWith reports whether two records share every compile-relevant
// setting. Identity tokens, dependencies, and file lists never block a
// merge; precompiled-header and bridging-header identity always do.
func (d *indexerData) mergeableWith(other *indexerData) bool {
	return d.pchPath == other.pchPath &&
		d.bridgingHeaderPath == other.bridgingHeaderPath &&
		d.enableModules == other.enableModules &&
		d.swiftVersion == other.swiftVersion &&
		equalStringSlices(d.defines, other.defines) &&
		equalStringSlices(d.otherCFlags, other.otherCFlags) &&
		equalStringSlices(d.includes, other.includes) &&
		equalStringSlices(d.frameworkSearchPaths, other.frameworkSearchPaths)
}

// merge folds other into d: identity tokens and dependency labels union,
// generated includes and file lists concatenate.
func (d *indexerData) merge(other *indexerData) {
	d.identityTokens = unionSorted(d.identityTokens, other.identityTokens)
	for lbl := range other.dependencies {
		d.dependencies[lbl] = true
	}
	d.generatedIncludes = append(d.generatedIncludes, other.generatedIncludes...)
	d.files = append(d.files, other.files...)
}

// closureSettings is the memoized bottom-up accumulation for one label.
type closureSettings struct {
	defines  []string
	includes []string
}

// IndexerSynthesizer builds and merges the indexing-only targets. One
// instance serves one generation pass.
type IndexerSynthesizer struct {
	ruleMap *rules.EntryMap
	diags   *diag.Recorder

	processed map[label.Label]*closureSettings
	buffered  []*indexerData
	survivors []*indexerData
	aliases   map[string]*xcodeproj.Target
}

// NewIndexerSynthesizer creates a synthesizer over the resolved rules.
func NewIndexerSynthesizer(ruleMap *rules.EntryMap, diags *diag.Recorder) *IndexerSynthesizer {
	return &IndexerSynthesizer{
		ruleMap:   ruleMap,
		diags:     diags,
		processed: make(map[label.Label]*closureSettings),
		aliases:   make(map[string]*xcodeproj.Target),
	}
}

// RegisterRuleEntry walks the entry's dependency closure, buffering one
// indexerData per rule with at least one compilable or importable file.
func (s *IndexerSynthesizer) RegisterRuleEntry(entry *rules.RuleEntry) {
	s.register(entry)
}

// register accumulates defines and include paths bottom-up, memoized per
// label so shared dependencies are walked once.
func (s *IndexerSynthesizer) register(entry *rules.RuleEntry) *closureSettings {
	if cs, ok := s.processed[entry.Label]; ok {
		return cs
	}
	// Registered before recursing: a dependency cycle terminates on the
	// partially-filled record instead of recursing forever.
	cs := &closureSettings{}
	s.processed[entry.Label] = cs

	var inheritedDefines, inheritedIncludes []string
	for _, depLabel := range entry.Dependencies {
		depEntry := s.ruleMap.EntryForDepender(depLabel, entry)
		if depEntry == nil {
			s.diags.Warning(diag.KeyUnresolvedDependency, entry.Label, depLabel)
			continue
		}
		depSettings := s.register(depEntry)
		inheritedDefines = append(inheritedDefines, depSettings.defines...)
		inheritedIncludes = append(inheritedIncludes, depSettings.includes...)
	}

	ownDefines, ownIncludes, otherFlags, frameworkPaths := scanCopts(entry.Attr.Copts)
	ownDefines = append(ownDefines, entry.Attr.CompilerDefines...)
	ownIncludes = append(ownIncludes, entry.Attr.Includes...)

	cs.defines = unionSorted(inheritedDefines, ownDefines)
	cs.includes = dedupeOrdered(append(inheritedIncludes, ownIncludes...))

	if !entry.HasSources() {
		return cs
	}

	data := &indexerData{
		identityTokens: []string{IndexerNameForLabel(entry.Label, entry.Kind.IsFramework())},
		dependencies:   make(map[label.Label]bool),
		defines:        cs.defines,
		includes:       cs.includes,
		otherCFlags:    otherFlags,
		enableModules:  entry.Attr.EnableModules,
		swiftVersion:   entry.Attr.SwiftLanguageVersion,
		isFramework:    entry.Kind.IsFramework(),
	}
	data.frameworkSearchPaths = dedupeOrdered(frameworkPaths)
	for _, depLabel := range entry.Dependencies {
		data.dependencies[depLabel] = true
	}
	if entry.Attr.PCHFile != nil {
		data.pchPath = entry.Attr.PCHFile.FullPath()
	}
	if entry.Attr.BridgingHeader != nil {
		data.bridgingHeaderPath = entry.Attr.BridgingHeader.FullPath()
	}
	for _, f := range entry.SourceFiles {
		if !f.IsSourceCode() {
			continue
		}
		if f.IsGenerated && strings.HasSuffix(f.Path, ".h") {
			data.generatedIncludes = append(data.generatedIncludes, f.RootPath)
		}
		data.files = append(data.files, indexerFile{file: f})
	}
	for _, f := range entry.NonARCSourceFiles {
		if f.IsSourceCode() {
			data.files = append(data.files, indexerFile{file: f, disableARC: true})
		}
	}
	for _, f := range entry.FrameworkImports {
		data.files = append(data.files, indexerFile{file: f})
	}

	s.buffered = append(s.buffered, data)
	return cs
}

// mergeBufferedData partitions the buffered records by target flavor and
// greedily merges within each partition: pop one record, fold in every
// mergeable remainder, repeat. Quadratic in the number of distinct
// setting combinations, not in rule count, since merges shrink the set.
func (s *IndexerSynthesizer) mergeBufferedData() {
	var libraryLike, frameworkLike []*indexerData
	for _, d := range s.buffered {
		if d.isFramework {
			frameworkLike = append(frameworkLike, d)
		} else {
			libraryLike = append(libraryLike, d)
		}
	}
	s.survivors = append(reduce(libraryLike), reduce(frameworkLike)...)
}

func reduce(pending []*indexerData) []*indexerData {
	var survivors []*indexerData
	for len(pending) > 0 {
		current := pending[0]
		rest := pending[1:]
		pending = pending[:0]
		for _, candidate := range rest {
			if current.mergeableWith(candidate) {
				current.merge(candidate)
			} else {
				pending = append(pending, candidate)
			}
		}
		survivors = append(survivors, current)
	}
	return survivors
}

// MaterializeIndexerTargets merges the buffered records and creates one
// synthetic target per survivor, then links cross-indexer dependencies
// through the alias table.
func (s *IndexerSynthesizer) MaterializeIndexerTargets(project *xcodeproj.Project) error {
	s.mergeBufferedData()

	for _, data := range s.survivors {
		target, err := s.materialize(project, data)
		if err != nil {
			return err
		}
		for _, token := range data.identityTokens {
			s.aliases[token] = target
		}
	}

	// Dependencies link by alias so merged-away names still resolve.
	for _, data := range s.survivors {
		target := s.aliases[data.identityTokens[0]]
		depLabels := make([]label.Label, 0, len(data.dependencies))
		for lbl := range data.dependencies {
			depLabels = append(depLabels, lbl)
		}
		sort.Slice(depLabels, func(i, j int) bool { return depLabels[i] < depLabels[j] })
		for _, lbl := range depLabels {
			depTarget := s.aliases[IndexerNameForLabel(lbl, false)]
			if depTarget == nil {
				depTarget = s.aliases[IndexerNameForLabel(lbl, true)]
			}
			if depTarget == nil {
				// Dependencies without compilable sources never buffered
				// an indexer; nothing to link.
				logging.Debug("no indexer alias for dependency", "label", lbl)
				continue
			}
			if depTarget == target {
				continue
			}
			project.LinkDependency(target, depTarget, false)
		}
	}

	logging.Info("indexer synthesis complete",
		"registered", len(s.buffered), "materialized", len(s.survivors))
	return nil
}

// TargetForAlias resolves a pre-merge identity token to its surviving
// target, or nil.
func (s *IndexerSynthesizer) TargetForAlias(token string) *xcodeproj.Target {
	return s.aliases[token]
}

// SurvivorCount returns the number of materialized indexing targets.
func (s *IndexerSynthesizer) SurvivorCount() int { return len(s.survivors) }

// RegisteredCount returns the number of pre-merge indexer records.
func (s *IndexerSynthesizer) RegisteredCount() int { return len(s.buffered) }

func (s *IndexerSynthesizer) materialize(project *xcodeproj.Project, data *indexerData) (*xcodeproj.Target, error) {
	name := data.identityTokens[0]
	target, err := project.CreateNativeTarget(name, xcodeproj.ProductTypeStaticLibrary)
	if err != nil {
		return nil, err
	}

	phase := &xcodeproj.SourcesBuildPhase{}
	for _, f := range data.files {
		tree := xcodeproj.SourceTreeGroup
		if f.file.IsGenerated {
			tree = xcodeproj.SourceTreeSourceRoot
		}
		ref := project.MainGroup().GetOrCreateFileReferenceForPath(tree, f.file.FullPath())
		var settings map[string]string
		if f.disableARC {
			settings = map[string]string{"COMPILER_FLAGS": "-fno-objc-arc"}
		}
		phase.AddFile(ref, settings)
	}
	target.AddBuildPhase(phase)

	settings := map[string]string{
		"PRODUCT_NAME": name,
	}
	if len(data.defines) > 0 {
		settings["GCC_PREPROCESSOR_DEFINITIONS"] = strings.Join(data.defines, " ")
	}
	searchPaths := dedupeOrdered(append(append([]string(nil), data.includes...), data.generatedIncludes...))
	if len(searchPaths) > 0 {
		settings["HEADER_SEARCH_PATHS"] = strings.Join(searchPaths, " ")
	}
	if len(data.frameworkSearchPaths) > 0 {
		settings["FRAMEWORK_SEARCH_PATHS"] = strings.Join(data.frameworkSearchPaths, " ")
	}
	if len(data.otherCFlags) > 0 {
		settings["OTHER_CFLAGS"] = strings.Join(data.otherCFlags, " ")
	}
	if data.pchPath != "" {
		settings["GCC_PREFIX_HEADER"] = data.pchPath
	}
	if data.bridgingHeaderPath != "" {
		settings["SWIFT_OBJC_BRIDGING_HEADER"] = data.bridgingHeaderPath
	}
	if data.enableModules {
		settings["CLANG_ENABLE_MODULES"] = "YES"
	}
	if data.swiftVersion != "" {
		settings["SWIFT_VERSION"] = data.swiftVersion
	}
	for _, configName := range []string{"Debug", "Release"} {
		target.ConfigList.GetOrCreateConfiguration(configName).SetAll(settings)
	}
	return target, nil
}

// scanCopts splits a rule's copts: -D and -I tokens (joined or split
// two-token form) feed the define and include sets, -F and -iquote feed
// search paths, everything else passes through verbatim.
func scanCopts(copts []string) (defines, includes, other, frameworkPaths []string) {
	for i := 0; i < len(copts); i++ {
		opt := copts[i]
		switch {
		case opt == "-D" || opt == "-I" || opt == "-F" || opt == "-iquote":
			if i+1 >= len(copts) {
				other = append(other, opt)
				continue
			}
			i++
			switch opt {
			case "-D":
				defines = append(defines, copts[i])
			case "-I":
				includes = append(includes, copts[i])
			case "-F":
				frameworkPaths = append(frameworkPaths, copts[i])
			case "-iquote":
				includes = append(includes, copts[i])
			}
		case strings.HasPrefix(opt, "-D"):
			defines = append(defines, opt[2:])
		case strings.HasPrefix(opt, "-I"):
			includes = append(includes, opt[2:])
		case strings.HasPrefix(opt, "-F"):
			frameworkPaths = append(frameworkPaths, opt[2:])
		case strings.HasPrefix(opt, "-iquote"):
			includes = append(includes, opt[len("-iquote"):])
		default:
			other = append(other, opt)
		}
	}
	return defines, includes, other, frameworkPaths
}

// unionSorted merges two string sets into a sorted, deduplicated slice.
func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// dedupeOrdered removes duplicates preserving first-seen order.
func dedupeOrdered(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
