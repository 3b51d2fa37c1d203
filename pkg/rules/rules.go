// Package rules holds the resolved build-graph data model: one immutable
// RuleEntry per (label, configuration) pair, and the EntryMap that resolves
// dependency references configuration-aware.
package rules

import (
	"github.com/ritzau/bazel-xcodegen/pkg/label"
)

// Platform identifies the Apple platform a configuration builds for.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformMacOS   Platform = "macos"
	PlatformTVOS    Platform = "tvos"
	PlatformWatchOS Platform = "watchos"
)

// SDKRoot returns the Xcode SDKROOT setting value for the platform.
func (p Platform) SDKRoot() string {
	switch p {
	case PlatformMacOS:
		return "macosx"
	case PlatformTVOS:
		return "appletvos"
	case PlatformWatchOS:
		return "watchos"
	default:
		return "iphoneos"
	}
}

// DeploymentTargetSettingKey returns the build-setting key carrying the
// minimum OS version for the platform.
func (p Platform) DeploymentTargetSettingKey() string {
	switch p {
	case PlatformMacOS:
		return "MACOSX_DEPLOYMENT_TARGET"
	case PlatformTVOS:
		return "TVOS_DEPLOYMENT_TARGET"
	case PlatformWatchOS:
		return "WATCHOS_DEPLOYMENT_TARGET"
	default:
		return "IPHONEOS_DEPLOYMENT_TARGET"
	}
}

// DeploymentTarget describes the platform and minimum OS version one
// configuration-specific resolution of a rule compiles for.
type DeploymentTarget struct {
	Platform  Platform `json:"platform"`
	OSVersion string   `json:"os_version"`
}

// RuleKind is the Bazel rule class of a target.
type RuleKind string

const (
	KindIOSApplication     RuleKind = "ios_application"
	KindIOSExtension       RuleKind = "ios_extension"
	KindIOSFramework       RuleKind = "ios_framework"
	KindIOSStaticFramework RuleKind = "ios_static_framework"
	KindIOSUnitTest        RuleKind = "ios_unit_test"
	KindIOSUITest          RuleKind = "ios_ui_test"
	KindMacOSApplication   RuleKind = "macos_application"
	KindWatchOSApplication RuleKind = "watchos_application"
	KindWatchOSExtension   RuleKind = "watchos_extension"
	KindObjcLibrary        RuleKind = "objc_library"
	KindSwiftLibrary       RuleKind = "swift_library"
	KindCCLibrary          RuleKind = "cc_library"
	KindTestSuite          RuleKind = "test_suite"
	KindAppleBundleImport  RuleKind = "apple_bundle_import"
	KindFilegroup          RuleKind = "filegroup"
)

// IsLibrary reports whether the kind is a plain compilable library.
func (k RuleKind) IsLibrary() bool {
	switch k {
	case KindObjcLibrary, KindSwiftLibrary, KindCCLibrary:
		return true
	}
	return false
}

// IsFramework reports whether the kind produces a framework bundle.
// Framework rules get their own indexing-target partition so framework
// sources index with framework semantics.
func (k RuleKind) IsFramework() bool {
	return k == KindIOSFramework || k == KindIOSStaticFramework
}

// IsTest reports whether the kind is a test bundle rule.
func (k RuleKind) IsTest() bool {
	return k == KindIOSUnitTest || k == KindIOSUITest
}

// FileInfo describes one file referenced by a rule.
type FileInfo struct {
	// Path is relative to the workspace root, or to RootPath when set.
	Path string `json:"path"`
	// IsGenerated marks build-output files (they resolve under bazel-out
	// rather than the source tree).
	IsGenerated bool `json:"is_generated,omitempty"`
	// RootPath is the alternate root for generated trees, when the file
	// does not live under the workspace root.
	RootPath string `json:"root,omitempty"`
}

// FullPath joins the alternate root (when present) with the relative path.
func (f FileInfo) FullPath() string {
	if f.RootPath == "" {
		return f.Path
	}
	return f.RootPath + "/" + f.Path
}

// IsSourceCode reports whether the file participates in compilation or
// import indexing (as opposed to resources and data files).
func (f FileInfo) IsSourceCode() bool {
	ext := fileExtension(f.Path)
	switch ext {
	case "m", "mm", "c", "cc", "cpp", "swift", "h", "hh", "hpp", "pch":
		return true
	}
	return false
}

func fileExtension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i+1:]
		case '/':
			return ""
		}
	}
	return ""
}

// Attributes is the closed set of kind-specific attributes the extraction
// aspect reports. The schema is a 1:1 contract with the aspect's output;
// unknown keys fail extraction rather than being carried opaquely.
type Attributes struct {
	Copts                []string    `json:"copts,omitempty"`
	CompilerDefines      []string    `json:"compiler_defines,omitempty"`
	Includes             []string    `json:"includes,omitempty"`
	PCHFile              *FileInfo   `json:"pch,omitempty"`
	BridgingHeader       *FileInfo   `json:"bridging_header,omitempty"`
	TestHost             label.Label `json:"test_host,omitempty"`
	EnableModules        bool        `json:"enable_modules,omitempty"`
	HasSwiftInfo         bool        `json:"has_swift_info,omitempty"`
	SwiftLanguageVersion string      `json:"swift_language_version,omitempty"`
	BundleID             string      `json:"bundle_id,omitempty"`
	BundleName           string      `json:"bundle_name,omitempty"`
	LaunchStoryboard     *FileInfo   `json:"launch_storyboard,omitempty"`
}

// RuleEntry is the resolved record for one target in one build
// configuration. Entries are created by the extractor and never mutated;
// every later stage reads them through the EntryMap.
type RuleEntry struct {
	Label label.Label
	Kind  RuleKind
	Attr  Attributes

	SourceFiles       []FileInfo
	NonARCSourceFiles []FileInfo
	FrameworkImports  []FileInfo

	// Dependencies are real build edges. WeakDependencies exist only to
	// expand aggregate rules (test_suite members); they never become
	// build edges.
	Dependencies     []label.Label
	WeakDependencies []label.Label

	// Artifacts are the output files Bazel declares for the rule.
	Artifacts []FileInfo

	DeploymentTarget *DeploymentTarget
}

// HasSources reports whether the entry has any compilable or importable
// file, which is the qualification bar for an indexing target.
func (e *RuleEntry) HasSources() bool {
	for _, f := range e.SourceFiles {
		if f.IsSourceCode() {
			return true
		}
	}
	for _, f := range e.NonARCSourceFiles {
		if f.IsSourceCode() {
			return true
		}
	}
	return len(e.FrameworkImports) > 0
}

// DependsOn reports whether lbl is a direct dependency.
func (e *RuleEntry) DependsOn(lbl label.Label) bool {
	for _, d := range e.Dependencies {
		if d == lbl {
			return true
		}
	}
	return false
}

// BundleID returns the declared bundle identifier, or a deterministic
// fallback derived from the label.
func (e *RuleEntry) BundleID() string {
	if e.Attr.BundleID != "" {
		return e.Attr.BundleID
	}
	return "com.bazel-xcodegen." + e.Label.AsFullPBXTargetName()
}
