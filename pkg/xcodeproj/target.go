package xcodeproj

// ProductType identifies what a native target produces.
type ProductType string

const (
	ProductTypeApplication      ProductType = "com.apple.product-type.application"
	ProductTypeAppExtension     ProductType = "com.apple.product-type.app-extension"
	ProductTypeStaticLibrary    ProductType = "com.apple.product-type.library.static"
	ProductTypeFramework        ProductType = "com.apple.product-type.framework"
	ProductTypeStaticFramework  ProductType = "com.apple.product-type.framework.static"
	ProductTypeUnitTest         ProductType = "com.apple.product-type.bundle.unit-test"
	ProductTypeUITest           ProductType = "com.apple.product-type.bundle.ui-testing"
	ProductTypeWatchApp         ProductType = "com.apple.product-type.application.watchapp2"
	ProductTypeWatchExtension   ProductType = "com.apple.product-type.watchkit2-extension"
	ProductTypeTool             ProductType = "com.apple.product-type.tool"
)

// productExtension maps a product type to the extension of its output
// bundle or archive.
func (p ProductType) productExtension() string {
	switch p {
	case ProductTypeApplication, ProductTypeWatchApp:
		return "app"
	case ProductTypeAppExtension, ProductTypeWatchExtension:
		return "appex"
	case ProductTypeStaticLibrary:
		return "a"
	case ProductTypeFramework, ProductTypeStaticFramework:
		return "framework"
	case ProductTypeUnitTest, ProductTypeUITest:
		return "xctest"
	default:
		return ""
	}
}

// ProductName returns the output file name for a target named name.
func (p ProductType) ProductName(name string) string {
	if p == ProductTypeStaticLibrary {
		return "lib" + name + ".a"
	}
	if ext := p.productExtension(); ext != "" {
		return name + "." + ext
	}
	return name
}

// BuildPhase is one ordered step of a target's build.
type BuildPhase interface {
	isa() string
	phaseName() string
}

// BuildFile pairs a reference with its per-file build settings (for
// example a per-file "-fno-objc-arc" compiler flag).
type BuildFile struct {
	Ref      Reference
	Settings map[string]string
}

// SourcesBuildPhase is a "compile sources" phase. For this generator the
// phase never actually compiles: it feeds Xcode's indexer.
type SourcesBuildPhase struct {
	Files []*BuildFile
}

func (p *SourcesBuildPhase) isa() string       { return "PBXSourcesBuildPhase" }
func (p *SourcesBuildPhase) phaseName() string { return "Sources" }

// AddFile appends a file with optional per-file settings.
func (p *SourcesBuildPhase) AddFile(ref Reference, settings map[string]string) *BuildFile {
	bf := &BuildFile{Ref: ref, Settings: settings}
	p.Files = append(p.Files, bf)
	return bf
}

// ShellScriptBuildPhase runs an external script; it is how generated
// targets invoke Bazel.
type ShellScriptBuildPhase struct {
	Script    string
	ShellPath string
}

// NewShellScriptBuildPhase returns a phase running script under /bin/bash.
func NewShellScriptBuildPhase(script string) *ShellScriptBuildPhase {
	return &ShellScriptBuildPhase{Script: script, ShellPath: "/bin/bash"}
}

func (p *ShellScriptBuildPhase) isa() string       { return "PBXShellScriptBuildPhase" }
func (p *ShellScriptBuildPhase) phaseName() string { return "ShellScript" }

// BuildConfiguration is one named settings table (Debug, Release, ...).
type BuildConfiguration struct {
	Name     string
	Settings map[string]string
}

// Set assigns one build setting.
func (c *BuildConfiguration) Set(key, value string) {
	c.Settings[key] = value
}

// SetAll copies every setting from the map.
func (c *BuildConfiguration) SetAll(settings map[string]string) {
	for k, v := range settings {
		c.Settings[k] = v
	}
}

// ConfigurationList is an ordered, name-unique collection of build
// configurations.
type ConfigurationList struct {
	configs []*BuildConfiguration
	byName  map[string]*BuildConfiguration
}

func newConfigurationList() *ConfigurationList {
	return &ConfigurationList{byName: make(map[string]*BuildConfiguration)}
}

// GetOrCreateConfiguration returns the named configuration, creating an
// empty one on first request.
func (l *ConfigurationList) GetOrCreateConfiguration(name string) *BuildConfiguration {
	if c, ok := l.byName[name]; ok {
		return c
	}
	c := &BuildConfiguration{Name: name, Settings: make(map[string]string)}
	l.byName[name] = c
	l.configs = append(l.configs, c)
	return c
}

// Configurations returns the configurations in creation order.
func (l *ConfigurationList) Configurations() []*BuildConfiguration {
	return l.configs
}

// ContainerItemProxy is the indirection object Xcode uses to reference a
// target (possibly in another project) from a dependency edge.
type ContainerItemProxy struct {
	remoteTarget *Target
	proxyType    int
}

const proxyTypeTargetReference = 1

// RemoteTarget returns the target the proxy stands for.
func (p *ContainerItemProxy) RemoteTarget() *Target { return p.remoteTarget }

// TargetDependency is one dependency edge, expressed through a proxy.
type TargetDependency struct {
	Proxy *ContainerItemProxy
	// BuildTimeOnly marks scheduling-only edges (the IDE builds the
	// dependency first but does not treat it as a link dependency).
	BuildTimeOnly bool
}

// Target is a named build unit.
type Target struct {
	name        string
	productType ProductType

	// Legacy targets invoke an external build tool directly; the shared
	// clean target is the one legacy target this generator emits.
	legacy          bool
	BuildToolPath   string
	BuildArguments  string
	BuildWorkingDir string

	BuildPhases      []BuildPhase
	ConfigList       *ConfigurationList
	Dependencies     []*TargetDependency
	ProductReference *FileReference

	project *Project
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// ProductType returns the product type; empty for legacy targets.
func (t *Target) ProductType() ProductType { return t.productType }

// IsLegacy reports whether the target invokes an external build tool.
func (t *Target) IsLegacy() bool { return t.legacy }

func (t *Target) isaName() string {
	if t.legacy {
		return "PBXLegacyTarget"
	}
	return "PBXNativeTarget"
}

// AddBuildPhase appends a phase to the ordered phase list.
func (t *Target) AddBuildPhase(phase BuildPhase) {
	t.BuildPhases = append(t.BuildPhases, phase)
}

// SourcesPhase returns the target's compile-sources phase, creating one
// if none exists yet.
func (t *Target) SourcesPhase() *SourcesBuildPhase {
	for _, p := range t.BuildPhases {
		if sp, ok := p.(*SourcesBuildPhase); ok {
			return sp
		}
	}
	sp := &SourcesBuildPhase{}
	t.AddBuildPhase(sp)
	return sp
}

// DependsOnTarget reports whether a dependency edge to other exists.
func (t *Target) DependsOnTarget(other *Target) bool {
	for _, d := range t.Dependencies {
		if d.Proxy.remoteTarget == other {
			return true
		}
	}
	return false
}
