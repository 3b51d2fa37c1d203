package xcodeproj

import (
	"fmt"
)

// Project is the root of the object graph for one .xcodeproj bundle.
type Project struct {
	Name string

	mainGroup     *Group
	productsGroup *Group

	targetsByName map[string]*Target
	targets       []*Target

	// ConfigList holds the project-level configurations every target
	// configuration inherits from.
	ConfigList *ConfigurationList

	// proxyCache guarantees one proxy (and hence one dependency edge
	// identity) per (target, proxy kind) pair.
	proxyCache map[proxyCacheKey]*ContainerItemProxy
}

type proxyCacheKey struct {
	target    *Target
	proxyType int
}

// NewProject creates an empty project with its main group and the
// reserved Products group.
func NewProject(name string) *Project {
	p := &Project{
		Name:          name,
		mainGroup:     newGroup("mainGroup", "", SourceTreeGroup, nil),
		targetsByName: make(map[string]*Target),
		ConfigList:    newConfigurationList(),
		proxyCache:    make(map[proxyCacheKey]*ContainerItemProxy),
	}
	p.productsGroup = p.mainGroup.GetOrCreateChildGroup("Products")
	p.productsGroup.path = ""
	return p
}

// MainGroup returns the root of the reference tree.
func (p *Project) MainGroup() *Group { return p.mainGroup }

// ProductsGroup returns the reserved group holding product references.
func (p *Project) ProductsGroup() *Group { return p.productsGroup }

// Targets returns the targets in creation order.
func (p *Project) Targets() []*Target { return p.targets }

// TargetByName returns the registered target or nil.
func (p *Project) TargetByName(name string) *Target {
	return p.targetsByName[name]
}

// CreateNativeTarget registers a product-producing target. The product
// file reference is created under the Products group. Duplicate names
// are an error: target names key the registration table.
func (p *Project) CreateNativeTarget(name string, productType ProductType) (*Target, error) {
	if _, exists := p.targetsByName[name]; exists {
		return nil, fmt.Errorf("target %q already exists", name)
	}
	t := &Target{
		name:        name,
		productType: productType,
		ConfigList:  newConfigurationList(),
		project:     p,
	}
	productName := productType.ProductName(name)
	product := p.productsGroup.GetOrCreateFileReference(SourceTreeBuiltProducts, productName)
	product.ExplicitType = true
	t.ProductReference = product

	p.targetsByName[name] = t
	p.targets = append(p.targets, t)
	return t, nil
}

// CreateLegacyTarget registers a target that invokes an external build
// tool instead of producing a product.
func (p *Project) CreateLegacyTarget(name, buildToolPath, buildArguments, workingDir string) (*Target, error) {
	if _, exists := p.targetsByName[name]; exists {
		return nil, fmt.Errorf("target %q already exists", name)
	}
	t := &Target{
		name:            name,
		legacy:          true,
		BuildToolPath:   buildToolPath,
		BuildArguments:  buildArguments,
		BuildWorkingDir: workingDir,
		ConfigList:      newConfigurationList(),
		project:         p,
	}
	p.targetsByName[name] = t
	p.targets = append(p.targets, t)
	return t, nil
}

// getOrCreateProxy returns the cached proxy for the target, creating it
// on first request. Requesting the same dependency twice yields the same
// proxy rather than a duplicate edge.
func (p *Project) getOrCreateProxy(target *Target, proxyType int) *ContainerItemProxy {
	key := proxyCacheKey{target, proxyType}
	if proxy, ok := p.proxyCache[key]; ok {
		return proxy
	}
	proxy := &ContainerItemProxy{remoteTarget: target, proxyType: proxyType}
	p.proxyCache[key] = proxy
	return proxy
}

// LinkDependency adds a dependency edge from one target to another.
// Self-dependencies are rejected (the dependency list is left unchanged)
// and repeated requests for the same edge are collapsed.
func (p *Project) LinkDependency(from, to *Target, buildTimeOnly bool) {
	if from == to || from == nil || to == nil {
		return
	}
	if from.DependsOnTarget(to) {
		return
	}
	proxy := p.getOrCreateProxy(to, proxyTypeTargetReference)
	from.Dependencies = append(from.Dependencies, &TargetDependency{
		Proxy:         proxy,
		BuildTimeOnly: buildTimeOnly,
	})
}

// PrependDependency inserts a dependency edge at the front of the
// dependency list, so the IDE schedules it before every other edge. Used
// for the shared clean target.
func (p *Project) PrependDependency(from, to *Target) {
	if from == to || from == nil || to == nil {
		return
	}
	if from.DependsOnTarget(to) {
		return
	}
	proxy := p.getOrCreateProxy(to, proxyTypeTargetReference)
	dep := &TargetDependency{Proxy: proxy}
	from.Dependencies = append([]*TargetDependency{dep}, from.Dependencies...)
}
