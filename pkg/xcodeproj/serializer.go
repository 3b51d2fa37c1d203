package xcodeproj

import (
	"bytes"
	"fmt"
	"sort"
)

// Serialize flattens the project graph into project.pbxproj text.
//
// The output contract: identifier assignment is deterministic for
// identical input graphs, every child/target collection is sorted
// lexically by name before emission, and the banner/default fields are
// fixed. Serialization failure is fatal to generation.
func Serialize(p *Project) ([]byte, error) {
	s := &serializer{
		project: p,
		gids:    newGIDGenerator(),
		locales: make(map[string]bool),
	}
	rootRef, err := s.renderProject()
	if err != nil {
		return nil, fmt.Errorf("serializing project %q: %w", p.Name, err)
	}

	sort.Slice(s.objects, func(i, j int) bool {
		return s.objects[i].gid < s.objects[j].gid
	})

	var buf bytes.Buffer
	buf.WriteString("// !$*UTF8*$!\n{\n")
	buf.WriteString("\tarchiveVersion = 1;\n")
	buf.WriteString("\tclasses = {\n\t};\n")
	buf.WriteString("\tobjectVersion = 46;\n")
	buf.WriteString("\tobjects = {\n")
	for _, obj := range s.objects {
		fmt.Fprintf(&buf, "\t\t%s /* %s */ = ", obj.gid, obj.comment)
		if err := writePlistValue(&buf, obj.dict, 2); err != nil {
			return nil, fmt.Errorf("serializing project %q: %w", p.Name, err)
		}
		buf.WriteString(";\n")
	}
	buf.WriteString("\t};\n")
	fmt.Fprintf(&buf, "\trootObject = %s /* %s */;\n", rootRef.gid, rootRef.comment)
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

type renderedObject struct {
	gid     string
	comment string
	dict    *plistDict
}

type serializer struct {
	project *Project
	gids    *gidGenerator
	objects []renderedObject
	locales map[string]bool
}

// once returns the object's identifier and whether this is the first
// request; shared objects (proxies, product references) render once.
func (s *serializer) once(obj any, isa, name string) (string, bool) {
	if gid, ok := s.gids.assigned[obj]; ok {
		return gid, false
	}
	return s.gids.gidFor(obj, isa, name), true
}

func (s *serializer) emit(gid, comment string, dict *plistDict) {
	s.objects = append(s.objects, renderedObject{gid: gid, comment: comment, dict: dict})
}

func (s *serializer) renderProject() (gidRef, error) {
	gid, _ := s.once(s.project, "PBXProject", s.project.Name)
	projectRef := gidRef{gid, "Project object"}

	// Groups render before knownRegions so variant locales are collected.
	mainRef := s.renderReference(s.project.mainGroup)
	productsRef := s.renderReference(s.project.productsGroup)

	targets := append([]*Target(nil), s.project.targets...)
	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })
	targetRefs := make([]any, 0, len(targets))
	for _, t := range targets {
		targetRefs = append(targetRefs, s.renderTarget(t, projectRef))
	}

	listComment := fmt.Sprintf("Build configuration list for PBXProject %q", s.project.Name)
	configListRef := s.renderConfigurationList(s.project.ConfigList, listComment)

	regions := []string{"en"}
	for locale := range s.locales {
		if locale != "en" {
			regions = append(regions, locale)
		}
	}
	sort.Strings(regions)
	regionValues := make([]any, len(regions))
	for i, r := range regions {
		regionValues[i] = r
	}

	attrs := newPlistDict()
	attrs.set("LastUpgradeCheck", "1000")

	d := newPlistDict()
	d.set("isa", "PBXProject")
	d.set("attributes", attrs)
	d.set("buildConfigurationList", configListRef)
	d.set("compatibilityVersion", "Xcode 3.2")
	d.set("developmentRegion", "en")
	d.set("hasScannedForEncodings", "1")
	d.set("knownRegions", regionValues)
	d.set("mainGroup", mainRef)
	d.set("productRefGroup", productsRef)
	d.set("projectDirPath", "")
	d.set("projectRoot", "")
	d.set("targets", targetRefs)
	s.emit(gid, "Project object", d)

	return projectRef, nil
}

func (s *serializer) renderReference(ref Reference) gidRef {
	switch r := ref.(type) {
	case *FileReference:
		return s.renderFileReference(r)
	case *VariantGroup:
		return s.renderGroup(&r.Group, "PBXVariantGroup", true)
	case *Group:
		return s.renderGroup(r, "PBXGroup", false)
	default:
		// Only the three concrete reference types exist.
		panic(fmt.Sprintf("unknown reference type %T", ref))
	}
}

func (s *serializer) renderGroup(g *Group, isa string, variant bool) gidRef {
	comment := g.name
	if comment == "" {
		comment = "mainGroup"
	}
	gid, first := s.once(g, isa, groupIdentity(g))
	ref := gidRef{gid, comment}
	if !first {
		return ref
	}

	children := append([]Reference(nil), g.children...)
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].Name() != children[j].Name() {
			return children[i].Name() < children[j].Name()
		}
		return children[i].Path() < children[j].Path()
	})
	childRefs := make([]any, 0, len(children))
	for _, child := range children {
		if variant {
			if fr, ok := child.(*FileReference); ok {
				s.locales[fr.Name()] = true
			}
		}
		childRefs = append(childRefs, s.renderReference(child))
	}

	d := newPlistDict()
	d.set("isa", isa)
	d.set("children", childRefs)
	if g.name != "" && g.name != g.path {
		d.set("name", g.name)
	}
	if g.path != "" {
		d.set("path", g.path)
	}
	d.set("sourceTree", string(g.sourceTree))
	s.emit(gid, comment, d)
	return ref
}

// groupIdentity builds the stable name a group's identifier derives
// from: its path from the root, so reparenting changes identity but
// regeneration does not.
func groupIdentity(g *Group) string {
	if g.parent == nil {
		return g.name
	}
	return groupIdentity(g.parent) + "/" + g.name
}

func (s *serializer) renderFileReference(f *FileReference) gidRef {
	gid, first := s.once(f, "PBXFileReference", string(f.sourceTree)+":"+f.path)
	ref := gidRef{gid, f.name}
	if !first {
		return ref
	}

	d := newPlistDict()
	d.set("isa", "PBXFileReference")
	if f.ExplicitType {
		d.set("explicitFileType", f.FileType)
	} else {
		d.set("lastKnownFileType", f.FileType)
	}
	if f.name != "" && f.name != f.path {
		d.set("name", f.name)
	}
	d.set("path", f.path)
	d.set("sourceTree", string(f.sourceTree))
	s.emit(gid, f.name, d)
	return ref
}

func (s *serializer) renderTarget(t *Target, projectRef gidRef) gidRef {
	gid, first := s.once(t, t.isaName(), t.name)
	ref := gidRef{gid, t.name}
	if !first {
		return ref
	}

	listComment := fmt.Sprintf("Build configuration list for %s %q", t.isaName(), t.name)
	configListRef := s.renderConfigurationList(t.ConfigList, listComment)

	phaseRefs := make([]any, 0, len(t.BuildPhases))
	for _, phase := range t.BuildPhases {
		phaseRefs = append(phaseRefs, s.renderBuildPhase(t, phase))
	}
	depRefs := make([]any, 0, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		depRefs = append(depRefs, s.renderTargetDependency(dep, projectRef))
	}

	d := newPlistDict()
	d.set("isa", t.isaName())
	if t.legacy {
		d.set("buildArgumentsString", t.BuildArguments)
		d.set("buildConfigurationList", configListRef)
		d.set("buildPhases", phaseRefs)
		d.set("buildToolPath", t.BuildToolPath)
		if t.BuildWorkingDir != "" {
			d.set("buildWorkingDirectory", t.BuildWorkingDir)
		}
		d.set("dependencies", depRefs)
		d.set("name", t.name)
		d.set("passBuildSettingsInEnvironment", "1")
		d.set("productName", t.name)
	} else {
		d.set("buildConfigurationList", configListRef)
		d.set("buildPhases", phaseRefs)
		d.set("dependencies", depRefs)
		d.set("name", t.name)
		d.set("productName", t.name)
		if t.ProductReference != nil {
			d.set("productReference", s.renderFileReference(t.ProductReference))
		}
		d.set("productType", string(t.productType))
	}
	s.emit(gid, t.name, d)
	return ref
}

func (s *serializer) renderBuildPhase(t *Target, phase BuildPhase) gidRef {
	gid, first := s.once(phase, phase.isa(), t.name+"/"+phase.phaseName())
	ref := gidRef{gid, phase.phaseName()}
	if !first {
		return ref
	}

	d := newPlistDict()
	d.set("isa", phase.isa())
	d.set("buildActionMask", "2147483647")
	switch p := phase.(type) {
	case *SourcesBuildPhase:
		fileRefs := make([]any, 0, len(p.Files))
		for _, bf := range p.Files {
			fileRefs = append(fileRefs, s.renderBuildFile(bf))
		}
		d.set("files", fileRefs)
		d.set("runOnlyForDeploymentPostprocessing", "0")
	case *ShellScriptBuildPhase:
		d.set("files", []any{})
		d.set("inputPaths", []any{})
		d.set("outputPaths", []any{})
		d.set("runOnlyForDeploymentPostprocessing", "0")
		d.set("shellPath", p.ShellPath)
		d.set("shellScript", p.Script)
	}
	s.emit(gid, phase.phaseName(), d)
	return ref
}

func (s *serializer) renderBuildFile(bf *BuildFile) gidRef {
	fileRef := s.renderReference(bf.Ref)
	comment := bf.Ref.Name() + " in Sources"
	gid, first := s.once(bf, "PBXBuildFile", comment)
	ref := gidRef{gid, comment}
	if !first {
		return ref
	}

	d := newPlistDict()
	d.set("isa", "PBXBuildFile")
	d.set("fileRef", fileRef)
	if len(bf.Settings) > 0 {
		keys := make([]string, 0, len(bf.Settings))
		for k := range bf.Settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		settings := newPlistDict()
		for _, k := range keys {
			settings.set(k, bf.Settings[k])
		}
		d.set("settings", settings)
	}
	s.emit(gid, comment, d)
	return ref
}

func (s *serializer) renderTargetDependency(dep *TargetDependency, projectRef gidRef) gidRef {
	remote := dep.Proxy.remoteTarget
	proxyRef := s.renderContainerItemProxy(dep.Proxy, projectRef)

	gid, first := s.once(dep, "PBXTargetDependency", remote.name)
	ref := gidRef{gid, "PBXTargetDependency"}
	if !first {
		return ref
	}

	d := newPlistDict()
	d.set("isa", "PBXTargetDependency")
	d.set("target", gidRef{s.gids.gidFor(remote, remote.isaName(), remote.name), remote.name})
	d.set("targetProxy", proxyRef)
	s.emit(gid, "PBXTargetDependency", d)
	return ref
}

func (s *serializer) renderContainerItemProxy(proxy *ContainerItemProxy, projectRef gidRef) gidRef {
	remote := proxy.remoteTarget
	gid, first := s.once(proxy, "PBXContainerItemProxy", remote.name)
	ref := gidRef{gid, "PBXContainerItemProxy"}
	if !first {
		return ref
	}

	d := newPlistDict()
	d.set("isa", "PBXContainerItemProxy")
	d.set("containerPortal", projectRef)
	d.set("proxyType", fmt.Sprintf("%d", proxy.proxyType))
	d.set("remoteGlobalIDString", gidRef{gid: s.gids.gidFor(remote, remote.isaName(), remote.name)})
	d.set("remoteInfo", remote.name)
	s.emit(gid, "PBXContainerItemProxy", d)
	return ref
}

func (s *serializer) renderConfigurationList(l *ConfigurationList, comment string) gidRef {
	gid, first := s.once(l, "XCConfigurationList", comment)
	ref := gidRef{gid, comment}
	if !first {
		return ref
	}

	configs := append([]*BuildConfiguration(nil), l.configs...)
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	configRefs := make([]any, 0, len(configs))
	for _, c := range configs {
		configRefs = append(configRefs, s.renderBuildConfiguration(c, comment))
	}

	defaultName := "Debug"
	if _, ok := l.byName[defaultName]; !ok && len(configs) > 0 {
		defaultName = configs[0].Name
	}

	d := newPlistDict()
	d.set("isa", "XCConfigurationList")
	d.set("buildConfigurations", configRefs)
	d.set("defaultConfigurationIsVisible", "0")
	d.set("defaultConfigurationName", defaultName)
	s.emit(gid, comment, d)
	return ref
}

func (s *serializer) renderBuildConfiguration(c *BuildConfiguration, owner string) gidRef {
	gid, first := s.once(c, "XCBuildConfiguration", owner+"/"+c.Name)
	ref := gidRef{gid, c.Name}
	if !first {
		return ref
	}

	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	settings := newPlistDict()
	for _, k := range keys {
		settings.set(k, c.Settings[k])
	}

	d := newPlistDict()
	d.set("isa", "XCBuildConfiguration")
	d.set("buildSettings", settings)
	d.set("name", c.Name)
	s.emit(gid, c.Name, d)
	return ref
}
