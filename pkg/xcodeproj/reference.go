// Package xcodeproj models the Xcode project object graph (file and group
// references, targets, build phases, configuration lists, dependency
// proxies) and serializes it into project.pbxproj form. The model is built
// for a single generation pass; instances are not safe for concurrent use.
package xcodeproj

import (
	"strings"
)

// SourceTree is the path-root kind of a reference.
type SourceTree string

const (
	// SourceTreeGroup resolves the path relative to the enclosing group.
	SourceTreeGroup SourceTree = "<group>"
	// SourceTreeAbsolute is an absolute filesystem path.
	SourceTreeAbsolute SourceTree = "<absolute>"
	// SourceTreeBuiltProducts resolves relative to the build products dir.
	SourceTreeBuiltProducts SourceTree = "BUILT_PRODUCTS_DIR"
	// SourceTreeSDKRoot resolves relative to the active SDK.
	SourceTreeSDKRoot SourceTree = "SDKROOT"
	// SourceTreeSourceRoot resolves relative to the project directory.
	SourceTreeSourceRoot SourceTree = "SOURCE_ROOT"
)

// Reference is a node in the project's group tree. Every non-root
// reference has exactly one owning parent group; the Parent back-link is
// a non-owning pointer (the group's children slice owns the node).
type Reference interface {
	isa() string
	Name() string
	Path() string
	SourceTree() SourceTree
	Parent() *Group
}

// bundleFileTypes maps directory extensions that Xcode treats as a single
// opaque file. Path decomposition stops at these segments: the bundle
// becomes one FileReference standing in for its whole subtree.
var bundleFileTypes = map[string]string{
	"app":          "wrapper.application",
	"appex":        "wrapper.app-extension",
	"bundle":       "wrapper.cfbundle",
	"framework":    "wrapper.framework",
	"octest":       "wrapper.cfbundle",
	"xcassets":     "folder.assetcatalog",
	"xcstickers":   "folder.stickers",
	"xcdatamodel":  "wrapper.xcdatamodel",
	"xcdatamodeld": "wrapper.xcdatamodeld",
	"scnassets":    "wrapper.scnassets",
}

// fileTypeForPath guesses the Xcode file type from the path extension.
func fileTypeForPath(path string) string {
	ext := ""
	if dot := strings.LastIndex(path, "."); dot >= 0 && !strings.Contains(path[dot:], "/") {
		ext = path[dot+1:]
	}
	if t, ok := bundleFileTypes[ext]; ok {
		return t
	}
	switch ext {
	case "m":
		return "sourcecode.c.objc"
	case "mm":
		return "sourcecode.cpp.objcpp"
	case "c":
		return "sourcecode.c.c"
	case "cc", "cpp", "cxx":
		return "sourcecode.cpp.cpp"
	case "swift":
		return "sourcecode.swift"
	case "h", "pch":
		return "sourcecode.c.h"
	case "hh", "hpp":
		return "sourcecode.cpp.h"
	case "a":
		return "archive.ar"
	case "storyboard":
		return "file.storyboard"
	case "xib":
		return "file.xib"
	case "strings":
		return "text.plist.strings"
	case "plist":
		return "text.plist.xml"
	case "png":
		return "image.png"
	case "sh":
		return "text.script.sh"
	case "xctest":
		return "wrapper.cfbundle"
	default:
		return "text"
	}
}

// isBundledPath reports whether the path segment is a bundle-like
// directory that terminates group decomposition.
func isBundledPath(segment string) bool {
	dot := strings.LastIndex(segment, ".")
	if dot < 0 {
		return false
	}
	_, ok := bundleFileTypes[segment[dot+1:]]
	return ok
}

// FileReference is a leaf node referencing one file (or one bundle
// directory treated as a file).
type FileReference struct {
	name       string
	path       string
	sourceTree SourceTree
	parent     *Group

	// FileType is the Xcode file type identifier. ExplicitType marks
	// generated files whose type Xcode must not sniff from disk.
	FileType     string
	ExplicitType bool
}

func (f *FileReference) isa() string {
	return "PBXFileReference"
}

// Name returns the display name (the last path component).
func (f *FileReference) Name() string { return f.name }

// Path returns the reference path relative to its source tree root.
func (f *FileReference) Path() string { return f.path }

// SourceTree returns the path-root kind.
func (f *FileReference) SourceTree() SourceTree { return f.sourceTree }

// Parent returns the owning group.
func (f *FileReference) Parent() *Group { return f.parent }

// refKey indexes FileReferences within one group: at most one reference
// exists per distinct (source tree, path) pair. This index is the sole
// duplicate-avoidance mechanism when several rules pull in the same file.
type refKey struct {
	tree SourceTree
	path string
}

// Group is an internal node with ordered children.
type Group struct {
	name       string
	path       string
	sourceTree SourceTree
	parent     *Group

	children      []Reference
	fileRefs      map[refKey]*FileReference
	childGroups   map[string]*Group
	variantGroups map[string]*VariantGroup
}

func newGroup(name, path string, tree SourceTree, parent *Group) *Group {
	return &Group{
		name:          name,
		path:          path,
		sourceTree:    tree,
		parent:        parent,
		fileRefs:      make(map[refKey]*FileReference),
		childGroups:   make(map[string]*Group),
		variantGroups: make(map[string]*VariantGroup),
	}
}

func (g *Group) isa() string { return "PBXGroup" }

// Name returns the group display name.
func (g *Group) Name() string { return g.name }

// Path returns the group path, empty for purely logical groups.
func (g *Group) Path() string { return g.path }

// SourceTree returns the path-root kind.
func (g *Group) SourceTree() SourceTree { return g.sourceTree }

// Parent returns the owning group, nil for the root.
func (g *Group) Parent() *Group { return g.parent }

// Children returns the ordered child references.
func (g *Group) Children() []Reference { return g.children }

// GetOrCreateFileReference returns the group's FileReference for the
// (tree, path) pair, creating it on first request. Repeated calls with
// identical arguments return the same instance and leave the child list
// unchanged.
func (g *Group) GetOrCreateFileReference(tree SourceTree, path string) *FileReference {
	key := refKey{tree, path}
	if ref, ok := g.fileRefs[key]; ok {
		return ref
	}

	name := path
	if slash := strings.LastIndex(path, "/"); slash >= 0 {
		name = path[slash+1:]
	}
	ref := &FileReference{
		name:       name,
		path:       path,
		sourceTree: tree,
		parent:     g,
		FileType:   fileTypeForPath(path),
	}
	g.fileRefs[key] = ref
	g.children = append(g.children, ref)
	return ref
}

// GetOrCreateChildGroup returns the named direct subgroup, creating it on
// first request.
func (g *Group) GetOrCreateChildGroup(name string) *Group {
	if child, ok := g.childGroups[name]; ok {
		return child
	}
	child := newGroup(name, name, SourceTreeGroup, g)
	g.childGroups[name] = child
	g.children = append(g.children, child)
	return child
}

// GetOrCreateVariantGroup returns the variant group collapsing per-locale
// copies of the named resource into one logical entry.
func (g *Group) GetOrCreateVariantGroup(name string) *VariantGroup {
	if vg, ok := g.variantGroups[name]; ok {
		return vg
	}
	vg := &VariantGroup{Group: *newGroup(name, "", SourceTreeGroup, g)}
	g.variantGroups[name] = vg
	g.children = append(g.children, vg)
	return vg
}

// GetOrCreateFileReferenceForPath expands a slash-delimited path into
// nested groups one segment at a time and returns the leaf reference.
// Two segment forms cut the expansion short: bundle-like directories
// become a single FileReference for the whole subtree, and "<locale>.lproj"
// segments collapse into a variant group keyed by the resource base name.
//
// Xcode resolves non-group source trees against the tree root, ignoring
// the enclosing group chain, so for those trees the leaf keeps the full
// path while the groups exist only for display.
func (g *Group) GetOrCreateFileReferenceForPath(tree SourceTree, path string) *FileReference {
	current := g
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		last := i == len(segments)-1

		if isBundledPath(segment) {
			refPath := segment
			if tree != SourceTreeGroup {
				refPath = strings.Join(segments[:i+1], "/")
			}
			return current.GetOrCreateFileReference(tree, refPath)
		}

		if strings.HasSuffix(segment, ".lproj") && !last {
			resource := segments[len(segments)-1]
			vg := current.GetOrCreateVariantGroup(resource)
			localePath := strings.Join(segments[i:], "/")
			if tree != SourceTreeGroup {
				localePath = path
			}
			ref := vg.GetOrCreateFileReference(tree, localePath)
			// The variant child displays as its locale, not the file name.
			ref.name = strings.TrimSuffix(segment, ".lproj")
			return ref
		}

		if last {
			refPath := segment
			if tree != SourceTreeGroup {
				refPath = path
			}
			return current.GetOrCreateFileReference(tree, refPath)
		}
		current = current.GetOrCreateChildGroup(segment)
	}
	// Unreachable: the loop always returns on the last segment.
	return nil
}

// VariantGroup is a group whose children are per-locale variants of one
// logical resource.
type VariantGroup struct {
	Group
}

func (v *VariantGroup) isa() string { return "PBXVariantGroup" }
