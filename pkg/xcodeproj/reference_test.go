package xcodeproj

import (
	"testing"
)

func TestGetOrCreateFileReferenceIsIdempotent(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	first := g.GetOrCreateFileReference(SourceTreeGroup, "Sources/main.m")
	childCount := len(g.Children())
	second := g.GetOrCreateFileReference(SourceTreeGroup, "Sources/main.m")

	if first != second {
		t.Error("identical (sourceTree, path) must return the same FileReference")
	}
	if len(g.Children()) != childCount {
		t.Errorf("second call changed child count: %d -> %d", childCount, len(g.Children()))
	}
}

func TestFileReferencesDistinguishedBySourceTree(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	a := g.GetOrCreateFileReference(SourceTreeGroup, "lib.a")
	b := g.GetOrCreateFileReference(SourceTreeBuiltProducts, "lib.a")
	if a == b {
		t.Error("same path under different source trees must be distinct references")
	}
}

func TestGetOrCreateFileReferenceForPathCreatesNestedGroups(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	ref := g.GetOrCreateFileReferenceForPath(SourceTreeGroup, "App/Sources/main.m")
	if ref.Name() != "main.m" {
		t.Errorf("leaf name = %q, want main.m", ref.Name())
	}
	app := g.childGroups["App"]
	if app == nil {
		t.Fatal("intermediate group App not created")
	}
	sources := app.childGroups["Sources"]
	if sources == nil {
		t.Fatal("intermediate group Sources not created")
	}
	if ref.Parent() != sources {
		t.Error("leaf must be owned by the deepest group")
	}

	// The expansion is get-or-create at every level.
	again := g.GetOrCreateFileReferenceForPath(SourceTreeGroup, "App/Sources/main.m")
	if again != ref {
		t.Error("repeated path expansion must return the same reference")
	}
	if len(sources.Children()) != 1 {
		t.Errorf("Sources child count = %d, want 1", len(sources.Children()))
	}
}

func TestNonGroupTreeLeafKeepsFullPath(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	ref := g.GetOrCreateFileReferenceForPath(SourceTreeSourceRoot, "bazel-out/gen/foo.m")
	if ref.Path() != "bazel-out/gen/foo.m" {
		t.Errorf("leaf path = %q, want the full bazel-out/gen/foo.m", ref.Path())
	}
	if ref.SourceTree() != SourceTreeSourceRoot {
		t.Errorf("leaf source tree = %q, want SOURCE_ROOT", ref.SourceTree())
	}
	if ref.Name() != "foo.m" {
		t.Errorf("leaf name = %q, want foo.m", ref.Name())
	}

	// The group chain still exists for display.
	out := g.childGroups["bazel-out"]
	if out == nil {
		t.Fatal("intermediate group bazel-out not created")
	}
	gen := out.childGroups["gen"]
	if gen == nil {
		t.Fatal("intermediate group gen not created")
	}
	if ref.Parent() != gen {
		t.Error("leaf must be owned by the deepest group")
	}

	again := g.GetOrCreateFileReferenceForPath(SourceTreeSourceRoot, "bazel-out/gen/foo.m")
	if again != ref {
		t.Error("repeated expansion must return the same reference")
	}
}

func TestNonGroupTreeBundleKeepsFullPath(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	ref := g.GetOrCreateFileReferenceForPath(SourceTreeSourceRoot, "bazel-out/gen/Assets.xcassets/icon.png")
	if ref.Path() != "bazel-out/gen/Assets.xcassets" {
		t.Errorf("bundle path = %q, want bazel-out/gen/Assets.xcassets", ref.Path())
	}
	if ref.Name() != "Assets.xcassets" {
		t.Errorf("bundle name = %q, want Assets.xcassets", ref.Name())
	}
}

func TestBundledPathTerminatesDecomposition(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	ref := g.GetOrCreateFileReferenceForPath(SourceTreeGroup, "App/Assets.xcassets/icon.png")
	if ref.Name() != "Assets.xcassets" {
		t.Errorf("bundle reference name = %q, want Assets.xcassets", ref.Name())
	}
	if ref.FileType != "folder.assetcatalog" {
		t.Errorf("bundle file type = %q, want folder.assetcatalog", ref.FileType)
	}
	app := g.childGroups["App"]
	if app == nil {
		t.Fatal("group App not created")
	}
	if app.childGroups["Assets.xcassets"] != nil {
		t.Error("bundle must not expand into a subgroup")
	}
}

func TestLocaleSegmentsCollapseIntoVariantGroup(t *testing.T) {
	g := newGroup("root", "", SourceTreeGroup, nil)

	en := g.GetOrCreateFileReferenceForPath(SourceTreeGroup, "Res/en.lproj/Main.strings")
	de := g.GetOrCreateFileReferenceForPath(SourceTreeGroup, "Res/de.lproj/Main.strings")

	res := g.childGroups["Res"]
	if res == nil {
		t.Fatal("group Res not created")
	}
	vg := res.variantGroups["Main.strings"]
	if vg == nil {
		t.Fatal("variant group for Main.strings not created")
	}
	if len(vg.Children()) != 2 {
		t.Fatalf("variant group child count = %d, want 2", len(vg.Children()))
	}
	if en.Name() != "en" || de.Name() != "de" {
		t.Errorf("variant children named (%q, %q), want locale names (en, de)", en.Name(), de.Name())
	}
	if en.Path() != "en.lproj/Main.strings" {
		t.Errorf("variant child path = %q, want en.lproj/Main.strings", en.Path())
	}
}
