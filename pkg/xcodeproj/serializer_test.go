package xcodeproj

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleProject constructs the same small graph every call; the
// serializer must produce identical bytes for it no matter how often the
// graph is rebuilt.
func buildSampleProject() *Project {
	p := NewProject("Sample")
	p.ConfigList.GetOrCreateConfiguration("Debug").Set("SDKROOT", "iphoneos")
	p.ConfigList.GetOrCreateConfiguration("Release").Set("SDKROOT", "iphoneos")

	lib, _ := p.CreateNativeTarget("Lib", ProductTypeStaticLibrary)
	srcA := p.MainGroup().GetOrCreateFileReferenceForPath(SourceTreeGroup, "Lib/a.m")
	srcB := p.MainGroup().GetOrCreateFileReferenceForPath(SourceTreeGroup, "Lib/b.m")
	phase := &SourcesBuildPhase{}
	phase.AddFile(srcA, nil)
	phase.AddFile(srcB, map[string]string{"COMPILER_FLAGS": "-fno-objc-arc"})
	lib.AddBuildPhase(phase)
	lib.ConfigList.GetOrCreateConfiguration("Debug").Set("PRODUCT_NAME", "Lib")

	app, _ := p.CreateNativeTarget("App", ProductTypeApplication)
	app.AddBuildPhase(NewShellScriptBuildPhase("build.sh //app:App"))
	p.LinkDependency(app, lib, false)
	return p
}

func TestSerializeIsDeterministic(t *testing.T) {
	first, err := Serialize(buildSampleProject())
	require.NoError(t, err)
	second, err := Serialize(buildSampleProject())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second),
		"identical input graphs must serialize to identical bytes")
}

func TestSerializeBannerAndDefaults(t *testing.T) {
	out, err := Serialize(buildSampleProject())
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "// !$*UTF8*$!\n"), "missing pbxproj banner")
	assert.Contains(t, text, "archiveVersion = 1;")
	assert.Contains(t, text, "objectVersion = 46;")
	assert.Contains(t, text, "rootObject = ")
	assert.Contains(t, text, "isa = PBXProject;")
}

func TestSerializeSortsTargetsByName(t *testing.T) {
	out, err := Serialize(buildSampleProject())
	require.NoError(t, err)
	text := string(out)

	// Targets were created Lib-then-App; emission must sort lexically.
	targetsStart := strings.Index(text, "targets = (")
	require.GreaterOrEqual(t, targetsStart, 0)
	targetsEnd := strings.Index(text[targetsStart:], ");")
	require.GreaterOrEqual(t, targetsEnd, 0)
	section := text[targetsStart : targetsStart+targetsEnd]

	appAt := strings.Index(section, "/* App */")
	libAt := strings.Index(section, "/* Lib */")
	require.GreaterOrEqual(t, appAt, 0)
	require.GreaterOrEqual(t, libAt, 0)
	assert.Less(t, appAt, libAt, "targets collection must be sorted by name")
}

func TestSerializeEmitsPerFileSettings(t *testing.T) {
	out, err := Serialize(buildSampleProject())
	require.NoError(t, err)

	assert.Contains(t, string(out), `COMPILER_FLAGS = "-fno-objc-arc";`)
}

func TestSerializeQuotesNonTokenStrings(t *testing.T) {
	assert.Equal(t, `"<group>"`, quoteString("<group>"))
	assert.Equal(t, "BUILT_PRODUCTS_DIR", quoteString("BUILT_PRODUCTS_DIR"))
	assert.Equal(t, "com.apple.product-type.application", quoteString("com.apple.product-type.application"))
	assert.Equal(t, `"a b"`, quoteString("a b"))
	assert.Equal(t, `""`, quoteString(""))
	assert.Equal(t, `"say \"hi\""`, quoteString(`say "hi"`))
}

func TestGIDAssignmentIsStableAndUnique(t *testing.T) {
	genA := newGIDGenerator()
	genB := newGIDGenerator()

	objA1, objA2 := new(int), new(int)
	objB1, objB2 := new(int), new(int)

	// Same (isa, name, occurrence) sequence yields the same IDs across
	// generator instances.
	assert.Equal(t,
		genA.gidFor(objA1, "PBXFileReference", "main.m"),
		genB.gidFor(objB1, "PBXFileReference", "main.m"))

	// A second object with the same name gets a distinct ID.
	idA2 := genA.gidFor(objA2, "PBXFileReference", "main.m")
	assert.NotEqual(t, genA.gidFor(objA1, "PBXFileReference", "main.m"), idA2)
	assert.Equal(t, idA2, genB.gidFor(objB2, "PBXFileReference", "main.m"))

	// IDs are 24 uppercase hex digits.
	assert.Regexp(t, "^[0-9A-F]{24}$", idA2)
}
