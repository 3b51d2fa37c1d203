package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
)

func TestSortEntriesForGenerationDependenciesFirst(t *testing.T) {
	lib := libraryEntry("//lib:L", nil, "l.m")
	app := &rules.RuleEntry{
		Label:        label.MustParse("//app:A"),
		Kind:         rules.KindIOSApplication,
		Dependencies: []label.Label{lib.Label},
	}

	diags := diag.NewRecorder()
	ordered := sortEntriesForGeneration([]*rules.RuleEntry{app, lib}, diags)

	assert.Equal(t, []*rules.RuleEntry{lib, app}, ordered)
	assert.Equal(t, 0, diags.WarningCount())
}

func TestSortEntriesForGenerationTiesBreakOnLabel(t *testing.T) {
	a := libraryEntry("//a:A", nil, "a.m")
	b := libraryEntry("//b:B", nil, "b.m")
	c := libraryEntry("//c:C", nil, "c.m")

	ordered := sortEntriesForGeneration([]*rules.RuleEntry{c, a, b}, diag.NewRecorder())

	assert.Equal(t, []*rules.RuleEntry{a, b, c}, ordered)
}

func TestSortEntriesForGenerationCycleDegradesToLabelOrder(t *testing.T) {
	x := libraryEntry("//x:X", nil, "x.m")
	y := libraryEntry("//y:Y", nil, "y.m")
	x.Dependencies = []label.Label{y.Label}
	y.Dependencies = []label.Label{x.Label}

	diags := diag.NewRecorder()
	ordered := sortEntriesForGeneration([]*rules.RuleEntry{y, x}, diags)

	assert.Equal(t, []*rules.RuleEntry{x, y}, ordered)
	assert.Equal(t, 1, diags.CountFor(diag.KeyCyclicDependency))
}
