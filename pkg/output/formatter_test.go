package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/generator"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintReport(&buf, &generator.Report{
		ProjectName:          "Demo",
		BundlePath:           "/tmp/Demo.xcodeproj",
		ProductTargets:       []string{"App", "Lib"},
		IndexersRegistered:   5,
		IndexersMaterialized: 2,
		Diagnostics: []diag.Diagnostic{
			{Severity: diag.SeverityWarning, Key: diag.KeyMissingTestHost, Values: []any{"//t:T", "//app:Host"}},
		},
	})

	out := buf.String()
	for _, want := range []string{
		"Demo",
		"/tmp/Demo.xcodeproj",
		"Build targets (2):",
		"  App",
		"Indexing targets: 2 (from 5 rules)",
		"Warnings (1):",
		"MissingTestHost: //t:T, //app:Host",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestPrintReportCleanRun(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintReport(&buf, &generator.Report{ProjectName: "Demo"})

	if !strings.Contains(buf.String(), "without diagnostics") {
		t.Errorf("clean run should report no diagnostics:\n%s", buf.String())
	}
}
