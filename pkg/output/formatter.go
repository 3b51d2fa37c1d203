// Package output renders the generation report for the terminal.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/generator"
)

// PrintReport prints a formatted generation report with colors.
func PrintReport(w io.Writer, report *generator.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(w, "%s\n", report.ProjectName)
	bold.Fprintln(w, "=====================================")
	if report.BundlePath != "" {
		fmt.Fprintf(w, "Project: %s\n", report.BundlePath)
	}
	fmt.Fprintf(w, "Generated in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintln(w)

	cyan.Fprintf(w, "Build targets (%d):\n", len(report.ProductTargets))
	for _, name := range report.ProductTargets {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "Indexing targets: %d (from %d rules)\n",
		report.IndexersMaterialized, report.IndexersRegistered)
	fmt.Fprintln(w)

	warnings, errors := splitBySeverity(report.Diagnostics)
	if len(errors) > 0 {
		red.Fprintf(w, "ERRORS (%d):\n", len(errors))
		for _, d := range errors {
			red.Fprintf(w, "  %s\n", d.Message())
		}
		fmt.Fprintln(w)
	}
	if len(warnings) > 0 {
		yellow.Fprintf(w, "Warnings (%d):\n", len(warnings))
		for _, d := range warnings {
			yellow.Fprintf(w, "  %s\n", d.Message())
		}
		fmt.Fprintln(w)
	}

	if len(errors) == 0 && len(warnings) == 0 {
		green.Fprintln(w, "✓ Project generated without diagnostics")
	} else if len(errors) == 0 {
		green.Fprintln(w, "✓ Project generated")
	}
}

func splitBySeverity(diagnostics []diag.Diagnostic) (warnings, errors []diag.Diagnostic) {
	for _, d := range diagnostics {
		if d.Severity == diag.SeverityError {
			errors = append(errors, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return warnings, errors
}
