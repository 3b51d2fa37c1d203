// Package diag collects the structured warnings and errors emitted during
// a single project-generation pass. Every diagnostic carries a stable
// message key plus positional values instead of a preformatted string, so
// the diagnostic format itself is testable and renderable elsewhere (the
// console report and the serve-mode API both consume the recorder).
package diag

import (
	"fmt"
	"sync"

	"github.com/ritzau/bazel-xcodegen/pkg/logging"
)

// Key identifies one diagnostic message. Keys are part of the tool's
// stable output contract; renaming one is a breaking change.
type Key string

const (
	// KeyAmbiguousRuleEntryReference: a configuration-aware lookup found no
	// exact deployment-target match among several candidates and fell back
	// to the most recent entry. Values: label, requested deployment target.
	KeyAmbiguousRuleEntryReference Key = "AmbiguousRuleEntryReference"

	// KeyDeploymentTargetMissing: a depender carried no deployment-target
	// descriptor, so lookup degraded to the last-inserted entry.
	// Values: depender label, dependency label.
	KeyDeploymentTargetMissing Key = "RuleEntryDeploymentTargetMissing"

	// KeyUnresolvedDependency: a dependency label failed lookup; the edge
	// is dropped. Values: depender label, dependency label.
	KeyUnresolvedDependency Key = "UnresolvedDependency"

	// KeyUnresolvedIndexerAlias: an indexer dependency alias did not
	// resolve to a materialized indexing target. Values: alias name.
	KeyUnresolvedIndexerAlias Key = "UnresolvedIndexerAlias"

	// KeyMissingTestHost: a test rule's host label was not selected; a
	// sourceless placeholder host was inserted so the test still
	// schedules. Values: test label, host label.
	KeyMissingTestHost Key = "MissingTestHost"

	// KeyUnresolvedMemberRule: a test_suite or extension member failed to
	// resolve and was skipped. Values: enclosing label, member label.
	KeyUnresolvedMemberRule Key = "UnresolvedMemberRule"

	// KeyCyclicDependency: the selected rules form a dependency cycle;
	// generation proceeds in insertion order. Values: cycle member labels.
	KeyCyclicDependency Key = "CyclicDependency"

	// KeyUnsupportedRuleKind: a selected rule's kind cannot be
	// materialized as a product target. Values: label, kind. Fatal.
	KeyUnsupportedRuleKind Key = "UnsupportedRuleKind"
)

// Severity of a recorded diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one recorded message: key plus positional values.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Key      Key      `json:"key"`
	Values   []any    `json:"values"`
}

// Message renders the diagnostic as "Key: v0, v1, ...". The rendering is
// deliberately mechanical; consumers wanting prose map the key themselves.
func (d Diagnostic) Message() string {
	msg := string(d.Key)
	for i, v := range d.Values {
		if i == 0 {
			msg += ": "
		} else {
			msg += ", "
		}
		msg += fmt.Sprint(v)
	}
	return msg
}

// Recorder accumulates diagnostics for one generation pass and mirrors
// each to the log. A fresh Recorder per pass keeps warn-once suppression
// state from leaking across repeated generations in one process.
type Recorder struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Warning records a warning diagnostic.
func (r *Recorder) Warning(key Key, values ...any) {
	r.record(Diagnostic{Severity: SeverityWarning, Key: key, Values: values})
	logging.Warn(string(key), keyedValues(values)...)
}

// Error records an error diagnostic. Recording does not abort anything;
// fatal conditions are still signaled through returned errors.
func (r *Recorder) Error(key Key, values ...any) {
	r.record(Diagnostic{Severity: SeverityError, Key: key, Values: values})
	logging.Error(string(key), keyedValues(values)...)
}

func (r *Recorder) record(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, d)
}

// Diagnostics returns a copy of everything recorded so far, in order.
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// WarningCount returns the number of recorded warnings.
func (r *Recorder) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// CountFor returns how many diagnostics were recorded for one key.
func (r *Recorder) CountFor(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.diagnostics {
		if d.Key == key {
			n++
		}
	}
	return n
}

// keyedValues turns positional values into slog attributes v0, v1, ...
func keyedValues(values []any) []any {
	args := make([]any, 0, len(values)*2)
	for i, v := range values {
		args = append(args, fmt.Sprintf("v%d", i), v)
	}
	return args
}
