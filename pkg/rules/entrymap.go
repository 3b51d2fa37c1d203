package rules

import (
	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/label"
)

// EntryMap is a multimap from label to the RuleEntry variants sharing that
// label across configurations. The same dependency can legitimately be
// resolved once per transitively-required deployment target, so lookups
// are deployment-target aware with a deterministic last-inserted fallback.
//
// EntryMap only grows: Insert is the sole mutator and there is no delete.
// The warn-once suppression set is owned by the instance, so repeated
// generation passes in one process never leak suppression state.
type EntryMap struct {
	allEntries []*RuleEntry
	byLabel    map[label.Label][]*RuleEntry

	diags          *diag.Recorder
	warnedAmbiguty map[label.Label]bool
}

// NewEntryMap returns an empty map reporting through diags.
func NewEntryMap(diags *diag.Recorder) *EntryMap {
	return &EntryMap{
		byLabel:        make(map[label.Label][]*RuleEntry),
		diags:          diags,
		warnedAmbiguty: make(map[label.Label]bool),
	}
}

// Insert appends the entry to the flat list and its label bucket,
// preserving insertion order. The most recent insertion for a label is
// the deterministic fallback for lookups that cannot match exactly.
func (m *EntryMap) Insert(entry *RuleEntry) {
	m.allEntries = append(m.allEntries, entry)
	m.byLabel[entry.Label] = append(m.byLabel[entry.Label], entry)
}

// AllEntries returns every inserted entry in insertion order.
func (m *EntryMap) AllEntries() []*RuleEntry {
	return m.allEntries
}

// Len returns the total number of inserted entries.
func (m *EntryMap) Len() int { return len(m.allEntries) }

// AnyEntry returns the most recently inserted entry for the label, or nil.
func (m *EntryMap) AnyEntry(lbl label.Label) *RuleEntry {
	bucket := m.byLabel[lbl]
	if len(bucket) == 0 {
		return nil
	}
	return bucket[len(bucket)-1]
}

// Entry returns the entry for lbl matching the given deployment target.
// With a nil deployment target it behaves like AnyEntry. When several
// candidates exist and none matches, it warns once per label and returns
// the last-inserted entry.
func (m *EntryMap) Entry(lbl label.Label, dt *DeploymentTarget) *RuleEntry {
	bucket := m.byLabel[lbl]
	if len(bucket) == 0 {
		return nil
	}
	if dt == nil {
		return bucket[len(bucket)-1]
	}

	for _, e := range bucket {
		if e.DeploymentTarget != nil && *e.DeploymentTarget == *dt {
			return e
		}
	}

	if len(bucket) > 1 && !m.warnedAmbiguty[lbl] {
		m.warnedAmbiguty[lbl] = true
		m.diags.Warning(diag.KeyAmbiguousRuleEntryReference, lbl, dt.Platform, dt.OSVersion)
	}
	return bucket[len(bucket)-1]
}

// EntryForDepender resolves lbl against the depender's deployment target.
// A depender without a deployment-target descriptor records a warning and
// degrades to the last-inserted entry.
func (m *EntryMap) EntryForDepender(lbl label.Label, depender *RuleEntry) *RuleEntry {
	if depender.DeploymentTarget == nil {
		m.diags.Warning(diag.KeyDeploymentTargetMissing, depender.Label, lbl)
		return m.AnyEntry(lbl)
	}
	return m.Entry(lbl, depender.DeploymentTarget)
}
