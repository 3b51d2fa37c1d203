package watcher

// ChangeAnalysis describes what changed and whether the generated
// project needs regenerating.
type ChangeAnalysis struct {
	NeedRegeneration bool
	// GraphChanged marks changes to build definitions themselves, as
	// opposed to source additions shifting glob expansion.
	GraphChanged bool
	ChangedFiles []string
}

// AnalyzeChanges classifies one debounced event batch.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeBuildFile:
		// Rule definitions, dependencies, or flags changed; everything
		// derived from the graph is stale.
		analysis.NeedRegeneration = true
		analysis.GraphChanged = true

	case ChangeTypeSourceFile:
		// Created or removed sources change glob results, so target file
		// lists and indexer coverage are stale. Compile settings are not.
		analysis.NeedRegeneration = true
	}

	return analysis
}
