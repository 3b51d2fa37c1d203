package generator

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/bazel-xcodegen/pkg/diag"
	"github.com/ritzau/bazel-xcodegen/pkg/rules"
)

// sortEntriesForGeneration orders the selected entries dependencies-first
// so generated settings and collision re-keying are deterministic. Ties
// break on label order. A dependency cycle among the selected entries is
// reported once and the order degrades to plain label order.
func sortEntriesForGeneration(entries []*rules.RuleEntry, diags *diag.Recorder) []*rules.RuleEntry {
	byLabelOrder := append([]*rules.RuleEntry(nil), entries...)
	sort.Slice(byLabelOrder, func(i, j int) bool {
		return byLabelOrder[i].Label < byLabelOrder[j].Label
	})

	g := simple.NewDirectedGraph()
	idForEntry := make(map[*rules.RuleEntry]int64, len(byLabelOrder))
	entryForID := make(map[int64]*rules.RuleEntry, len(byLabelOrder))
	byLabel := make(map[string]*rules.RuleEntry, len(byLabelOrder))
	for i, e := range byLabelOrder {
		id := int64(i)
		idForEntry[e] = id
		entryForID[id] = e
		byLabel[e.Label.String()] = e
		g.AddNode(simple.Node(id))
	}

	// Edges point dependency -> depender, only between selected entries.
	for _, e := range byLabelOrder {
		for _, depLabel := range e.Dependencies {
			dep, ok := byLabel[depLabel.String()]
			if !ok || dep == e {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(idForEntry[dep]), simple.Node(idForEntry[e])))
		}
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool {
			return entryForID[nodes[i].ID()].Label < entryForID[nodes[j].ID()].Label
		})
	})
	if err != nil {
		labels := make([]any, 0, len(byLabelOrder))
		for _, e := range byLabelOrder {
			labels = append(labels, e.Label)
		}
		diags.Warning(diag.KeyCyclicDependency, labels...)
		return byLabelOrder
	}

	ordered := make([]*rules.RuleEntry, 0, len(sorted))
	for _, node := range sorted {
		ordered = append(ordered, entryForID[node.ID()])
	}
	return ordered
}
