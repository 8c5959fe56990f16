package alliance

import (
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/talgya/radiowar/internal/social"
)

// Blocs groups allied factions into connected components: two factions share
// a bloc when a chain of alliances links them. Factions with no alliance are
// not listed. Members and blocs are sorted.
func (l *Ledger) Blocs() [][]social.Frequency {
	g := graph.New(func(f social.Frequency) social.Frequency { return f })

	for f, set := range l.allies {
		_ = g.AddVertex(f) // Ignore errors - vertex might already exist
		for a := range set {
			_ = g.AddVertex(a)
			_ = g.AddEdge(f, a) // Ignore errors - mirror edge might already exist
		}
	}

	keys := make([]social.Frequency, 0, len(l.allies))
	for f := range l.allies {
		keys = append(keys, f)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	visited := make(social.FrequencySet)
	var blocs [][]social.Frequency
	for _, start := range keys {
		if visited.Has(start) {
			continue
		}
		bloc := make(social.FrequencySet)
		_ = graph.BFS(g, start, func(f social.Frequency) bool {
			visited.Add(f)
			bloc.Add(f)
			return false
		})
		blocs = append(blocs, bloc.Sorted())
	}
	return blocs
}
