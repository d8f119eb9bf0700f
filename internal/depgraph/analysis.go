package depgraph

import (
	"log"
	"sort"

	"github.com/dominikbraun/graph"
)

// Node returns the node for a file path.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.index[id]
	return node, ok
}

// Dependencies returns the files id imports, sorted.
func (g *Graph) Dependencies(id string) []string {
	if g.dag == nil {
		return nil
	}
	adjacency, err := g.dag.AdjacencyMap()
	if err != nil {
		return nil
	}
	return sortedKeys(adjacency[id])
}

// Dependents returns the files importing id, sorted.
func (g *Graph) Dependents(id string) []string {
	if g.dag == nil {
		return nil
	}
	predecessors, err := g.dag.PredecessorMap()
	if err != nil {
		return nil
	}
	return sortedKeys(predecessors[id])
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// findCycles returns every strongly connected component with more than one
// file, members sorted, components ordered by their first member.
func findCycles(dag graph.Graph[string, string]) [][]string {
	components, err := graph.StronglyConnectedComponents(dag)
	if err != nil {
		log.Printf("Warning: cycle detection failed: %v\n", err)
		return nil
	}

	var cycles [][]string
	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		members := append([]string(nil), component...)
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// findDrilling follows each prop from the file that introduces it through
// every component that receives it and passes it on. Chains spanning at
// least two hops are reported.
func findDrilling(nodes []*Node, index map[string]*Node) []DrillChain {
	var chains []DrillChain

	var walk func(prop string, trail []string)
	walk = func(prop string, trail []string) {
		last := index[trail[len(trail)-1]]
		extended := false
		if last != nil && contains(last.PropsReceived, prop) {
			for _, next := range sortedKeys(last.PropsPassed) {
				if !contains(last.PropsPassed[next], prop) || containsID(trail, next) {
					continue
				}
				extended = true
				walk(prop, append(append([]string(nil), trail...), next))
			}
		}
		if !extended && len(trail) >= 3 {
			chains = append(chains, DrillChain{Prop: prop, Path: trail})
		}
	}

	for _, node := range nodes {
		for _, target := range sortedKeys(node.PropsPassed) {
			for _, prop := range node.PropsPassed[target] {
				// Only start where the prop originates.
				if contains(node.PropsReceived, prop) || target == node.ID {
					continue
				}
				walk(prop, []string{node.ID, target})
			}
		}
	}
	return chains
}

// contains searches a sorted slice.
func contains(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
