package graph

import (
	"strings"

	"github.com/mohitkumar/conveyor/model"
)

// validateAcyclic proves the dependency relation has no cycles using
// Kahn's algorithm. When a cycle exists a deterministic witness path is
// extracted for the error detail.
func (g *JobGraph) validateAcyclic() error {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := make([]int, 0, len(indeg))
	for i := range indeg {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	visited := 0
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		visited++
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if visited == len(g.jobs) {
		return nil
	}
	return DefinitionError{
		Reason: model.REASON_CYCLIC_DEPENDENCY,
		Detail: strings.Join(g.findCycle(), " -> "),
	}
}

// findCycle walks the graph depth first over declaration indices and
// returns one stable cycle witness as job names.
func (g *JobGraph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.jobs))
	parent := make([]int, len(g.jobs))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				cur := u
				for cur != -1 && cur != v {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < len(g.jobs); i++ {
		if color[i] != white {
			continue
		}
		if dfs(i) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}

	names := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		names = append(names, g.jobs[cycle[i]].Name)
	}
	return names
}
