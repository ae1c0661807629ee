package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/maxim/internal/mir"
)

// CycleError reports surfaces that (transitively) instantiate themselves.
// Such a graph has no finite layout, so unlike most diagnostics it is fatal.
type CycleError struct {
	Path    []string `json:"path"` // e.g. ["a", "b", "a"]
	Message string   `json:"message"`
}

func (e *CycleError) Error() string {
	return e.Message
}

// AnalyzeSurfaceCycles finds every surface reference cycle in ctx.
//
// The algorithm:
//  1. Build surface → nested surface graph from Group and ExtractGroup nodes
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// A DAG returns an empty list.
func AnalyzeSurfaceCycles(ctx *mir.Context) []CycleError {
	graph := buildSurfaceGraph(ctx)

	var cycles []CycleError
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycleError(scc, graph))
		}
	}
	return cycles
}

// EmissionOrder returns the surfaces of ctx ordered so that every surface
// comes after all surfaces it instantiates. Unrelated surfaces keep their
// registration order as far as the dependency order allows.
func EmissionOrder(ctx *mir.Context) ([]*mir.Surface, error) {
	if cycles := AnalyzeSurfaceCycles(ctx); len(cycles) > 0 {
		return nil, &cycles[0]
	}

	graph := buildSurfaceGraph(ctx)
	order := make([]*mir.Surface, 0, len(graph.nodes))
	for _, scc := range tarjanSCC(graph) {
		s, _ := ctx.Surface(mir.SurfaceID{ID: scc[0]})
		order = append(order, s)
	}
	return order, nil
}

// surfaceGraph maps surface id → ids of surfaces it instantiates. nodes keeps
// registration order so traversal is deterministic.
type surfaceGraph struct {
	nodes []uint64
	edges map[uint64][]uint64
	names map[uint64]string
}

func buildSurfaceGraph(ctx *mir.Context) surfaceGraph {
	g := surfaceGraph{
		edges: make(map[uint64][]uint64),
		names: make(map[uint64]string),
	}
	for _, s := range ctx.Surfaces() {
		g.nodes = append(g.nodes, s.ID.ID)
		g.names[s.ID.ID] = s.ID.DebugName
		g.edges[s.ID.ID] = []uint64{}
		for _, n := range s.Nodes {
			var target mir.SurfaceID
			switch data := n.Data.(type) {
			case mir.Group:
				target = data.Surface
			case mir.ExtractGroup:
				target = data.Surface
			default:
				continue
			}
			// Dangling references are reported by Validate.
			if _, ok := ctx.Surface(target); ok {
				g.edges[s.ID.ID] = append(g.edges[s.ID.ID], target.ID)
			}
		}
	}
	return g
}

func hasSelfLoop(node uint64, g surfaceGraph) bool {
	for _, neighbor := range g.edges[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Components are returned in reverse topological order: a component appears
// after every component reachable from it.
func tarjanSCC(g surfaceGraph) [][]uint64 {
	var (
		index   = 0
		stack   []uint64
		indices = make(map[uint64]int)
		lowlink = make(map[uint64]int)
		onStack = make(map[uint64]bool)
		sccs    [][]uint64
	)

	var strongConnect func(uint64)
	strongConnect = func(v uint64) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []uint64
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycleError(scc []uint64, g surfaceGraph) CycleError {
	if len(scc) == 1 {
		name := g.names[scc[0]]
		return CycleError{
			Path:    []string{name, name},
			Message: fmt.Sprintf("surface instantiates itself: %s → %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, g)
	names := make([]string, len(path))
	for i, id := range path {
		names[i] = g.names[id]
	}
	return CycleError{
		Path:    names,
		Message: fmt.Sprintf("surface reference cycle: %s", strings.Join(names, " → ")),
	}
}

// reconstructCyclePath starts at the first SCC member and follows edges to
// other members until it returns to the start.
func reconstructCyclePath(scc []uint64, g surfaceGraph) []uint64 {
	inSCC := make(map[uint64]bool)
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []uint64{current}
	visited := make(map[uint64]bool)

	for {
		visited[current] = true

		next, found := uint64(0), false
		for _, neighbor := range g.edges[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next, found = neighbor, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
