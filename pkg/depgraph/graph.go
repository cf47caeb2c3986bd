// Package depgraph builds the header import graph and computes a safe
// synthesis order.
//
// The graph is an arena of SourceUnits keyed by identifier with edges held
// as index pairs, so cycle detection and reporting walk indices instead of
// chasing pointers. Import references that do not resolve to a unit in the
// set (system or third-party headers) become external leaf markers and are
// never expanded.
//
// Cycles among internal units are an error: the builder reports the full
// ordered cycle and the run aborts before any umbrella header is written.
package depgraph

import (
	"path"
	"slices"
	"strings"

	fberrors "github.com/zhouruiyy/framework-auto-builder/pkg/errors"
	"github.com/zhouruiyy/framework-auto-builder/pkg/header"
)

// Graph is the directed import graph over a fixed SourceUnit set.
// It is read-only after Build.
type Graph struct {
	units    []*header.SourceUnit // arena, discovery order
	index    map[string]int       // unit ID -> arena index
	out      [][]int              // importer -> imported unit indices
	in       [][]int              // imported -> importer unit indices
	external []string             // unresolved import refs, sorted unique
}

// Build constructs the graph from the analyzed unit set. Each import
// reference is resolved to a unit by file name; references that match no
// unit are recorded as external. When two units share a base file name the
// lexically smallest ID wins, keeping resolution deterministic.
func Build(units []*header.SourceUnit) *Graph {
	g := &Graph{
		units: slices.Clone(units),
		index: make(map[string]int, len(units)),
		out:   make([][]int, len(units)),
		in:    make([][]int, len(units)),
	}
	for i, u := range g.units {
		g.index[u.ID] = i
	}

	// Header base name -> arena index of the resolution target.
	byBase := make(map[string]int)
	for i, u := range g.units {
		if !u.IsHeader() {
			continue
		}
		base := path.Base(u.ID)
		if j, ok := byBase[base]; !ok || u.ID < g.units[j].ID {
			byBase[base] = i
		}
	}

	externalSeen := make(map[string]bool)
	for i, u := range g.units {
		edgeSeen := make(map[int]bool)
		for _, ref := range u.Imports {
			j, ok := byBase[path.Base(ref)]
			if !ok {
				if !externalSeen[ref] {
					externalSeen[ref] = true
					g.external = append(g.external, ref)
				}
				continue
			}
			if j == i || edgeSeen[j] {
				continue
			}
			edgeSeen[j] = true
			g.out[i] = append(g.out[i], j)
			g.in[j] = append(g.in[j], i)
		}
	}
	slices.Sort(g.external)
	return g
}

// Units returns the arena in discovery order.
func (g *Graph) Units() []*header.SourceUnit { return g.units }

// Unit returns the unit with the given ID.
func (g *Graph) Unit(id string) (*header.SourceUnit, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.units[i], true
}

// UnitCount returns the number of internal nodes.
func (g *Graph) UnitCount() int { return len(g.units) }

// EdgeCount returns the number of resolved import edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.out {
		n += len(targets)
	}
	return n
}

// Imports returns the IDs of units the given unit imports, in declaration order.
func (g *Graph) Imports(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	ids := make([]string, len(g.out[i]))
	for k, j := range g.out[i] {
		ids[k] = g.units[j].ID
	}
	return ids
}

// External returns the unresolved import references (system and
// third-party headers), sorted.
func (g *Graph) External() []string { return slices.Clone(g.external) }

// TopoOrder computes a dependency-safe ordering: every unit appears after
// all units it imports. Units with no order relation between them are
// emitted in ascending lexical ID order, so the result is deterministic
// across runs. Returns a CYCLIC_DEPENDENCY error naming the full cycle if
// the internal nodes are not acyclic.
func (g *Graph) TopoOrder() ([]*header.SourceUnit, error) {
	remaining := make([]int, len(g.units)) // unresolved import count per unit
	for i := range g.units {
		remaining[i] = len(g.out[i])
	}

	var ready []string
	for i, n := range remaining {
		if n == 0 {
			ready = append(ready, g.units[i].ID)
		}
	}

	ordered := make([]*header.SourceUnit, 0, len(g.units))
	for len(ready) > 0 {
		slices.Sort(ready)
		id := ready[0]
		ready = ready[1:]

		i := g.index[id]
		ordered = append(ordered, g.units[i])
		for _, importer := range g.in[i] {
			remaining[importer]--
			if remaining[importer] == 0 {
				ready = append(ready, g.units[importer].ID)
			}
		}
	}

	if len(ordered) < len(g.units) {
		cycle := g.FindCycle()
		return nil, fberrors.New(fberrors.CodeCyclicDependency, fberrors.StageGraph,
			"cyclic header dependency: %s", strings.Join(cycle, " -> ")).WithSeverity(fberrors.SeverityFatal)
	}
	return ordered, nil
}

// FindCycle returns one import cycle as an ordered list of unit IDs, with
// the first ID repeated at the end. Returns nil if the graph is acyclic.
// Detection colors nodes white/gray/black over the index arena, so
// malformed input cannot drive unbounded recursion through pointers.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.units))
	parent := make([]int, len(g.units))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []string
	var dfs func(i int) bool
	dfs = func(i int) bool {
		color[i] = gray
		for _, j := range g.out[i] {
			switch color[j] {
			case white:
				parent[j] = i
				if dfs(j) {
					return true
				}
			case gray:
				// Walk the gray chain back from i to j to recover the cycle.
				ids := []string{g.units[j].ID}
				for k := i; k != j && k != -1; k = parent[k] {
					ids = append(ids, g.units[k].ID)
				}
				slices.Reverse(ids[1:])
				cycle = append(ids, g.units[j].ID)
				return true
			}
		}
		color[i] = black
		return false
	}

	for i := range g.units {
		if color[i] == white && dfs(i) {
			return cycle
		}
	}
	return nil
}
