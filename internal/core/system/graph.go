package system

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kelindar/bitmap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

// Graph is the dependency DAG over a fixed set of systems. Nodes are indexed
// in (phase, registration) order; an edge i->j means i completes before j
// starts.
type Graph struct {
	systems    []System
	access     []ecs.Access
	deps       [][]int
	dependents [][]int
	layers     [][]int
	order      []int
	ancestors  []bitmap.Bitmap // transitive predecessors of each node
}

// Build validates every system's declared access against w and derives the
// graph. Any declaration problem is an ecs.ErrConfiguration; no graph is
// returned in that case.
func Build(w *ecs.World, systems []System) (*Graph, error) {
	sorted := make([]System, len(systems))
	copy(sorted, systems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Phase() < sorted[j].Phase()
	})

	g := &Graph{
		systems:    sorted,
		access:     make([]ecs.Access, len(sorted)),
		deps:       make([][]int, len(sorted)),
		dependents: make([][]int, len(sorted)),
	}

	byName := make(map[string]int, len(sorted))
	for i, s := range sorted {
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("system %q registered twice: %w", s.Name(), ecs.ErrConfiguration)
		}
		byName[s.Name()] = i
		a := s.Access()
		if err := w.Validate(a); err != nil {
			return nil, fmt.Errorf("system %q: %w", s.Name(), err)
		}
		g.access[i] = a
	}

	edges := make(map[[2]int]struct{})
	addEdge := func(from, to int) {
		k := [2]int{from, to}
		if _, ok := edges[k]; ok {
			return
		}
		edges[k] = struct{}{}
		g.deps[to] = append(g.deps[to], from)
		g.dependents[from] = append(g.dependents[from], to)
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if g.access[i].Conflicts(g.access[j]) {
				addEdge(i, j)
			}
		}
	}

	for i, s := range sorted {
		o, ok := s.(Orderer)
		if !ok {
			continue
		}
		for _, name := range o.After() {
			j, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("system %q runs after unknown system %q: %w", s.Name(), name, ecs.ErrConfiguration)
			}
			if j == i {
				return nil, fmt.Errorf("system %q runs after itself: %w", s.Name(), ecs.ErrConfiguration)
			}
			addEdge(j, i)
		}
	}

	if err := g.layer(); err != nil {
		return nil, err
	}
	return g, nil
}

// layer runs Kahn's algorithm, assigning each node the layer one past its
// deepest predecessor. Nodes left over form a cycle.
func (g *Graph) layer() error {
	n := len(g.systems)
	indeg := make([]int, n)
	depth := make([]int, n)
	for i := range g.deps {
		indeg[i] = len(g.deps[i])
	}
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	g.order = make([]int, 0, n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		g.order = append(g.order, cur)
		for _, d := range g.dependents[cur] {
			if depth[cur]+1 > depth[d] {
				depth[d] = depth[cur] + 1
			}
			indeg[d]--
			if indeg[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if len(g.order) != n {
		var cyclic []string
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				cyclic = append(cyclic, g.systems[i].Name())
			}
		}
		return fmt.Errorf("ordering cycle between systems %s: %w", strings.Join(cyclic, ", "), ecs.ErrConfiguration)
	}
	for _, i := range g.order {
		for len(g.layers) <= depth[i] {
			g.layers = append(g.layers, nil)
		}
		g.layers[depth[i]] = append(g.layers[depth[i]], i)
	}
	for _, l := range g.layers {
		sort.Ints(l)
	}
	g.ancestors = make([]bitmap.Bitmap, n)
	for _, i := range g.order {
		for _, d := range g.deps[i] {
			g.ancestors[i].Set(uint32(d))
			// Or indexes other[0]; roots have no ancestors.
			if len(g.ancestors[d]) > 0 {
				g.ancestors[i].Or(g.ancestors[d])
			}
		}
	}
	return nil
}

func (g *Graph) Len() int                { return len(g.systems) }
func (g *Graph) System(i int) System     { return g.systems[i] }
func (g *Graph) Name(i int) string       { return g.systems[i].Name() }
func (g *Graph) Access(i int) ecs.Access { return g.access[i] }

// Deps returns the nodes that must complete before i starts.
func (g *Graph) Deps(i int) []int { return g.deps[i] }

// Dependents returns the nodes waiting on i.
func (g *Graph) Dependents(i int) []int { return g.dependents[i] }

// Layers groups nodes so that every node's predecessors sit in earlier
// layers. Nodes of one layer are mutually safe to run in parallel.
func (g *Graph) Layers() [][]int { return g.layers }

// Order is a topological order of the nodes.
func (g *Graph) Order() []int { return g.order }

// Index returns the node of the named system.
func (g *Graph) Index(name string) (int, bool) {
	for i, s := range g.systems {
		if s.Name() == name {
			return i, true
		}
	}
	return 0, false
}

// Ordered reports whether a path runs from a to b or from b to a.
func (g *Graph) Ordered(a, b int) bool {
	return a == b || g.ancestors[b].Contains(uint32(a)) || g.ancestors[a].Contains(uint32(b))
}

// NodeInfo is the exported description of one graph node.
type NodeInfo struct {
	Name   string   `json:"name"`
	Phase  string   `json:"phase"`
	Layer  int      `json:"layer"`
	Reads  []string `json:"reads,omitempty"`
	Writes []string `json:"writes,omitempty"`
	After  []string `json:"after,omitempty"`
}

// Nodes describes every node in index order, resolving component names
// through w.
func (g *Graph) Nodes(w *ecs.World) []NodeInfo {
	layerOf := make([]int, len(g.systems))
	for li, layer := range g.layers {
		for _, i := range layer {
			layerOf[i] = li
		}
	}
	names := func(ids []ecs.ComponentID) []string {
		var out []string
		for _, id := range ids {
			out = append(out, w.ComponentName(id))
		}
		return out
	}
	nodes := make([]NodeInfo, len(g.systems))
	for i, s := range g.systems {
		n := NodeInfo{
			Name:   s.Name(),
			Phase:  s.Phase().String(),
			Layer:  layerOf[i],
			Reads:  names(g.access[i].Read),
			Writes: names(g.access[i].Write),
		}
		for _, d := range g.deps[i] {
			n.After = append(n.After, g.Name(d))
		}
		nodes[i] = n
	}
	return nodes
}

// Describe renders the layering for logs and the CLI.
func (g *Graph) Describe(w *ecs.World) string {
	var b strings.Builder
	for li, layer := range g.layers {
		fmt.Fprintf(&b, "layer %d:\n", li)
		for _, i := range layer {
			fmt.Fprintf(&b, "  %-24s %-11s %s", g.Name(i), g.systems[i].Phase(), w.DescribeAccess(g.access[i]))
			if deps := g.deps[i]; len(deps) > 0 {
				names := make([]string, len(deps))
				for k, d := range deps {
					names[k] = g.Name(d)
				}
				fmt.Fprintf(&b, " after[%s]", strings.Join(names, ", "))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
