package regalloc

import (
	"github.com/raymyers/tacalloc/pkg/tac"
)

// InterferenceGraph represents the register interference graph of one
// function. Two Locations interfere if both are in OUT ∪ KILL of some
// instruction: one is defined while the other is live.
type InterferenceGraph struct {
	// nodes in first-insertion order; iteration follows this order
	nodes []*tac.Location
	// edges maps each Location to its neighbors in insertion order
	edges map[*tac.Location][]*tac.Location
	// adj gives constant-time HasEdge
	adj map[*tac.Location]map[*tac.Location]bool
}

// NewInterferenceGraph creates an empty interference graph
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		edges: make(map[*tac.Location][]*tac.Location),
		adj:   make(map[*tac.Location]map[*tac.Location]bool),
	}
}

// AddNode adds a Location to the graph
func (g *InterferenceGraph) AddNode(l *tac.Location) {
	if _, ok := g.adj[l]; ok {
		return
	}
	g.nodes = append(g.nodes, l)
	g.edges[l] = nil
	g.adj[l] = make(map[*tac.Location]bool)
}

// AddEdge adds an interference edge between two Locations
func (g *InterferenceGraph) AddEdge(a, b *tac.Location) {
	g.AddNode(a)
	g.AddNode(b)
	if a == b {
		return // No self-edges
	}
	g.addNeighbor(a, b)
	g.addNeighbor(b, a)
}

func (g *InterferenceGraph) addNeighbor(a, b *tac.Location) {
	if g.adj[a][b] {
		return
	}
	g.adj[a][b] = true
	g.edges[a] = append(g.edges[a], b)
}

// HasEdge returns true if there is an interference edge
func (g *InterferenceGraph) HasEdge(a, b *tac.Location) bool {
	return g.adj[a][b]
}

// HasNode returns true if l is in the graph
func (g *InterferenceGraph) HasNode(l *tac.Location) bool {
	_, ok := g.adj[l]
	return ok
}

// Nodes returns the nodes in insertion order
func (g *InterferenceGraph) Nodes() []*tac.Location {
	return g.nodes
}

// Neighbors returns the interfering neighbors of a Location
func (g *InterferenceGraph) Neighbors(l *tac.Location) []*tac.Location {
	return g.edges[l]
}

// Degree returns the number of neighbors for a Location
func (g *InterferenceGraph) Degree(l *tac.Location) int {
	return len(g.edges[l])
}

// EdgeCount returns the number of undirected edges
func (g *InterferenceGraph) EdgeCount() int {
	n := 0
	for _, l := range g.nodes {
		n += len(g.edges[l])
	}
	return n / 2
}

// BuildInterferenceGraph constructs the interference graph of a region:
// every member of OUT[i] ∪ KILL[i] becomes a node, and every pair of
// distinct members an edge.
func BuildInterferenceGraph(r Region, info *LivenessInfo) *InterferenceGraph {
	g := NewInterferenceGraph()
	for i := r.Start; i <= r.End; i++ {
		common := info.Out[i].Union(info.Kill[i])
		for _, a := range common {
			g.AddNode(a)
			for _, b := range common {
				g.AddEdge(a, b)
			}
		}
	}
	return g
}
