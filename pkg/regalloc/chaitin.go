package regalloc

import (
	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/raymyers/tacalloc/pkg/tac"
)

// Allocator colors an interference graph with Chaitin's simplify/select
// algorithm and optimistic spilling.
type Allocator struct {
	graph *InterferenceGraph
	pool  []mips.Register
	K     int // Number of allocatable registers

	removed     map[*tac.Location]bool
	selectStack []*tac.Location // Stack of nodes removed during simplify
	optimistic  map[*tac.Location]bool
	pinned      map[*tac.Location]bool
}

// Assignment is the outcome of coloring one graph. Every node has either a
// concrete register or mips.Spill.
type Assignment struct {
	Registers map[*tac.Location]mips.Register
	// Optimistic holds nodes removed as spill candidates during simplify,
	// whether or not select found them a register.
	Optimistic LocSet

	order  []*tac.Location
	pinned map[*tac.Location]bool
}

// NewAllocator creates a new register allocator over the given pool.
// Pool order is the order registers are tried in.
func NewAllocator(graph *InterferenceGraph, pool []mips.Register) *Allocator {
	return &Allocator{
		graph:      graph,
		pool:       pool,
		K:          len(pool),
		removed:    make(map[*tac.Location]bool),
		optimistic: make(map[*tac.Location]bool),
		pinned:     make(map[*tac.Location]bool),
	}
}

// Pin forces Locations to mips.Spill. Pinned nodes still take part in
// simplify, but never hold a register, so they constrain no neighbor.
func (a *Allocator) Pin(locs ...*tac.Location) {
	for _, l := range locs {
		a.pinned[l] = true
	}
}

// Allocate performs register allocation and returns the result
func (a *Allocator) Allocate() *Assignment {
	a.simplify()
	return a.selectColors()
}

// degree counts neighbors that have not been removed yet.
func (a *Allocator) degree(l *tac.Location) int {
	deg := 0
	for _, n := range a.graph.Neighbors(l) {
		if !a.removed[n] {
			deg++
		}
	}
	return deg
}

// simplify empties the graph onto the select stack. Each round takes the
// first node with fewer than K live neighbors; when there is none, the
// node with the most live neighbors is removed as a spill candidate.
// Edges stay in place; removal is tracked on the side.
func (a *Allocator) simplify() {
	nodes := a.graph.Nodes()
	for len(a.selectStack) < len(nodes) {
		var pick *tac.Location
		maxDeg := -1
		lowDegree := false
		for _, n := range nodes {
			if a.removed[n] {
				continue
			}
			d := a.degree(n)
			if d < a.K {
				pick = n
				lowDegree = true
				break
			}
			if d > maxDeg {
				pick = n
				maxDeg = d
			}
		}
		if !lowDegree {
			a.optimistic[pick] = true
		}
		a.removed[pick] = true
		a.selectStack = append(a.selectStack, pick)
	}
}

// selectColors pops the stack, reinserting each node and giving it the
// first pool register not held by an already reinserted neighbor.
func (a *Allocator) selectColors() *Assignment {
	colors := make(map[*tac.Location]mips.Register, len(a.selectStack))
	reinserted := make(map[*tac.Location]bool, len(a.selectStack))

	for len(a.selectStack) > 0 {
		n := len(a.selectStack) - 1
		l := a.selectStack[n]
		a.selectStack = a.selectStack[:n]
		reinserted[l] = true
		delete(a.removed, l)

		if a.pinned[l] {
			colors[l] = mips.Spill
			continue
		}

		used := make(map[mips.Register]bool)
		for _, neighbor := range a.graph.Neighbors(l) {
			if !reinserted[neighbor] {
				continue
			}
			if r := colors[neighbor]; r.IsConcrete() {
				used[r] = true
			}
		}

		colors[l] = mips.Spill
		for _, r := range a.pool {
			if !used[r] {
				colors[l] = r
				break
			}
		}
	}

	result := &Assignment{
		Registers: colors,
		order:     a.graph.Nodes(),
		pinned:    a.pinned,
	}
	var optimistic []*tac.Location
	for l := range a.optimistic {
		optimistic = append(optimistic, l)
	}
	result.Optimistic = NewLocSet(optimistic...)
	return result
}

// Register returns the decision for l, or mips.Unassigned if l was not in
// the graph.
func (as *Assignment) Register(l *tac.Location) mips.Register {
	if r, ok := as.Registers[l]; ok {
		return r
	}
	return mips.Unassigned
}

// Spilled returns the spilled nodes in graph order.
func (as *Assignment) Spilled() []*tac.Location {
	var spilled []*tac.Location
	for _, l := range as.order {
		if as.Registers[l].IsSpill() {
			spilled = append(spilled, l)
		}
	}
	return spilled
}

// Apply writes each unpinned node's register into its Location.
// Pinned Locations are shared with other functions and are written once by
// the caller.
func (as *Assignment) Apply() {
	for _, l := range as.order {
		if !as.pinned[l] {
			l.SetRegister(as.Registers[l])
		}
	}
}
