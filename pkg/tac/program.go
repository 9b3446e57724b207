package tac

import "sort"

// Program is the whole instruction stream of a compilation unit.
type Program struct {
	Code []Instruction
}

// Append adds an instruction and returns its index.
func (p *Program) Append(instr Instruction) int {
	p.Code = append(p.Code, instr)
	return len(p.Code) - 1
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Code)
}

// Locations returns every distinct Location the program mentions, in
// creation order. Indirect references contribute their base as well.
func (p *Program) Locations() []*Location {
	seen := make(map[*Location]bool)
	var locs []*Location
	var add func(l *Location)
	add = func(l *Location) {
		if l == nil || seen[l] {
			return
		}
		seen[l] = true
		locs = append(locs, l)
		add(l.base)
	}
	for _, instr := range p.Code {
		add(Dest(instr))
		a, b := Sources(instr)
		add(a)
		add(b)
	}
	sort.Slice(locs, func(i, j int) bool {
		return locs[i].id < locs[j].id
	})
	return locs
}
