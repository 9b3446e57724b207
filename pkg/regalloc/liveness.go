// Package regalloc implements register allocation for TAC.
// It rebuilds per-function control flow from the flat instruction stream,
// runs a backward liveness fixpoint, builds one interference graph per
// function and colors it with a Chaitin simplify/select allocator.
package regalloc

import "github.com/raymyers/tacalloc/pkg/tac"

// LivenessInfo holds the per-instruction dataflow sets. All slices are
// indexed by instruction position and cover the whole program; only
// instructions inside a function body are populated.
type LivenessInfo struct {
	In   []LocSet
	Out  []LocSet
	Kill []LocSet
	Gen  []LocSet

	// Sweeps records, per analyzed region, how many passes changed an IN
	// set. The confirming pass that changes nothing is not counted.
	Sweeps map[Region]int

	code     []tac.Instruction
	succ     Successors
	killDone []bool
}

// NewLivenessInfo prepares empty sets for a program.
func NewLivenessInfo(code []tac.Instruction, succ Successors) *LivenessInfo {
	n := len(code)
	return &LivenessInfo{
		In:       make([]LocSet, n),
		Out:      make([]LocSet, n),
		Kill:     make([]LocSet, n),
		Gen:      make([]LocSet, n),
		Sweeps:   make(map[Region]int),
		code:     code,
		succ:     succ,
		killDone: make([]bool, n),
	}
}

// AnalyzeLiveness computes IN/OUT/KILL/GEN for every region.
func AnalyzeLiveness(code []tac.Instruction, succ Successors, regions []Region) *LivenessInfo {
	info := NewLivenessInfo(code, succ)
	for _, r := range regions {
		info.AnalyzeRegion(r)
	}
	return info
}

// AnalyzeRegion sweeps r until a full pass leaves every IN set unchanged.
// Sets only grow over a finite set of Locations, so this terminates.
func (info *LivenessInfo) AnalyzeRegion(r Region) {
	sweeps := 0
	for info.Sweep(r) {
		sweeps++
	}
	info.Sweeps[r] = sweeps
}

// Sweep runs one pass over r from End back to Start and reports whether
// any IN set changed. Walking backwards lets a straight-line body settle in
// a single pass.
//
//	OUT[i] = ∪ IN[s] for s in succ(i)
//	IN[i]  = (OUT[i] - KILL[i]) ∪ GEN[i]
func (info *LivenessInfo) Sweep(r Region) bool {
	changed := false
	for i := r.End; i >= r.Start; i-- {
		var out LocSet
		for _, s := range info.succ[i] {
			out = out.Union(info.In[s])
		}
		info.Out[i] = out

		kill := info.kill(i)
		gen := uses(info.code[i])
		info.Gen[i] = gen

		in := out.Minus(kill).Union(gen)
		if !in.Equal(info.In[i]) {
			info.In[i] = in
			changed = true
		}
	}
	return changed
}

// kill computes KILL[i] on first use and memoizes it.
func (info *LivenessInfo) kill(i int) LocSet {
	if !info.killDone[i] {
		info.Kill[i] = NewLocSet(tac.Dest(info.code[i]))
		info.killDone[i] = true
	}
	return info.Kill[i]
}

// uses returns the Locations instr reads: its sources, plus the base
// address of every indirect operand, written or read.
func uses(instr tac.Instruction) LocSet {
	src1, src2 := tac.Sources(instr)
	locs := []*tac.Location{src1, src2}
	for _, l := range []*tac.Location{tac.Dest(instr), src1, src2} {
		for l != nil && l.IsIndirect() {
			l = l.Base()
			locs = append(locs, l)
		}
	}
	return NewLocSet(locs...)
}

// LiveAcross returns the Locations live out of i that i does not define.
func (info *LivenessInfo) LiveAcross(i int) LocSet {
	return info.Out[i].Minus(info.Kill[i])
}
