package regalloc

import (
	"sort"

	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/raymyers/tacalloc/pkg/tac"
)

// RegMap tells the emitter which Location occupies which register when an
// instruction starts executing.
type RegMap map[mips.Register]*tac.Location

// Registers returns the occupied registers in register-number order.
func (m RegMap) Registers() []mips.Register {
	regs := make([]mips.Register, 0, len(m))
	for r := range m {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}

// BuildRegMaps records, for every instruction, the Locations of IN[i]
// that hold a concrete register. Registers must already be applied to the
// Locations.
func BuildRegMaps(code []tac.Instruction, info *LivenessInfo) []RegMap {
	maps := make([]RegMap, len(code))
	for i := range code {
		m := make(RegMap)
		for _, l := range info.In[i] {
			if r := l.Register(); r.IsConcrete() {
				m[r] = l
			}
		}
		maps[i] = m
	}
	return maps
}
