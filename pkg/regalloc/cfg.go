package regalloc

import (
	"errors"
	"fmt"

	"github.com/raymyers/tacalloc/pkg/tac"
)

// Input errors. Allocation itself never fails; only a malformed stream does.
var (
	ErrDuplicateLabel  = errors.New("duplicate label")
	ErrUnresolvedLabel = errors.New("unresolved label")
	ErrMalformedRegion = errors.New("malformed function region")
)

// LabelIndex maps a label name to the index of the instruction it marks.
type LabelIndex map[string]int

// BuildLabelIndex scans the program once for labels.
// A label defined twice is rejected.
func BuildLabelIndex(code []tac.Instruction) (LabelIndex, error) {
	labels := make(LabelIndex)
	for i, instr := range code {
		lbl, ok := instr.(tac.Label)
		if !ok {
			continue
		}
		if prev, dup := labels[lbl.Name]; dup {
			return nil, fmt.Errorf("%w: %s at %d and %d", ErrDuplicateLabel, lbl.Name, prev, i)
		}
		labels[lbl.Name] = i
	}
	return labels, nil
}

// Region is one function body, BeginFunc at Start through EndFunc at End.
type Region struct {
	Name       string
	Start, End int
}

// Len returns the number of instructions in the region.
func (r Region) Len() int {
	return r.End - r.Start + 1
}

// FindRegions partitions the program into function bodies. The region name
// is the label immediately before BeginFunc, if there is one.
func FindRegions(code []tac.Instruction) ([]Region, error) {
	var regions []Region
	open := -1
	for i, instr := range code {
		switch {
		case tac.IsBeginFunc(instr):
			if open >= 0 {
				return nil, fmt.Errorf("%w: BeginFunc at %d inside function opened at %d", ErrMalformedRegion, i, open)
			}
			open = i
		case tac.IsEndFunc(instr):
			if open < 0 {
				return nil, fmt.Errorf("%w: EndFunc at %d without BeginFunc", ErrMalformedRegion, i)
			}
			r := Region{Start: open, End: i}
			if open > 0 {
				if lbl, ok := code[open-1].(tac.Label); ok {
					r.Name = lbl.Name
				}
			}
			regions = append(regions, r)
			open = -1
		}
	}
	if open >= 0 {
		return nil, fmt.Errorf("%w: BeginFunc at %d has no EndFunc", ErrMalformedRegion, open)
	}
	return regions, nil
}

// Successors holds, per instruction index, the indices that may run next.
// Each list is deduplicated, in the order target, fall-through.
type Successors [][]int

// BuildSuccessors derives control flow from fall-through order, Goto and
// IfZ. Only instructions inside a function body get successors; EndFunc
// has none. Every branch target must resolve, inside a body or not.
func BuildSuccessors(code []tac.Instruction, labels LabelIndex) (Successors, error) {
	succ := make(Successors, len(code))
	inFunc := false
	for i, instr := range code {
		if !inFunc {
			switch {
			case tac.IsBeginFunc(instr):
				inFunc = true
				succ[i] = fallThrough(i, len(code))
			case tac.IsGoto(instr), tac.IsIfZ(instr):
				// no successors, but the target must still exist
				if _, err := resolve(instr, i, labels); err != nil {
					return nil, err
				}
			}
			continue
		}

		switch {
		case tac.IsEndFunc(instr):
			inFunc = false
		case tac.IsGoto(instr):
			target, err := resolve(instr, i, labels)
			if err != nil {
				return nil, err
			}
			succ[i] = []int{target}
		case tac.IsIfZ(instr):
			target, err := resolve(instr, i, labels)
			if err != nil {
				return nil, err
			}
			succ[i] = []int{target}
			if next := i + 1; next != target && next < len(code) {
				succ[i] = append(succ[i], next)
			}
		default:
			succ[i] = fallThrough(i, len(code))
		}
	}
	return succ, nil
}

func fallThrough(i, n int) []int {
	if i+1 < n {
		return []int{i + 1}
	}
	return nil
}

func resolve(instr tac.Instruction, i int, labels LabelIndex) (int, error) {
	name, _ := tac.BranchTarget(instr)
	target, ok := labels[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s (branch at %d)", ErrUnresolvedLabel, name, i)
	}
	return target, nil
}
