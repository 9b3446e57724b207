package tac

import (
	"fmt"

	"github.com/raymyers/tacalloc/pkg/mips"
)

// Segment tells which base register a Location's offset is relative to.
type Segment int

const (
	FPRelative Segment = iota // locals, parameters and temporaries
	GPRelative                // globals
)

func (s Segment) String() string {
	if s == GPRelative {
		return "gp"
	}
	return "fp"
}

// Location is a compile-time storage cell named by TAC operands.
// Locations are created once by a Namer and shared by every instruction
// that mentions them; the register field is the only one written after
// creation.
type Location struct {
	id      int
	name    string
	segment Segment
	offset  int
	base    *Location // non-nil for indirect references
	reg     mips.Register
}

// ID is the creation index. It orders Locations in liveness sets.
func (l *Location) ID() int { return l.id }

func (l *Location) Name() string     { return l.name }
func (l *Location) Segment() Segment { return l.segment }
func (l *Location) Offset() int      { return l.offset }

// Base returns the address Location of an indirect reference, or nil.
func (l *Location) Base() *Location { return l.base }

// IsIndirect returns true for *(base + offset) references.
func (l *Location) IsIndirect() bool { return l.base != nil }

// Register returns the allocator's decision for this Location.
func (l *Location) Register() mips.Register { return l.reg }

// SetRegister records the allocator's decision.
func (l *Location) SetRegister(r mips.Register) { l.reg = r }

func (l *Location) String() string {
	if l.base != nil {
		if l.offset == 0 {
			return fmt.Sprintf("*(%s)", l.base.name)
		}
		return fmt.Sprintf("*(%s + %d)", l.base.name, l.offset)
	}
	return l.name
}
