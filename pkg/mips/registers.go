// Package mips describes the MIPS register file seen by the register allocator.
// The allocator only needs an ordered pool of general-purpose registers;
// the remaining registers are listed so register maps and dumps can name them.
package mips

import "fmt"

// Register identifies a physical MIPS register, or one of the two
// non-register values Unassigned and Spill.
type Register int

// Unassigned is the zero value: no allocation decision has been made yet.
// Spill marks a value that did not get a register. Neither is a real register.
const (
	Spill      Register = -1
	Unassigned Register = 0
)

// Physical registers, numbered from 1 so the zero value stays Unassigned.
const (
	Zero Register = iota + 1
	At
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

var registerNames = [...]string{
	Zero: "$zero", At: "$at", V0: "$v0", V1: "$v1",
	A0: "$a0", A1: "$a1", A2: "$a2", A3: "$a3",
	T0: "$t0", T1: "$t1", T2: "$t2", T3: "$t3",
	T4: "$t4", T5: "$t5", T6: "$t6", T7: "$t7",
	S0: "$s0", S1: "$s1", S2: "$s2", S3: "$s3",
	S4: "$s4", S5: "$s5", S6: "$s6", S7: "$s7",
	T8: "$t8", T9: "$t9", K0: "$k0", K1: "$k1",
	GP: "$gp", SP: "$sp", FP: "$fp", RA: "$ra",
}

// GeneralPurpose is the default allocatable pool, in the order the
// allocator tries registers.
var GeneralPurpose = []Register{
	T0, T1, T2, T3, T4, T5, T6, T7, T8, T9,
	S0, S1, S2, S3, S4, S5, S6, S7,
}

// NumGeneralPurposeRegs is the size of the default pool.
var NumGeneralPurposeRegs = len(GeneralPurpose)

// IsConcrete returns true for a real machine register.
func (r Register) IsConcrete() bool {
	return r >= Zero && r <= RA
}

// IsSpill returns true if r is the spill marker.
func (r Register) IsSpill() bool {
	return r == Spill
}

func (r Register) String() string {
	switch {
	case r == Spill:
		return "spill"
	case r == Unassigned:
		return "unassigned"
	case r.IsConcrete():
		return registerNames[r]
	}
	return fmt.Sprintf("Register(%d)", int(r))
}

// ParseRegister accepts a register name with or without the leading '$'.
func ParseRegister(name string) (Register, error) {
	if len(name) > 0 && name[0] != '$' {
		name = "$" + name
	}
	for r := Zero; r <= RA; r++ {
		if registerNames[r] == name {
			return r, nil
		}
	}
	return Unassigned, fmt.Errorf("unknown register %q", name)
}
