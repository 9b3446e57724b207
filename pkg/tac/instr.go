// Package tac defines the three-address code consumed by the back end.
// A program is one flat instruction sequence; labels mark branch targets and
// BeginFunc/EndFunc bracket each function body. Position in the sequence is
// the only address an instruction has.
package tac

import "fmt"

// Instruction is the interface for TAC instructions.
type Instruction interface {
	implInstruction()
}

// OpCode is the operator of a BinaryOp.
type OpCode int

const (
	Add OpCode = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Less
	And
	Or
)

var opNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Eq: "==", Less: "<", And: "&&", Or: "||",
}

func (o OpCode) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("OpCode(%d)", int(o))
}

// OpCodeForName maps an operator token to its OpCode.
func OpCodeForName(name string) (OpCode, bool) {
	for i, n := range opNames {
		if n == name {
			return OpCode(i), true
		}
	}
	return 0, false
}

// Label marks a branch target or a function entry point.
type Label struct {
	Name string
}

// Goto is an unconditional jump.
type Goto struct {
	Target string
}

// IfZ jumps to Target when Test is zero and falls through otherwise.
type IfZ struct {
	Test   *Location
	Target string
}

// BeginFunc opens a function body. FrameSize is patched by GenEndFunc.
type BeginFunc struct {
	FrameSize int
}

// EndFunc closes a function body.
type EndFunc struct{}

// Assign copies Src into Dst.
type Assign struct {
	Dst, Src *Location
}

// Load reads the word at Src + Offset into Dst.
type Load struct {
	Dst, Src *Location
	Offset   int
}

// Store writes Src to the word at Dst + Offset. Dst is an address and is
// read, not written.
type Store struct {
	Dst, Src *Location
	Offset   int
}

// BinaryOp computes Dst = Op1 <Code> Op2.
type BinaryOp struct {
	Code     OpCode
	Dst      *Location
	Op1, Op2 *Location
}

// LoadConstant sets Dst to an integer constant.
type LoadConstant struct {
	Dst   *Location
	Value int
}

// LoadStringConstant sets Dst to the address of a string literal.
type LoadStringConstant struct {
	Dst *Location
	Str string
}

// LoadLabel sets Dst to the address of a label.
type LoadLabel struct {
	Dst   *Location
	Label string
}

// PushParam pushes an outgoing argument.
type PushParam struct {
	Param *Location
}

// PopParams removes Bytes of pushed arguments after a call.
type PopParams struct {
	Bytes int
}

// LCall calls a function by label. Result is nil for void calls.
type LCall struct {
	Label  string
	Result *Location
}

// ACall calls the function whose address is in Addr. Result is nil for
// void calls.
type ACall struct {
	Addr   *Location
	Result *Location
}

// Return leaves the function, optionally with a value.
type Return struct {
	Value *Location
}

// VTable declares a class's method table.
type VTable struct {
	Class   string
	Methods []string
}

// Marker methods for Instruction interface
func (Label) implInstruction()              {}
func (Goto) implInstruction()               {}
func (IfZ) implInstruction()                {}
func (*BeginFunc) implInstruction()         {}
func (EndFunc) implInstruction()            {}
func (Assign) implInstruction()             {}
func (Load) implInstruction()               {}
func (Store) implInstruction()              {}
func (BinaryOp) implInstruction()           {}
func (LoadConstant) implInstruction()       {}
func (LoadStringConstant) implInstruction() {}
func (LoadLabel) implInstruction()          {}
func (PushParam) implInstruction()          {}
func (PopParams) implInstruction()          {}
func (LCall) implInstruction()              {}
func (ACall) implInstruction()              {}
func (Return) implInstruction()             {}
func (VTable) implInstruction()             {}

// Dest returns the Location an instruction writes, or nil.
func Dest(instr Instruction) *Location {
	switch i := instr.(type) {
	case Assign:
		return i.Dst
	case Load:
		return i.Dst
	case BinaryOp:
		return i.Dst
	case LoadConstant:
		return i.Dst
	case LoadStringConstant:
		return i.Dst
	case LoadLabel:
		return i.Dst
	case LCall:
		return i.Result
	case ACall:
		return i.Result
	}
	return nil
}

// Sources returns the up to two Locations an instruction reads.
// Missing operands are nil.
func Sources(instr Instruction) (*Location, *Location) {
	switch i := instr.(type) {
	case Assign:
		return i.Src, nil
	case Load:
		return i.Src, nil
	case Store:
		return i.Dst, i.Src
	case BinaryOp:
		return i.Op1, i.Op2
	case IfZ:
		return i.Test, nil
	case PushParam:
		return i.Param, nil
	case ACall:
		return i.Addr, nil
	case Return:
		return i.Value, nil
	}
	return nil, nil
}

// BranchTarget returns the label a Goto or IfZ jumps to.
func BranchTarget(instr Instruction) (string, bool) {
	switch i := instr.(type) {
	case Goto:
		return i.Target, true
	case IfZ:
		return i.Target, true
	}
	return "", false
}

func IsLabel(instr Instruction) bool {
	_, ok := instr.(Label)
	return ok
}

func IsGoto(instr Instruction) bool {
	_, ok := instr.(Goto)
	return ok
}

func IsIfZ(instr Instruction) bool {
	_, ok := instr.(IfZ)
	return ok
}

func IsBeginFunc(instr Instruction) bool {
	_, ok := instr.(*BeginFunc)
	return ok
}

func IsEndFunc(instr Instruction) bool {
	_, ok := instr.(EndFunc)
	return ok
}
