package tac

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs TAC in the classic textual form, one instruction per line.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new TAC printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every instruction in order.
func (p *Printer) PrintProgram(prog *Program) {
	for _, instr := range prog.Code {
		p.PrintInstruction(instr)
		fmt.Fprintln(p.w)
	}
}

// PrintInstruction prints one instruction without a trailing newline.
func (p *Printer) PrintInstruction(instr Instruction) {
	fmt.Fprint(p.w, Format(instr))
}

// Format renders one instruction.
func Format(instr Instruction) string {
	switch i := instr.(type) {
	case Label:
		return i.Name + ":"
	case Goto:
		return fmt.Sprintf("\tGoto %s ;", i.Target)
	case IfZ:
		return fmt.Sprintf("\tIfZ %s Goto %s ;", i.Test, i.Target)
	case *BeginFunc:
		return fmt.Sprintf("\tBeginFunc %d ;", i.FrameSize)
	case EndFunc:
		return "\tEndFunc ;"
	case Assign:
		return fmt.Sprintf("\t%s = %s ;", i.Dst, i.Src)
	case Load:
		return fmt.Sprintf("\t%s = %s ;", i.Dst, deref(i.Src, i.Offset))
	case Store:
		return fmt.Sprintf("\t%s = %s ;", deref(i.Dst, i.Offset), i.Src)
	case BinaryOp:
		return fmt.Sprintf("\t%s = %s %s %s ;", i.Dst, i.Op1, i.Code, i.Op2)
	case LoadConstant:
		return fmt.Sprintf("\t%s = %d ;", i.Dst, i.Value)
	case LoadStringConstant:
		return fmt.Sprintf("\t%s = %q ;", i.Dst, i.Str)
	case LoadLabel:
		return fmt.Sprintf("\t%s = %s ;", i.Dst, i.Label)
	case PushParam:
		return fmt.Sprintf("\tPushParam %s ;", i.Param)
	case PopParams:
		return fmt.Sprintf("\tPopParams %d ;", i.Bytes)
	case LCall:
		if i.Result != nil {
			return fmt.Sprintf("\t%s = LCall %s ;", i.Result, i.Label)
		}
		return fmt.Sprintf("\tLCall %s ;", i.Label)
	case ACall:
		if i.Result != nil {
			return fmt.Sprintf("\t%s = ACall %s ;", i.Result, i.Addr)
		}
		return fmt.Sprintf("\tACall %s ;", i.Addr)
	case Return:
		if i.Value != nil {
			return fmt.Sprintf("\tReturn %s ;", i.Value)
		}
		return "\tReturn ;"
	case VTable:
		var sb strings.Builder
		fmt.Fprintf(&sb, "VTable %s =\n", i.Class)
		for _, m := range i.Methods {
			fmt.Fprintf(&sb, "\t%s,\n", m)
		}
		sb.WriteString(";")
		return sb.String()
	}
	return "???"
}

func deref(base *Location, offset int) string {
	if offset == 0 {
		return fmt.Sprintf("*(%s)", base)
	}
	return fmt.Sprintf("*(%s + %d)", base, offset)
}
