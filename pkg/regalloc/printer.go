package regalloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/tacalloc/pkg/tac"
)

// Printer dumps allocation results in a readable text form.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new allocation printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) header(r Region) {
	name := r.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(p.w, "function %s [%d..%d]\n", name, r.Start, r.End)
}

// PrintLiveness writes IN and OUT for every instruction of every function.
func (p *Printer) PrintLiveness(code []tac.Instruction, res *Result) {
	for _, r := range res.Regions {
		p.header(r)
		fmt.Fprintf(p.w, "  sweeps: %d\n", res.Liveness.Sweeps[r])
		for i := r.Start; i <= r.End; i++ {
			fmt.Fprintf(p.w, "  %4d %-28s in=%s out=%s\n",
				i, strings.TrimSpace(tac.Format(code[i])), res.Liveness.In[i], res.Liveness.Out[i])
		}
	}
}

// PrintInterference writes each function's graph as adjacency lists.
func (p *Printer) PrintInterference(res *Result) {
	for ri, r := range res.Regions {
		g := res.Graphs[ri]
		p.header(r)
		fmt.Fprintf(p.w, "  nodes: %d edges: %d\n", len(g.Nodes()), g.EdgeCount())
		for _, l := range g.Nodes() {
			names := make([]string, 0, g.Degree(l))
			for _, n := range g.Neighbors(l) {
				names = append(names, n.String())
			}
			fmt.Fprintf(p.w, "  %s: %s\n", l, strings.Join(names, ", "))
		}
	}
}

// PrintAssignments writes every function's register decisions.
func (p *Printer) PrintAssignments(res *Result) {
	for ri, r := range res.Regions {
		as := res.Assignments[ri]
		p.header(r)
		for _, l := range res.Graphs[ri].Nodes() {
			mark := ""
			if as.Optimistic.Contains(l) {
				mark = " (optimistic)"
			}
			fmt.Fprintf(p.w, "  %s -> %s%s\n", l, l.Register(), mark)
		}
	}
}

// PrintRegMaps writes the program with the register map at each
// instruction appended as a comment.
func (p *Printer) PrintRegMaps(code []tac.Instruction, res *Result) {
	for i, instr := range code {
		line := tac.Format(instr)
		m := res.RegMaps[i]
		if len(m) == 0 {
			fmt.Fprintln(p.w, line)
			continue
		}
		regs := m.Registers()
		parts := make([]string, len(regs))
		for j, reg := range regs {
			parts[j] = fmt.Sprintf("%s=%s", reg, m[reg])
		}
		fmt.Fprintf(p.w, "%s\t# %s\n", line, strings.Join(parts, " "))
	}
}
