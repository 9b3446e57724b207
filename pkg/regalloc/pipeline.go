package regalloc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/raymyers/tacalloc/pkg/tac"
)

// Result carries every intermediate product of one allocation run.
// Graphs and Assignments are indexed like Regions.
type Result struct {
	Labels      LabelIndex
	Succ        Successors
	Regions     []Region
	Liveness    *LivenessInfo
	Graphs      []*InterferenceGraph
	Assignments []*Assignment
	RegMaps     []RegMap
}

type options struct {
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithLogger sends per-function debug records to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Run allocates registers for the whole program against machine m.
// Functions are processed in program order. On error nothing has been
// written to any Location.
func Run(prog *tac.Program, m *mips.Machine, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	code := prog.Code

	labels, err := BuildLabelIndex(code)
	if err != nil {
		return nil, err
	}
	regions, err := FindRegions(code)
	if err != nil {
		return nil, err
	}
	succ, err := BuildSuccessors(code, labels)
	if err != nil {
		return nil, err
	}
	if err := checkBranches(succ, regions); err != nil {
		return nil, err
	}

	res := &Result{
		Labels:   labels,
		Succ:     succ,
		Regions:  regions,
		Liveness: NewLivenessInfo(code, succ),
	}
	shared := sharedLocations(code, regions)

	for _, r := range regions {
		res.Liveness.AnalyzeRegion(r)
		g := BuildInterferenceGraph(r, res.Liveness)

		alloc := NewAllocator(g, m.Pool)
		for _, l := range g.Nodes() {
			if shared[l] {
				alloc.Pin(l)
			}
		}
		as := alloc.Allocate()
		as.Apply()

		res.Graphs = append(res.Graphs, g)
		res.Assignments = append(res.Assignments, as)

		o.logger.Debug("allocated function",
			slog.String("function", r.Name),
			slog.Int("start", r.Start),
			slog.Int("nodes", len(g.Nodes())),
			slog.Int("edges", g.EdgeCount()),
			slog.Int("spilled", len(as.Spilled())),
			slog.Int("sweeps", res.Liveness.Sweeps[r]),
		)
	}
	for l := range shared {
		l.SetRegister(mips.Spill)
	}

	res.RegMaps = BuildRegMaps(code, res.Liveness)
	return res, nil
}

// checkBranches rejects control flow that leaves its function.
func checkBranches(succ Successors, regions []Region) error {
	for _, r := range regions {
		for i := r.Start; i <= r.End; i++ {
			for _, s := range succ[i] {
				if s < r.Start || s > r.End {
					return fmt.Errorf("%w: branch at %d leaves function %q (%d..%d)", ErrMalformedRegion, i, r.Name, r.Start, r.End)
				}
			}
		}
	}
	return nil
}

// sharedLocations finds Locations mentioned by more than one function.
// They cannot take a register in any single function's coloring.
func sharedLocations(code []tac.Instruction, regions []Region) map[*tac.Location]bool {
	owner := make(map[*tac.Location]int)
	shared := make(map[*tac.Location]bool)
	for ri, r := range regions {
		for i := r.Start; i <= r.End; i++ {
			for _, l := range append(uses(code[i]), tac.Dest(code[i])) {
				if l == nil {
					continue
				}
				if prev, seen := owner[l]; !seen {
					owner[l] = ri
				} else if prev != ri {
					shared[l] = true
				}
			}
		}
	}
	return shared
}
