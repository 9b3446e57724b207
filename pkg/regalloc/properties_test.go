package regalloc_test

import (
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/raymyers/tacalloc/pkg/regalloc"
	"github.com/raymyers/tacalloc/pkg/tac"
)

// randomProgram builds one function over a handful of variables with
// random arithmetic and branches. The same seed gives the same program.
func randomProgram(seed int64) *tac.Program {
	rnd := rand.New(rand.NewSource(seed))
	b := tac.NewBuilder(nil)
	b.GenLabel("f")
	b.GenBeginFunc()

	vars := make([]*tac.Location, 6)
	for i := range vars {
		vars[i] = b.GenLocalVariable(fmt.Sprintf("v%d", i))
		b.GenAssign(vars[i], b.GenLoadConstant(i))
	}
	pick := func() *tac.Location { return vars[rnd.Intn(len(vars))] }

	labels := []string{b.NewLabel(), b.NewLabel(), b.NewLabel()}
	placed := 0
	for step := 0; step < 30; step++ {
		switch rnd.Intn(6) {
		case 0:
			b.GenAssign(pick(), b.GenLoadConstant(rnd.Intn(100)))
		case 1, 2:
			b.GenAssign(pick(), b.GenBinaryOp(tac.Add, pick(), pick()))
		case 3:
			b.GenIfZ(pick(), labels[rnd.Intn(len(labels))])
		case 4:
			if placed < len(labels) {
				b.GenLabel(labels[placed])
				placed++
			}
		case 5:
			b.GenPushParam(pick())
		}
	}
	for ; placed < len(labels); placed++ {
		b.GenLabel(labels[placed])
	}
	b.GenReturn(pick())
	b.GenEndFunc()
	return b.Program()
}

// cliques builds one function per size where all values are live at once.
func cliques(sizes ...int) *tac.Program {
	b := tac.NewBuilder(nil)
	for i, n := range sizes {
		b.GenLabel(fmt.Sprintf("f%d", i))
		b.GenBeginFunc()
		locs := make([]*tac.Location, n)
		for j := range locs {
			locs[j] = b.GenLoadConstant(j)
		}
		for _, l := range locs {
			b.GenPushParam(l)
		}
		b.GenEndFunc()
	}
	return b.Program()
}

func machine(k int) *mips.Machine {
	m, err := mips.Default().WithRegisters(k)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func spillCount(res *regalloc.Result) int {
	n := 0
	for _, as := range res.Assignments {
		n += len(as.Spilled())
	}
	return n
}

var _ = Describe("Register allocation", func() {
	seeds := []int64{1, 2, 3, 5, 8, 13, 21, 34}

	for _, seed := range seeds {
		for _, k := range []int{0, 1, 2, 4, 18} {
			Context(fmt.Sprintf("random program %d with K=%d", seed, k), func() {
				var res *regalloc.Result

				BeforeEach(func() {
					var err error
					res, err = regalloc.Run(randomProgram(seed), machine(k))
					Expect(err).NotTo(HaveOccurred())
				})

				It("satisfies the dataflow equations", func() {
					info := res.Liveness
					for _, r := range res.Regions {
						for i := r.Start; i <= r.End; i++ {
							var out regalloc.LocSet
							for _, s := range res.Succ[i] {
								out = out.Union(info.In[s])
							}
							Expect(info.Out[i].Equal(out)).To(BeTrue(), "OUT[%d]", i)
							in := info.Out[i].Minus(info.Kill[i]).Union(info.Gen[i])
							Expect(info.In[i].Equal(in)).To(BeTrue(), "IN[%d]", i)
						}
					}
				})

				It("is at a fixpoint", func() {
					for _, r := range res.Regions {
						Expect(res.Liveness.Sweep(r)).To(BeFalse())
					}
				})

				It("builds a symmetric graph", func() {
					for _, g := range res.Graphs {
						for _, a := range g.Nodes() {
							for _, b := range g.Neighbors(a) {
								Expect(g.HasEdge(b, a)).To(BeTrue())
							}
						}
					}
				})

				It("never gives interfering values the same register", func() {
					for _, g := range res.Graphs {
						for _, a := range g.Nodes() {
							for _, b := range g.Neighbors(a) {
								if a.Register().IsConcrete() {
									Expect(b.Register()).NotTo(Equal(a.Register()))
								}
							}
						}
					}
				})

				It("assigns every node", func() {
					for _, g := range res.Graphs {
						for _, l := range g.Nodes() {
							r := l.Register()
							Expect(r.IsConcrete() || r.IsSpill()).To(BeTrue(), "%s is %s", l, r)
							if r.IsConcrete() {
								Expect(machine(k).Index(r)).To(BeNumerically(">=", 0))
							}
						}
					}
				})

				It("only maps live values in registers", func() {
					for i, m := range res.RegMaps {
						for reg, l := range m {
							Expect(l.Register()).To(Equal(reg))
							Expect(res.Liveness.In[i].Contains(l)).To(BeTrue())
						}
					}
				})
			})
		}
	}

	Context("with every value live at once", func() {
		sizes := []int{3, 7, 1, 20}

		It("spills the clique excess", func() {
			for _, k := range []int{0, 2, 5, 18} {
				res, err := regalloc.Run(cliques(sizes...), machine(k))
				Expect(err).NotTo(HaveOccurred())
				want := 0
				for _, n := range sizes {
					want += max(0, n-k)
				}
				Expect(spillCount(res)).To(Equal(want), "K=%d", k)
			}
		})

		It("never spills less with fewer registers", func() {
			prev := -1
			for k := mips.NumGeneralPurposeRegs; k >= 0; k-- {
				res, err := regalloc.Run(cliques(sizes...), machine(k))
				Expect(err).NotTo(HaveOccurred())
				n := spillCount(res)
				Expect(n).To(BeNumerically(">=", prev), "K=%d", k)
				prev = n
			}
		})
	})
})
