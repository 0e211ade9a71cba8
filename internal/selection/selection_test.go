package selection

import (
	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/layout"
)

var (
	inPath = htm.InputPath("in")
	l1Path = htm.LayerPath("R1", "L1")
)

func history(n int) History {
	h := make(History, n)
	for i := range h {
		h[i] = htm.StepID{ModelID: "m" + string(rune('0'+i)), Timestep: n - 1 - i}
	}
	return h
}

func entry(p htm.Path, id, dt int, h History) Entry {
	return Entry{Path: p, ID: id, Dt: dt, ModelID: h.ModelID(dt)}
}

var _ = g.Describe("Selection", func() {
	var (
		tmpl  htm.Template
		ls    layout.Layouts
		paths []htm.Path
		h     History
	)

	g.BeforeEach(func() {
		tmpl = htm.Template{
			Inputs: []htm.InputSpec{{ID: "in", Topology: htm.Line(10)}},
			Layers: []htm.LayerSpec{{Region: "R1", Layer: "L1", Topology: htm.Line(20)}},
		}
		d := config.DefaultOptions().Drawing
		d.Height = 300
		ls = layout.Build(tmpl, d)
		paths = tmpl.Paths()
		h = history(5)
	})

	clickAt := func(s Selection, p htm.Path, id, dt int, appendMode bool) Selection {
		r, ok := ls[p].ElementRect(id, dt)
		Expect(ok).To(BeTrue())
		x, y := r.Center()
		hit, found := Hit(ls, paths, x, y, s, h)
		return Click(s, hit, found, appendMode)
	}

	g.Describe("canvas clicks", func() {
		g.It("selects the clicked column at the most recent step", func() {
			s := clickAt(New(), l1Path, 5, 0, false)
			Expect(s).To(Equal(Selection{{Path: l1Path, ID: 5, Dt: 0, ModelID: "m0"}}))
		})

		g.It("walks the ordering with bit-down and falls off the end", func() {
			s := clickAt(New(), l1Path, 5, 0, false)
			s = BitDown(s, ls)
			Expect(s.Top().ID).To(Equal(6))

			s = Selection{entry(l1Path, 19, 0, h)}
			s = BitDown(s, ls)
			Expect(s.Top().ID).To(Equal(NoID))
		})

		g.It("falls off the start with bit-up", func() {
			s := BitUp(Selection{entry(inPath, 0, 0, h)}, ls)
			Expect(s.Top().ID).To(Equal(NoID))
			Expect(s.Top().Path).To(Equal(inPath))
		})

		g.It("follows a sorted ordering", func() {
			ls[l1Path] = layout.AddFacet(ls[l1Path], htm.NewIDSet(9, 3), 0)
			s := BitDown(Selection{entry(l1Path, 3, 0, h)}, ls)
			Expect(s.Top().ID).To(Equal(9))
		})

		g.It("replaces the selection without append", func() {
			s := Selection{entry(inPath, 1, 0, h), entry(inPath, 2, 1, h)}
			s = clickAt(s, l1Path, 3, 2, false)
			Expect(s).To(HaveLen(1))
			Expect(s.Top()).To(Equal(entry(l1Path, 3, 2, h)))
		})

		g.It("clears on a miss without append and keeps dt", func() {
			s := Selection{entry(inPath, 1, 2, h)}
			hit, ok := Hit(ls, paths, -50, -50, s, h)
			Expect(ok).To(BeFalse())
			s = Click(s, hit, ok, false)
			Expect(s.Cleared()).To(BeTrue())
			Expect(s.Top().Dt).To(Equal(2))
		})

		g.It("ignores a miss with append", func() {
			s := Selection{entry(inPath, 1, 2, h)}
			Expect(Click(s, Entry{}, false, true)).To(Equal(s))
		})

		g.It("restores the selection after toggling the same element twice", func() {
			before := Selection{entry(inPath, 1, 0, h)}
			s := clickAt(before, l1Path, 4, 1, true)
			Expect(s).To(HaveLen(2))
			s = clickAt(s, l1Path, 4, 1, true)
			Expect(s).To(Equal(before))
		})

		g.It("empties the selection when toggling the sole entry", func() {
			s := clickAt(New(), l1Path, 4, 1, false)
			s = clickAt(s, l1Path, 4, 1, true)
			Expect(s.Cleared()).To(BeTrue())
			Expect(s).To(HaveLen(1))
		})

		g.It("clamps the hit dt to the selectable range", func() {
			short := history(2)
			r, _ := ls[l1Path].ElementRect(2, 7)
			x, y := r.Center()
			hit, ok := Hit(ls, paths, x, y, New(), short)
			Expect(ok).To(BeTrue())
			Expect(hit.Dt).To(Equal(0))
		})
	})

	g.Describe("spatial layouts", func() {
		g.It("inherits dt from the primary entry", func() {
			d := config.DefaultOptions().Drawing
			d.Mode = config.ModeSpatial
			d.Height = 300
			ls = layout.Build(tmpl, d)
			r, ok := ls[l1Path].ElementRect(7, 0)
			Expect(ok).To(BeTrue())
			x, y := r.Center()
			hit, found := Hit(ls, paths, x, y, Selection{entry(inPath, 0, 3, h)}, h)
			Expect(found).To(BeTrue())
			Expect(hit.ID).To(Equal(7))
			Expect(hit.Dt).To(Equal(3))
			Expect(hit.ModelID).To(Equal("m3"))
		})
	})

	g.Describe("timeline clicks", func() {
		g.It("moves the primary entry in time", func() {
			s := ClickTimeline(Selection{entry(l1Path, 2, 0, h)}, 2, false, h)
			Expect(s).To(Equal(Selection{entry(l1Path, 2, 2, h)}))
		})

		g.It("pushes another offset with append and toggles it back", func() {
			before := Selection{entry(l1Path, 2, 0, h)}
			s := ClickTimeline(before, 2, true, h)
			Expect(s).To(HaveLen(2))
			s = ClickTimeline(s, 2, true, h)
			Expect(s).To(Equal(before))
		})
	})

	g.Describe("stepping through time", func() {
		g.It("never passes the oldest selectable step going back", func() {
			s := Selection{entry(l1Path, 2, 0, h)}
			last := 0
			for i := 0; i < 10; i++ {
				s = StepBackward(s, h)
				Expect(s.Top().Dt).To(BeNumerically(">=", last))
				Expect(s.Top().Dt).To(BeNumerically("<=", h.MaxDt()))
				last = s.Top().Dt
			}
			Expect(last).To(Equal(3))
			Expect(s.Top().ModelID).To(Equal("m3"))
		})

		g.It("steps forward until dt 0, then asks for an advance", func() {
			s := Selection{entry(l1Path, 2, 3, h)}
			for want := 2; want >= 0; want-- {
				var advance bool
				s, advance = StepForward(s, h)
				Expect(advance).To(BeFalse())
				Expect(s.Top().Dt).To(Equal(want))
			}
			next, advance := StepForward(s, h)
			Expect(advance).To(BeTrue())
			Expect(next).To(Equal(s))
		})

		g.It("stays at dt 0 with a single step", func() {
			s := StepBackward(New(), history(1))
			Expect(s.Top().Dt).To(Equal(0))
		})

		g.It("keeps past entries on their timestep when a step is admitted", func() {
			s := Selection{entry(inPath, 1, 0, h), entry(l1Path, 2, 1, h)}
			grown := append(History{{ModelID: "new", Timestep: 5}}, h...)
			s = Admit(s, grown)
			Expect(s[0].Dt).To(Equal(0))
			Expect(s[0].ModelID).To(Equal("new"))
			Expect(s[1].Dt).To(Equal(2))
			Expect(s[1].ModelID).To(Equal("m1"))
		})
	})

	g.Describe("segment refinement", func() {
		g.It("attaches a segment to a sole column entry", func() {
			s := WithSegment(Selection{entry(l1Path, 3, 0, h)}, 1, 2)
			Expect(s.Top().Segment).To(Equal(&CellSegment{Cell: 1, Segment: 2}))
		})

		g.It("ignores inputs and multiple entries", func() {
			one := Selection{entry(inPath, 3, 0, h)}
			Expect(WithSegment(one, 1, 2)).To(Equal(one))
			two := Selection{entry(l1Path, 3, 0, h), entry(l1Path, 4, 0, h)}
			Expect(WithSegment(two, 1, 2)).To(Equal(two))
		})
	})

	g.It("keys entries without dt", func() {
		a := entry(l1Path, 3, 0, h)
		b := a
		b.Dt = 2
		Expect(a.Key()).To(Equal(b.Key()))
	})
})
