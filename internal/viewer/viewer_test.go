package viewer

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/drawcache"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/selection"
)

var (
	inPath = htm.InputPath("in")
	l1Path = htm.LayerPath("R1", "L1")
)

type fakeDriver struct {
	advances atomic.Int32
	running  atomic.Bool
}

func (d *fakeDriver) Advance() { d.advances.Add(1) }

func (d *fakeDriver) Running() bool { return d.running.Load() }

func (d *fakeDriver) Toggle() bool {
	for {
		old := d.running.Load()
		if d.running.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

var _ = Describe("Viewer", func() {
	var (
		ctx    context.Context
		src    *journal.Synthetic
		driver *fakeDriver
		v      *Viewer
		opts   config.Options
		runErr chan error
	)

	flush := func() {
		ExpectWithOffset(1, v.Flush(ctx)).To(Succeed())
	}

	admit := func(from, n int) {
		for t := from; t < from+n; t++ {
			v.Admit(src.Step(t))
		}
		flush()
	}

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		tmpl := htm.Template{
			Inputs: []htm.InputSpec{{ID: "in", Topology: htm.Line(10)}},
			Layers: []htm.LayerSpec{{Region: "R1", Layer: "L1", Topology: htm.Line(20), CellsPerColumn: 4}},
		}
		src = journal.NewSynthetic(tmpl, journal.DefaultSyntheticConfig())
		j := journal.NewLocal(src, zerolog.Nop())
		go func() { _ = j.Run(ctx) }()

		opts = *config.DefaultOptions()
		opts.Drawing.Height = 120
		opts.Drawing.CanvasWidth = 800
		opts.Drawing.CanvasHeight = 300
		opts.KeepSteps = 5

		driver = &fakeDriver{}
		v = New(j, driver, opts, zerolog.Nop())
		runErr = make(chan error, 1)
		go func() { runErr <- v.Run(ctx) }()
		DeferCleanup(v.Close)
	})

	It("keeps the most recent steps first, up to the retention limit", func() {
		admit(0, 7)
		h := v.Snapshot().History
		Expect(h).To(HaveLen(5))
		Expect(h[0].Timestep).To(Equal(6))
		Expect(h[4].Timestep).To(Equal(2))
		Expect(v.Snapshot().Paths).To(Equal([]htm.Path{inPath, l1Path}))
	})

	It("registers a viewport and fetches every retained step", func() {
		admit(0, 3)
		Eventually(func() int { return len(v.Snapshot().Data.Steps) }).Should(Equal(3))
		Expect(v.Snapshot().Data.Token).NotTo(BeEmpty())
	})

	It("selects a clicked column and fetches its synapses and cells", func() {
		admit(0, 3)
		col := -1
		for c := 0; c < 20 && col < 0; c++ {
			if src.Wiring().SegmentCount(l1Path, c) > 0 {
				col = c
			}
		}
		Expect(col).To(BeNumerically(">=", 0))

		r, ok := v.Snapshot().Layouts[l1Path].ElementRect(col, 1)
		Expect(ok).To(BeTrue())
		x, y := r.Center()
		v.Click(x, y, false)
		flush()

		top := v.Snapshot().Selection.Top()
		Expect(top.Path).To(Equal(l1Path))
		Expect(top.ID).To(Equal(col))
		Expect(top.Dt).To(Equal(1))
		Expect(top.ModelID).To(Equal(src.ModelID(1)))

		Eventually(func() *htm.CellSegments {
			if c := v.Snapshot().Data.Cells; c != nil && c.Key == top.Key() {
				return c.Segments
			}
			return nil
		}).ShouldNot(BeNil())
		Eventually(func() bool {
			return v.Snapshot().Data.Synapses[top.Key()] != nil
		}).Should(BeTrue())

		g, _, ok := v.Snapshot().CellsGeometry()
		Expect(ok).To(BeTrue())
		var slot *selection.CellSegment
		for _, band := range g.Cells {
			if len(band.Segments) > 0 {
				s := band.Segments[0]
				cx, cy := s.Rect.Center()
				v.Click(cx, cy, false)
				slot = &selection.CellSegment{Cell: band.Cell, Segment: s.Segment}
				break
			}
		}
		Expect(slot).NotTo(BeNil())
		flush()
		Expect(v.Snapshot().Selection.Top().Segment).To(Equal(slot))
		Expect(v.Snapshot().Selection.Top().ID).To(Equal(col))
	})

	It("clears the selection on a click outside every layout", func() {
		admit(0, 3)
		r, _ := v.Snapshot().Layouts[inPath].ElementRect(2, 0)
		x, y := r.Center()
		v.Click(x, y, false)
		flush()
		Expect(v.Snapshot().Selection.Top().Named()).To(BeTrue())

		v.Click(5000, 5000, false)
		flush()
		Expect(v.Snapshot().Selection.Cleared()).To(BeTrue())
	})

	It("moves the selected dt with the timeline", func() {
		admit(0, 4)
		r, ok := v.Snapshot().Timeline().Rect(2)
		Expect(ok).To(BeTrue())
		x, y := r.Center()
		v.Click(x, y, false)
		flush()
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(2))
	})

	It("steps through time within bounds and advances the model at dt 0", func() {
		admit(0, 4)
		for range 5 {
			v.Do(Command{Op: OpStepBackward})
		}
		flush()
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(2))

		for range 2 {
			v.Do(Command{Op: OpStepForward})
		}
		flush()
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(0))
		Expect(driver.advances.Load()).To(BeZero())

		v.Do(Command{Op: OpStepForward})
		flush()
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(0))
		Expect(driver.advances.Load()).To(Equal(int32(1)))
	})

	It("keeps a past selection on the same timestep as steps arrive", func() {
		admit(0, 4)
		v.Do(Command{Op: OpStepBackward})
		flush()
		Expect(v.Snapshot().Selection.Top().ModelID).To(Equal(src.ModelID(2)))

		admit(4, 1)
		top := v.Snapshot().Selection.Top()
		Expect(top.Dt).To(Equal(2))
		Expect(top.ModelID).To(Equal(src.ModelID(2)))
	})

	It("toggles the driver", func() {
		v.Do(Command{Op: OpToggleRun})
		flush()
		Expect(v.Snapshot().Running).To(BeTrue())
		v.Do(Command{Op: OpToggleRun})
		flush()
		Expect(v.Snapshot().Running).To(BeFalse())
	})

	It("shows the driver stopping on its own after a refresh", func() {
		v.Do(Command{Op: OpToggleRun})
		flush()
		Expect(v.Snapshot().Running).To(BeTrue())

		driver.running.Store(false)
		seq := v.Snapshot().Seq
		v.Refresh()
		flush()
		Expect(v.Snapshot().Running).To(BeFalse())
		Expect(v.Snapshot().Seq).To(BeNumerically(">", seq))
	})

	It("counts edits but not admitted steps", func() {
		admit(0, 2)
		edits := v.Snapshot().Edits
		admit(2, 1)
		Expect(v.Snapshot().Edits).To(Equal(edits))
		v.Do(Command{Op: OpStepBackward})
		flush()
		Expect(v.Snapshot().Edits).To(Equal(edits + 1))
	})

	It("scrolls every layout and registers the new viewport", func() {
		small := opts
		small.Drawing.Height = 60
		Expect(v.SetOptions(small)).To(Succeed())
		admit(0, 3)
		Eventually(func() journal.Token { return v.Snapshot().Data.Token }).ShouldNot(BeEmpty())
		first := v.Snapshot().Data.Token

		v.Do(Command{Op: OpScrollDown, ApplyToAll: true})
		flush()
		Expect(v.Snapshot().Layouts[l1Path].Scroll).To(Equal(10))
		Expect(v.Snapshot().Layouts[inPath].Scroll).To(Equal(0))
		Eventually(func() journal.Token { return v.Snapshot().Data.Token }).ShouldNot(Equal(first))
	})

	It("scrolls only the selected layout", func() {
		small := opts
		small.Drawing.Height = 60
		Expect(v.SetOptions(small)).To(Succeed())
		admit(0, 3)
		before := v.Snapshot().Layouts[inPath]
		r, _ := v.Snapshot().Layouts[l1Path].ElementRect(3, 0)
		x, y := r.Center()
		v.Click(x, y, false)
		v.Do(Command{Op: OpScrollDown})
		flush()
		Expect(v.Snapshot().Layouts[l1Path].Scroll).To(Equal(10))
		Expect(v.Snapshot().Layouts[inPath]).To(BeIdenticalTo(before))
	})

	It("sorts by recent activity and saves facets", func() {
		admit(0, 3)
		Eventually(func() int { return len(v.Snapshot().Data.Steps) }).Should(Equal(3))
		active := v.Snapshot().Payload(0).State(l1Path).Active

		v.Do(Command{Op: OpSort, ApplyToAll: true})
		flush()
		l := v.Snapshot().Layouts[l1Path]
		for p := 0; p < len(active); p++ {
			Expect(active.Has(l.Order[p])).To(BeTrue())
		}

		v.Do(Command{Op: OpAddFacet, ApplyToAll: true})
		flush()
		l = v.Snapshot().Layouts[l1Path]
		Expect(l.Facets).To(HaveLen(1))
		Expect(l.Facets[0].Timestep).To(Equal(2))
		Expect(l.Facets[0].IDs).To(HaveLen(len(active)))

		v.Do(Command{Op: OpClearFacets, ApplyToAll: true})
		flush()
		Expect(v.Snapshot().Layouts[l1Path].Facets).To(BeEmpty())
	})

	It("bumps only the drawing group on a resize", func() {
		admit(0, 2)
		before := v.Snapshot().Versions
		v.Resize(400, 200)
		v.Resize(1000, 400)
		Eventually(func() int { return v.Snapshot().Options.Drawing.CanvasWidth }).Should(Equal(1000))
		after := v.Snapshot().Versions
		Expect(after.Get(drawcache.GroupDrawing)).To(BeNumerically(">", before.Get(drawcache.GroupDrawing)))
		Expect(after.Get(drawcache.GroupColumns)).To(Equal(before.Get(drawcache.GroupColumns)))
	})

	It("invalidates the columns group when column options change", func() {
		admit(0, 2)
		before := v.Snapshot().Versions
		changed := v.Snapshot().Options
		changed.Columns.Overlaps = true
		Expect(v.SetOptions(changed)).To(Succeed())
		flush()
		after := v.Snapshot().Versions
		Expect(after.Get(drawcache.GroupColumns)).To(Equal(before.Get(drawcache.GroupColumns) + 1))
		Expect(after.Get(drawcache.GroupInput)).To(Equal(before.Get(drawcache.GroupInput)))
		Expect(after.Get(drawcache.GroupDrawing)).To(Equal(before.Get(drawcache.GroupDrawing)))
	})

	It("rejects invalid options", func() {
		bad := opts
		bad.KeepSteps = 1
		Expect(v.SetOptions(bad)).NotTo(Succeed())
	})

	It("trims history and selection when the retention shrinks", func() {
		admit(0, 5)
		for range 3 {
			v.Do(Command{Op: OpStepBackward})
		}
		flush()
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(3))

		fewer := opts
		fewer.KeepSteps = 3
		Expect(v.SetOptions(fewer)).To(Succeed())
		flush()
		Expect(v.Snapshot().History).To(HaveLen(3))
		Expect(v.Snapshot().Selection.Top().Dt).To(Equal(1))
	})

	It("publishes snapshots to subscribers", func() {
		seqs := make(chan uint64, 16)
		stop := v.Subscribe(func(s *Snapshot) {
			select {
			case seqs <- s.Seq:
			default:
			}
		})
		admit(0, 1)
		var seq uint64
		Eventually(seqs).Should(Receive(&seq))
		Expect(seq).To(BeNumerically(">", 0))
		stop()
	})

	It("stops when closed", func() {
		v.Close()
		Eventually(runErr).Should(Receive(BeNil()))
		Expect(v.Flush(ctx)).To(MatchError(ErrClosed))
	})
})

var _ = Describe("KeyCommand", func() {
	DescribeTable("maps keys",
		func(key string, op Op) {
			c, ok := KeyCommand(key)
			Expect(ok).To(BeTrue())
			Expect(c.Op).To(Equal(op))
		},
		Entry("left", "left", OpStepBackward),
		Entry("right", "right", OpStepForward),
		Entry("up", "up", OpBitUp),
		Entry("down", "down", OpBitDown),
		Entry("page up", "pgup", OpScrollUp),
		Entry("page down", "pgdown", OpScrollDown),
		Entry("space", " ", OpToggleRun),
	)

	It("ignores unbound keys", func() {
		_, ok := KeyCommand("x")
		Expect(ok).To(BeFalse())
	})

	It("parses command names", func() {
		op, err := ParseOp("clear-sort")
		Expect(err).NotTo(HaveOccurred())
		Expect(op).To(Equal(OpClearSort))
		_, err = ParseOp("explode")
		Expect(err).To(HaveOccurred())
	})
})
