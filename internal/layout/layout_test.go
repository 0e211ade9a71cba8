package layout

import (
	"testing"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
)

func testTemplate() htm.Template {
	return htm.Template{
		Inputs: []htm.InputSpec{{ID: "in", Topology: htm.Line(10)}},
		Layers: []htm.LayerSpec{{Region: "R1", Layer: "L1", Topology: htm.Line(20), CellsPerColumn: 4}},
	}
}

func testDrawing() config.Drawing {
	d := config.DefaultOptions().Drawing
	d.Height = 300
	return d
}

func TestBuildPlacesInputsThenLayers(t *testing.T) {
	d := testDrawing()
	ls := Build(testTemplate(), d)

	in := ls[htm.InputPath("in")]
	l1 := ls[htm.LayerPath("R1", "L1")]
	if in == nil || l1 == nil {
		t.Fatal("expected both layouts")
	}
	if in.Left != d.LeftMargin {
		t.Errorf("expected input at left margin %f, got %f", d.LeftMargin, in.Left)
	}
	if l1.Left != in.Left+in.Width+d.Gap {
		t.Errorf("expected layer after input plus gap, got %f", l1.Left)
	}
	if in.Height != l1.Height {
		t.Error("layout heights should be uniform")
	}
	if in.Size() != 10 || l1.Size() != 20 {
		t.Errorf("unexpected sizes %d, %d", in.Size(), l1.Size())
	}
}

func TestBuildEmptyTopology(t *testing.T) {
	tmpl := htm.Template{Inputs: []htm.InputSpec{{ID: "empty", Topology: htm.Topology{}}}}
	l := Build(tmpl, testDrawing())[htm.InputPath("empty")]
	if l.Width != 0 {
		t.Errorf("expected zero width, got %f", l.Width)
	}
	if ScrollBy(l, 1) != l {
		t.Error("scroll on empty layout should be a no-op")
	}
	if SortByRecentActivity(l, []htm.IDSet{htm.NewIDSet(1)}) != l {
		t.Error("sort on empty layout should be a no-op")
	}
}

func TestHitAndElementRect(t *testing.T) {
	ls := Build(testTemplate(), testDrawing())
	l1 := ls[htm.LayerPath("R1", "L1")]

	r, ok := l1.ElementRect(5, 0)
	if !ok {
		t.Fatal("column 5 at dt 0 should be visible")
	}
	cx, cy := r.Center()
	id, dt, hasDt, ok := l1.Hit(cx, cy)
	if !ok || !hasDt {
		t.Fatal("expected a hit with a dt")
	}
	if id != 5 || dt != 0 {
		t.Errorf("expected id 5 dt 0, got id %d dt %d", id, dt)
	}

	if _, _, _, ok := l1.Hit(l1.Left-1, cy); ok {
		t.Error("point left of the layout should miss")
	}
}

func TestHitSpatial(t *testing.T) {
	d := testDrawing()
	d.Mode = config.ModeSpatial
	l := Build(htm.Template{Layers: []htm.LayerSpec{{Region: "R", Layer: "L", Topology: htm.Grid(5, 4)}}}, d)[htm.LayerPath("R", "L")]

	if l.GridW != 5 {
		t.Fatalf("expected grid width 5, got %d", l.GridW)
	}
	r, ok := l.ElementRect(7, 99)
	if !ok {
		t.Fatal("spatial rect ignores dt")
	}
	id, _, hasDt, ok := l.Hit(r.Center())
	if !ok || hasDt || id != 7 {
		t.Errorf("expected id 7 without dt, got %d hasDt=%v ok=%v", id, hasDt, ok)
	}
}

func TestRebuildPreservesViewState(t *testing.T) {
	tmpl := testTemplate()
	d := testDrawing()
	d.Height = 30
	ls := Build(tmpl, d)
	p := htm.LayerPath("R1", "L1")

	l := SortByRecentActivity(ls[p], []htm.IDSet{htm.NewIDSet(3, 9), htm.NewIDSet(9, 12)})
	l = AddFacet(l, htm.NewIDSet(12, 15), 4)
	l = ScrollBy(l, 1)
	ls[p] = l

	once := Rebuild(ls, tmpl, d)
	twice := Rebuild(once, tmpl, d)

	got := twice[p]
	if !sameOrder(got.Order, l.Order) {
		t.Errorf("ordering changed: %v vs %v", got.Order, l.Order)
	}
	if got.OrderVersion != l.OrderVersion {
		t.Error("ordering identity should survive a rebuild")
	}
	if !sameFacets(got.Facets, l.Facets) {
		t.Error("facets changed across rebuilds")
	}
	if got.Scroll != l.Scroll {
		t.Errorf("expected scroll %d, got %d", l.Scroll, got.Scroll)
	}
	if got.Generation == l.Generation || got.Generation == once[p].Generation {
		t.Error("each rebuild should produce a new generation")
	}
}

func TestClearSortOnUnsortedIsNoop(t *testing.T) {
	l := Build(testTemplate(), testDrawing())[htm.InputPath("in")]
	if ClearSort(l) != l {
		t.Error("clear-sort on an unsorted layout should return the same layout")
	}
}

func TestSortByRecentActivity(t *testing.T) {
	l := Build(testTemplate(), testDrawing())[htm.InputPath("in")]
	window := []htm.IDSet{
		htm.NewIDSet(7),
		htm.NewIDSet(2, 4),
		htm.NewIDSet(4),
	}

	sorted := SortByRecentActivity(l, window)
	want := []int{7, 4, 2, 0, 1, 3, 5, 6, 8, 9}
	if !sameOrder(sorted.Order, want) {
		t.Errorf("expected %v, got %v", want, sorted.Order)
	}
	if sorted.OrderVersion == l.OrderVersion {
		t.Error("sorting should change the ordering identity")
	}
	again := SortByRecentActivity(sorted, window)
	if again != sorted {
		t.Error("sorting an already sorted layout should be stable")
	}
	if !sameOrder(ClearSort(sorted).Order, l.Order) {
		t.Error("clear-sort should restore natural order")
	}
}

func TestFacetsSurviveSort(t *testing.T) {
	l := Build(testTemplate(), testDrawing())[htm.InputPath("in")]
	l = AddFacet(l, htm.NewIDSet(5, 8), 1)
	l = AddFacet(l, htm.NewIDSet(8, 2), 2)

	if len(l.Facets) != 2 {
		t.Fatalf("expected 2 facets, got %d", len(l.Facets))
	}
	if l.Facets[1].Start != 2 || len(l.Facets[1].IDs) != 1 {
		t.Errorf("second facet should hold only the new id at position 2: %+v", l.Facets[1])
	}

	sorted := SortByRecentActivity(l, []htm.IDSet{htm.NewIDSet(9)})
	want := []int{5, 8, 2, 9}
	if !sameOrder(sorted.Order[:4], want) {
		t.Errorf("expected facet block then 9, got %v", sorted.Order[:4])
	}

	cleared := ClearFacets(sorted)
	if len(cleared.Facets) != 0 || !sameOrder(cleared.Order, sorted.Order) {
		t.Error("clearing facets should keep the ordering")
	}
}

func TestScrollClamps(t *testing.T) {
	d := testDrawing()
	d.Height = 5 * d.ColSize
	l := Build(testTemplate(), d)[htm.LayerPath("R1", "L1")]

	if l.Capacity() != 5 {
		t.Fatalf("expected capacity 5, got %d", l.Capacity())
	}
	l = ScrollBy(l, 10)
	if l.Scroll != 15 {
		t.Errorf("expected scroll clamped to 15, got %d", l.Scroll)
	}
	if len(l.VisibleIDs()) != 5 {
		t.Errorf("expected 5 visible ids, got %d", len(l.VisibleIDs()))
	}
	l = ScrollBy(l, -10)
	if l.Scroll != 0 {
		t.Errorf("expected scroll 0, got %d", l.Scroll)
	}
}

func TestTimeline(t *testing.T) {
	d := testDrawing()
	tl := NewTimeline(d, 5)
	r, ok := tl.Rect(2)
	if !ok {
		t.Fatal("dt 2 should be on the timeline")
	}
	dt, ok := tl.DtAt(r.X + 1)
	if !ok || dt != 2 {
		t.Errorf("expected dt 2, got %d", dt)
	}
	if _, ok := tl.DtAt(tl.Left + float64(10)*tl.Cell); ok {
		t.Error("past the last step should miss")
	}
}

func TestCellsGeometry(t *testing.T) {
	l := Build(testTemplate(), testDrawing())[htm.LayerPath("R1", "L1")]
	g, ok := NewCellsGeometry(l, 3, 0, []int{2, 0, 1})
	if !ok {
		t.Fatal("expected geometry")
	}
	if len(g.Cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(g.Cells))
	}
	if g.Cells[1].Band.Y != g.Cells[0].Band.Y+g.Cells[0].Band.H {
		t.Error("cells should stack contiguously")
	}
	if g.Cells[1].Band.H != g.Cells[2].Band.H {
		t.Error("a cell without segments still takes one slot")
	}

	c1x, c1y, c2x, c2y := g.Curve(g.Cells[0])
	span := g.Cells[0].CX - g.ColX
	if c1x != g.ColX+span/3 || c1y != g.ColY || c2x != g.Cells[0].CX-span/3 || c2y != g.Cells[0].CY {
		t.Error("curve control points should sit a third in, level with each end")
	}

	seg := g.Cells[2].Segments[0].Rect
	cell, s, ok := g.HitSegment(seg.Center())
	if !ok || cell != 2 || s != 0 {
		t.Errorf("expected cell 2 segment 0, got %d %d %v", cell, s, ok)
	}
	if _, _, ok := g.HitSegment(g.ColX, g.ColY); ok {
		t.Error("column position is not a segment")
	}
}
