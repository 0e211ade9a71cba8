package layout

import (
	"math"
	"sync/atomic"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
)

var (
	generations   atomic.Uint64
	orderVersions atomic.Uint64
)

// Facet is a saved id grouping captured at a timestep. Its ids occupy the
// positions [Start, Start+len(IDs)) of the ordering.
type Facet struct {
	Timestep int
	IDs      []int
	Start    int
}

type Layout struct {
	Path htm.Path
	Dims []int
	Mode config.DisplayMode

	Left, Top     float64
	Width, Height float64
	ElemW, ElemH  float64
	GridW         int
	Window        int

	// Order maps position to id; pos is its inverse.
	Order        []int
	pos          []int
	OrderVersion uint64

	Scroll     int
	DtOffset   int
	Facets     []Facet
	Generation uint64
}

// Layouts maps each path to its layout.
type Layouts map[htm.Path]*Layout

func (l *Layout) Size() int { return len(l.Order) }

// Rows is the number of element rows that fit in the layout height.
func (l *Layout) Rows() int {
	if l.ElemH <= 0 {
		return 0
	}
	return int(l.Height / l.ElemH)
}

// Capacity is the number of ids visible at once.
func (l *Layout) Capacity() int {
	if l.Mode == config.ModeSpatial {
		return l.Rows() * l.GridW
	}
	return l.Rows()
}

// VisibleRange returns the visible positions [from, to).
func (l *Layout) VisibleRange() (int, int) {
	to := l.Scroll + l.Capacity()
	if to > l.Size() {
		to = l.Size()
	}
	if l.Scroll > to {
		return to, to
	}
	return l.Scroll, to
}

func (l *Layout) VisibleIDs() htm.IDSet {
	from, to := l.VisibleRange()
	ids := make(htm.IDSet, to-from)
	for p := from; p < to; p++ {
		ids.Add(l.Order[p])
	}
	return ids
}

// Pos returns the ordering position of an id.
func (l *Layout) Pos(id int) (int, bool) {
	if id < 0 || id >= len(l.pos) {
		return 0, false
	}
	return l.pos[id], true
}

func (l *Layout) IDAt(p int) (int, bool) {
	if p < 0 || p >= len(l.Order) {
		return 0, false
	}
	return l.Order[p], true
}

// Build places every input left to right in template order, then every
// layer, separated by the configured gap.
func Build(tmpl htm.Template, d config.Drawing) Layouts {
	out := make(Layouts, len(tmpl.Inputs)+len(tmpl.Layers))
	x := d.LeftMargin
	for _, p := range tmpl.Paths() {
		topo, _ := tmpl.Topology(p)
		elem := d.ColSize
		if p.IsInput() {
			elem = d.BitSize
		}
		l := newLayout(p, topo, d, elem)
		l.Left = x
		out[p] = l
		x += l.Width + d.Gap
	}
	return out
}

func newLayout(p htm.Path, topo htm.Topology, d config.Drawing, elem float64) *Layout {
	n := topo.Size()
	l := &Layout{
		Path:       p,
		Dims:       append([]int(nil), topo.Dims...),
		Mode:       d.Mode,
		Top:        d.TopMargin,
		Height:     d.LayoutHeight(),
		ElemW:      elem,
		ElemH:      elem,
		Window:     d.DrawWindow,
		Generation: generations.Add(1),
	}
	l.setOrder(identity(n), 0)
	if n == 0 {
		return l
	}
	if d.Mode == config.ModeSpatial {
		l.GridW = gridWidth(topo)
		l.Width = float64(l.GridW) * elem
	} else {
		l.GridW = 1
		l.Width = float64(d.DrawWindow) * elem
	}
	return l
}

func gridWidth(topo htm.Topology) int {
	if len(topo.Dims) >= 2 {
		return topo.Dims[0]
	}
	return int(math.Ceil(math.Sqrt(float64(topo.Size()))))
}

// Rebuild recomputes geometry for a new template or drawing options and
// carries each path's ordering, facets, scroll and time offset across. Every
// rebuilt layout gets a fresh Generation.
func Rebuild(old Layouts, tmpl htm.Template, d config.Drawing) Layouts {
	built := Build(tmpl, d)
	for p, nl := range built {
		ol, ok := old[p]
		if !ok || ol.Size() != nl.Size() {
			continue
		}
		nl.Order, nl.pos, nl.OrderVersion = ol.Order, ol.pos, ol.OrderVersion
		nl.Facets = ol.Facets
		nl.DtOffset = ol.DtOffset
		nl.Scroll = nl.clampScroll(ol.Scroll)
	}
	return built
}

func (l *Layout) clone() *Layout {
	c := *l
	return &c
}

func (l *Layout) setOrder(order []int, version uint64) {
	l.Order = order
	l.pos = make([]int, len(order))
	for p, id := range order {
		l.pos[id] = p
	}
	if version == 0 {
		version = orderVersions.Add(1)
	}
	l.OrderVersion = version
}

// reorder returns l itself when the order is unchanged so that the ordering
// identity only moves on a real change.
func (l *Layout) reorder(order []int, facets []Facet) *Layout {
	if sameOrder(l.Order, order) {
		if sameFacets(l.Facets, facets) {
			return l
		}
		c := l.clone()
		c.Facets = facets
		return c
	}
	c := l.clone()
	c.setOrder(order, 0)
	c.Facets = facets
	return c
}

func (l *Layout) maxScroll() int {
	capacity := l.Capacity()
	n := l.Size()
	if capacity <= 0 || n <= capacity {
		return 0
	}
	over := n - capacity
	if l.Mode == config.ModeSpatial && l.GridW > 0 {
		over = (over + l.GridW - 1) / l.GridW * l.GridW
	}
	return over
}

func (l *Layout) clampScroll(s int) int {
	if s < 0 {
		return 0
	}
	if m := l.maxScroll(); s > m {
		return m
	}
	return s
}

// ScrollBy moves the visible window by whole pages.
func ScrollBy(l *Layout, pages int) *Layout {
	if l.Size() == 0 || l.Capacity() == 0 {
		return l
	}
	s := l.clampScroll(l.Scroll + pages*l.Capacity())
	if s == l.Scroll {
		return l
	}
	c := l.clone()
	c.Scroll = s
	return c
}

// WithDtOffset sets the dt shown in the leftmost time column.
func WithDtOffset(l *Layout, dt int) *Layout {
	if l.DtOffset == dt {
		return l
	}
	c := l.clone()
	c.DtOffset = dt
	return c
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func sameOrder(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameFacets(a, b []Facet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Timestep != b[i].Timestep || a[i].Start != b[i].Start || !sameOrder(a[i].IDs, b[i].IDs) {
			return false
		}
	}
	return true
}
