package journal

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/san-kum/htmviz/internal/htm"
)

const (
	// ConnectedPermanence is the permanence at which a potential synapse
	// becomes connected.
	ConnectedPermanence = 0.2

	poolSize           = 16
	maxSegmentsPerCell = 3
	defaultCells       = 4
	defaultActivation  = 10
	defaultLearning    = 6
)

// Potential is one potential feed-forward synapse of a column.
type Potential struct {
	Src        htm.Path
	ID         int
	Permanence float64
}

func (p Potential) Connected() bool { return p.Permanence >= ConnectedPermanence }

// Target is the reverse of a Potential: a column that samples a bit.
type Target struct {
	Dst        htm.Path
	Column     int
	Permanence float64
}

// SegmentShape is the synapse totals of one distal segment.
type SegmentShape struct {
	Connected    int
	Disconnected int
}

// Wiring is the fixed connectivity of a model, derived from its template
// and a seed. The same template and seed always give the same wiring.
type Wiring struct {
	seed     uint64
	tmpl     htm.Template
	feeds    map[htm.Path][]htm.Path
	pools    map[htm.Path][][]Potential
	targets  map[htm.Path]map[int][]Target
	segments map[htm.Path][][][]SegmentShape
}

// NewWiring connects the layers of the first region to every input and
// every later layer to the layer before it.
func NewWiring(tmpl htm.Template, seed uint64) *Wiring {
	w := &Wiring{
		seed:     seed,
		tmpl:     tmpl,
		feeds:    make(map[htm.Path][]htm.Path),
		pools:    make(map[htm.Path][][]Potential),
		targets:  make(map[htm.Path]map[int][]Target),
		segments: make(map[htm.Path][][][]SegmentShape),
	}
	var prev htm.Path
	for i, spec := range tmpl.Layers {
		dst := spec.Path()
		if i == 0 || spec.Region == tmpl.Layers[0].Region {
			for _, in := range tmpl.Inputs {
				w.feeds[dst] = append(w.feeds[dst], htm.InputPath(in.ID))
			}
		} else {
			w.feeds[dst] = []htm.Path{prev}
		}
		w.connect(seed, spec)
		prev = dst
	}
	return w
}

func (w *Wiring) connect(seed uint64, spec htm.LayerSpec) {
	dst := spec.Path()
	n := spec.Topology.Size()
	cells := spec.CellsPerColumn
	if cells <= 0 {
		cells = defaultCells
	}
	pools := make([][]Potential, n)
	segs := make([][][]SegmentShape, n)
	for col := 0; col < n; col++ {
		r := newRand(seed, dst, col)
		for _, src := range w.feeds[dst] {
			size := w.size(src)
			if size == 0 {
				continue
			}
			k := min(poolSize, size)
			for _, id := range r.Perm(size)[:k] {
				perm := r.Float64() * 2 * ConnectedPermanence
				pools[col] = append(pools[col], Potential{Src: src, ID: id, Permanence: perm})
				w.addTarget(src, id, Target{Dst: dst, Column: col, Permanence: perm})
			}
		}
		segs[col] = make([][]SegmentShape, cells)
		for c := range segs[col] {
			for s := r.IntN(maxSegmentsPerCell + 1); s > 0; s-- {
				segs[col][c] = append(segs[col][c], SegmentShape{
					Connected:    6 + r.IntN(15),
					Disconnected: 1 + r.IntN(8),
				})
			}
		}
	}
	w.pools[dst] = pools
	w.segments[dst] = segs
}

func (w *Wiring) addTarget(src htm.Path, id int, t Target) {
	m := w.targets[src]
	if m == nil {
		m = make(map[int][]Target)
		w.targets[src] = m
	}
	m[id] = append(m[id], t)
}

func (w *Wiring) size(p htm.Path) int {
	topo, _ := w.tmpl.Topology(p)
	return topo.Size()
}

// Feeds lists the paths a layer samples.
func (w *Wiring) Feeds(dst htm.Path) []htm.Path { return w.feeds[dst] }

func (w *Wiring) Pool(dst htm.Path, col int) []Potential {
	pools := w.pools[dst]
	if col < 0 || col >= len(pools) {
		return nil
	}
	return pools[col]
}

func (w *Wiring) Targets(src htm.Path, id int) []Target {
	return w.targets[src][id]
}

// Segments returns the distal segments of every cell of a column.
func (w *Wiring) Segments(dst htm.Path, col int) [][]SegmentShape {
	segs := w.segments[dst]
	if col < 0 || col >= len(segs) {
		return nil
	}
	return segs[col]
}

func (w *Wiring) SegmentCount(dst htm.Path, col int) int {
	n := 0
	for _, cell := range w.Segments(dst, col) {
		n += len(cell)
	}
	return n
}

// Thresholds returns a layer's segment activation and learning thresholds.
func (w *Wiring) Thresholds(dst htm.Path) (activation, learning int) {
	spec, _ := w.tmpl.Layer(dst)
	activation, learning = spec.ActivationThreshold, spec.LearningThreshold
	if activation <= 0 {
		activation = defaultActivation
	}
	if learning <= 0 {
		learning = defaultLearning
	}
	return activation, learning
}

func newRand(seed uint64, p htm.Path, n int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(p.String()))
	return rand.New(rand.NewPCG(seed, h.Sum64()^uint64(n)*0x9e3779b97f4a7c15))
}

// CellSegments describes the distal segments of a column at step t. In a
// predicted column one cell has a segment at or above the activation
// threshold; every other segment stays below it.
func (w *Wiring) CellSegments(dst htm.Path, col, t int, predicted bool) *htm.CellSegments {
	activation, learning := w.Thresholds(dst)
	cs := &htm.CellSegments{
		Path:                dst,
		Column:              col,
		ActivationThreshold: activation,
		LearningThreshold:   learning,
	}
	cells := w.Segments(dst, col)
	if len(cells) == 0 {
		return cs
	}
	r := newRand(w.seed^uint64(t), dst, col)
	winner := (col + t) % len(cells)
	for c, shapes := range cells {
		info := htm.CellInfo{Index: c}
		for i, shape := range shapes {
			seg := htm.SegmentInfo{
				ConnectedTotal:     shape.Connected,
				DisconnectedTotal:  shape.Disconnected,
				ActiveConnected:    r.IntN(min(activation, shape.Connected+1)),
				ActiveDisconnected: r.IntN(shape.Disconnected + 1),
			}
			if predicted && c == winner && i == 0 {
				seg.ActiveConnected = min(shape.Connected, activation+r.IntN(3))
			}
			info.Segments = append(info.Segments, seg)
		}
		cs.Cells = append(cs.Cells, info)
	}
	return cs
}
