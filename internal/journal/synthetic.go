package journal

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/htmviz/internal/htm"
)

// SyntheticConfig shapes the generated sequence.
type SyntheticConfig struct {
	Seed     uint64  `yaml:"seed"`
	Period   int     `yaml:"period"`
	Sparsity float64 `yaml:"sparsity"`
	Noise    float64 `yaml:"noise"`
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{Seed: 42, Period: 8, Sparsity: 0.1, Noise: 0.05}
}

// Synthetic is a deterministic stand-in for a running model. It feeds a
// repeating sequence of sparse input patterns through the wiring: columns
// with the highest overlap become active, and once the sequence has been
// seen a full period each step predicts its noise-free activity.
type Synthetic struct {
	tmpl     htm.Template
	cfg      SyntheticConfig
	wiring   *Wiring
	patterns map[htm.Path][]htm.IDSet
}

func NewSynthetic(tmpl htm.Template, cfg SyntheticConfig) *Synthetic {
	if cfg.Period < 1 {
		cfg.Period = 1
	}
	if cfg.Sparsity <= 0 || cfg.Sparsity > 1 {
		cfg.Sparsity = DefaultSyntheticConfig().Sparsity
	}
	s := &Synthetic{
		tmpl:     tmpl,
		cfg:      cfg,
		wiring:   NewWiring(tmpl, cfg.Seed),
		patterns: make(map[htm.Path][]htm.IDSet),
	}
	for _, in := range tmpl.Inputs {
		p := htm.InputPath(in.ID)
		n := in.Topology.Size()
		k := s.k(n)
		for i := 0; i < cfg.Period; i++ {
			r := newRand(cfg.Seed, p, -1-i)
			var ids []int
			if n > 0 {
				ids = r.Perm(n)[:k]
			}
			s.patterns[p] = append(s.patterns[p], htm.NewIDSet(ids...))
		}
	}
	return s
}

func (s *Synthetic) k(n int) int {
	if n == 0 {
		return 0
	}
	return max(1, int(math.Round(float64(n)*s.cfg.Sparsity)))
}

func (s *Synthetic) Template() htm.Template { return s.tmpl }
func (s *Synthetic) Wiring() *Wiring        { return s.wiring }

func (s *Synthetic) ModelID(t int) string {
	return fmt.Sprintf("syn%d-%d", s.cfg.Seed, t)
}

func (s *Synthetic) Step(t int) htm.Step {
	return htm.Step{StepID: htm.StepID{ModelID: s.ModelID(t), Timestep: t}, Template: s.tmpl}
}

func (s *Synthetic) Payload(id htm.StepID) (*htm.Payload, error) {
	if id.Timestep < 0 || id.ModelID != s.ModelID(id.Timestep) {
		return nil, fmt.Errorf("synthetic step %s: %w", id, htm.ErrUnknownStep)
	}
	return s.payload(id.Timestep), nil
}

func (s *Synthetic) payload(t int) *htm.Payload {
	active, overlaps := s.run(t, true)
	var expected map[htm.Path]htm.IDSet
	if t >= s.cfg.Period {
		expected, _ = s.run(t, false)
	}
	pl := &htm.Payload{
		Step:  htm.StepID{ModelID: s.ModelID(t), Timestep: t},
		Paths: make(map[htm.Path]*htm.PathState),
		Break: t > 0 && t%s.cfg.Period == 0,
	}
	for _, p := range s.tmpl.Paths() {
		st := &htm.PathState{Active: active[p], Predicted: expected[p]}
		if st.Predicted == nil {
			st.Predicted = htm.IDSet{}
		}
		if p.IsLayer() {
			s.columnState(p, t, st, overlaps[p])
		}
		pl.Paths[p] = st
	}
	return pl
}

func (s *Synthetic) columnState(p htm.Path, t int, st *htm.PathState, overlaps map[int]float64) {
	st.TemporalPooling = st.Active.Intersect(st.Predicted)
	st.Overlaps = overlaps
	st.Boosts = make(map[int]float64)
	st.Frequencies = make(map[int]float64)
	st.SegmentCounts = make(map[int]int)
	topo, _ := s.tmpl.Topology(p)
	for col := 0; col < topo.Size(); col++ {
		st.Boosts[col] = 1 + float64((col*31+t/s.cfg.Period)%7)/10
		if pool := len(s.wiring.Pool(p, col)); pool > 0 {
			st.Frequencies[col] = overlaps[col] / float64(pool)
		}
		if n := s.wiring.SegmentCount(p, col); n > 0 {
			st.SegmentCounts[col] = n
		}
	}
}

// run computes the active ids of every path at step t, and the overlap of
// every column with its feeds.
func (s *Synthetic) run(t int, noisy bool) (map[htm.Path]htm.IDSet, map[htm.Path]map[int]float64) {
	active := make(map[htm.Path]htm.IDSet)
	overlaps := make(map[htm.Path]map[int]float64)
	for _, in := range s.tmpl.Inputs {
		p := htm.InputPath(in.ID)
		ids := s.patterns[p][t%s.cfg.Period].Clone()
		if noisy && s.cfg.Noise > 0 {
			ids = s.perturb(p, t, ids, in.Topology.Size())
		}
		active[p] = ids
	}
	for _, spec := range s.tmpl.Layers {
		p := spec.Path()
		n := spec.Topology.Size()
		ov := make(map[int]float64)
		for col := 0; col < n; col++ {
			for _, syn := range s.wiring.Pool(p, col) {
				if syn.Connected() && active[syn.Src].Has(syn.ID) {
					ov[col]++
				}
			}
		}
		overlaps[p] = ov
		active[p] = topK(ov, s.k(n))
	}
	return active, overlaps
}

func (s *Synthetic) perturb(p htm.Path, t int, ids htm.IDSet, n int) htm.IDSet {
	r := newRand(s.cfg.Seed, p, t)
	out := make(htm.IDSet, len(ids))
	for _, id := range ids.Sorted() {
		if r.Float64() < s.cfg.Noise {
			id = r.IntN(n)
		}
		out.Add(id)
	}
	return out
}

func topK(overlaps map[int]float64, k int) htm.IDSet {
	cols := make([]int, 0, len(overlaps))
	for col, v := range overlaps {
		if v > 0 {
			cols = append(cols, col)
		}
	}
	slices.SortFunc(cols, func(a, b int) int {
		if c := cmp.Compare(overlaps[b], overlaps[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(cols) > k {
		cols = cols[:k]
	}
	return htm.NewIDSet(cols...)
}
