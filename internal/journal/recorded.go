package journal

import (
	"fmt"

	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/storage"
)

// Recorded replays a stored recording. Column detail beyond active and
// predicted ids is derived from the wiring the recording's seed gives.
type Recorded struct {
	meta   storage.RecordingMetadata
	wiring *Wiring
	steps  []storage.StepRecord
	index  map[htm.StepID]int
}

func LoadRecorded(s *storage.Store, id string) (*Recorded, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	steps, err := s.LoadSteps(id)
	if err != nil {
		return nil, err
	}
	return NewRecorded(*meta, steps), nil
}

func NewRecorded(meta storage.RecordingMetadata, steps []storage.StepRecord) *Recorded {
	r := &Recorded{
		meta:   meta,
		wiring: NewWiring(meta.Template, meta.Seed),
		steps:  steps,
		index:  make(map[htm.StepID]int, len(steps)),
	}
	for i, st := range steps {
		r.index[st.Step] = i
	}
	return r
}

func (r *Recorded) Template() htm.Template { return r.meta.Template }
func (r *Recorded) Wiring() *Wiring        { return r.wiring }
func (r *Recorded) Len() int               { return len(r.steps) }

// Step returns the i-th recorded step.
func (r *Recorded) Step(i int) (htm.Step, bool) {
	if i < 0 || i >= len(r.steps) {
		return htm.Step{}, false
	}
	return htm.Step{StepID: r.steps[i].Step, Template: r.meta.Template}, true
}

func (r *Recorded) Payload(id htm.StepID) (*htm.Payload, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("recorded step %s: %w", id, htm.ErrUnknownStep)
	}
	st := r.steps[i]
	pl := &htm.Payload{Step: st.Step, Break: st.Break, Paths: make(map[htm.Path]*htm.PathState)}
	for _, p := range r.meta.Template.Paths() {
		ps := &htm.PathState{Active: st.Active[p], Predicted: st.Predicted[p]}
		if ps.Active == nil {
			ps.Active = htm.IDSet{}
		}
		if ps.Predicted == nil {
			ps.Predicted = htm.IDSet{}
		}
		if p.IsLayer() {
			ps.TemporalPooling = ps.Active.Intersect(ps.Predicted)
			ps.SegmentCounts = make(map[int]int)
			topo, _ := r.meta.Template.Topology(p)
			for col := 0; col < topo.Size(); col++ {
				if n := r.wiring.SegmentCount(p, col); n > 0 {
					ps.SegmentCounts[col] = n
				}
			}
		}
		pl.Paths[p] = ps
	}
	return pl, nil
}

// Record captures steps [from, from+n) of a synthetic source for storage.
func Record(s *Synthetic, from, n int) []storage.StepRecord {
	out := make([]storage.StepRecord, 0, n)
	for t := from; t < from+n; t++ {
		pl := s.payload(t)
		rec := storage.StepRecord{
			Step:      pl.Step,
			Break:     pl.Break,
			Active:    make(map[htm.Path]htm.IDSet, len(pl.Paths)),
			Predicted: make(map[htm.Path]htm.IDSet, len(pl.Paths)),
		}
		for p, st := range pl.Paths {
			rec.Active[p] = st.Active
			rec.Predicted[p] = st.Predicted
		}
		out = append(out, rec)
	}
	return out
}

// Seed returns the seed the synthetic source wires its model with.
func (s *Synthetic) Seed() uint64 { return s.cfg.Seed }
