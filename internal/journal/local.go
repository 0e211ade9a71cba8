package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/htm"
)

// growingMargin is how far below the connected permanence a synapse from an
// active source to an active column counts as growing.
const growingMargin = 0.05

// Local is an in-process journal. Requests queue without bound and are
// answered in order by Run; every answer is scoped to the viewport the
// request names.
type Local struct {
	src Source
	log zerolog.Logger

	mu    sync.Mutex
	queue []Request
	wake  chan struct{}

	// Owned by Run.
	viewports map[Token]*Viewport
	next      int
}

func NewLocal(src Source, log zerolog.Logger) *Local {
	return &Local{
		src:       src,
		log:       log.With().Str("component", "journal").Logger(),
		wake:      make(chan struct{}, 1),
		viewports: make(map[Token]*Viewport),
	}
}

func (j *Local) Send(r Request) {
	j.mu.Lock()
	j.queue = append(j.queue, r)
	j.mu.Unlock()
	select {
	case j.wake <- struct{}{}:
	default:
	}
}

// Run answers requests until ctx is done.
func (j *Local) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-j.wake:
		}
		for {
			r, ok := j.pop()
			if !ok {
				break
			}
			reply := j.answer(r)
			if reply.Err != nil {
				j.log.Debug().Err(reply.Err).Msg("request failed")
			}
			if r.Reply != nil {
				r.Reply(reply)
			}
		}
	}
}

func (j *Local) pop() (Request, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.queue) == 0 {
		return Request{}, false
	}
	r := j.queue[0]
	j.queue[0] = Request{}
	j.queue = j.queue[1:]
	return r, true
}

// Viewports is the number of registered viewports. It must only be called
// from a Reply callback or after Run has returned.
func (j *Local) Viewports() int { return len(j.viewports) }

func (j *Local) answer(r Request) Reply {
	reply := Reply{Command: r.Command, Token: r.Token}
	fail := func(err error) Reply {
		reply.Err = &RequestError{Command: r.Command, Step: r.Step, Wrapped: err}
		return reply
	}

	switch r.Command {
	case CmdRegisterViewport:
		if r.Viewport == nil {
			return fail(fmt.Errorf("missing viewport: %w", ErrBadRequest))
		}
		j.next++
		reply.Token = Token(fmt.Sprintf("vp-%d", j.next))
		j.viewports[reply.Token] = r.Viewport
		j.log.Debug().Str("token", string(reply.Token)).Int("paths", len(r.Viewport.Visible)).Msg("viewport registered")
		return reply
	case CmdUnregisterViewport:
		if _, ok := j.viewports[r.Token]; !ok {
			return fail(ErrUnknownToken)
		}
		delete(j.viewports, r.Token)
		return reply
	}

	vp, ok := j.viewports[r.Token]
	if !ok {
		return fail(ErrUnknownToken)
	}
	if r.Command != CmdInbitsCols {
		if _, ok := j.src.Template().Topology(r.Path); !ok {
			return fail(fmt.Errorf("%s: %w", r.Path, htm.ErrUnknownPath))
		}
	}
	pl, err := j.src.Payload(r.Step)
	if err != nil {
		return fail(err)
	}

	switch r.Command {
	case CmdInbitsCols:
		reply.Payload = scopePayload(pl, vp)
	case CmdFFInSynapses:
		if !r.Path.IsLayer() {
			return fail(fmt.Errorf("in-synapses of %s: %w", r.Path, ErrBadRequest))
		}
		reply.Synapses = j.inSynapses(r, vp, pl)
	case CmdFFOutSynapses:
		if !r.Path.IsInput() {
			return fail(fmt.Errorf("out-synapses of %s: %w", r.Path, ErrBadRequest))
		}
		reply.Synapses = j.outSynapses(r, vp, pl)
	case CmdCellSegments:
		cs, err := j.cellSegments(r, vp, pl)
		if err != nil {
			return fail(err)
		}
		reply.Cells = cs
	default:
		return fail(ErrUnknownCommand)
	}
	return reply
}

func (j *Local) inSynapses(r Request, vp *Viewport, pl *htm.Payload) []htm.Synapse {
	visible := vp.Visible[r.Path]
	dsts := visible.Sorted()
	if r.OnlyIDs != nil {
		dsts = dsts[:0]
		for _, id := range r.OnlyIDs {
			if visible.Has(id) {
				dsts = append(dsts, id)
			}
		}
	}
	w := j.src.Wiring()
	dstActive := pl.State(r.Path)
	var out []htm.Synapse
	for _, col := range dsts {
		for _, pot := range w.Pool(r.Path, col) {
			if !vp.Visible[pot.Src].Has(pot.ID) {
				continue
			}
			syn, ok := synapse(vp, pot.Src, pot.ID, r.Path, col, pot.Permanence, pl.State(pot.Src), dstActive)
			if ok {
				out = append(out, syn)
			}
		}
	}
	return out
}

func (j *Local) outSynapses(r Request, vp *Viewport, pl *htm.Payload) []htm.Synapse {
	srcState := pl.State(r.Path)
	var out []htm.Synapse
	for _, t := range j.src.Wiring().Targets(r.Path, r.ID) {
		if !vp.Visible[t.Dst].Has(t.Column) {
			continue
		}
		syn, ok := synapse(vp, r.Path, r.ID, t.Dst, t.Column, t.Permanence, srcState, pl.State(t.Dst))
		if ok {
			out = append(out, syn)
		}
	}
	return out
}

func synapse(vp *Viewport, src htm.Path, srcID int, dst htm.Path, dstID int, perm float64, srcState, dstState *htm.PathState) (htm.Synapse, bool) {
	srcActive := srcState != nil && srcState.Active.Has(srcID)
	dstActive := dstState != nil && dstState.Active.Has(dstID)
	connected := perm >= ConnectedPermanence

	var state htm.SynapseState
	switch {
	case !connected && srcActive && dstActive && perm >= ConnectedPermanence-growingMargin:
		state = htm.SynapseGrowing
	case !connected:
		state = htm.SynapseDisconnected
	case srcActive:
		state = htm.SynapseActive
	default:
		state = htm.SynapseInactive
	}

	opts := vp.Options.FFSynapses
	if state == htm.SynapseDisconnected && !opts.Disconnected {
		return htm.Synapse{}, false
	}
	if state == htm.SynapseInactive && !opts.Inactive {
		return htm.Synapse{}, false
	}
	syn := htm.Synapse{SrcPath: src, SrcID: srcID, DstPath: dst, DstID: dstID, State: state}
	if opts.Permanences {
		syn.Permanence, syn.HasPermanence = perm, true
	}
	return syn, true
}

func (j *Local) cellSegments(r Request, vp *Viewport, pl *htm.Payload) (*htm.CellSegments, error) {
	if !r.Path.IsLayer() {
		return nil, fmt.Errorf("cell segments of %s: %w", r.Path, ErrBadRequest)
	}
	w := j.src.Wiring()
	cells := w.Segments(r.Path, r.ID)
	if cells == nil {
		return nil, fmt.Errorf("column %d of %s: %w", r.ID, r.Path, ErrBadRequest)
	}
	if r.Segment != nil && (r.Segment.Cell < 0 || r.Segment.Cell >= len(cells)) {
		return nil, fmt.Errorf("cell %d of column %d: %w", r.Segment.Cell, r.ID, ErrBadRequest)
	}
	if !vp.Options.Distal.Enabled {
		return nil, nil
	}
	st := pl.State(r.Path)
	predicted := st != nil && st.Predicted.Has(r.ID)
	return w.CellSegments(r.Path, r.ID, pl.Step.Timestep, predicted), nil
}

// scopePayload keeps only what the viewport shows and its options ask for.
func scopePayload(pl *htm.Payload, vp *Viewport) *htm.Payload {
	out := &htm.Payload{Step: pl.Step, Break: pl.Break, Paths: make(map[htm.Path]*htm.PathState, len(pl.Paths))}
	opts := vp.Options
	for p, st := range pl.Paths {
		visible, ok := vp.Visible[p]
		if !ok {
			continue
		}
		s := &htm.PathState{}
		if p.IsInput() {
			s.Active = pick(st.Active, visible, opts.Inbits.Active)
			s.Predicted = pick(st.Predicted, visible, opts.Inbits.Predicted)
		} else {
			c := opts.Columns
			s.Active = pick(st.Active, visible, c.Active)
			s.Predicted = pick(st.Predicted, visible, c.Predicted)
			s.TemporalPooling = pick(st.TemporalPooling, visible, c.TemporalPooling)
			s.Overlaps = pickMap(st.Overlaps, visible, c.Overlaps)
			s.Boosts = pickMap(st.Boosts, visible, c.Boosts)
			s.Frequencies = pickMap(st.Frequencies, visible, c.Frequencies)
			s.SegmentCounts = pickMap(st.SegmentCounts, visible, c.SegmentCounts)
		}
		out.Paths[p] = s
	}
	return out
}

func pick(ids, visible htm.IDSet, on bool) htm.IDSet {
	if !on || ids == nil {
		return nil
	}
	return ids.Intersect(visible)
}

func pickMap[V any](m map[int]V, visible htm.IDSet, on bool) map[int]V {
	if !on || m == nil {
		return nil
	}
	out := make(map[int]V)
	for id, v := range m {
		if visible.Has(id) {
			out[id] = v
		}
	}
	return out
}
