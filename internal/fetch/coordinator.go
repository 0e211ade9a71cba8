// Package fetch keeps the viewer's remote data in step with what it shows.
// It registers the visible window with the journal, asks for the data the
// selection and the retained steps need, and merges replies that are still
// relevant when they arrive.
//
// A Coordinator is owned by the viewer's command goroutine. Replies come
// back on journal goroutines and are handed to the post function as
// Results; the owner feeds them to Merge.
package fetch

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
	"github.com/san-kum/htmviz/internal/journal"
	"github.com/san-kum/htmviz/internal/layout"
	"github.com/san-kum/htmviz/internal/selection"
)

type Kind int

const (
	KindRegister Kind = iota
	KindInSynapses
	KindOutSynapses
	KindCells
	KindStep
)

// Result is a journal reply tagged with the generation and key it was
// requested under.
type Result struct {
	Kind       Kind
	Generation uint64
	Key        selection.Key
	Step       htm.StepID
	// Segment is the cell segment a cells request was refined to, if any.
	Segment *selection.CellSegment
	Reply   journal.Reply
}

// Synapses is the feed-forward synapse data of one selection entry.
type Synapses struct {
	In  []htm.Synapse
	Out []htm.Synapse
}

// Cells is the segment data of the selected column.
type Cells struct {
	Key      selection.Key
	Segments *htm.CellSegments
}

// Data is an immutable view of everything fetched so far.
type Data struct {
	Token    journal.Token
	Synapses map[selection.Key]*Synapses
	Cells    *Cells
	Steps    map[htm.StepID]*htm.Payload
}

type sentKey struct {
	kind Kind
	key  selection.Key
	step htm.StepID
	seg  selection.CellSegment
}

type Coordinator struct {
	conn journal.Conn
	post func(Result)
	log  zerolog.Logger

	// gen is the generation of the newest register request; live is the
	// generation of the token in use. Data replies must match live.
	gen   uint64
	live  uint64
	token journal.Token

	opts   config.Journal
	window WindowSnapshot
	sel    selection.Selection
	hist   selection.History
	ls     layout.Layouts

	data Data
	sent map[sentKey]bool
}

func New(conn journal.Conn, post func(Result), log zerolog.Logger) *Coordinator {
	return &Coordinator{
		conn: conn,
		post: post,
		log:  log.With().Str("component", "fetch").Logger(),
		data: Data{
			Synapses: map[selection.Key]*Synapses{},
			Steps:    map[htm.StepID]*htm.Payload{},
		},
		sent: make(map[sentKey]bool),
	}
}

// Data returns the merged data. The maps are never mutated after being
// returned.
func (c *Coordinator) Data() Data { return c.data }

func (c *Coordinator) Token() journal.Token { return c.token }

// Sync brings the coordinator up to date with the view state after a
// command. It registers a new viewport when the journal options or any
// layout's window changed and reports whether it did; otherwise it prunes
// data that is no longer relevant and asks for whatever is missing.
func (c *Coordinator) Sync(ls layout.Layouts, opts config.Options, sel selection.Selection, h selection.History) bool {
	c.ls, c.sel, c.hist = ls, sel, h
	win := Snapshot(ls)
	jopts := opts.Journal()
	changed := c.gen == 0 || jopts != c.opts || !win.Equal(c.window)
	c.opts, c.window = jopts, win
	c.prune()
	if changed {
		c.register()
		return true
	}
	c.issue()
	return false
}

func (c *Coordinator) register() {
	c.gen++
	gen := c.gen
	vp := &journal.Viewport{Options: c.opts, Visible: Visible(c.ls)}
	c.log.Debug().Uint64("generation", gen).Msg("registering viewport")
	c.conn.Send(journal.Request{
		Command:  journal.CmdRegisterViewport,
		Viewport: vp,
		Reply:    c.deliver(KindRegister, gen, selection.Key{}, htm.StepID{}),
	})
}

func (c *Coordinator) deliver(kind Kind, gen uint64, key selection.Key, step htm.StepID) func(journal.Reply) {
	return func(r journal.Reply) {
		c.post(Result{Kind: kind, Generation: gen, Key: key, Step: step, Reply: r})
	}
}

// Merge applies a reply and reports whether the data changed. Replies of
// a superseded generation and replies for keys outside the live relevance
// set are dropped.
func (c *Coordinator) Merge(r Result) bool {
	if r.Kind == KindRegister {
		return c.mergeRegister(r)
	}
	if r.Generation != c.live {
		c.log.Debug().Uint64("generation", r.Generation).Uint64("live", c.live).Msg("dropping stale reply")
		return false
	}
	if r.Reply.Err != nil {
		c.log.Debug().Err(r.Reply.Err).Msg("fetch failed")
		return false
	}
	switch r.Kind {
	case KindInSynapses, KindOutSynapses:
		if !c.relevant()[r.Key] {
			return false
		}
		syn := &Synapses{}
		if old := c.data.Synapses[r.Key]; old != nil {
			*syn = *old
		}
		if r.Kind == KindInSynapses {
			syn.In = r.Reply.Synapses
		} else {
			syn.Out = r.Reply.Synapses
		}
		next := lo.Assign(c.data.Synapses)
		next[r.Key] = syn
		c.data.Synapses = next
		return true
	case KindCells:
		target, ok := c.sel.CellTarget()
		if !ok || target.Key() != r.Key || !sameSegment(target.Segment, r.Segment) {
			return false
		}
		c.data.Cells = &Cells{Key: r.Key, Segments: r.Reply.Cells}
		return true
	case KindStep:
		if !c.retained()[r.Step] || r.Reply.Payload == nil {
			return false
		}
		next := lo.Assign(c.data.Steps)
		next[r.Step] = r.Reply.Payload
		c.data.Steps = next
		return true
	}
	return false
}

func (c *Coordinator) mergeRegister(r Result) bool {
	if r.Reply.Err != nil {
		c.log.Debug().Err(r.Reply.Err).Msg("viewport registration failed")
		return false
	}
	if r.Generation != c.gen {
		c.conn.Send(journal.Request{Command: journal.CmdUnregisterViewport, Token: r.Reply.Token})
		return false
	}
	if c.token != "" {
		c.conn.Send(journal.Request{Command: journal.CmdUnregisterViewport, Token: c.token})
	}
	c.token = r.Reply.Token
	c.live = r.Generation
	c.data.Token = c.token
	c.sent = make(map[sentKey]bool)
	c.log.Debug().Str("token", string(c.token)).Uint64("generation", c.live).Msg("viewport live")
	c.issue()
	return true
}

func sameSegment(a, b *selection.CellSegment) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// relevant is the set of synapse keys the selection asks for.
func (c *Coordinator) relevant() map[selection.Key]bool {
	keys := make(map[selection.Key]bool)
	for _, e := range c.sel {
		if c.synapseKind(e) >= 0 {
			keys[e.Key()] = true
		}
	}
	return keys
}

// synapseKind is the synapse request an entry needs, or -1.
func (c *Coordinator) synapseKind(e selection.Entry) Kind {
	switch {
	case e.Path.IsInput() && e.ID != selection.NoID:
		return KindOutSynapses
	case e.Path.IsLayer():
		switch c.opts.FFSynapses.To {
		case config.SynapsesAll:
			return KindInSynapses
		case config.SynapsesSelected:
			if e.ID != selection.NoID {
				return KindInSynapses
			}
		}
	}
	return -1
}

func (c *Coordinator) retained() map[htm.StepID]bool {
	return lo.SliceToMap(c.hist, func(id htm.StepID) (htm.StepID, bool) { return id, true })
}

func (c *Coordinator) prune() {
	rel := c.relevant()
	if len(c.data.Synapses) > 0 {
		c.data.Synapses = lo.PickBy(c.data.Synapses, func(k selection.Key, _ *Synapses) bool { return rel[k] })
	}
	if c.data.Cells != nil {
		if target, ok := c.sel.CellTarget(); !ok || target.Key() != c.data.Cells.Key || !c.opts.Distal.Enabled {
			c.data.Cells = nil
		}
	}
	keep := c.retained()
	if len(c.data.Steps) > 0 {
		c.data.Steps = lo.PickBy(c.data.Steps, func(id htm.StepID, _ *htm.Payload) bool { return keep[id] })
	}
	for k := range c.sent {
		if k.kind == KindStep && !keep[k.step] {
			delete(c.sent, k)
		}
	}
}

func (c *Coordinator) stepOf(modelID string) (htm.StepID, bool) {
	return lo.Find(c.hist, func(id htm.StepID) bool { return id.ModelID == modelID })
}

// issue sends every request the current state needs that has not been
// sent under the live token.
func (c *Coordinator) issue() {
	if c.token == "" {
		return
	}
	for _, e := range c.sel {
		kind := c.synapseKind(e)
		if kind < 0 {
			continue
		}
		step, ok := c.stepOf(e.ModelID)
		if !ok {
			continue
		}
		sk := sentKey{kind: kind, key: e.Key()}
		if c.sent[sk] {
			continue
		}
		c.sent[sk] = true
		req := journal.Request{Command: journal.CmdFFOutSynapses, Step: step, Path: e.Path, ID: e.ID, Token: c.token}
		if kind == KindInSynapses {
			req.Command = journal.CmdFFInSynapses
			if c.opts.FFSynapses.To == config.SynapsesSelected {
				req.OnlyIDs = []int{e.ID}
			}
		}
		req.Reply = c.deliver(kind, c.live, e.Key(), step)
		c.conn.Send(req)
	}

	if target, ok := c.sel.CellTarget(); ok && c.opts.Distal.Enabled {
		if step, ok := c.stepOf(target.ModelID); ok {
			sk := sentKey{kind: KindCells, key: target.Key()}
			req := journal.Request{Command: journal.CmdCellSegments, Step: step, Path: target.Path, ID: target.ID, Token: c.token}
			if target.Segment != nil {
				sk.seg = *target.Segment
				req.Segment = &journal.SegmentRef{Cell: target.Segment.Cell, Segment: target.Segment.Segment}
			}
			if !c.sent[sk] {
				c.sent[sk] = true
				res := Result{Kind: KindCells, Generation: c.live, Key: target.Key(), Step: step}
				if target.Segment != nil {
					seg := *target.Segment
					res.Segment = &seg
				}
				req.Reply = func(r journal.Reply) {
					out := res
					out.Reply = r
					c.post(out)
				}
				c.conn.Send(req)
			}
		}
	}

	for _, id := range c.hist {
		sk := sentKey{kind: KindStep, step: id}
		if c.sent[sk] {
			continue
		}
		c.sent[sk] = true
		c.conn.Send(journal.Request{
			Command: journal.CmdInbitsCols,
			Step:    id,
			Token:   c.token,
			Reply:   c.deliver(KindStep, c.live, selection.Key{}, id),
		})
	}
}
