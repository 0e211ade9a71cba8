// Package journal defines the protocol between the viewer and the journal
// that computes and serves model data, and an in-process journal backed by
// a Source.
//
// Requests are fire and forget: Send never blocks, and the answer, if any,
// arrives later through the request's Reply callback on a goroutine owned
// by the journal.
package journal

import (
	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
)

type Command string

const (
	CmdFFInSynapses       Command = "get-ff-in-synapses"
	CmdFFOutSynapses      Command = "get-ff-out-synapses"
	CmdCellSegments       Command = "get-cell-segments"
	CmdInbitsCols         Command = "get-inbits-cols"
	CmdRegisterViewport   Command = "register-viewport"
	CmdUnregisterViewport Command = "unregister-viewport"
)

// Token is the opaque handle of a registered viewport.
type Token string

// Viewport is what the viewer is currently able to show: the options the
// journal needs and the visible ids of every path.
type Viewport struct {
	Options config.Journal
	Visible map[htm.Path]htm.IDSet
}

// SegmentRef names one distal segment of one cell.
type SegmentRef struct {
	Cell    int
	Segment int
}

type Request struct {
	Command Command
	// Step names the model snapshot the request is about.
	Step htm.StepID
	Path htm.Path
	// ID is the bit or column for out-synapse and cell-segment requests.
	ID int
	// OnlyIDs restricts in-synapse requests to these destinations. Nil
	// requests every visible destination.
	OnlyIDs  []int
	Segment  *SegmentRef
	Token    Token
	Viewport *Viewport
	Reply    func(Reply)
}

type Reply struct {
	Command  Command
	Token    Token
	Synapses []htm.Synapse
	Cells    *htm.CellSegments
	Payload  *htm.Payload
	Err      error
}

// Conn reaches a journal.
type Conn interface {
	// Send queues a request and returns immediately.
	Send(Request)
}
