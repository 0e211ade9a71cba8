package htm

import (
	"fmt"
	"slices"
)

// Topology is the shape of an input or layer. One dimension lays elements
// out in a line, two in a grid.
type Topology struct {
	Dims []int `json:"dims" yaml:"dims"`
}

func Line(n int) Topology    { return Topology{Dims: []int{n}} }
func Grid(w, h int) Topology { return Topology{Dims: []int{w, h}} }

func (t Topology) Equal(o Topology) bool { return slices.Equal(t.Dims, o.Dims) }

func (t Topology) Size() int {
	if len(t.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

type InputSpec struct {
	ID       string   `json:"id" yaml:"id"`
	Topology Topology `json:"topology" yaml:"topology"`
}

type LayerSpec struct {
	Region              string   `json:"region" yaml:"region"`
	Layer               string   `json:"layer" yaml:"layer"`
	Topology            Topology `json:"topology" yaml:"topology"`
	CellsPerColumn      int      `json:"cells_per_column" yaml:"cells_per_column"`
	ActivationThreshold int      `json:"activation_threshold" yaml:"activation_threshold"`
	LearningThreshold   int      `json:"learning_threshold" yaml:"learning_threshold"`
}

func (l LayerSpec) Path() Path { return LayerPath(l.Region, l.Layer) }

// Template is the static shape of a model, taken from any of its steps.
type Template struct {
	Inputs []InputSpec `json:"inputs" yaml:"inputs"`
	Layers []LayerSpec `json:"layers" yaml:"layers"`
}

func (t Template) Equal(o Template) bool {
	return slices.EqualFunc(t.Inputs, o.Inputs, func(a, b InputSpec) bool {
		return a.ID == b.ID && a.Topology.Equal(b.Topology)
	}) && slices.EqualFunc(t.Layers, o.Layers, func(a, b LayerSpec) bool {
		return a.Region == b.Region && a.Layer == b.Layer && a.Topology.Equal(b.Topology) &&
			a.CellsPerColumn == b.CellsPerColumn &&
			a.ActivationThreshold == b.ActivationThreshold &&
			a.LearningThreshold == b.LearningThreshold
	})
}

// Paths lists inputs first, then layers, each in template order.
func (t Template) Paths() []Path {
	paths := make([]Path, 0, len(t.Inputs)+len(t.Layers))
	for _, in := range t.Inputs {
		paths = append(paths, InputPath(in.ID))
	}
	for _, l := range t.Layers {
		paths = append(paths, l.Path())
	}
	return paths
}

func (t Template) Topology(p Path) (Topology, bool) {
	switch p.Kind {
	case KindInput:
		for _, in := range t.Inputs {
			if in.ID == p.Input {
				return in.Topology, true
			}
		}
	case KindLayer:
		for _, l := range t.Layers {
			if l.Region == p.Region && l.Layer == p.Layer {
				return l.Topology, true
			}
		}
	}
	return Topology{}, false
}

func (t Template) Layer(p Path) (LayerSpec, bool) {
	for _, l := range t.Layers {
		if l.Path() == p {
			return l, true
		}
	}
	return LayerSpec{}, false
}

// StepID is the immutable identity of one timestep. ModelID names the model
// snapshot the journal keeps for that step.
type StepID struct {
	ModelID  string `json:"model_id"`
	Timestep int    `json:"timestep"`
}

func (id StepID) String() string { return fmt.Sprintf("%s@%d", id.ModelID, id.Timestep) }

type Step struct {
	StepID
	Template Template `json:"-"`
}

// PathState is what one input or layer did at one step.
type PathState struct {
	Active          IDSet
	Predicted       IDSet
	TemporalPooling IDSet
	Overlaps        map[int]float64
	Boosts          map[int]float64
	Frequencies     map[int]float64
	SegmentCounts   map[int]int
}

// Payload is the lazily fetched per-step data.
type Payload struct {
	Step  StepID
	Paths map[Path]*PathState
	Break bool
}

func (p *Payload) State(path Path) *PathState {
	if p == nil {
		return nil
	}
	return p.Paths[path]
}

type SynapseState int

const (
	SynapseInactive SynapseState = iota
	SynapseActive
	SynapseDisconnected
	SynapseGrowing
)

func (s SynapseState) String() string {
	switch s {
	case SynapseActive:
		return "active"
	case SynapseDisconnected:
		return "disconnected"
	case SynapseGrowing:
		return "growing"
	default:
		return "inactive"
	}
}

// Synapse connects a source element to a destination element. Permanence is
// meaningful only when HasPermanence is set.
type Synapse struct {
	SrcPath       Path
	SrcID         int
	DstPath       Path
	DstID         int
	State         SynapseState
	Permanence    float64
	HasPermanence bool
}

type SegmentInfo struct {
	ConnectedTotal     int
	DisconnectedTotal  int
	ActiveConnected    int
	ActiveDisconnected int
}

type CellInfo struct {
	Index    int
	Segments []SegmentInfo
}

// CellSegments describes the distal segments of one column's cells.
type CellSegments struct {
	Path                Path
	Column              int
	ActivationThreshold int
	LearningThreshold   int
	Cells               []CellInfo
}

// SegmentCounts returns the number of segments per cell in cell order.
func (c *CellSegments) SegmentCounts() []int {
	if c == nil {
		return nil
	}
	counts := make([]int, len(c.Cells))
	for i, cell := range c.Cells {
		counts[i] = len(cell.Segments)
	}
	return counts
}
