package config

import "github.com/san-kum/htmviz/internal/htm"

// Overlay is one independently toggleable drawing channel.
type Overlay int

const (
	OverlayActive Overlay = iota
	OverlayPredicted
	OverlayOverlap
	OverlayBoost
	OverlayFrequency
	OverlaySegmentCount
	OverlayTemporalPooling
)

var overlayNames = [...]string{"active", "predicted", "overlap", "boost", "frequency", "segment-count", "temporal-pooling"}

func (o Overlay) String() string {
	if int(o) < len(overlayNames) {
		return overlayNames[o]
	}
	return "unknown"
}

// Overlays lists every channel in drawing order.
func Overlays() []Overlay {
	return []Overlay{
		OverlayOverlap, OverlayBoost, OverlayFrequency, OverlaySegmentCount,
		OverlayActive, OverlayPredicted, OverlayTemporalPooling,
	}
}

// Enabled reports whether an overlay is switched on for a path kind. Inputs
// only carry active and predicted bits.
func (o Options) Enabled(kind htm.PathKind, ov Overlay) bool {
	if kind == htm.KindInput {
		switch ov {
		case OverlayActive:
			return o.Inbits.Active
		case OverlayPredicted:
			return o.Inbits.Predicted
		}
		return false
	}
	switch ov {
	case OverlayActive:
		return o.Columns.Active
	case OverlayPredicted:
		return o.Columns.Predicted
	case OverlayOverlap:
		return o.Columns.Overlaps
	case OverlayBoost:
		return o.Columns.Boosts
	case OverlayFrequency:
		return o.Columns.Frequencies
	case OverlaySegmentCount:
		return o.Columns.SegmentCounts
	case OverlayTemporalPooling:
		return o.Columns.TemporalPooling
	}
	return false
}
