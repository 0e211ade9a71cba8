package draw

import (
	"image/color"

	"github.com/san-kum/htmviz/internal/config"
	"github.com/san-kum/htmviz/internal/htm"
)

// Palette holds every colour a frame uses.
type Palette struct {
	Background  color.Color
	Element     color.Color
	Text        color.Color
	Active      color.Color
	Predicted   color.Color
	Heat        map[config.Overlay]color.Color
	Pooling     color.Color
	Break       color.Color
	Facet       color.Color
	Highlight   color.Color
	TimeColumn  color.Color
	Timeline    color.Color
	Synapse     map[htm.SynapseState]color.Color
	Cell        color.Color
	Segment     color.Color
	SegmentLive color.Color
}

func DefaultPalette() Palette {
	return Palette{
		Background: color.White,
		Element:    color.RGBA{R: 232, G: 232, B: 232, A: 255},
		Text:       color.RGBA{R: 40, G: 40, B: 40, A: 255},
		Active:     color.RGBA{R: 214, G: 39, B: 40, A: 255},
		Predicted:  color.RGBA{R: 106, G: 61, B: 154, A: 255},
		Heat: map[config.Overlay]color.Color{
			config.OverlayOverlap:      color.RGBA{R: 31, G: 119, B: 180, A: 255},
			config.OverlayBoost:        color.RGBA{R: 44, G: 160, B: 44, A: 255},
			config.OverlayFrequency:    color.RGBA{R: 255, G: 127, B: 14, A: 255},
			config.OverlaySegmentCount: color.RGBA{R: 140, G: 86, B: 75, A: 255},
		},
		Pooling:    color.RGBA{R: 23, G: 190, B: 207, A: 255},
		Break:      color.RGBA{R: 0, G: 0, B: 0, A: 255},
		Facet:      color.RGBA{R: 127, G: 127, B: 127, A: 255},
		Highlight:  color.RGBA{R: 0, G: 0, B: 0, A: 255},
		TimeColumn: color.RGBA{R: 255, G: 215, B: 0, A: 110},
		Timeline:   color.RGBA{R: 200, G: 200, B: 200, A: 255},
		Synapse: map[htm.SynapseState]color.Color{
			htm.SynapseActive:       color.RGBA{R: 214, G: 39, B: 40, A: 255},
			htm.SynapseInactive:     color.RGBA{R: 120, G: 120, B: 120, A: 255},
			htm.SynapseDisconnected: color.RGBA{R: 70, G: 130, B: 180, A: 255},
			htm.SynapseGrowing:      color.RGBA{R: 44, G: 160, B: 44, A: 255},
		},
		Cell:        color.RGBA{R: 90, G: 90, B: 90, A: 255},
		Segment:     color.RGBA{R: 150, G: 150, B: 150, A: 255},
		SegmentLive: color.RGBA{R: 214, G: 39, B: 40, A: 255},
	}
}
