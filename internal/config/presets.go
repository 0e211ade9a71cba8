package config

import "sort"

// Presets adjust the default options. Each entry is applied on top of
// DefaultOptions.
var Presets = map[string]func(*Options){
	"compact": func(o *Options) {
		o.Drawing.BitSize, o.Drawing.ColSize = 3, 3
		o.Drawing.Gap = 12
		o.Drawing.DrawWindow = 16
	},
	"spatial": func(o *Options) {
		o.Drawing.Mode = ModeSpatial
		o.Drawing.BitSize, o.Drawing.ColSize = 8, 8
	},
	"wide": func(o *Options) {
		o.Drawing.DrawWindow = 64
		o.KeepSteps = 100
	},
	"heat": func(o *Options) {
		o.Columns.Overlaps = true
		o.Columns.Boosts = true
		o.Columns.Frequencies = true
		o.Columns.SegmentCounts = true
	},
	"all-synapses": func(o *Options) {
		o.FFSynapses.To = SynapsesAll
		o.FFSynapses.Inactive = true
	},
}

func GetPreset(name string) *Options {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	opts := DefaultOptions()
	apply(opts)
	return opts
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
