package journal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/htmviz/internal/htm"
)

// ModelFile describes a synthetic model: its shape and how its sequence is
// generated.
type ModelFile struct {
	Template  htm.Template    `yaml:"template"`
	Synthetic SyntheticConfig `yaml:"synthetic"`
}

// DefaultModel is one input feeding two stacked layers.
func DefaultModel() ModelFile {
	return ModelFile{
		Template: htm.Template{
			Inputs: []htm.InputSpec{{ID: "sensor", Topology: htm.Line(64)}},
			Layers: []htm.LayerSpec{
				{Region: "R1", Layer: "L4", Topology: htm.Line(128), CellsPerColumn: 8, ActivationThreshold: 3, LearningThreshold: 2},
				{Region: "R2", Layer: "L23", Topology: htm.Grid(8, 8), CellsPerColumn: 4, ActivationThreshold: 3, LearningThreshold: 2},
			},
		},
		Synthetic: DefaultSyntheticConfig(),
	}
}

// LoadModel reads a model file. Synthetic fields left out keep their
// defaults.
func LoadModel(path string) (ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelFile{}, fmt.Errorf("read model: %w", err)
	}
	m := ModelFile{Synthetic: DefaultSyntheticConfig()}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return ModelFile{}, fmt.Errorf("parse model: %w", err)
	}
	if len(m.Template.Inputs) == 0 && len(m.Template.Layers) == 0 {
		return ModelFile{}, fmt.Errorf("model %s: template has no inputs or layers", path)
	}
	return m, nil
}
