// Package htm defines the data the viewer shows about a hierarchical
// sequence-learning model.
//
// The package holds plain value types shared by every other package:
//
//   - [Path]: addresses an input or a (region, layer) pair
//   - [Template]: the static shape of a model (inputs, layers, topologies)
//   - [Step]: one timestep's identity
//   - [Payload]: the per-step bits and columns fetched from the journal
//   - [Synapse], [CellSegments]: detail fetched for a selection
//
// Nothing here talks to the journal or draws; the types are immutable once
// published and safe to share between goroutines.
package htm
