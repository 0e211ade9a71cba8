// Package layout positions element ids in space and time.
//
// Each input and each (region, layer) gets a [Layout]: pixel geometry plus
// the user's view state for it (ordering permutation, facets, scroll offset,
// time offset). Layouts are values: every operation returns a new *Layout and
// never mutates its argument, so a published layout may be read from any
// goroutine.
//
// Two display modes exist. In axis mode ids run down the y axis in ordering
// order and time runs along x, dt 0 in the leftmost column. In spatial mode
// ids fill a grid and a layout shows a single timestep.
package layout
