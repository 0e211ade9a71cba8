package drawcache

import "github.com/san-kum/htmviz/internal/htm"

// Group names a set of options whose change invalidates cached images.
type Group string

const (
	GroupInput   Group = "input"
	GroupColumns Group = "columns"
	GroupDrawing Group = "drawing"
)

// GroupFor returns the data group a path's images depend on.
func GroupFor(p htm.Path) Group {
	if p.IsInput() {
		return GroupInput
	}
	return GroupColumns
}

// Versions holds a monotonically increasing counter per group. It is a
// value: Bump and Invalidate return a new Versions and leave the receiver
// untouched.
type Versions map[Group]uint64

func (v Versions) Get(g Group) uint64 { return v[g] }

func (v Versions) Bump(groups ...Group) Versions {
	out := make(Versions, len(v)+len(groups))
	for g, n := range v {
		out[g] = n
	}
	for _, g := range groups {
		out[g]++
	}
	return out
}

// Invalidate bumps the group of every affected path once. Invalidation is
// per group, not per path: touching one input invalidates all inputs.
func (v Versions) Invalidate(paths []htm.Path) Versions {
	seen := make(map[Group]bool)
	var groups []Group
	for _, p := range paths {
		g := GroupFor(p)
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return v
	}
	return v.Bump(groups...)
}
