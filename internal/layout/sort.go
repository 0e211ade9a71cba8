package layout

import (
	"sort"

	"github.com/san-kum/htmviz/internal/htm"
)

// facetBlock returns the ids held by facets, in facet order, and the facets
// re-based so they occupy the leading positions.
func facetBlock(facets []Facet) ([]int, []Facet) {
	var block []int
	rebased := make([]Facet, 0, len(facets))
	for _, f := range facets {
		rebased = append(rebased, Facet{Timestep: f.Timestep, IDs: f.IDs, Start: len(block)})
		block = append(block, f.IDs...)
	}
	if len(rebased) == 0 {
		rebased = nil
	}
	return block, rebased
}

func inBlock(block []int, n int) []bool {
	in := make([]bool, n)
	for _, id := range block {
		in[id] = true
	}
	return in
}

// SortByRecentActivity ranks ids by how recently they were active across
// the window (window[0] is the most recent step), then by how often, then by
// id. Facet ids keep their leading block.
func SortByRecentActivity(l *Layout, window []htm.IDSet) *Layout {
	n := l.Size()
	if n == 0 {
		return l
	}
	block, facets := facetBlock(l.Facets)
	held := inBlock(block, n)

	first := make([]int, n)
	count := make([]int, n)
	for id := range first {
		first[id] = len(window)
	}
	for i := len(window) - 1; i >= 0; i-- {
		for id := range window[i] {
			if id < 0 || id >= n {
				continue
			}
			first[id] = i
			count[id]++
		}
	}

	rest := make([]int, 0, n-len(block))
	for id := 0; id < n; id++ {
		if !held[id] {
			rest = append(rest, id)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if first[a] != first[b] {
			return first[a] < first[b]
		}
		if count[a] != count[b] {
			return count[a] > count[b]
		}
		return a < b
	})
	return l.reorder(append(append([]int(nil), block...), rest...), facets)
}

// ClearSort restores natural id order below the facet block.
func ClearSort(l *Layout) *Layout {
	n := l.Size()
	if n == 0 {
		return l
	}
	block, facets := facetBlock(l.Facets)
	held := inBlock(block, n)
	order := append([]int(nil), block...)
	for id := 0; id < n; id++ {
		if !held[id] {
			order = append(order, id)
		}
	}
	return l.reorder(order, facets)
}

// AddFacet saves the currently active ids that no facet holds yet as a new
// facet and moves them directly below the existing facet block.
func AddFacet(l *Layout, active htm.IDSet, timestep int) *Layout {
	n := l.Size()
	if n == 0 {
		return l
	}
	block, facets := facetBlock(l.Facets)
	held := inBlock(block, n)

	var ids []int
	for _, id := range l.Order {
		if active.Has(id) && !held[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return l
	}
	fresh := inBlock(ids, n)
	facets = append(facets, Facet{Timestep: timestep, IDs: ids, Start: len(block)})

	order := make([]int, 0, n)
	order = append(order, block...)
	order = append(order, ids...)
	for _, id := range l.Order {
		if !held[id] && !fresh[id] {
			order = append(order, id)
		}
	}
	return l.reorder(order, facets)
}

// ClearFacets forgets all facets and leaves the ordering as it is.
func ClearFacets(l *Layout) *Layout {
	if len(l.Facets) == 0 {
		return l
	}
	c := l.clone()
	c.Facets = nil
	return c
}
