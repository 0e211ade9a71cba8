package drawcache

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/htm"
)

// Key identifies one cached image within a layout.
type Key struct {
	Step    htm.StepID
	Channel string
	// Order and Scroll pin the image to the layout's visible window.
	Order  uint64
	Scroll int
	// Payload pins the image to the data it was drawn from. Payloads are
	// replaced, never mutated, when refetched.
	Payload *htm.Payload
}

type Entry struct {
	Image    image.Image
	versions map[Group]uint64
}

type table struct {
	generation uint64
	entries    map[Key]*Entry
}

// Cache memoizes rendered images per layout path. It is owned by a single
// drawing goroutine and is not safe for concurrent use.
type Cache struct {
	tables map[htm.Path]*table
	hits   int
	misses int
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Cache {
	return &Cache{
		tables: make(map[htm.Path]*table),
		log:    log.With().Str("component", "drawcache").Logger(),
	}
}

// WithCache returns the stored image for key when every group in groups has
// the same version it had when the image was stored, and the layout
// generation is unchanged. Otherwise it calls compute once, stores the
// result against the current versions, and returns it. A nil result means
// there is nothing to draw and is cached like any other.
func (c *Cache) WithCache(path htm.Path, generation uint64, key Key, v Versions, groups []Group, compute func() image.Image) image.Image {
	t := c.tables[path]
	if t == nil || t.generation != generation {
		if t != nil {
			c.log.Debug().Str("path", path.String()).Int("entries", len(t.entries)).Msg("layout replaced, discarding images")
		}
		t = &table{generation: generation, entries: make(map[Key]*Entry)}
		c.tables[path] = t
	}
	if e, ok := t.entries[key]; ok && current(e, v, groups) {
		c.hits++
		return e.Image
	}
	c.misses++
	img := compute()
	e := &Entry{Image: img, versions: make(map[Group]uint64, len(groups))}
	for _, g := range groups {
		e.versions[g] = v.Get(g)
	}
	t.entries[key] = e
	return img
}

func current(e *Entry, v Versions, groups []Group) bool {
	for _, g := range groups {
		stored, ok := e.versions[g]
		if !ok || stored != v.Get(g) {
			return false
		}
	}
	return true
}

// Discard drops every image of a path.
func (c *Cache) Discard(path htm.Path) {
	delete(c.tables, path)
}

// Window is the ordering and scroll a layout is currently drawn with.
type Window struct {
	Order  uint64
	Scroll int
}

// Prune drops tables of paths that no longer exist, images drawn for an
// ordering or scroll the layout has since left, and images of steps that
// left the retention window or whose payload was replaced. steps maps each
// retained step to its current payload, nil when not fetched yet.
func (c *Cache) Prune(windows map[htm.Path]Window, steps map[htm.StepID]*htm.Payload) {
	for p, t := range c.tables {
		w, ok := windows[p]
		if !ok {
			delete(c.tables, p)
			continue
		}
		for k := range t.entries {
			if k.Order != w.Order || k.Scroll != w.Scroll {
				delete(t.entries, k)
				continue
			}
			if k.Step == (htm.StepID{}) {
				continue
			}
			if pl, ok := steps[k.Step]; !ok || (k.Payload != nil && k.Payload != pl) {
				delete(t.entries, k)
			}
		}
	}
}

func (c *Cache) Len() int {
	n := 0
	for _, t := range c.tables {
		n += len(t.entries)
	}
	return n
}

// Stats reports hits and misses since the last call and resets them.
func (c *Cache) Stats() (hits, misses int) {
	hits, misses = c.hits, c.misses
	c.hits, c.misses = 0, 0
	return hits, misses
}
