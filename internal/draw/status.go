package draw

import (
	"fmt"
	"math"

	"github.com/san-kum/htmviz/internal/layout"
)

// ScrollStatus describes a layout's visible window, for example
// "20 of 40 cols @ 50%" when scrolled.
func ScrollStatus(l *layout.Layout) string {
	unit := "cols"
	if l.Path.IsInput() {
		unit = "bits"
	}
	from, to := l.VisibleRange()
	s := fmt.Sprintf("%d of %d %s", to-from, l.Size(), unit)
	if l.Scroll > 0 && l.Size() > 0 {
		s += fmt.Sprintf(" @ %d%%", int(math.Round(100*float64(from)/float64(l.Size()))))
	}
	return s
}
