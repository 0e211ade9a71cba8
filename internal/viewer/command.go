package viewer

import (
	"fmt"
	"strings"
)

// Op is a UI command.
type Op int

const (
	OpSort Op = iota
	OpClearSort
	OpAddFacet
	OpClearFacets
	OpStepBackward
	OpStepForward
	OpBitUp
	OpBitDown
	OpScrollUp
	OpScrollDown
	OpToggleRun
)

var opNames = [...]string{
	"sort", "clear-sort", "add-facet", "clear-facets",
	"step-backward", "step-forward", "bit-up", "bit-down",
	"scroll-up", "scroll-down", "toggle-run",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

func ParseOp(s string) (Op, error) {
	for i, name := range opNames {
		if strings.EqualFold(s, name) {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

// PerLayout reports whether the command acts on layouts, and so honours
// ApplyToAll.
func (o Op) PerLayout() bool {
	switch o {
	case OpSort, OpClearSort, OpAddFacet, OpClearFacets, OpScrollUp, OpScrollDown:
		return true
	}
	return false
}

// Command is a UI command. Layout commands act on the layouts of the
// selection, or on every layout when ApplyToAll is set or nothing is
// selected.
type Command struct {
	Op         Op
	ApplyToAll bool
}

func (c Command) String() string {
	if c.ApplyToAll && c.Op.PerLayout() {
		return c.Op.String() + " (all)"
	}
	return c.Op.String()
}

// keyOps maps key names, as the terminal reports them, to commands.
var keyOps = map[string]Op{
	"left":   OpStepBackward,
	"right":  OpStepForward,
	"up":     OpBitUp,
	"down":   OpBitDown,
	"pgup":   OpScrollUp,
	"pgdown": OpScrollDown,
	" ":      OpToggleRun,
	"space":  OpToggleRun,
}

// KeyCommand returns the command bound to a key.
func KeyCommand(key string) (Command, bool) {
	op, ok := keyOps[key]
	if !ok {
		return Command{}, false
	}
	return Command{Op: op}, true
}
