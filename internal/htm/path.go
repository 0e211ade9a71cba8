package htm

import (
	"fmt"
	"strings"
)

type PathKind int

const (
	KindNone PathKind = iota
	KindInput
	KindLayer
)

func (k PathKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLayer:
		return "layer"
	default:
		return "none"
	}
}

// Path identifies an input or a (region, layer) pair. The zero value names
// nothing.
type Path struct {
	Kind   PathKind
	Input  string
	Region string
	Layer  string
}

func InputPath(id string) Path {
	return Path{Kind: KindInput, Input: id}
}

func LayerPath(region, layer string) Path {
	return Path{Kind: KindLayer, Region: region, Layer: layer}
}

func (p Path) IsZero() bool  { return p.Kind == KindNone }
func (p Path) IsInput() bool { return p.Kind == KindInput }
func (p Path) IsLayer() bool { return p.Kind == KindLayer }

func (p Path) String() string {
	switch p.Kind {
	case KindInput:
		return "inputs/" + p.Input
	case KindLayer:
		return "regions/" + p.Region + "/" + p.Layer
	default:
		return ""
	}
}

// ParsePath is the inverse of Path.String.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 2 && parts[0] == "inputs" && parts[1] != "":
		return InputPath(parts[1]), nil
	case len(parts) == 3 && parts[0] == "regions" && parts[1] != "" && parts[2] != "":
		return LayerPath(parts[1], parts[2]), nil
	}
	return Path{}, fmt.Errorf("parse path %q: %w", s, ErrUnknownPath)
}
