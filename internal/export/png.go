// Package export writes frames to files: PNG stills, GIF animations and
// SVG renderings of terminal frames.
package export

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}
