package stardiff

import (
	"fmt"

	"stardiff/pkg/emath"
)

// Normalize linearly rescales a tile's intensities so the minimum
// becomes 0 and the maximum 255, the 8-bit working range the detector
// expects. A constant tile can't be rescaled (and holds no stars), so
// it reports ErrDegenerateTile rather than dividing by zero.
func Normalize(tile *emath.FloatGrid) (*emath.FloatGrid, error) {
	min, max := tile.MinMax()
	if max == min {
		return nil, fmt.Errorf("normalize %s: %w", tile.Stats(), ErrDegenerateTile)
	}

	out := tile.NewFromThis()
	for x := 0; x < tile.Dx(); x++ {
		for y := 0; y < tile.Dy(); y++ {
			// The ratio is exactly 1.0 at the maximum, so the top of the
			// range really does land on 255.
			v := (tile.Get(x, y) - min) / (max - min) * 255.0
			out.Set(x, y, float64(uint8(v)))
		}
	}
	return &out, nil
}

// Invert complements intensities, flipping the dark-background /
// bright-star convention to what the detector wants. Assumes a
// normalized (0..255) tile.
func Invert(tile *emath.FloatGrid) *emath.FloatGrid {
	out := tile.NewFromThis()
	for x := 0; x < tile.Dx(); x++ {
		for y := 0; y < tile.Dy(); y++ {
			out.Set(x, y, 255.0-tile.Get(x, y))
		}
	}
	return &out
}
