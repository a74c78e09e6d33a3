package stardiff

import (
	"image"
	"strconv"

	"github.com/fogleman/gg"

	"stardiff/pkg/emath"
)

const overlayMarkerRadius = 10.0

// RenderOverlay draws the retained stars onto the tile: a filled
// marker at each centroid with its 1-based rank label underneath.
// Rank 1 is the brightest. Purely a presentation artifact; nothing
// downstream consumes it.
func RenderOverlay(tile *emath.FloatGrid, stars StarSet) image.Image {
	dc := gg.NewContextForImage(tile.ToGray8())
	for i, s := range stars {
		dc.SetRGB(1, 0, 0)
		dc.DrawCircle(s.X, s.Y, overlayMarkerRadius)
		dc.Fill()

		dc.SetRGB(0, 1, 0)
		dc.DrawStringAnchored(strconv.Itoa(i+1), s.X, s.Y+overlayMarkerRadius+3, 0.5, 1.0)
	}
	return dc.Image()
}
