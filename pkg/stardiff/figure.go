package stardiff

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"stardiff/pkg/emath"
)

// The figures are 2x2 panel composites, the Go rendition of the
// original survey's review plots. Tiles get scaled down to panel size;
// these are for eyeballing, not measurement.
const(
	figPanelSize = 512
	figMargin    = 24
	figTitleRoom = 20
)

type figPanel struct {
	title string
	img   image.Image
}

func renderPanels(panels [4]figPanel) image.Image {
	w := 2*figPanelSize + 3*figMargin
	h := 2*(figPanelSize+figTitleRoom) + 3*figMargin

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, p := range panels {
		col, row := i%2, i/2
		x := figMargin + col*(figPanelSize+figMargin)
		y := figMargin + row*(figPanelSize+figTitleRoom+figMargin)

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(p.title, float64(x+figPanelSize/2), float64(y+figTitleRoom/2), 0.5, 0.5)

		if p.img == nil {
			continue
		}
		scaled := image.NewRGBA(image.Rect(0, 0, figPanelSize, figPanelSize))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), p.img, p.img.Bounds(), draw.Src, nil)
		dc.DrawImage(scaled, x, y+figTitleRoom)
	}
	return dc.Image()
}

// RenderTransformFigure composes the two detection overlays, the
// transformed past tile and the transform's footprint.
func RenderTransformFigure(pastOverlay, recentOverlay image.Image, transformed *emath.FloatGrid, fp Footprint) image.Image {
	return renderPanels([4]figPanel{
		{"Past Image", pastOverlay},
		{"Recent Image", recentOverlay},
		{"Past Image aligned with Recent Image", transformed.ToGray8()},
		{"Footprint of the Transformation", fp.ToGray8()},
	})
}

// RenderDiffFigure composes the two preprocessed tiles, the
// transformed past tile and the colored difference map.
func RenderDiffFigure(normPast, normRecent, transformed, diff *emath.FloatGrid, fp Footprint) image.Image {
	return renderPanels([4]figPanel{
		{"Inverted and Normalized Past Image", normPast.ToGray8()},
		{"Inverted and Normalized Recent Image", normRecent.ToGray8()},
		{"Transformed Past Image", transformed.ToGray8()},
		{"Difference Map (Transformed Past - Recent)", RenderDiffMap(diff, fp)},
	})
}
