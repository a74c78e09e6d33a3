package stardiff

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"stardiff/pkg/emath"
)

// A Footprint marks which pixels of a transformed tile derive from
// in-bounds source data. Everything else is extrapolation fill and
// must be excluded from downstream statistics.
type Footprint struct {
	W, H int
	v    []bool
}

func NewFootprint(w, h int) Footprint {
	return Footprint{W: w, H: h, v: make([]bool, w*h)}
}

func (fp Footprint)Valid(x, y int) bool  { return fp.v[y*fp.W+x] }
func (fp Footprint)set(x, y int, b bool) { fp.v[y*fp.W+x] = b }

// ValidCount is how many output pixels map back to genuine source data.
func (fp Footprint)ValidCount() int {
	n := 0
	for _, b := range fp.v {
		if b {
			n++
		}
	}
	return n
}

// ToGray8 renders the footprint as a black/white mask for figures.
func (fp Footprint)ToGray8() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, fp.W, fp.H))
	for y := 0; y < fp.H; y++ {
		for x := 0; x < fp.W; x++ {
			if fp.Valid(x, y) {
				img.Pix[y*img.Stride+x] = 0xFF
			}
		}
	}
	return img
}

// ApplyTransform resamples the source tile through the affine map
// into the reference frame, giving a transformed raster of refW x refH
// plus the footprint of pixels that map back inside the source. The
// resampling is Catmull-Rom; fill outside the footprint is 0.
func ApplyTransform(m emath.Aff3, src *emath.FloatGrid, refW, refH int) (*emath.FloatGrid, Footprint, error) {
	inv, ok := m.Invert()
	if !ok {
		return nil, Footprint{}, fmt.Errorf("apply transform %s: %w", m, ErrSingularTransform)
	}

	srcImg := src.ToGray8()
	dstImg := image.NewGray(image.Rect(0, 0, refW, refH))
	draw.CatmullRom.Transform(dstImg, f64.Aff3(m), srcImg, srcImg.Bounds(), draw.Src, nil)

	out := emath.NewFloatGrid(refW, refH)
	fp := NewFootprint(refW, refH)
	// The epsilon stops float noise from flickering edge pixels out of
	// the footprint when the transform is a near-identity.
	const eps = 1e-9
	maxX, maxY := float64(src.Dx()-1), float64(src.Dy()-1)
	for y := 0; y < refH; y++ {
		for x := 0; x < refW; x++ {
			sx, sy := inv.Apply(float64(x), float64(y))
			if sx >= -eps && sy >= -eps && sx <= maxX+eps && sy <= maxY+eps {
				fp.set(x, y, true)
				out.Set(x, y, float64(dstImg.GrayAt(x, y).Y))
			}
		}
	}
	return &out, fp, nil
}
