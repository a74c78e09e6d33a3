package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of pixel intensities, with some operations.
// It is the working representation for a tile while it is being
// normalized, inverted, detected-on, transformed and diffed.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Dy() int                 { return len(fg.values) / fg.stride }

// NewFloatGridFromImage flattens an image into grayscale intensities
// in the range [0, 0xFFFF].
func NewFloatGridFromImage(img image.Image) FloatGrid {
	b := img.Bounds()
	fg := NewFloatGrid(b.Dx(), b.Dy())
	for x:=0; x<b.Dx(); x++ {
		for y:=0; y<b.Dy(); y++ {
			fg.Set(x, y, float64(ColToGrayU16(img.At(b.Min.X+x, b.Min.Y+y))))
		}
	}
	return fg
}

// ColToGrayU16 maps a color into a gray value in the range [0, 0xFFFF]. If we had more
// of a handle on the color, maybe we'd map it to XYZ and pick out the luminance; but
// this works just fine.
func ColToGrayU16(c color.Color) uint16 {
	r, g, b, _ := c.RGBA() // channel values in range [0, 0xFFFF]
	gray := float64(r) * 0.2989 + float64(g) * 0.5870 + float64(b) * 0.1140
	if gray > 0xFFFF { gray = 0xFFFF }

	return uint16(gray)
}

func (fg *FloatGrid)MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min

	for i:=0; i<len(fg.values); i++ {
		if fg.values[i] > max { max = fg.values[i] }
		if fg.values[i] < min { min = fg.values[i] }
	}
	return min, max
}

// Histogram256 buckets the values into 256 bins. Values are assumed
// to already be in [0, 255]; anything outside is clamped.
func (fg *FloatGrid)Histogram256() [256]int {
	hist := [256]int{}
	for i:=0; i<len(fg.values); i++ {
		v := int(fg.values[i])
		if v < 0   { v = 0 }
		if v > 255 { v = 255 }
		hist[v]++
	}
	return hist
}

// ToGray8 renders the grid as an 8-bit grayscale image, clamping
// values to [0, 255].
func (fg *FloatGrid)ToGray8() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, fg.Dx(), fg.Dy()))
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			v := fg.Get(x, y)
			if v < 0   { v = 0 }
			if v > 255 { v = 255 }
			img.SetGray(x, y, color.Gray{uint8(v)})
		}
	}
	return img
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves the grid as a titled grayscale PNG, range-scaled and
// gamma expanded so the values read naturally to a human eye. This is
// for poking at intermediate grids, not a pipeline artifact.
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.MinMax()
	if max <= min { max = min + 1 }

	img := image.NewRGBA64(image.Rect(0, 0, fg.Dx(), fg.Dy()))
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			gray := GammaExpand_F64((fg.Get(x,y) - min) / (max - min))
			v := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{v, v, v, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 20, 30)
	return dc.SavePNG(filename)
}
