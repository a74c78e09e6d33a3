package stardiff

import (
	"fmt"
	"image"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/lucasb-eyer/go-colorful"

	"stardiff/pkg/emath"
)

// DiffMap is the elementwise absolute difference between the
// transformed past tile and its recent counterpart. It is only
// meaningful where the footprint is valid; outside, the value is 0
// and excluded from statistics.
func DiffMap(transformedPast, recent *emath.FloatGrid, fp Footprint) *emath.FloatGrid {
	out := emath.NewFloatGrid(recent.Dx(), recent.Dy())
	for x := 0; x < recent.Dx(); x++ {
		for y := 0; y < recent.Dy(); y++ {
			if fp.Valid(x, y) {
				out.Set(x, y, math.Abs(transformedPast.Get(x, y)-recent.Get(x, y)))
			}
		}
	}
	return &out
}

// DiffStats summarizes the difference intensities within the
// footprint. Big quantile gaps are what flag a tile as interesting: a
// transient shows up as a small number of very bright diff pixels.
type DiffStats struct {
	Count  int64
	Median int64
	P99    int64
	Max    int64
}

func (s DiffStats)String() string {
	return fmt.Sprintf("diff[n=%d, p50=%d, p99=%d, max=%d]", s.Count, s.Median, s.P99, s.Max)
}

// ComputeDiffStats buckets the in-footprint diff intensities into an
// HDR histogram and reads off the quantiles.
func ComputeDiffStats(diff *emath.FloatGrid, fp Footprint) DiffStats {
	h := hdrhistogram.New(1, 256, 3)
	for x := 0; x < diff.Dx(); x++ {
		for y := 0; y < diff.Dy(); y++ {
			if fp.Valid(x, y) {
				// Shift by one so a zero diff still lands in range.
				h.RecordValue(int64(diff.Get(x, y)) + 1)
			}
		}
	}
	if h.TotalCount() == 0 {
		// All-extrapolation footprint: there's nothing to quantile, and
		// undoing the shift would report -1s.
		return DiffStats{}
	}
	return DiffStats{
		Count:  h.TotalCount(),
		Median: h.ValueAtQuantile(50) - 1,
		P99:    h.ValueAtQuantile(99) - 1,
		Max:    h.Max() - 1,
	}
}

// An inferno-style ramp for rendering difference maps: black through
// purple and orange up to bright yellow.
var diffRamp = []struct {
	pos float64
	col colorful.Color
}{
	{0.00, colorful.Color{R: 0.00, G: 0.00, B: 0.02}},
	{0.25, colorful.Color{R: 0.34, G: 0.06, B: 0.43}},
	{0.50, colorful.Color{R: 0.73, G: 0.22, B: 0.33}},
	{0.75, colorful.Color{R: 0.98, G: 0.55, B: 0.04}},
	{1.00, colorful.Color{R: 0.99, G: 1.00, B: 0.64}},
}

// diffColor blends along the ramp in Luv space, which keeps the
// perceived brightness monotonic in the diff intensity.
func diffColor(t float64) colorful.Color {
	if t <= 0 { return diffRamp[0].col }
	if t >= 1 { return diffRamp[len(diffRamp)-1].col }
	for i := 0; i < len(diffRamp)-1; i++ {
		lo, hi := diffRamp[i], diffRamp[i+1]
		if t >= lo.pos && t <= hi.pos {
			return lo.col.BlendLuv(hi.col, (t-lo.pos)/(hi.pos-lo.pos)).Clamped()
		}
	}
	return diffRamp[len(diffRamp)-1].col
}

// RenderDiffMap colors the diff map on the inferno-style ramp, scaled
// so the hottest in-footprint pixel is full intensity. Out-of-footprint
// pixels show as the bottom of the ramp.
func RenderDiffMap(diff *emath.FloatGrid, fp Footprint) image.Image {
	max := 0.0
	for x := 0; x < diff.Dx(); x++ {
		for y := 0; y < diff.Dy(); y++ {
			if fp.Valid(x, y) && diff.Get(x, y) > max {
				max = diff.Get(x, y)
			}
		}
	}
	if max == 0 { max = 1 }

	img := image.NewRGBA(image.Rect(0, 0, diff.Dx(), diff.Dy()))
	for x := 0; x < diff.Dx(); x++ {
		for y := 0; y < diff.Dy(); y++ {
			img.Set(x, y, diffColor(diff.Get(x, y)/max))
		}
	}
	return img
}
