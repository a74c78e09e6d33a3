package stardiff

import (
	"log"
	"math"
	"sort"

	"github.com/skypies/util/histogram"

	"stardiff/pkg/emath"
)

// A Star is a detected point-like bright feature: the blob's centroid,
// plus the intensity sampled at the rounded centroid position (used
// for ranking).
type Star struct {
	X          float64
	Y          float64
	Brightness float64
}

// A StarSet is ordered by descending brightness and never exceeds the
// configured maximum star count.
type StarSet []Star

// bitmask is a dense boolean grid; out-of-bounds reads are false,
// which gives the morphology zero padding at the tile edges.
type bitmask struct {
	w, h int
	v    []bool
}

func newBitmask(w, h int) *bitmask {
	return &bitmask{w: w, h: h, v: make([]bool, w*h)}
}

func (m *bitmask)get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.v[y*m.w+x]
}

func (m *bitmask)set(x, y int, b bool) { m.v[y*m.w+x] = b }

// DetectStars finds bright point-like features in a normalized,
// inverted tile. Zero detections is a perfectly good answer for a
// patch of empty sky.
//
// The steps: binarize at the brightness threshold; bridge small gaps
// within blobs by a 3x3 morphological closing; label 8-connected
// components; drop components smaller than the minimum blob size;
// take each survivor's centroid over the pre-closing mask; if there
// are too many, keep the brightest.
func DetectStars(cfg Config, tile *emath.FloatGrid) StarSet {
	thresh := cfg.DetectThreshold
	if thresh <= 0 {
		// No fixed threshold supplied; fall back to Otsu's method on
		// the tile's own histogram.
		thresh = OtsuThreshold(tile)
		if cfg.Verbosity > 0 {
			log.Printf("Adaptive threshold selected: %.0f\n", thresh)
		}
	}

	premask := binarize(tile, thresh)
	closed := dilate3x3(premask)
	closed = erode3x3(closed)

	labels, n := labelComponents(closed)
	labels, n = filterSmallBlobs(labels, n, cfg.MinBlobSize)

	stars := blobCentroids(tile, premask, labels, n)

	// Order by brightness at the centroid, and keep only the top few.
	sort.SliceStable(stars, func(i, j int) bool { return stars[i].Brightness > stars[j].Brightness })
	if len(stars) > cfg.MaxStars {
		stars = stars[:cfg.MaxStars]
	}

	if cfg.Verbosity > 0 && len(stars) > 0 {
		hist := histogram.Histogram{NumBuckets: 32, ValMin: 0, ValMax: 256}
		for _, s := range stars {
			hist.Add(histogram.ScalarVal(int(s.Brightness)))
		}
		log.Printf("Detected %d stars; peak brightness %s\n", len(stars), hist)
	}

	return stars
}

// OtsuThreshold picks the binarization threshold that maximizes the
// between-class variance of the tile's 256-bin histogram. Classic
// Otsu; assumes a normalized (0..255) tile.
func OtsuThreshold(tile *emath.FloatGrid) float64 {
	hist := tile.Histogram256()

	total := 0
	sum := 0.0
	for v, n := range hist {
		total += n
		sum += float64(v) * float64(n)
	}

	// The returned value t splits the classes as {v < t} background,
	// {v >= t} foreground, matching the detector's binarize rule.
	sumB, wB := 0.0, 0
	bestVar, bestT := -1.0, 1
	for t := 1; t <= 255; t++ {
		wB += hist[t-1]
		sumB += float64(t-1) * float64(hist[t-1])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestT = t
		}
	}
	return float64(bestT)
}

func binarize(tile *emath.FloatGrid, thresh float64) *bitmask {
	m := newBitmask(tile.Dx(), tile.Dy())
	for x := 0; x < tile.Dx(); x++ {
		for y := 0; y < tile.Dy(); y++ {
			m.set(x, y, tile.Get(x, y) >= thresh)
		}
	}
	return m
}

func dilate3x3(m *bitmask) *bitmask {
	out := newBitmask(m.w, m.h)
	for x := 0; x < m.w; x++ {
		for y := 0; y < m.h; y++ {
			hit := false
			for dx := -1; dx <= 1 && !hit; dx++ {
				for dy := -1; dy <= 1 && !hit; dy++ {
					hit = m.get(x+dx, y+dy)
				}
			}
			out.set(x, y, hit)
		}
	}
	return out
}

func erode3x3(m *bitmask) *bitmask {
	out := newBitmask(m.w, m.h)
	for x := 0; x < m.w; x++ {
		for y := 0; y < m.h; y++ {
			all := true
			for dx := -1; dx <= 1 && all; dx++ {
				for dy := -1; dy <= 1 && all; dy++ {
					all = m.get(x+dx, y+dy)
				}
			}
			out.set(x, y, all)
		}
	}
	return out
}

// labelGrid assigns each pixel a component id, 0 meaning background.
type labelGrid struct {
	w, h int
	v    []int
}

func newLabelGrid(w, h int) *labelGrid        { return &labelGrid{w: w, h: h, v: make([]int, w*h)} }
func (lg *labelGrid)get(x, y int) int         { return lg.v[y*lg.w+x] }
func (lg *labelGrid)set(x, y int, label int)  { lg.v[y*lg.w+x] = label }

// labelComponents floodfills 8-connected components of the mask,
// assigning labels 1..n.
func labelComponents(m *bitmask) (*labelGrid, int) {
	lg := newLabelGrid(m.w, m.h)
	n := 0

	for sy := 0; sy < m.h; sy++ {
		for sx := 0; sx < m.w; sx++ {
			if !m.get(sx, sy) || lg.get(sx, sy) != 0 {
				continue
			}
			n++
			toVisit := []image2{{sx, sy}}
			lg.set(sx, sy, n)
			for len(toVisit) > 0 {
				p := toVisit[0]
				toVisit = toVisit[1:]
				for dx := -1; dx <= 1; dx++ {
					for dy := -1; dy <= 1; dy++ {
						nx, ny := p.x+dx, p.y+dy
						if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
							continue
						}
						if m.get(nx, ny) && lg.get(nx, ny) == 0 {
							lg.set(nx, ny, n)
							toVisit = append(toVisit, image2{nx, ny})
						}
					}
				}
			}
		}
	}
	return lg, n
}

type image2 struct{ x, y int }

// filterSmallBlobs produces a fresh, contiguously-relabeled grid
// containing only components of at least minSize pixels. It never
// mutates its input, so callers holding the unfiltered labels don't
// see them change underneath.
func filterSmallBlobs(lg *labelGrid, n, minSize int) (*labelGrid, int) {
	counts := make([]int, n+1)
	for _, label := range lg.v {
		counts[label]++
	}

	remap := make([]int, n+1)
	kept := 0
	for label := 1; label <= n; label++ {
		if counts[label] >= minSize {
			kept++
			remap[label] = kept
		}
	}

	out := newLabelGrid(lg.w, lg.h)
	for i, label := range lg.v {
		out.v[i] = remap[label]
	}
	return out, kept
}

// blobCentroids computes, for each component, the center of mass of
// the original (pre-closing) binary mask restricted to that
// component's pixels. Pixels the closing added bridge gaps but don't
// pull the centroid.
func blobCentroids(tile *emath.FloatGrid, premask *bitmask, lg *labelGrid, n int) StarSet {
	sumX := make([]float64, n+1)
	sumY := make([]float64, n+1)
	cnt := make([]int, n+1)
	allX := make([]float64, n+1)
	allY := make([]float64, n+1)
	allCnt := make([]int, n+1)

	for y := 0; y < lg.h; y++ {
		for x := 0; x < lg.w; x++ {
			label := lg.get(x, y)
			if label == 0 {
				continue
			}
			allX[label] += float64(x)
			allY[label] += float64(y)
			allCnt[label]++
			if premask.get(x, y) {
				sumX[label] += float64(x)
				sumY[label] += float64(y)
				cnt[label]++
			}
		}
	}

	stars := make(StarSet, 0, n)
	for label := 1; label <= n; label++ {
		var cx, cy float64
		switch {
		case cnt[label] > 0:
			cx = sumX[label] / float64(cnt[label])
			cy = sumY[label] / float64(cnt[label])
		case allCnt[label] > 0: // component made entirely of closing fill
			cx = allX[label] / float64(allCnt[label])
			cy = allY[label] / float64(allCnt[label])
		default:
			continue
		}
		stars = append(stars, Star{
			X:          cx,
			Y:          cy,
			Brightness: sampleAt(tile, cx, cy),
		})
	}
	return stars
}

func sampleAt(tile *emath.FloatGrid, x, y float64) float64 {
	xi := int(math.Round(x))
	yi := int(math.Round(y))
	if xi < 0          { xi = 0 }
	if yi < 0          { yi = 0 }
	if xi >= tile.Dx() { xi = tile.Dx() - 1 }
	if yi >= tile.Dy() { yi = tile.Dy() - 1 }
	return tile.Get(xi, yi)
}
