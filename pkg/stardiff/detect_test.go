package stardiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"stardiff/pkg/emath"
)

// paintBlob fills a w x h block of the given brightness, centered at
// (cx, cy).
func paintBlob(fg *emath.FloatGrid, cx, cy, w, h int, v float64) {
	for x := cx - w/2; x < cx-w/2+w; x++ {
		for y := cy - h/2; y < cy-h/2+h; y++ {
			fg.Set(x, y, v)
		}
	}
}

func TestDetectMinBlobSize(t *testing.T) {
	fg := emath.NewFloatGrid(100, 100)

	paintBlob(&fg, 25, 25, 10, 8, 250) // 80 pixels, survives
	paintBlob(&fg, 70, 70, 6, 5, 250)  // 30 pixels, too small

	cfg := NewConfig()
	cfg.DetectThreshold = 200
	cfg.MinBlobSize = 50
	cfg.MaxStars = 10

	stars := DetectStars(cfg, &fg)
	require.Len(t, stars, 1)
	require.InDelta(t, 25.0, stars[0].X, 1.0)
	require.InDelta(t, 25.0, stars[0].Y, 1.0)
}

func TestDetectMaxStarsKeepsBrightest(t *testing.T) {
	fg := emath.NewFloatGrid(200, 200)

	// Six well-separated blobs of distinct brightness
	centers := [][2]int{{20, 20}, {60, 20}, {100, 20}, {20, 100}, {60, 100}, {100, 100}}
	for i, c := range centers {
		paintBlob(&fg, c[0], c[1], 5, 5, float64(210+i*8)) // dimmest is centers[0]
	}

	cfg := NewConfig()
	cfg.DetectThreshold = 200
	cfg.MinBlobSize = 10
	cfg.MaxStars = 5

	stars := DetectStars(cfg, &fg)
	require.Len(t, stars, 5)

	// Ordered by descending brightness
	for i := 1; i < len(stars); i++ {
		require.GreaterOrEqual(t, stars[i-1].Brightness, stars[i].Brightness)
	}

	// The dimmest blob is the one excluded
	for _, s := range stars {
		dist := math.Hypot(s.X-20, s.Y-20)
		require.Greater(t, dist, 5.0)
	}
}

func TestDetectEmptySky(t *testing.T) {
	fg := emath.NewFloatGrid(64, 64)
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			fg.Set(x, y, 30.0)
		}
	}

	cfg := NewConfig()
	cfg.DetectThreshold = 200

	stars := DetectStars(cfg, &fg)
	require.Empty(t, stars)
}

func TestDetectClosingBridgesGaps(t *testing.T) {
	fg := emath.NewFloatGrid(60, 60)

	// Two halves of one star, split by a single dark column; the 3x3
	// closing should bridge them into a single blob.
	paintBlob(&fg, 27, 30, 6, 12, 250)
	paintBlob(&fg, 34, 30, 6, 12, 250)

	cfg := NewConfig()
	cfg.DetectThreshold = 200
	cfg.MinBlobSize = 50
	cfg.MaxStars = 10

	stars := DetectStars(cfg, &fg)
	require.Len(t, stars, 1)
	require.InDelta(t, 30.5, stars[0].X, 1.5)
	require.InDelta(t, 30.0, stars[0].Y, 1.0)
}

func TestOtsuThresholdSeparatesBimodal(t *testing.T) {
	fg := emath.NewFloatGrid(100, 100)
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			fg.Set(x, y, 10.0)
		}
	}
	paintBlob(&fg, 50, 50, 10, 10, 240)

	thresh := OtsuThreshold(&fg)
	require.Greater(t, thresh, 10.0)
	require.LessOrEqual(t, thresh, 240.0)

	// The detector falls back to Otsu when no threshold is configured
	cfg := NewConfig()
	cfg.DetectThreshold = 0
	cfg.MinBlobSize = 50
	stars := DetectStars(cfg, &fg)
	require.Len(t, stars, 1)
	require.InDelta(t, 50.0, stars[0].X, 1.0)
	require.InDelta(t, 50.0, stars[0].Y, 1.0)
}

func TestFilterSmallBlobsIsPure(t *testing.T) {
	m := newBitmask(10, 10)
	m.set(0, 0, true) // 1-pixel blob
	m.set(5, 5, true) // 4-pixel blob
	m.set(6, 5, true)
	m.set(5, 6, true)
	m.set(6, 6, true)

	labels, n := labelComponents(m)
	require.Equal(t, 2, n)

	filtered, kept := filterSmallBlobs(labels, n, 3)
	require.Equal(t, 1, kept)
	require.Equal(t, 1, filtered.get(5, 5))
	require.Equal(t, 0, filtered.get(0, 0))

	// The unfiltered label grid is unchanged
	require.NotZero(t, labels.get(0, 0))
}
