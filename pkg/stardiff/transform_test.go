package stardiff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stardiff/pkg/emath"
)

func checkerGrid(w, h int) *emath.FloatGrid {
	fg := emath.NewFloatGrid(w, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			fg.Set(x, y, float64((x*13+y*29)%256))
		}
	}
	return &fg
}

func TestApplyTransformIdentity(t *testing.T) {
	src := checkerGrid(40, 40)

	out, fp, err := ApplyTransform(emath.Identity(), src, 40, 40)
	require.NoError(t, err)
	require.Equal(t, 40*40, fp.ValidCount())

	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			require.InDelta(t, src.Get(x, y), out.Get(x, y), 1.0)
		}
	}
}

func TestApplyTransformTranslationFootprint(t *testing.T) {
	src := checkerGrid(40, 40)
	m := emath.Identity().Translate(10, 5)

	_, fp, err := ApplyTransform(m, src, 40, 40)
	require.NoError(t, err)

	// Output pixels that map back outside the source are not valid
	require.False(t, fp.Valid(0, 0))
	require.False(t, fp.Valid(9, 20))
	require.False(t, fp.Valid(20, 4))
	require.True(t, fp.Valid(10, 5))
	require.True(t, fp.Valid(39, 39))
	require.Equal(t, 30*35, fp.ValidCount())
}

func TestApplyTransformSingular(t *testing.T) {
	src := checkerGrid(10, 10)
	// Linear part collapses everything onto a line
	m := emath.Aff3{1, 0, 0, 1, 0, 0}

	_, _, err := ApplyTransform(m, src, 10, 10)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSingularTransform))
}

func TestDiffMapIdenticalInputs(t *testing.T) {
	x := checkerGrid(32, 32)
	fp := NewFootprint(32, 32)
	for i := 0; i < 32; i++ {
		for j := 0; j < 32; j++ {
			fp.set(i, j, true)
		}
	}

	diff := DiffMap(x, x, fp)
	for i := 0; i < 32; i++ {
		for j := 0; j < 32; j++ {
			require.Zero(t, diff.Get(i, j))
		}
	}

	stats := ComputeDiffStats(diff, fp)
	require.Equal(t, int64(32*32), stats.Count)
	require.Equal(t, int64(0), stats.Max)
}

func TestDiffMapExcludesOutsideFootprint(t *testing.T) {
	a := checkerGrid(16, 16)
	b := emath.NewFloatGrid(16, 16) // all zero, so diff = a where valid

	fp := NewFootprint(16, 16)
	fp.set(3, 3, true)

	diff := DiffMap(a, &b, fp)
	require.Equal(t, a.Get(3, 3), diff.Get(3, 3))
	require.Zero(t, diff.Get(10, 10)) // excluded, sentinel 0

	stats := ComputeDiffStats(diff, fp)
	require.Equal(t, int64(1), stats.Count)
}

func TestDiffStatsEmptyFootprint(t *testing.T) {
	diff := checkerGrid(16, 16)
	fp := NewFootprint(16, 16) // nothing valid

	stats := ComputeDiffStats(diff, fp)
	require.Equal(t, int64(0), stats.Count)
	require.Equal(t, int64(0), stats.Median)
	require.Equal(t, int64(0), stats.P99)
	require.Equal(t, int64(0), stats.Max)
}

func TestRoundTripThroughPipelineMath(t *testing.T) {
	// A known transform applied to a synthetic star field: estimating
	// from the correspondences and reapplying reproduces the targets.
	truth := emath.RotateAbout(3.0, 64, 64).Translate(2.5, -1.75)

	past := StarSet{
		{X: 20, Y: 20}, {X: 100, Y: 30}, {X: 40, Y: 100}, {X: 90, Y: 90},
	}
	recent := make(StarSet, len(past))
	for i, s := range past {
		x, y := truth.Apply(s.X, s.Y)
		recent[i] = Star{X: x, Y: y}
	}

	pairs, err := MatchStars(past, recent, 4)
	require.NoError(t, err)

	m, err := EstimateAffine(pairs)
	require.NoError(t, err)

	for i, s := range past {
		x, y := m.Apply(s.X, s.Y)
		require.InDelta(t, recent[i].X, x, 1e-6)
		require.InDelta(t, recent[i].Y, y, 1e-6)
	}
}
