package stardiff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stardiff/pkg/emath"
)

func TestNormalizeStretchesFullRange(t *testing.T) {
	fg := emath.NewFloatGrid(8, 8)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			fg.Set(x, y, float64(1000+x*100+y))
		}
	}

	norm, err := Normalize(&fg)
	require.NoError(t, err)

	min, max := norm.MinMax()
	require.Equal(t, 0.0, min)
	require.Equal(t, 255.0, max)

	// Input untouched
	origMin, _ := fg.MinMax()
	require.Equal(t, 1000.0, origMin)
}

func TestNormalizeDegenerateTile(t *testing.T) {
	fg := emath.NewFloatGrid(4, 4)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			fg.Set(x, y, 17.0)
		}
	}

	_, err := Normalize(&fg)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDegenerateTile))
}

func TestInvert(t *testing.T) {
	fg := emath.NewFloatGrid(3, 3)
	fg.Set(0, 0, 0)
	fg.Set(1, 1, 200)
	fg.Set(2, 2, 255)

	inv := Invert(&fg)
	require.Equal(t, 255.0, inv.Get(0, 0))
	require.Equal(t, 55.0, inv.Get(1, 1))
	require.Equal(t, 0.0, inv.Get(2, 2))

	// Inverting twice gives the original back
	again := Invert(inv)
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			require.Equal(t, fg.Get(x, y), again.Get(x, y))
		}
	}
}
