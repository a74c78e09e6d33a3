package stardiff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchIdenticalSets(t *testing.T) {
	stars := StarSet{
		{X: 10, Y: 10, Brightness: 250},
		{X: 100, Y: 40, Brightness: 240},
		{X: 50, Y: 90, Brightness: 230},
		{X: 200, Y: 150, Brightness: 220},
	}

	pairs, err := MatchStars(stars, stars, 3)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		require.Zero(t, p.Dist)
		require.Equal(t, p.Past, p.Recent)
	}
}

func TestMatchOrderedByDistance(t *testing.T) {
	past := StarSet{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 0, Y: 50}, {X: 80, Y: 80}}
	recent := StarSet{{X: 1, Y: 0}, {X: 50, Y: 3}, {X: 0, Y: 55}, {X: 200, Y: 200}}

	pairs, err := MatchStars(past, recent, 4)
	require.NoError(t, err)
	require.Len(t, pairs, 4)
	for i := 1; i < len(pairs); i++ {
		require.LessOrEqual(t, pairs[i-1].Dist, pairs[i].Dist)
	}
}

func TestMatchInsufficientCorrespondences(t *testing.T) {
	past := StarSet{{X: 0, Y: 0}, {X: 50, Y: 0}}
	recent := StarSet{{X: 1, Y: 0}, {X: 51, Y: 0}, {X: 7, Y: 7}}

	_, err := MatchStars(past, recent, 3)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientCorrespondences))

	_, err = MatchStars(StarSet{}, StarSet{}, 3)
	require.True(t, errors.Is(err, ErrInsufficientCorrespondences))
}

// The closest-k-pairs rule is not a bijection: one star may appear in
// several retained pairs when it is the nearest thing to multiple
// stars on the other side.
func TestMatchIsNotBijective(t *testing.T) {
	past := StarSet{{X: 0, Y: 0}, {X: 100, Y: 100}, {X: 200, Y: 0}}
	recent := StarSet{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 500, Y: 500}}

	pairs, err := MatchStars(past, recent, 3)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	// past[0] is nearest to both recent[0] and recent[1], so it gets
	// selected twice.
	n := 0
	for _, p := range pairs {
		if p.Past.X == 0 && p.Past.Y == 0 {
			n++
		}
	}
	require.Equal(t, 2, n)
}

func TestMatchNeverExceedsSmallerSet(t *testing.T) {
	past := StarSet{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	recent := StarSet{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 99, Y: 99}, {X: 5, Y: 5}}

	pairs, err := MatchStars(past, recent, 5)
	require.NoError(t, err)
	require.Len(t, pairs, 3) // min(k, |past|, |recent|)
}
