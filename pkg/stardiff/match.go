package stardiff

import (
	"fmt"
	"math"
	"sort"
)

// A Correspondence is a claimed match between a star in the past
// epoch's tile and a star in the recent epoch's equivalent tile.
type Correspondence struct {
	Past   Star
	Recent Star
	Dist   float64
}

// MatchStars pairs stars between the two epochs by proximity: every
// (past, recent) pair gets a Euclidean distance, all pairs are sorted
// ascending, and the closest k survive, in increasing-distance order.
//
// Note this is deliberately not a bijection: a star may appear in more
// than one retained pair. Duplicate points inflate agreement without
// adding independent constraints to the affine fit, so a bijective
// assignment would be the safer policy; the estimator at least rejects
// the fully-degenerate configurations this can produce.
func MatchStars(past, recent StarSet, k int) ([]Correspondence, error) {
	limit := k
	if len(past) < limit   { limit = len(past) }
	if len(recent) < limit { limit = len(recent) }
	if limit < 3 {
		return nil, fmt.Errorf("matching %d past vs %d recent stars: %w",
			len(past), len(recent), ErrInsufficientCorrespondences)
	}

	pairs := make([]Correspondence, 0, len(past)*len(recent))
	for _, p := range past {
		for _, r := range recent {
			pairs = append(pairs, Correspondence{
				Past:   p,
				Recent: r,
				Dist:   math.Hypot(p.X-r.X, p.Y-r.Y),
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Dist < pairs[j].Dist })

	return pairs[:limit], nil
}

// SplitCorrespondences unzips pairs into the two index-aligned
// coordinate sequences the affine estimator consumes.
func SplitCorrespondences(pairs []Correspondence) (src, dst []Star) {
	src = make([]Star, len(pairs))
	dst = make([]Star, len(pairs))
	for i, c := range pairs {
		src[i] = c.Past
		dst[i] = c.Recent
	}
	return src, dst
}
