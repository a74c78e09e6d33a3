package stardiff

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"stardiff/pkg/emath"
)

const(
	estimateMaxIter = 50
	estimateTol     = 1e-9
	huberDelta      = 1.345 // standard 95%-efficiency Huber constant
)

// EstimateAffine fits the 6 parameters of an affine map from the past
// epoch's coordinates to the recent epoch's, given matched pairs. The
// fit is iteratively reweighted least squares with Huber weights, so a
// small number of bad correspondences gets down-weighted rather than
// dragging the whole transform off.
func EstimateAffine(pairs []Correspondence) (emath.Aff3, error) {
	if len(pairs) < 3 {
		return emath.Identity(), fmt.Errorf("affine fit with %d pairs: %w",
			len(pairs), ErrInsufficientCorrespondences)
	}
	src, dst := SplitCorrespondences(pairs)
	if collinear(src) || collinear(dst) {
		return emath.Identity(), fmt.Errorf("affine fit: %w", ErrDegenerateConfiguration)
	}

	n := len(pairs)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}

	m := emath.Identity()
	for iter := 0; iter < estimateMaxIter; iter++ {
		next, err := solveWeighted(src, dst, weights)
		if err != nil {
			return emath.Identity(), err
		}

		step := 0.0
		for i := 0; i < 6; i++ {
			if d := math.Abs(next[i] - m[i]); d > step {
				step = d
			}
		}
		m = next
		if iter > 0 && step < estimateTol {
			return m, nil
		}

		// Recompute Huber weights from the residuals, scaled by a
		// robust estimate of their spread.
		resids := make([]float64, n)
		for i := range pairs {
			tx, ty := m.Apply(src[i].X, src[i].Y)
			resids[i] = math.Hypot(tx-dst[i].X, ty-dst[i].Y)
		}
		scale := 1.4826 * median(resids)
		if scale < 1e-9 {
			return m, nil // essentially a perfect fit already
		}
		for i, r := range resids {
			if u := r / scale; u > huberDelta {
				weights[i] = huberDelta / u
			} else {
				weights[i] = 1.0
			}
		}
	}

	return emath.Identity(), fmt.Errorf("affine fit after %d iterations: %w",
		estimateMaxIter, ErrEstimationNonConvergent)
}

// solveWeighted solves the 2n x 6 least squares system for the affine
// parameters, each point's pair of rows scaled by sqrt of its weight.
func solveWeighted(src, dst []Star, weights []float64) (emath.Aff3, error) {
	n := len(src)
	a := mat.NewDense(2*n, 6, nil)
	b := mat.NewDense(2*n, 1, nil)

	for i := 0; i < n; i++ {
		w := math.Sqrt(weights[i])
		a.Set(2*i,   0, w*src[i].X)
		a.Set(2*i,   1, w*src[i].Y)
		a.Set(2*i,   2, w)
		a.Set(2*i+1, 3, w*src[i].X)
		a.Set(2*i+1, 4, w*src[i].Y)
		a.Set(2*i+1, 5, w)
		b.Set(2*i,   0, w*dst[i].X)
		b.Set(2*i+1, 0, w*dst[i].Y)
	}

	var qr mat.QR
	qr.Factorize(a)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, b); err != nil {
		return emath.Identity(), fmt.Errorf("affine solve: %w", ErrDegenerateConfiguration)
	}

	return emath.Aff3{
		x.At(0, 0), x.At(1, 0), x.At(2, 0),
		x.At(3, 0), x.At(4, 0), x.At(5, 0),
	}, nil
}

// collinear reports whether the points all sit on one line (or on one
// point), which leaves the affine system rank deficient.
func collinear(pts []Star) bool {
	// Find a second point distinct from the first.
	j := -1
	for i := 1; i < len(pts); i++ {
		if pts[i].X != pts[0].X || pts[i].Y != pts[0].Y {
			j = i
			break
		}
	}
	if j < 0 {
		return true
	}

	ux, uy := pts[j].X-pts[0].X, pts[j].Y-pts[0].Y
	norm := math.Hypot(ux, uy)
	for i := 1; i < len(pts); i++ {
		vx, vy := pts[i].X-pts[0].X, pts[i].Y-pts[0].Y
		// Perpendicular distance from the 0-j line.
		if math.Abs(ux*vy-uy*vx)/norm > 1e-9 {
			return false
		}
	}
	return true
}

func median(vals []float64) float64 {
	s := append([]float64{}, vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2.0
}
