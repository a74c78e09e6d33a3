package stardiff

import "errors"

// The pipeline distinguishes fatal precondition failures (malformed
// invocation, abort the run) from per-tile data failures (log, skip
// the tile, carry on). Callers classify with errors.Is.
var(
	// ErrSourceNotFound means an input raster could not be located.
	ErrSourceNotFound = errors.New("source image not found")

	// ErrDegenerateTile means a tile has constant intensity, so it
	// cannot be normalized (and has no stars to find anyway).
	ErrDegenerateTile = errors.New("tile has constant intensity")

	// ErrInsufficientCorrespondences means fewer than 3 star pairs
	// could be formed, which is not enough to fit an affine transform.
	ErrInsufficientCorrespondences = errors.New("fewer than 3 correspondences")

	// ErrDegenerateConfiguration means the matched points are collinear
	// or otherwise rank deficient, so the affine fit is underdetermined.
	ErrDegenerateConfiguration = errors.New("correspondence points are degenerate")

	// ErrEstimationNonConvergent means the robust fit hit its iteration
	// bound without settling.
	ErrEstimationNonConvergent = errors.New("affine estimation did not converge")

	// ErrSingularTransform means the transform's linear part is not
	// invertible, so it cannot be applied to a tile.
	ErrSingularTransform = errors.New("transform is singular")
)
