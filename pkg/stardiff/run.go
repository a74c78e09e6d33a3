package stardiff

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"stardiff/pkg/emath"
)

// CheckSourceFolders verifies the two epoch source folders exist and
// hold the same number of files. A violation means the invocation
// itself is malformed, so it is fatal to the whole run; nothing gets
// processed.
func CheckSourceFolders(pastPath, recentPath string) error {
	nPast, err := countFiles(pastPath)
	if err != nil {
		return err
	}
	nRecent, err := countFiles(recentPath)
	if err != nil {
		return err
	}
	if nPast != nRecent {
		return fmt.Errorf("mismatch in number of files: '%s' has %d, '%s' has %d",
			pastPath, nPast, recentPath, nRecent)
	}
	return nil
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("source folder '%s': %w", dir, ErrSourceNotFound)
		}
		return 0, fmt.Errorf("readdir '%s': %v", dir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n, nil
}

// A TileResult is what one tile's chain produced: its diff statistics,
// or the (recoverable) reason it was skipped.
type TileResult struct {
	TileName string
	Stats    DiffStats
	Err      error
}

// Run processes every configured image pair. Directory precondition
// failures abort; per-tile failures are logged and skipped, since one
// pathological tile must not take down an entire pair.
func Run(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := CheckSourceFolders(cfg.PastImagesPath, cfg.RecentImagesPath); err != nil {
		return err
	}

	trsfRoot := filepath.Join(cfg.OutputPath, "transformations")
	diffRoot := filepath.Join(cfg.OutputPath, "diff_maps")
	for _, dir := range []string{trsfRoot, diffRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("mkdir '%s': %v", dir, err)
		}
	}

	for i, pair := range cfg.ImagePairs {
		log.Printf("Processing pair %d of %d: %s\n", i+1, len(cfg.ImagePairs), pair)
		if err := RunPair(cfg, pair, trsfRoot, diffRoot); err != nil {
			return fmt.Errorf("pair %s: %v", pair, err)
		}
	}
	log.Printf("Done\n")
	return nil
}

// RunPair cuts both epochs into tiles and runs the per-tile chain
// across a worker pool. Tiles are mutually independent: each one
// reads and writes only paths qualified by its own (i,j) index, so
// there's no shared mutable state to guard.
func RunPair(cfg Config, pair ImagePair, trsfRoot, diffRoot string) error {
	pastImage := filepath.Join(cfg.PastImagesPath, pair.PastImage)
	recentImage := filepath.Join(cfg.RecentImagesPath, pair.RecentImage)
	logCaptureTimes(cfg, pastImage, recentImage)

	pastFolder, err := CutTiles(cfg, pastImage)
	if err != nil {
		return err
	}
	recentFolder, err := CutTiles(cfg, recentImage)
	if err != nil {
		return err
	}

	pastTiles, err := LoadTilePaths(pastFolder)
	if err != nil {
		return err
	}
	recentTiles, err := LoadTilePaths(recentFolder)
	if err != nil {
		return err
	}
	if len(pastTiles) != len(recentTiles) {
		return fmt.Errorf("tile count mismatch: %d past vs %d recent", len(pastTiles), len(recentTiles))
	}

	trsfDir := filepath.Join(trsfRoot, pair.Stem())
	diffDir := filepath.Join(diffRoot, pair.Stem())
	for _, dir := range []string{trsfDir, diffDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("mkdir '%s': %v", dir, err)
		}
	}

	type tileJob struct {
		pastPath, recentPath string
	}
	var wg sync.WaitGroup
	jobsChan := make(chan tileJob, len(pastTiles))
	resultsChan := make(chan TileResult, len(pastTiles))

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				stats, err := ProcessTile(cfg, job.pastPath, job.recentPath, trsfDir, diffDir)
				resultsChan <- TileResult{TileName: stem(job.pastPath), Stats: stats, Err: err}
			}
		}()
	}

	for i := range pastTiles {
		jobsChan <- tileJob{pastTiles[i], recentTiles[i]}
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	nOK, nSkipped := 0, 0
	for result := range resultsChan {
		if result.Err != nil {
			nSkipped++
			log.Printf("Tile %s skipped: %v\n", result.TileName, result.Err)
			continue
		}
		nOK++
		if cfg.Verbosity > 0 {
			log.Printf("Tile %s: %s\n", result.TileName, result.Stats)
		}
	}
	log.Printf("Pair %s: %d tiles processed, %d skipped\n", pair.Stem(), nOK, nSkipped)
	return nil
}

// ProcessTile runs the full chain for one tile pair: preprocess both
// epochs, detect stars in each, match them, fit the affine transform,
// resample the past tile into the recent frame, and build the diff
// map. Failures are per-tile, recoverable; the artifacts are written
// all-or-nothing.
func ProcessTile(cfg Config, pastPath, recentPath, trsfDir, diffDir string) (DiffStats, error) {
	normPast, err := loadPreprocessed(pastPath)
	if err != nil {
		return DiffStats{}, err
	}
	normRecent, err := loadPreprocessed(recentPath)
	if err != nil {
		return DiffStats{}, err
	}

	pastStars := DetectStars(cfg, normPast)
	recentStars := DetectStars(cfg, normRecent)

	pairs, err := MatchStars(pastStars, recentStars, cfg.NumMatches)
	if err != nil {
		return DiffStats{}, err
	}

	m, err := EstimateAffine(pairs)
	if err != nil {
		return DiffStats{}, err
	}

	transformed, fp, err := ApplyTransform(m, normPast, normRecent.Dx(), normRecent.Dy())
	if err != nil {
		return DiffStats{}, err
	}

	diff := DiffMap(transformed, normRecent, fp)
	stats := ComputeDiffStats(diff, fp)

	tileName := stem(pastPath)
	if cfg.Verbosity > 1 {
		dumpWorkingGrids(trsfDir, tileName, normPast, normRecent, transformed)
	}
	trsfFig := RenderTransformFigure(
		RenderOverlay(normPast, pastStars),
		RenderOverlay(normRecent, recentStars),
		transformed, fp)
	diffFig := RenderDiffFigure(normPast, normRecent, transformed, diff, fp)

	trsfPath := filepath.Join(trsfDir, tileName+"_transformation.png")
	if err := WritePNG(trsfFig, trsfPath); err != nil {
		return DiffStats{}, err
	}
	if err := WritePNG(diffFig, filepath.Join(diffDir, tileName+"_transformation.png")); err != nil {
		os.Remove(trsfPath) // keep the tile's artifacts all-or-nothing
		return DiffStats{}, err
	}

	return stats, nil
}

// dumpWorkingGrids writes the intermediate grids alongside the figures,
// to let a misbehaving tile be inspected without rerunning the pair.
func dumpWorkingGrids(dir, tileName string, normPast, normRecent, transformed *emath.FloatGrid) {
	for _, g := range []struct {
		label string
		grid  *emath.FloatGrid
	}{
		{"norm_past", normPast},
		{"norm_recent", normRecent},
		{"transformed", transformed},
	} {
		filename := filepath.Join(dir, fmt.Sprintf("%s_%s.png", tileName, g.label))
		if err := g.grid.ToImg(g.label, filename); err != nil {
			log.Printf("Grid dump '%s': %v\n", filename, err)
		}
	}
}

// loadPreprocessed loads a tile and applies the standard
// normalization + inversion the detector expects.
func loadPreprocessed(tilePath string) (*emath.FloatGrid, error) {
	img, err := LoadRaster(tilePath)
	if err != nil {
		return nil, err
	}
	grid := emath.NewFloatGridFromImage(img)
	norm, err := Normalize(&grid)
	if err != nil {
		return nil, fmt.Errorf("tile '%s': %w", tilePath, err)
	}
	return Invert(norm), nil
}
