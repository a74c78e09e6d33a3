package stardiff

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"
)

// A TileGrid knows how a raster gets partitioned into fixed-size
// tiles. The raster is first resampled up to the next multiple of the
// tile size in each dimension, so every tile is exactly TileSize
// square and the tiles cover the resized raster with no gaps and no
// overlap.
type TileGrid struct {
	TileSize int
	XTiles   int
	YTiles   int
}

func NewTileGrid(w, h, tileSize int) TileGrid {
	return TileGrid{
		TileSize: tileSize,
		XTiles:   (w + tileSize - 1) / tileSize,
		YTiles:   (h + tileSize - 1) / tileSize,
	}
}

// ResizedDims are the smallest multiples of TileSize that cover the
// original raster.
func (tg TileGrid)ResizedDims() (int, int) {
	return tg.XTiles * tg.TileSize, tg.YTiles * tg.TileSize
}

// TileRect is the bounding box of tile (i,j) in the resized raster.
// i is the column index, j the row index, both 0-based.
func (tg TileGrid)TileRect(i, j int) image.Rectangle {
	return image.Rect(i*tg.TileSize, j*tg.TileSize, (i+1)*tg.TileSize, (j+1)*tg.TileSize)
}

func (tg TileGrid)TileName(i, j int) string {
	return fmt.Sprintf("tile_%d_%d.tif", i, j)
}

func (tg TileGrid)NumTiles() int { return tg.XTiles * tg.YTiles }

func (tg TileGrid)String() string {
	return fmt.Sprintf("grid[%dx%d tiles of %dpx]", tg.XTiles, tg.YTiles, tg.TileSize)
}

// CutTiles splits the named raster into TileSize x TileSize tiles,
// resampling so no partial tiles are left at the edges, and writes
// each tile under a folder named after the raster. Returns the tile
// folder path. The whole raster is held in memory here (and only
// here); everything downstream works tile-at-a-time.
func CutTiles(cfg Config, imagePath string) (string, error) {
	img, err := LoadRaster(imagePath)
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	tg := NewTileGrid(b.Dx(), b.Dy(), cfg.TileSize)
	newW, newH := tg.ResizedDims()

	// Resample to guarantee full coverage. CatmullRom is the
	// high-quality kernel; the edge tiles matter as much as any other.
	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	tileFolder := filepath.Join(filepath.Dir(imagePath), stem(imagePath))
	if err := os.MkdirAll(tileFolder, 0755); err != nil {
		return "", fmt.Errorf("mkdir '%s': %v", tileFolder, err)
	}

	for i := 0; i < tg.XTiles; i++ {
		for j := 0; j < tg.YTiles; j++ {
			// Copy the tile into its own backing array: tiff.Encode
			// reads a SubImage's shared Pix past the bottom-right
			// tile's last row and panics (x/image/tiff writePix).
			rect := tg.TileRect(i, j)
			tile := image.NewRGBA(rect)
			draw.Copy(tile, rect.Min, resized, rect, draw.Src, nil)
			tilePath := filepath.Join(tileFolder, tg.TileName(i, j))
			if err := WriteTIFF(tile, tilePath); err != nil {
				return "", fmt.Errorf("tile (%d,%d) of '%s': %v", i, j, imagePath, err)
			}
		}
	}

	if cfg.Verbosity > 0 {
		log.Printf("Cut %s into %d tiles %s under '%s'\n",
			filepath.Base(imagePath), tg.NumTiles(), tg, tileFolder)
	}
	return tileFolder, nil
}

// LoadTilePaths lists the tiles previously cut into a folder, in a
// deterministic order, so the two epochs' tile lists zip up
// index-for-index.
func LoadTilePaths(folder string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(folder, "tile_*.tif"))
	if err != nil {
		return nil, fmt.Errorf("glob '%s': %v", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}
