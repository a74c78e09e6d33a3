package main

import(
	"flag"
	"log"

	"stardiff/pkg/stardiff"
)

var(
	fConfigFile string
	fVerbosity int
	fPastImagesPath string
	fRecentImagesPath string
	fOutputPath string
	fTileSize int
	fDetectThreshold float64
	fMinBlobSize int
	fMaxStars int
	fNumMatches int
	fWorkers int
)

func init() {
	flag.StringVar(&fConfigFile, "c", "config.yaml", "YAML config file (parameters + image pairs)")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")

	flag.StringVar(&fPastImagesPath, "p", "", "source folder with past images")
	flag.StringVar(&fRecentImagesPath, "r", "", "source folder with recent images")
	flag.StringVar(&fOutputPath, "o", ".", "root folder for transformations/ and diff_maps/")

	flag.IntVar(&fTileSize, "tilesize", 0, "tile edge length in pixels (0: use config)")
	flag.Float64Var(&fDetectThreshold, "threshold", -1, "star detection threshold, 1-255 (<=0: adaptive Otsu)")
	flag.IntVar(&fMinBlobSize, "minblob", 0, "minimum blob pixel count to count as a star (0: use config)")
	flag.IntVar(&fMaxStars, "maxstars", 0, "max stars to keep per tile (0: use config)")
	flag.IntVar(&fNumMatches, "matches", 0, "number of correspondences to fit the transform on (0: use config)")
	flag.IntVar(&fWorkers, "workers", 0, "tile worker pool size (0: use config)")
	flag.Parse()

	log.Printf("stardiff starting\n")
}

func main() {
	cfg, err := stardiff.NewConfigFromYamlFile(fConfigFile)
	if err != nil {
		log.Fatal(err)
	}

	// Command line args override the config file, where given
	cfg.Verbosity = fVerbosity
	if fPastImagesPath != ""   { cfg.PastImagesPath = fPastImagesPath }
	if fRecentImagesPath != "" { cfg.RecentImagesPath = fRecentImagesPath }
	if fOutputPath != ""       { cfg.OutputPath = fOutputPath }
	if fTileSize > 0           { cfg.TileSize = fTileSize }
	if fDetectThreshold >= 0   { cfg.DetectThreshold = fDetectThreshold }
	if fMinBlobSize > 0        { cfg.MinBlobSize = fMinBlobSize }
	if fMaxStars > 0           { cfg.MaxStars = fMaxStars }
	if fNumMatches > 0         { cfg.NumMatches = fNumMatches }
	if fWorkers > 0            { cfg.Workers = fWorkers }

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	if err := stardiff.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
