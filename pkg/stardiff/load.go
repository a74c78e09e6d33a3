package stardiff

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

// stem is the filename without directory or extension, e.g.
// "/a/b/602940.tif" -> "602940".
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadRaster decodes a source exposure or tile from disk. TIFF is the
// native format for survey plates; PNG is accepted too. A missing
// file reports ErrSourceNotFound so callers can tell a malformed
// invocation from a decode problem.
func LoadRaster(filename string) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open '%s': %w", filename, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		img, err := tiff.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("tiff loading '%s': %v", filename, err)
		}
		return img, nil
	case ".png":
		img, err := png.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("png loading '%s': %v", filename, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("loading '%s': unhandled image format", filename)
	}
}

// CaptureTime digs the capture timestamp out of the EXIF metadata, if
// there is any. Epochs are time-separated exposures, so it's worth
// reporting how far apart a pair actually is; but plenty of scanned
// plates carry no EXIF at all, so this is best effort only.
func CaptureTime(filename string) (time.Time, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return time.Time{}, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return time.Time{}, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}
	return ex.DateTime()
}

func logCaptureTimes(cfg Config, pastPath, recentPath string) {
	if cfg.Verbosity == 0 {
		return
	}
	t1, err1 := CaptureTime(pastPath)
	t2, err2 := CaptureTime(recentPath)
	if err1 != nil || err2 != nil {
		log.Printf("No capture timestamps for pair (%v / %v)\n", err1, err2)
		return
	}
	log.Printf("Epochs captured %s and %s (%.1f days apart)\n",
		t1.Format("2006-01-02"), t2.Format("2006-01-02"), t2.Sub(t1).Hours()/24.0)
}

// writeAtomically writes via a temp file in the target directory plus
// a rename, so a failing tile never leaves a partial artifact behind.
func writeAtomically(filename string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*"+filepath.Ext(filename))
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write '%s': %v", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close '%s': %v", filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename '%s': %v", filename, err)
	}
	return nil
}

func WritePNG(img image.Image, filename string) error {
	return writeAtomically(filename, func(f *os.File) error {
		return png.Encode(f, img)
	})
}

func WriteTIFF(img image.Image, filename string) error {
	return writeAtomically(filename, func(f *os.File) error {
		return tiff.Encode(f, img, nil)
	})
}
