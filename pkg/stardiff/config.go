package stardiff

import(
	"fmt"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"
)

// An ImagePair names the two epoch exposures of the same sky region
// that get registered against each other.
type ImagePair struct {
	PastImage   string `yaml:"past_image"`
	RecentImage string `yaml:"recent_image"`
}

// Stem is the pair's filename-safe identity, used to name the per-pair
// output subfolders, e.g. "602940_vs_603172".
func (p ImagePair)Stem() string {
	return fmt.Sprintf("%s_vs_%s", stem(p.PastImage), stem(p.RecentImage))
}

func (p ImagePair)String() string {
	return fmt.Sprintf("pair[past:%s, recent:%s]", p.PastImage, p.RecentImage)
}

// Config is built once at startup (YAML file plus command line
// overrides) and passed into every component; nothing reads ambient
// global state.
type Config struct {
	Verbosity       int     `yaml:"verbosity"`

	TileSize        int     `yaml:"tile_size"`         // Tiles are TileSize x TileSize pixels
	DetectThreshold float64 `yaml:"detect_threshold"`  // Star brightness cutoff in [1,255]; <=0 means use Otsu
	MinBlobSize     int     `yaml:"min_blob_size"`     // Blobs smaller than this many pixels are noise
	MaxStars        int     `yaml:"max_stars"`         // Keep at most this many stars per tile
	NumMatches      int     `yaml:"num_matches"`       // How many correspondences feed the affine fit
	Workers         int     `yaml:"workers"`           // Tile-level concurrency

	PastImagesPath   string      `yaml:"past_images_path"`
	RecentImagesPath string      `yaml:"recent_images_path"`
	OutputPath       string      `yaml:"output_path"`   // Root for transformations/ and diff_maps/
	ImagePairs       []ImagePair `yaml:"image_pairs"`
}

func NewConfig() Config {
	return Config{
		TileSize:        2048,
		DetectThreshold: 200,
		MinBlobSize:     50,
		MaxStars:        5,
		NumMatches:      3,
		Workers:         4,
	}
}

func NewConfigFromYamlFile(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}
	return newConfigFromYaml(contents)
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Validate catches nonsense parameter values up front, before any
// tiles get cut.
func (c Config)Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile_size must be positive, got %d", c.TileSize)
	}
	if c.MaxStars < 1 {
		return fmt.Errorf("max_stars must be at least 1, got %d", c.MaxStars)
	}
	if c.NumMatches < 3 {
		return fmt.Errorf("num_matches must be at least 3 for an affine fit, got %d", c.NumMatches)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
