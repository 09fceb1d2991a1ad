package types

import "errors"

// Config holds the parameters for opening a catalogue: where the data lives
// and how images are processed.
type Config struct {
	DataDir       string          `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Thumbnail     ThumbnailConfig `json:"thumbnail" yaml:"thumbnail" mapstructure:"thumbnail"`
	ImportWorkers int             `json:"import_workers" yaml:"import_workers" mapstructure:"import_workers"`
}

// ThumbnailConfig controls derived preview images.
type ThumbnailConfig struct {
	Width   int `json:"width" yaml:"width" mapstructure:"width"`
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`
}

// Defaults applied by WithDefaults.
const (
	DefaultThumbnailWidth   = 300
	DefaultThumbnailQuality = 80
	DefaultImportWorkers    = 4
)

// Config validation errors.
var (
	ErrDataDirEmpty            = errors.New("data directory must not be empty")
	ErrThumbnailWidthInvalid   = errors.New("thumbnail width must be positive")
	ErrThumbnailQualityInvalid = errors.New("thumbnail quality must be between 1 and 100")
	ErrImportWorkersInvalid    = errors.New("import workers must be positive")
)

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Thumbnail.Width == 0 {
		c.Thumbnail.Width = DefaultThumbnailWidth
	}
	if c.Thumbnail.Quality == 0 {
		c.Thumbnail.Quality = DefaultThumbnailQuality
	}
	if c.ImportWorkers == 0 {
		c.ImportWorkers = DefaultImportWorkers
	}
	return c
}

// Validate checks that the Config is well-formed. Zero values are accepted
// for fields that have defaults.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.Thumbnail.Width < 0 {
		return ErrThumbnailWidthInvalid
	}
	if c.Thumbnail.Quality < 0 || c.Thumbnail.Quality > 100 {
		return ErrThumbnailQualityInvalid
	}
	if c.ImportWorkers < 0 {
		return ErrImportWorkersInvalid
	}
	return nil
}
