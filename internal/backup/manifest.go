package backup

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Archive entry names.
const (
	manifestEntry = "manifest.yaml"
	formatVersion = 1
)

// Manifest describes an archive. It is written as the last zip entry so
// that its counts reflect what was actually archived.
type Manifest struct {
	ID            string    `yaml:"id" json:"id"`
	Format        int       `yaml:"format" json:"format"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	Version       string    `yaml:"version" json:"version"`
	ImagesRoot    string    `yaml:"images_root" json:"images_root"`
	DatabaseBytes int64     `yaml:"database_bytes" json:"database_bytes"`
	ImageFiles    int       `yaml:"image_files" json:"image_files"`
	ImageBytes    int64     `yaml:"image_bytes" json:"image_bytes"`
}

func writeManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

func readManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}
