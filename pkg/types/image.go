package types

import "time"

// ArtworkImage is one stored original and its derived thumbnail.
// ThumbnailPath stays nil until a thumbnail has been generated.
type ArtworkImage struct {
	ID            int64     `json:"id"`
	ArtworkID     int64     `json:"artwork_id"`
	FilePath      string    `json:"file_path"`
	ThumbnailPath *string   `json:"thumbnail_path"`
	Hash          string    `json:"hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// PreviewPath returns the thumbnail when present, otherwise the original.
func (img *ArtworkImage) PreviewPath() string {
	if img.ThumbnailPath != nil && *img.ThumbnailPath != "" {
		return *img.ThumbnailPath
	}
	return img.FilePath
}

// ImportResult describes one imported file. Duplicate is true when the same
// bytes were already attached to the artwork; ImageID then names that row.
type ImportResult struct {
	ImageID    int64  `json:"image_id"`
	StoredPath string `json:"stored_path"`
	Hash       string `json:"hash"`
	Duplicate  bool   `json:"duplicate"`
}

// ImportOutcome is the per-file result of a batch import. ThumbnailErr is set
// when the import succeeded but the thumbnail could not be derived.
type ImportOutcome struct {
	Source       string        `json:"source"`
	Result       *ImportResult `json:"result,omitempty"`
	Err          error         `json:"-"`
	ThumbnailErr error         `json:"-"`
}

// SeedReport summarises a directory seeding run.
type SeedReport struct {
	Total            int `json:"total"`
	Linked           int `json:"linked"`
	SkippedNoRef     int `json:"skipped_no_ref"`
	SkippedNoArtwork int `json:"skipped_no_artwork"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Failed           int `json:"failed"`
}
