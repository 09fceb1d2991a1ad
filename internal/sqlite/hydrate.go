package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// timeLayout stores timestamps in UTC with fixed-width nanoseconds so that
// text order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// legacyTimeLayouts are read but never written. Older catalogues carry
// SQLite's CURRENT_TIMESTAMP form.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp reads a stored timestamp as UTC.
func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if lt, lerr := time.Parse(layout, v); lerr == nil {
			return lt.UTC(), nil
		}
	}
	return time.Time{}, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const imageColumns = "i.id, i.artwork_id, i.file_path, i.thumbnail_path, i.hash, i.created_at"

// hydrateImage scans one row of imageColumns.
func hydrateImage(s scanner) (types.ArtworkImage, error) {
	var (
		img       types.ArtworkImage
		thumb     sql.NullString
		createdAt string
	)
	if err := s.Scan(&img.ID, &img.ArtworkID, &img.FilePath, &thumb, &img.Hash, &createdAt); err != nil {
		return img, err
	}
	img.ThumbnailPath = stringPtr(thumb)
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return img, fmt.Errorf("parsing created_at of image %d: %w", img.ID, err)
	}
	img.CreatedAt = t
	return img, nil
}

const artworkColumns = "a.id, a.reference, a.title, a.description, a.owner, a.width, a.height, a.date, a.collection_id, a.type_id, a.place_id, a.preview_image_id"

// hydrateArtwork scans artworkColumns followed by any extra destinations.
func hydrateArtwork(s scanner, extra ...any) (types.Artwork, error) {
	var (
		a                                   types.Artwork
		title, description, owner, date     sql.NullString
		width, height                       sql.NullFloat64
		collectionID, typeID, placeID, prev sql.NullInt64
	)
	dest := []any{
		&a.ID, &a.Reference, &title, &description, &owner, &width, &height, &date,
		&collectionID, &typeID, &placeID, &prev,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return a, err
	}
	a.Title = stringPtr(title)
	a.Description = stringPtr(description)
	a.Owner = stringPtr(owner)
	a.Date = stringPtr(date)
	a.Width = floatPtr(width)
	a.Height = floatPtr(height)
	a.CollectionID = int64Ptr(collectionID)
	a.TypeID = int64Ptr(typeID)
	a.PlaceID = int64Ptr(placeID)
	a.PreviewImageID = int64Ptr(prev)
	return a, nil
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// nullable converts an optional value into a bind argument.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
