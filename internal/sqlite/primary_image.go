package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// primaryImageExpr selects the id of an artwork's primary image: its
// preview when the preview belongs to it, otherwise its oldest image.
// Evaluated per query, so the answer always reflects the current rows.
const primaryImageExpr = `COALESCE(
    (SELECT pi.id FROM artwork_images pi WHERE pi.id = a.preview_image_id AND pi.artwork_id = a.id),
    (SELECT oi.id FROM artwork_images oi WHERE oi.artwork_id = a.id ORDER BY oi.created_at ASC, oi.id ASC LIMIT 1)
)`

// imageChunk bounds the number of bind parameters per IN list.
const imageChunk = 500

// loadImages fetches image rows by id.
func loadImages(ctx context.Context, q querier, ids []int64) (map[int64]types.ArtworkImage, error) {
	out := make(map[int64]types.ArtworkImage, len(ids))
	for start := 0; start < len(ids); start += imageChunk {
		end := min(start+imageChunk, len(ids))
		chunk := ids[start:end]

		rows, err := q.QueryContext(ctx,
			"SELECT "+imageColumns+" FROM artwork_images i WHERE i.id IN ("+placeholders(len(chunk))+")",
			int64Args(chunk)...,
		)
		if err != nil {
			return nil, fmt.Errorf("loading images: %w", err)
		}
		for rows.Next() {
			img, err := hydrateImage(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning image: %w", err)
			}
			out[img.ID] = img
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating images: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

// attachPrimaryImages sets PrimaryImage on each artwork from the matching
// primary id, leaving it nil where the artwork has no image.
func attachPrimaryImages(ctx context.Context, q querier, artworks []types.Artwork, primaryIDs []sql.NullInt64) error {
	ids := make([]int64, 0, len(primaryIDs))
	for _, id := range primaryIDs {
		if id.Valid {
			ids = append(ids, id.Int64)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	images, err := loadImages(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range artworks {
		if !primaryIDs[i].Valid {
			continue
		}
		if img, ok := images[primaryIDs[i].Int64]; ok {
			artworks[i].PrimaryImage = &img
		}
	}
	return nil
}

// queryArtworks runs a listing query whose columns are artworkColumns
// followed by primaryImageExpr, and enriches the result.
func queryArtworks(ctx context.Context, q querier, query string, args ...any) ([]types.Artwork, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying artworks: %w", err)
	}
	defer rows.Close()

	items := []types.Artwork{}
	var primary []sql.NullInt64
	for rows.Next() {
		var pid sql.NullInt64
		a, err := hydrateArtwork(rows, &pid)
		if err != nil {
			return nil, fmt.Errorf("scanning artwork: %w", err)
		}
		items = append(items, a)
		primary = append(primary, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artworks: %w", err)
	}
	rows.Close()

	if err := attachPrimaryImages(ctx, q, items, primary); err != nil {
		return nil, err
	}
	return items, nil
}

// selectArtworkColumns is the column list for enriched artwork queries.
var selectArtworkColumns = strings.Join([]string{artworkColumns, primaryImageExpr}, ", ")
