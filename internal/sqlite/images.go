package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func listImages(ctx context.Context, q querier, artworkID int64) ([]types.ArtworkImage, error) {
	return queryImages(ctx, q,
		"SELECT "+imageColumns+" FROM artwork_images i WHERE i.artwork_id = ? ORDER BY i.created_at DESC, i.id DESC",
		artworkID)
}

func queryImages(ctx context.Context, q querier, query string, args ...any) ([]types.ArtworkImage, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	images := []types.ArtworkImage{}
	for rows.Next() {
		img, err := hydrateImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating images: %w", err)
	}
	return images, nil
}

func getImage(ctx context.Context, q querier, id int64) (types.ArtworkImage, error) {
	img, err := hydrateImage(q.QueryRowContext(ctx, "SELECT "+imageColumns+" FROM artwork_images i WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ArtworkImage{}, fmt.Errorf("image %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.ArtworkImage{}, fmt.Errorf("getting image %d: %w", id, err)
	}
	return img, nil
}

// GetImage returns one image row, or ErrNotFound.
func (b *Backend) GetImage(ctx context.Context, id int64) (types.ArtworkImage, error) {
	var img types.ArtworkImage
	err := b.withDB(func(db *sql.DB) error {
		var gerr error
		img, gerr = getImage(ctx, db, id)
		return gerr
	})
	return img, err
}

// ListImages returns the images of an artwork, newest first.
func (b *Backend) ListImages(ctx context.Context, artworkID int64) ([]types.ArtworkImage, error) {
	var images []types.ArtworkImage
	err := b.withDB(func(db *sql.DB) error {
		var qerr error
		images, qerr = listImages(ctx, db, artworkID)
		return qerr
	})
	return images, err
}

// ListAllImages returns every image row ordered by id.
func (b *Backend) ListAllImages(ctx context.Context) ([]types.ArtworkImage, error) {
	var images []types.ArtworkImage
	err := b.withDB(func(db *sql.DB) error {
		var qerr error
		images, qerr = queryImages(ctx, db, "SELECT "+imageColumns+" FROM artwork_images i ORDER BY i.id")
		return qerr
	})
	return images, err
}

// ListImagesWithoutThumbnail returns images whose thumbnail is still missing.
func (b *Backend) ListImagesWithoutThumbnail(ctx context.Context) ([]types.ArtworkImage, error) {
	var images []types.ArtworkImage
	err := b.withDB(func(db *sql.DB) error {
		var qerr error
		images, qerr = queryImages(ctx, db,
			"SELECT "+imageColumns+" FROM artwork_images i WHERE i.thumbnail_path IS NULL OR i.thumbnail_path = '' ORDER BY i.id")
		return qerr
	})
	return images, err
}

// FindImageByHash returns the image of an artwork with the given content
// hash, or nil when there is none.
func (b *Backend) FindImageByHash(ctx context.Context, artworkID int64, hash string) (*types.ArtworkImage, error) {
	var found *types.ArtworkImage
	err := b.withDB(func(db *sql.DB) error {
		img, err := hydrateImage(db.QueryRowContext(ctx,
			"SELECT "+imageColumns+" FROM artwork_images i WHERE i.artwork_id = ? AND i.hash = ?",
			artworkID, hash))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("finding image by hash: %w", err)
		}
		found = &img
		return nil
	})
	return found, err
}

// InsertImage records an imported original. A row with the same artwork
// and hash makes the insert a no-op: the existing row is returned with
// inserted false. When the new row is the artwork's only image it becomes
// the preview in the same transaction.
func (b *Backend) InsertImage(ctx context.Context, artworkID int64, filePath, hash string) (types.ArtworkImage, bool, error) {
	var (
		img      types.ArtworkImage
		inserted bool
	)
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureArtworkExists(ctx, tx, artworkID); err != nil {
			return err
		}
		createdAt := time.Now().UTC().Format(timeLayout)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO artwork_images (artwork_id, file_path, hash, created_at) VALUES (?, ?, ?, ?)
             ON CONFLICT (artwork_id, hash) DO NOTHING`,
			artworkID, filePath, hash, createdAt)
		if err != nil {
			return fmt.Errorf("inserting image: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("inserting image: %w", err)
		}
		if n == 0 {
			img, err = hydrateImage(tx.QueryRowContext(ctx,
				"SELECT "+imageColumns+" FROM artwork_images i WHERE i.artwork_id = ? AND i.hash = ?",
				artworkID, hash))
			if err != nil {
				return fmt.Errorf("loading existing image: %w", err)
			}
			return nil
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading image id: %w", err)
		}
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM artwork_images WHERE artwork_id = ?", artworkID).Scan(&count); err != nil {
			return fmt.Errorf("counting images: %w", err)
		}
		if count == 1 {
			if _, err := tx.ExecContext(ctx, "UPDATE artworks SET preview_image_id = ? WHERE id = ?", id, artworkID); err != nil {
				return fmt.Errorf("promoting preview: %w", err)
			}
		}
		img, err = getImage(ctx, tx, id)
		inserted = true
		return err
	})
	if err != nil {
		return types.ArtworkImage{}, false, err
	}
	return img, inserted, nil
}

// SetThumbnailPath records the derived thumbnail of an image.
func (b *Backend) SetThumbnailPath(ctx context.Context, imageID int64, path string) error {
	return b.withDB(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "UPDATE artwork_images SET thumbnail_path = ? WHERE id = ?", path, imageID)
		if err != nil {
			return fmt.Errorf("setting thumbnail of image %d: %w", imageID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("image %d: %w", imageID, types.ErrNotFound)
		}
		return nil
	})
}

// DeleteImage removes an image row. When the image is its artwork's
// preview, the preview moves to the oldest remaining image, or to NULL
// when none remains, in the same transaction. The deleted row is returned
// so the caller can remove its files.
func (b *Backend) DeleteImage(ctx context.Context, imageID int64) (types.ArtworkImage, error) {
	var img types.ArtworkImage
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		img, err = getImage(ctx, tx, imageID)
		if err != nil {
			return err
		}

		var preview sql.NullInt64
		if err := tx.QueryRowContext(ctx, "SELECT preview_image_id FROM artworks WHERE id = ?", img.ArtworkID).Scan(&preview); err != nil {
			return fmt.Errorf("reading preview of artwork %d: %w", img.ArtworkID, err)
		}
		if preview.Valid && preview.Int64 == imageID {
			var replacement sql.NullInt64
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM artwork_images WHERE artwork_id = ? AND id <> ? ORDER BY created_at ASC, id ASC LIMIT 1`,
				img.ArtworkID, imageID).Scan(&replacement)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("selecting replacement preview: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "UPDATE artworks SET preview_image_id = ? WHERE id = ?",
				nullable(int64Ptr(replacement)), img.ArtworkID); err != nil {
				return fmt.Errorf("reassigning preview: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM artwork_images WHERE id = ?", imageID); err != nil {
			return fmt.Errorf("deleting image %d: %w", imageID, err)
		}
		return nil
	})
	if err != nil {
		return types.ArtworkImage{}, err
	}
	return img, nil
}

// SetPreviewImage points an artwork's preview at one of its images, or
// clears it when imageID is nil. An image of another artwork fails with
// ErrImageNotOwned.
func (b *Backend) SetPreviewImage(ctx context.Context, artworkID int64, imageID *int64) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureArtworkExists(ctx, tx, artworkID); err != nil {
			return err
		}
		if imageID != nil {
			img, err := getImage(ctx, tx, *imageID)
			if err != nil {
				return err
			}
			if img.ArtworkID != artworkID {
				return fmt.Errorf("image %d, artwork %d: %w", *imageID, artworkID, types.ErrImageNotOwned)
			}
		}
		if _, err := tx.ExecContext(ctx, "UPDATE artworks SET preview_image_id = ? WHERE id = ?", nullable(imageID), artworkID); err != nil {
			return fmt.Errorf("setting preview of artwork %d: %w", artworkID, err)
		}
		return nil
	})
}

// PreviewViolations returns the ids of artworks whose preview points at an
// image that is missing or owned by another artwork.
func (b *Backend) PreviewViolations(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := b.withDB(func(db *sql.DB) error {
		var qerr error
		ids, qerr = queryIDs(ctx, db, `SELECT a.id FROM artworks a
            LEFT JOIN artwork_images i ON i.id = a.preview_image_id
            WHERE a.preview_image_id IS NOT NULL AND (i.id IS NULL OR i.artwork_id <> a.id)
            ORDER BY a.id`)
		return qerr
	})
	return ids, err
}
