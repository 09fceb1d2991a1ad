package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/catalogue/internal/rule"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// ListArtworks returns the artworks matching f, each at most once, ordered
// by numeric reference then title, and enriched with its primary image.
// Total counts all matches regardless of pagination.
func (b *Backend) ListArtworks(ctx context.Context, f types.ArtworkFilter) (types.ListResult, error) {
	plan, err := CompileFilter(f)
	if err != nil {
		return types.ListResult{}, err
	}

	var result types.ListResult
	err = b.withDB(func(db *sql.DB) error {
		query, args := plan.selectSQL(selectArtworkColumns)
		items, qerr := queryArtworks(ctx, db, query, args...)
		if qerr != nil {
			return qerr
		}

		total := len(items)
		if plan.Paginated() {
			countQuery, countArgs := plan.countSQL()
			if qerr := db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); qerr != nil {
				return fmt.Errorf("counting artworks: %w", qerr)
			}
		}

		result = types.ListResult{
			Items:     items,
			Total:     total,
			HasMore:   plan.Offset()+len(items) < total,
			Paginated: plan.Paginated(),
		}
		return nil
	})
	return result, err
}

func getArtwork(ctx context.Context, q querier, id int64) (types.Artwork, error) {
	items, err := queryArtworks(ctx, q, "SELECT "+selectArtworkColumns+" FROM artworks a WHERE a.id = ?", id)
	if err != nil {
		return types.Artwork{}, err
	}
	if len(items) == 0 {
		return types.Artwork{}, fmt.Errorf("artwork %d: %w", id, types.ErrNotFound)
	}
	return items[0], nil
}

// GetArtwork returns one artwork with its primary image, or ErrNotFound.
func (b *Backend) GetArtwork(ctx context.Context, id int64) (types.Artwork, error) {
	var a types.Artwork
	err := b.withDB(func(db *sql.DB) error {
		var gerr error
		a, gerr = getArtwork(ctx, db, id)
		return gerr
	})
	return a, err
}

// GetArtworkFull returns the detail projection of one artwork: its tags,
// all its images newest first, and the referenced collection, type and
// place. A missing artwork yields ErrNotFound.
func (b *Backend) GetArtworkFull(ctx context.Context, id int64) (types.ArtworkFull, error) {
	var full types.ArtworkFull
	err := b.withDB(func(db *sql.DB) error {
		a, err := getArtwork(ctx, db, id)
		if err != nil {
			return err
		}
		full.Artwork = a

		if full.Pigments, err = associatedTags(ctx, db, types.KindPigment, id); err != nil {
			return err
		}
		if full.Papers, err = associatedTags(ctx, db, types.KindPaper, id); err != nil {
			return err
		}
		if full.Images, err = listImages(ctx, db, id); err != nil {
			return err
		}

		refs := []struct {
			kind types.TagKind
			id   *int64
			dst  **types.Tag
		}{
			{types.KindCollection, a.CollectionID, &full.Collection},
			{types.KindType, a.TypeID, &full.Type},
			{types.KindPlace, a.PlaceID, &full.Place},
		}
		for _, ref := range refs {
			if ref.id == nil {
				continue
			}
			t, err := getTag(ctx, db, ref.kind, *ref.id)
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			*ref.dst = &t
		}
		return nil
	})
	if err != nil {
		return types.ArtworkFull{}, err
	}
	return full, nil
}

// ListYears aggregates extracted years over all dated artworks, newest
// year first. Dates without a usable year are left out.
func (b *Backend) ListYears(ctx context.Context) ([]types.YearCount, error) {
	query := fmt.Sprintf(`SELECT year, COUNT(*) FROM (
    SELECT %s AS year FROM artworks a WHERE a.date IS NOT NULL AND trim(a.date) <> ''
) WHERE year BETWEEN ? AND ? GROUP BY year ORDER BY year DESC`, yearExpr("a.date"))

	years := []types.YearCount{}
	err := b.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, MinYear, MaxYear)
		if err != nil {
			return fmt.Errorf("listing years: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var yc types.YearCount
			if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
				return fmt.Errorf("scanning year: %w", err)
			}
			years = append(years, yc)
		}
		return rows.Err()
	})
	return years, err
}

// checkArtworkRefs verifies that referenced collection, type and place exist.
func checkArtworkRefs(ctx context.Context, q querier, collectionID, typeID, placeID *int64) error {
	refs := []struct {
		kind types.TagKind
		id   *int64
	}{
		{types.KindCollection, collectionID},
		{types.KindType, typeID},
		{types.KindPlace, placeID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if err := ensureTagExists(ctx, q, ref.kind, *ref.id); err != nil {
			return err
		}
	}
	return nil
}

// CreateArtwork inserts a new artwork without images. The reference is
// required and stored trimmed.
func (b *Backend) CreateArtwork(ctx context.Context, in types.ArtworkInput) (types.Artwork, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if err := rule.ValidateStruct(in); err != nil {
		return types.Artwork{}, err
	}

	var a types.Artwork
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkArtworkRefs(ctx, tx, in.CollectionID, in.TypeID, in.PlaceID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO artworks (reference, title, description, owner, width, height, date, collection_id, type_id, place_id)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Reference, nullable(in.Title), nullable(in.Description), nullable(in.Owner),
			nullable(in.Width), nullable(in.Height), nullable(in.Date),
			nullable(in.CollectionID), nullable(in.TypeID), nullable(in.PlaceID),
		)
		if err != nil {
			return fmt.Errorf("creating artwork: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading artwork id: %w", err)
		}
		a, err = getArtwork(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Artwork{}, err
	}
	b.logger.Debug().Int64("id", a.ID).Str("reference", a.Reference).Msg("artwork created")
	return a, nil
}

// artworkSets renders the SET clause of a partial update, validating each
// patched field.
func artworkSets(u types.ArtworkUpdate) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if u.Reference.Set {
		if u.Reference.Value == nil || strings.TrimSpace(*u.Reference.Value) == "" {
			return nil, nil, types.NewFieldError("reference", "is required")
		}
		add("reference", strings.TrimSpace(*u.Reference.Value))
	}
	if u.Title.Set {
		add("title", nullable(u.Title.Value))
	}
	if u.Description.Set {
		add("description", nullable(u.Description.Value))
	}
	if u.Owner.Set {
		add("owner", nullable(u.Owner.Value))
	}
	if u.Width.Set {
		if u.Width.Value != nil {
			if err := rule.ValidateVar("width", *u.Width.Value, "gt=0"); err != nil {
				return nil, nil, err
			}
		}
		add("width", nullable(u.Width.Value))
	}
	if u.Height.Set {
		if u.Height.Value != nil {
			if err := rule.ValidateVar("height", *u.Height.Value, "gt=0"); err != nil {
				return nil, nil, err
			}
		}
		add("height", nullable(u.Height.Value))
	}
	if u.Date.Set {
		add("date", nullable(u.Date.Value))
	}
	if u.CollectionID.Set {
		add("collection_id", nullable(u.CollectionID.Value))
	}
	if u.TypeID.Set {
		add("type_id", nullable(u.TypeID.Value))
	}
	if u.PlaceID.Set {
		add("place_id", nullable(u.PlaceID.Value))
	}
	return sets, args, nil
}

// UpdateArtwork applies a partial update. An empty change set fails with
// ErrNothingToUpdate before the store is touched.
func (b *Backend) UpdateArtwork(ctx context.Context, id int64, u types.ArtworkUpdate) (types.Artwork, error) {
	if u.Empty() {
		return types.Artwork{}, types.ErrNothingToUpdate
	}
	sets, args, err := artworkSets(u)
	if err != nil {
		return types.Artwork{}, err
	}

	var a types.Artwork
	err = b.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkArtworkRefs(ctx, tx, patchRef(u.CollectionID), patchRef(u.TypeID), patchRef(u.PlaceID)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE artworks SET "+strings.Join(sets, ", ")+" WHERE id = ?",
			append(args, id)...)
		if err != nil {
			return fmt.Errorf("updating artwork %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("artwork %d: %w", id, types.ErrNotFound)
		}
		a, err = getArtwork(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Artwork{}, err
	}
	return a, nil
}

func patchRef(p types.Patch[int64]) *int64 {
	if !p.Set {
		return nil
	}
	return p.Value
}

// DeleteArtwork removes an artwork together with its image rows and tag
// associations in one transaction. The removed image rows are returned so
// the caller can clear their files.
func (b *Backend) DeleteArtwork(ctx context.Context, id int64) ([]types.ArtworkImage, error) {
	var removed []types.ArtworkImage
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		images, err := listImages(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE artworks SET preview_image_id = NULL WHERE id = ?", id); err != nil {
			return fmt.Errorf("releasing preview of artwork %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM artworks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting artwork %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("artwork %d: %w", id, types.ErrNotFound)
		}
		removed = images
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug().Int64("id", id).Int("images", len(removed)).Msg("artwork deleted")
	return removed, nil
}
