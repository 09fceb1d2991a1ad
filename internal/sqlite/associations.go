package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// SetPigmentsForArtwork replaces the pigments linked to an artwork.
func (b *Backend) SetPigmentsForArtwork(ctx context.Context, artworkID int64, pigmentIDs []int64) error {
	return b.setAssociations(ctx, types.KindPigment, artworkID, pigmentIDs)
}

// SetPapersForArtwork replaces the papers linked to an artwork.
func (b *Backend) SetPapersForArtwork(ctx context.Context, artworkID int64, paperIDs []int64) error {
	return b.setAssociations(ctx, types.KindPaper, artworkID, paperIDs)
}

// setAssociations replaces the whole association set of one artwork in a
// single transaction: delete every link, then insert the new set. Repeated
// ids collapse, an empty set clears. An unknown artwork or tag id fails
// with ErrNotFound and leaves the previous set in place.
func (b *Backend) setAssociations(ctx context.Context, kind types.TagKind, artworkID int64, tagIDs []int64) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	if kt.joinTable == "" {
		return types.NewFieldError("kind", fmt.Sprintf("%s is not a many-to-many kind", kind))
	}
	ids := dedupIDs(tagIDs)

	err = b.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureArtworkExists(ctx, tx, artworkID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+kt.joinTable+" WHERE artwork_id = ?", artworkID); err != nil {
			return fmt.Errorf("clearing %s links of artwork %d: %w", kind, artworkID, err)
		}
		insert := fmt.Sprintf("INSERT INTO %s (artwork_id, %s) VALUES (?, ?)", kt.joinTable, kt.joinColumn)
		for _, id := range ids {
			if err := ensureTagExists(ctx, tx, kind, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insert, artworkID, id); err != nil {
				return fmt.Errorf("linking %s %d to artwork %d: %w", kind, id, artworkID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug().Str("kind", string(kind)).Int64("artwork", artworkID).Int("count", len(ids)).Msg("associations replaced")
	return nil
}

// AssociationIDs returns the tag ids linked to an artwork, ascending.
func (b *Backend) AssociationIDs(ctx context.Context, kind types.TagKind, artworkID int64) ([]int64, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if kt.joinTable == "" {
		return nil, types.NewFieldError("kind", fmt.Sprintf("%s is not a many-to-many kind", kind))
	}

	ids := []int64{}
	err = b.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE artwork_id = ? ORDER BY %s", kt.joinColumn, kt.joinTable, kt.joinColumn),
			artworkID)
		if err != nil {
			return fmt.Errorf("listing %s links: %w", kind, err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning %s link: %w", kind, err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// associatedTags returns the tags of a join-table kind linked to an artwork.
func associatedTags(ctx context.Context, q querier, kind types.TagKind, artworkID int64) ([]types.Tag, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("%s JOIN %s l ON l.%s = t.id WHERE l.artwork_id = ? ORDER BY %s",
		kt.selectSQL(), kt.joinTable, kt.joinColumn, kt.orderBy)
	return queryTags(ctx, q, query, artworkID)
}

func ensureArtworkExists(ctx context.Context, q querier, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM artworks WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("artwork %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking artwork %d: %w", id, err)
	}
	return nil
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
