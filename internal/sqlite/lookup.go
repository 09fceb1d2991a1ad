package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// ArtworkIDsByReference resolves a human reference to artwork ids. An exact
// match wins; otherwise a numeric reference is compared as an integer, so
// "0042" finds the artwork stored as "42".
func (b *Backend) ArtworkIDsByReference(ctx context.Context, ref string) ([]int64, error) {
	var ids []int64
	err := b.withDB(func(db *sql.DB) error {
		var err error
		ids, err = queryIDs(ctx, db, "SELECT id FROM artworks WHERE reference = ? ORDER BY id", ref)
		if err != nil || len(ids) > 0 {
			return err
		}
		n, perr := strconv.ParseInt(ref, 10, 64)
		if perr != nil {
			return nil
		}
		ids, err = queryIDs(ctx, db, "SELECT id FROM artworks WHERE CAST(reference AS INTEGER) = ? ORDER BY id", n)
		return err
	})
	return ids, err
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
