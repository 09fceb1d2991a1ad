package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot writes a consistent copy of the live database to dest using
// VACUUM INTO. It reads inside one transaction, so writers running in WAL
// mode neither block it nor leak half-committed state into the copy.
// dest must not exist.
func (b *Backend) Snapshot(ctx context.Context, dest string) error {
	return b.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
			return fmt.Errorf("snapshotting database to %s: %w", dest, err)
		}
		return nil
	})
}

// RebaseImagePaths rewrites stored image and thumbnail paths under oldRoot
// so that they point under newRoot instead. It works on a detached database
// file and returns the number of rows changed. Paths outside oldRoot are
// left as they are.
func RebaseImagePaths(ctx context.Context, dbPath, oldRoot, newRoot string) (int, error) {
	if oldRoot == "" || filepath.Clean(oldRoot) == filepath.Clean(newRoot) {
		return 0, nil
	}
	if _, err := os.Stat(dbPath); err != nil {
		return 0, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db, err := openDB(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning rebase transaction: %w", err)
	}
	defer tx.Rollback()

	type row struct {
		id    int64
		file  string
		thumb sql.NullString
	}
	rows, err := tx.QueryContext(ctx, "SELECT id, file_path, thumbnail_path FROM artwork_images")
	if err != nil {
		return 0, fmt.Errorf("reading image paths: %w", err)
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.file, &r.thumb); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning image path: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating image paths: %w", err)
	}
	rows.Close()

	changed := 0
	for _, r := range all {
		file, fileMoved := rebase(r.file, oldRoot, newRoot)
		thumb := r.thumb
		thumbMoved := false
		if thumb.Valid {
			thumb.String, thumbMoved = rebase(thumb.String, oldRoot, newRoot)
		}
		if !fileMoved && !thumbMoved {
			continue
		}
		if _, err := tx.ExecContext(ctx, "UPDATE artwork_images SET file_path = ?, thumbnail_path = ? WHERE id = ?",
			file, thumb, r.id); err != nil {
			return 0, fmt.Errorf("rebasing image %d: %w", r.id, err)
		}
		changed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebase: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return changed, fmt.Errorf("checkpointing rebase: %w", err)
	}
	return changed, nil
}

func rebase(path, oldRoot, newRoot string) (string, bool) {
	rel, err := filepath.Rel(oldRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path, false
	}
	return filepath.Join(newRoot, rel), true
}
