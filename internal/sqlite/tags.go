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

// kindTable maps a tag kind onto its table and the way artworks refer to it:
// either a foreign key column on artworks or a join table.
type kindTable struct {
	table      string
	dated      bool
	fkColumn   string
	joinTable  string
	joinColumn string
	orderBy    string
}

var kindTables = map[types.TagKind]kindTable{
	types.KindCollection: {table: "collections", dated: true, fkColumn: "collection_id", orderBy: "t.date DESC, t.name COLLATE NOCASE ASC, t.id ASC"},
	types.KindType:       {table: "types", dated: true, fkColumn: "type_id", orderBy: "t.name COLLATE NOCASE ASC, t.id ASC"},
	types.KindPlace:      {table: "places", dated: true, fkColumn: "place_id", orderBy: "t.name COLLATE NOCASE ASC, t.id ASC"},
	types.KindPigment:    {table: "pigments", joinTable: "artwork_pigments", joinColumn: "pigment_id", orderBy: "t.name COLLATE NOCASE ASC, t.id ASC"},
	types.KindPaper:      {table: "papers", joinTable: "artwork_papers", joinColumn: "paper_id", orderBy: "t.name COLLATE NOCASE ASC, t.id ASC"},
}

func tableFor(kind types.TagKind) (kindTable, error) {
	kt, ok := kindTables[kind]
	if !ok {
		return kindTable{}, types.NewFieldError("kind", fmt.Sprintf("unknown tag kind %q", kind))
	}
	return kt, nil
}

// selectSQL returns the tag projection including its artwork count.
func (s kindTable) selectSQL() string {
	date := "NULL"
	if s.dated {
		date = "t.date"
	}
	count := fmt.Sprintf("(SELECT COUNT(*) FROM artworks x WHERE x.%s = t.id)", s.fkColumn)
	if s.joinTable != "" {
		count = fmt.Sprintf("(SELECT COUNT(*) FROM %s x WHERE x.%s = t.id)", s.joinTable, s.joinColumn)
	}
	return fmt.Sprintf("SELECT t.id, t.name, t.description, %s, %s FROM %s t", date, count, s.table)
}

func hydrateTag(s scanner) (types.Tag, error) {
	var (
		t                 types.Tag
		description, date sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Name, &description, &date, &t.ArtworkCount); err != nil {
		return t, err
	}
	t.Description = stringPtr(description)
	t.Date = stringPtr(date)
	return t, nil
}

func queryTags(ctx context.Context, q querier, query string, args ...any) ([]types.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	tags := []types.Tag{}
	for rows.Next() {
		t, err := hydrateTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

func getTag(ctx context.Context, q querier, kind types.TagKind, id int64) (types.Tag, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return types.Tag{}, err
	}
	t, err := hydrateTag(q.QueryRowContext(ctx, kt.selectSQL()+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Tag{}, fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	if err != nil {
		return types.Tag{}, fmt.Errorf("getting %s %d: %w", kind, id, err)
	}
	return t, nil
}

// ensureTagExists returns ErrNotFound when the tag row is missing.
func ensureTagExists(ctx context.Context, q querier, kind types.TagKind, id int64) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	var one int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM "+kt.table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking %s %d: %w", kind, id, err)
	}
	return nil
}

// ListTags returns every tag of a kind with its artwork count. Collections
// are ordered by date, newest first; the other kinds by name.
func (b *Backend) ListTags(ctx context.Context, kind types.TagKind) ([]types.Tag, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var tags []types.Tag
	err = b.withDB(func(db *sql.DB) error {
		var qerr error
		tags, qerr = queryTags(ctx, db, kt.selectSQL()+" ORDER BY "+kt.orderBy)
		return qerr
	})
	return tags, err
}

// GetTag returns one tag, or ErrNotFound.
func (b *Backend) GetTag(ctx context.Context, kind types.TagKind, id int64) (types.Tag, error) {
	var t types.Tag
	err := b.withDB(func(db *sql.DB) error {
		var gerr error
		t, gerr = getTag(ctx, db, kind, id)
		return gerr
	})
	return t, err
}

// CreateTag inserts a tag. The date is stored only for dated kinds.
func (b *Backend) CreateTag(ctx context.Context, kind types.TagKind, in types.TagInput) (types.Tag, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return types.Tag{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := rule.ValidateStruct(in); err != nil {
		return types.Tag{}, err
	}

	var t types.Tag
	err = b.inTx(ctx, func(tx *sql.Tx) error {
		var res sql.Result
		var ierr error
		if kt.dated {
			res, ierr = tx.ExecContext(ctx,
				"INSERT INTO "+kt.table+" (name, description, date) VALUES (?, ?, ?)",
				in.Name, nullable(in.Description), nullable(in.Date))
		} else {
			res, ierr = tx.ExecContext(ctx,
				"INSERT INTO "+kt.table+" (name, description) VALUES (?, ?)",
				in.Name, nullable(in.Description))
		}
		if ierr != nil {
			return fmt.Errorf("creating %s: %w", kind, ierr)
		}
		id, ierr := res.LastInsertId()
		if ierr != nil {
			return fmt.Errorf("reading %s id: %w", kind, ierr)
		}
		t, ierr = getTag(ctx, tx, kind, id)
		return ierr
	})
	if err != nil {
		return types.Tag{}, err
	}
	b.logger.Debug().Str("kind", string(kind)).Int64("id", t.ID).Msg("tag created")
	return t, nil
}

// UpdateTag applies a partial update. An empty change set fails with
// ErrNothingToUpdate; a date patch on an undated kind is ignored.
func (b *Backend) UpdateTag(ctx context.Context, kind types.TagKind, id int64, u types.TagUpdate) (types.Tag, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return types.Tag{}, err
	}

	var (
		sets []string
		args []any
	)
	if u.Name.Set {
		if u.Name.Value == nil || strings.TrimSpace(*u.Name.Value) == "" {
			return types.Tag{}, types.NewFieldError("name", "is required")
		}
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*u.Name.Value))
	}
	if u.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, nullable(u.Description.Value))
	}
	if u.Date.Set && kt.dated {
		sets = append(sets, "date = ?")
		args = append(args, nullable(u.Date.Value))
	}
	if len(sets) == 0 {
		return types.Tag{}, types.ErrNothingToUpdate
	}

	var t types.Tag
	err = b.inTx(ctx, func(tx *sql.Tx) error {
		res, uerr := tx.ExecContext(ctx,
			"UPDATE "+kt.table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?",
			append(args, id)...)
		if uerr != nil {
			return fmt.Errorf("updating %s %d: %w", kind, id, uerr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
		}
		t, uerr = getTag(ctx, tx, kind, id)
		return uerr
	})
	return t, err
}

// DeleteTag removes a tag. Artworks referring to it by foreign key are
// detached from it; join rows are removed.
func (b *Backend) DeleteTag(ctx context.Context, kind types.TagKind, id int64) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	return b.inTx(ctx, func(tx *sql.Tx) error {
		res, derr := tx.ExecContext(ctx, "DELETE FROM "+kt.table+" WHERE id = ?", id)
		if derr != nil {
			return fmt.Errorf("deleting %s %d: %w", kind, id, derr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
		}
		return nil
	})
}
