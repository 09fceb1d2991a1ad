package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL. Statements are idempotent so Attach can run them on every open.
const (
	createCollections = `CREATE TABLE IF NOT EXISTS collections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    date TEXT
);`

	createTypes = `CREATE TABLE IF NOT EXISTS types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    date TEXT
);`

	createPlaces = `CREATE TABLE IF NOT EXISTS places (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    date TEXT
);`

	createPigments = `CREATE TABLE IF NOT EXISTS pigments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT
);`

	createPapers = `CREATE TABLE IF NOT EXISTS papers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT
);`

	createArtworks = `CREATE TABLE IF NOT EXISTS artworks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT NOT NULL,
    title TEXT,
    description TEXT,
    owner TEXT,
    width REAL,
    height REAL,
    date TEXT,
    collection_id INTEGER REFERENCES collections(id) ON DELETE SET NULL,
    type_id INTEGER REFERENCES types(id) ON DELETE SET NULL,
    place_id INTEGER REFERENCES places(id) ON DELETE SET NULL,
    preview_image_id INTEGER REFERENCES artwork_images(id) ON DELETE SET NULL
);`

	createArtworkImages = `CREATE TABLE IF NOT EXISTS artwork_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    artwork_id INTEGER NOT NULL REFERENCES artworks(id) ON DELETE CASCADE,
    file_path TEXT NOT NULL,
    thumbnail_path TEXT,
    hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (artwork_id, hash)
);`

	createArtworkPigments = `CREATE TABLE IF NOT EXISTS artwork_pigments (
    artwork_id INTEGER NOT NULL REFERENCES artworks(id) ON DELETE CASCADE,
    pigment_id INTEGER NOT NULL REFERENCES pigments(id) ON DELETE CASCADE,
    PRIMARY KEY (artwork_id, pigment_id)
);`

	createArtworkPapers = `CREATE TABLE IF NOT EXISTS artwork_papers (
    artwork_id INTEGER NOT NULL REFERENCES artworks(id) ON DELETE CASCADE,
    paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    PRIMARY KEY (artwork_id, paper_id)
);`

	// External-content full-text index over the searchable artwork fields,
	// kept in sync by the triggers below.
	createArtworksFTS = `CREATE VIRTUAL TABLE IF NOT EXISTS artworks_fts USING fts5(
    reference, title, description, owner,
    content='artworks', content_rowid='id'
);`

	createFTSInsertTrigger = `CREATE TRIGGER IF NOT EXISTS artworks_fts_ai AFTER INSERT ON artworks BEGIN
    INSERT INTO artworks_fts(rowid, reference, title, description, owner)
    VALUES (new.id, new.reference, new.title, new.description, new.owner);
END;`

	createFTSDeleteTrigger = `CREATE TRIGGER IF NOT EXISTS artworks_fts_ad AFTER DELETE ON artworks BEGIN
    INSERT INTO artworks_fts(artworks_fts, rowid, reference, title, description, owner)
    VALUES ('delete', old.id, old.reference, old.title, old.description, old.owner);
END;`

	createFTSUpdateTrigger = `CREATE TRIGGER IF NOT EXISTS artworks_fts_au AFTER UPDATE OF reference, title, description, owner ON artworks BEGIN
    INSERT INTO artworks_fts(artworks_fts, rowid, reference, title, description, owner)
    VALUES ('delete', old.id, old.reference, old.title, old.description, old.owner);
    INSERT INTO artworks_fts(rowid, reference, title, description, owner)
    VALUES (new.id, new.reference, new.title, new.description, new.owner);
END;`
)

// Index DDL for the filter and enrichment queries.
const (
	idxArtworksCollection   = `CREATE INDEX IF NOT EXISTS idx_artworks_collection ON artworks(collection_id);`
	idxArtworksType         = `CREATE INDEX IF NOT EXISTS idx_artworks_type ON artworks(type_id);`
	idxArtworksPlace        = `CREATE INDEX IF NOT EXISTS idx_artworks_place ON artworks(place_id);`
	idxArtworksReference    = `CREATE INDEX IF NOT EXISTS idx_artworks_reference ON artworks(reference);`
	idxImagesArtworkCreated = `CREATE INDEX IF NOT EXISTS idx_images_artwork_created ON artwork_images(artwork_id, created_at, id);`
	idxArtworkPigmentsTag   = `CREATE INDEX IF NOT EXISTS idx_artwork_pigments_pigment ON artwork_pigments(pigment_id);`
	idxArtworkPapersTag     = `CREATE INDEX IF NOT EXISTS idx_artwork_papers_paper ON artwork_papers(paper_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createCollections,
	createTypes,
	createPlaces,
	createPigments,
	createPapers,
	createArtworks,
	createArtworkImages,
	createArtworkPigments,
	createArtworkPapers,
	createArtworksFTS,
	createFTSInsertTrigger,
	createFTSDeleteTrigger,
	createFTSUpdateTrigger,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxArtworksCollection,
	idxArtworksType,
	idxArtworksPlace,
	idxArtworksReference,
	idxImagesArtworkCreated,
	idxArtworkPigmentsTag,
	idxArtworkPapersTag,
}

// applySchema creates missing tables, triggers and indexes in one transaction.
func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return tx.Commit()
}
