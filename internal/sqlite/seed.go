package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// sampleTag describes a tag created by SeedSampleData.
type sampleTag struct {
	name        string
	description string
	date        string
}

// sampleArtwork describes an artwork created by SeedSampleData. Tag fields
// name entries of the sample tag lists.
type sampleArtwork struct {
	reference  string
	title      string
	width      float64
	height     float64
	date       string
	collection string
	kind       string
	place      string
	pigments   []string
	papers     []string
}

var sampleTags = map[types.TagKind][]sampleTag{
	types.KindCollection: {
		{"Série Paysages", "Collection de paysages peints en extérieur", "2024-01-15"},
		{"Portraits", "Série de portraits réalisés en atelier", "2024-03-10"},
		{"Abstractions", "Œuvres abstraites contemporaines", "2024-06-20"},
	},
	types.KindType: {
		{"Aquarelle", "Peinture à l'eau sur papier", ""},
		{"Gouache", "Peinture opaque à l'eau", ""},
	},
	types.KindPlace: {
		{"Atelier", "Travail en atelier", ""},
		{"Plein air", "Travail sur le motif", ""},
	},
	types.KindPigment: {
		{"Bleu Outremer", "Pigment bleu profond, stable à la lumière", ""},
		{"Rouge Cadmium", "Rouge vif et opaque, excellente permanence", ""},
		{"Jaune Cadmium", "Jaune lumineux et opaque", ""},
		{"Terre de Sienne Brûlée", "Brun chaud naturel", ""},
		{"Blanc de Titane", "Blanc opaque de haute qualité", ""},
		{"Noir d'Ivoire", "Noir profond avec une pointe de brun", ""},
		{"Vert Véronèse", "Vert froid et lumineux", ""},
		{"Ocre Jaune", "Jaune terreux naturel", ""},
	},
	types.KindPaper: {
		{"Arches 300g", "Papier aquarelle grain fin, 100% coton", ""},
		{"Canson Montval 270g", "Papier aquarelle grain moyen", ""},
		{"Fabriano Artistico 640g", "Papier aquarelle très épais, grain torchon", ""},
		{"Hahnemühle 425g", "Papier premium grain satiné", ""},
		{"Clairefontaine Maya", "Papier coloré grain léger", ""},
	},
}

var sampleArtworks = []sampleArtwork{
	{"2810", "Marais au matin", 30, 30, "2024-02-24", "Série Paysages", "Aquarelle", "Plein air",
		[]string{"Bleu Outremer", "Ocre Jaune"}, []string{"Arches 300g"}},
	{"2811", "Falaises", 40, 30, "Printemps [2024]", "Série Paysages", "Aquarelle", "Plein air",
		[]string{"Terre de Sienne Brûlée", "Bleu Outremer"}, []string{"Fabriano Artistico 640g"}},
	{"1502", "Portrait de Jeanne", 24, 32, "10.1995", "Portraits", "Gouache", "Atelier",
		[]string{"Rouge Cadmium", "Blanc de Titane"}, []string{"Canson Montval 270g"}},
	{"1503", "Autoportrait", 24, 32, "1998-11-03", "Portraits", "Gouache", "Atelier",
		[]string{"Noir d'Ivoire"}, nil},
	{"A-17", "Composition verte", 50, 65, "", "Abstractions", "Gouache", "Atelier",
		[]string{"Vert Véronèse", "Jaune Cadmium"}, []string{"Clairefontaine Maya", "Hahnemühle 425g"}},
}

// SeedSampleData fills an empty catalogue with demonstration tags and
// artworks. Kinds and artworks that already have rows are left alone, so
// running it twice changes nothing.
func (b *Backend) SeedSampleData(ctx context.Context) error {
	return b.inTx(ctx, func(tx *sql.Tx) error {
		ids := make(map[types.TagKind]map[string]int64, len(sampleTags))
		for _, kind := range types.TagKinds {
			kt, _ := tableFor(kind)
			byName, err := seedTags(ctx, tx, kind, kt)
			if err != nil {
				return err
			}
			ids[kind] = byName
		}

		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM artworks").Scan(&count); err != nil {
			return fmt.Errorf("counting artworks: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, sa := range sampleArtworks {
			if err := seedArtwork(ctx, tx, sa, ids); err != nil {
				return err
			}
		}
		b.logger.Info().Int("artworks", len(sampleArtworks)).Msg("sample data seeded")
		return nil
	})
}

// seedTags inserts the sample tags of one kind when its table is empty and
// returns the id of every tag by name.
func seedTags(ctx context.Context, tx *sql.Tx, kind types.TagKind, kt kindTable) (map[string]int64, error) {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kt.table).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting %s: %w", kt.table, err)
	}
	if count == 0 {
		for _, st := range sampleTags[kind] {
			var err error
			if kt.dated {
				_, err = tx.ExecContext(ctx, "INSERT INTO "+kt.table+" (name, description, date) VALUES (?, ?, ?)",
					st.name, st.description, emptyNull(st.date))
			} else {
				_, err = tx.ExecContext(ctx, "INSERT INTO "+kt.table+" (name, description) VALUES (?, ?)",
					st.name, st.description)
			}
			if err != nil {
				return nil, fmt.Errorf("seeding %s %s: %w", kind, st.name, err)
			}
		}
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, name FROM "+kt.table)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", kt.table, err)
	}
	defer rows.Close()
	byName := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kt.table, err)
		}
		byName[name] = id
	}
	return byName, rows.Err()
}

func seedArtwork(ctx context.Context, tx *sql.Tx, sa sampleArtwork, ids map[types.TagKind]map[string]int64) error {
	ref := func(kind types.TagKind, name string) any {
		if id, ok := ids[kind][name]; ok {
			return id
		}
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO artworks (reference, title, width, height, date, collection_id, type_id, place_id)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sa.reference, sa.title, sa.width, sa.height, emptyNull(sa.date),
		ref(types.KindCollection, sa.collection), ref(types.KindType, sa.kind), ref(types.KindPlace, sa.place))
	if err != nil {
		return fmt.Errorf("seeding artwork %s: %w", sa.reference, err)
	}
	artworkID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading artwork id: %w", err)
	}

	links := []struct {
		kind  types.TagKind
		names []string
	}{
		{types.KindPigment, sa.pigments},
		{types.KindPaper, sa.papers},
	}
	for _, l := range links {
		kt, _ := tableFor(l.kind)
		for _, name := range l.names {
			id, ok := ids[l.kind][name]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("INSERT OR IGNORE INTO %s (artwork_id, %s) VALUES (?, ?)", kt.joinTable, kt.joinColumn),
				artworkID, id); err != nil {
				return fmt.Errorf("linking %s %s to artwork %s: %w", l.kind, name, sa.reference, err)
			}
		}
	}
	return nil
}

func emptyNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
