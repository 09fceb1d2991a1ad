package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func mustTag(t *testing.T, b *Backend, kind types.TagKind, name string) int64 {
	t.Helper()
	tag, err := b.CreateTag(context.Background(), kind, types.TagInput{Name: name})
	require.NoError(t, err)
	return tag.ID
}

func mustArtwork(t *testing.T, b *Backend, in types.ArtworkInput) int64 {
	t.Helper()
	a, err := b.CreateArtwork(context.Background(), in)
	require.NoError(t, err)
	return a.ID
}

func references(items []types.Artwork) []string {
	refs := make([]string, len(items))
	for i, a := range items {
		refs[i] = a.Reference
	}
	return refs
}

func TestListArtworks_Ordering(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	mustArtwork(t, b, types.ArtworkInput{Reference: "2", Title: ptr("b")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "abc", Title: ptr("Zeta")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "100", Title: ptr("c")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "A-1", Title: ptr("alpha")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "10", Title: ptr("a")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "10", Title: ptr("B")})

	res, err := b.ListArtworks(ctx, types.ArtworkFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "10", "10", "2", "A-1", "abc"}, references(res.Items))
	assert.Equal(t, "a", *res.Items[1].Title)
	assert.Equal(t, "B", *res.Items[2].Title)
	assert.False(t, res.Paginated)
	assert.Equal(t, 6, res.Total)
}

func TestListArtworks_Pagination(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	for _, ref := range []string{"1", "2", "3", "4", "5"} {
		mustArtwork(t, b, types.ArtworkInput{Reference: ref})
	}

	tests := []struct {
		name     string
		limit    *int
		offset   *int
		wantRefs []string
		wantMore bool
	}{
		{"first page", ptr(2), ptr(0), []string{"5", "4"}, true},
		{"middle page", ptr(2), ptr(2), []string{"3", "2"}, true},
		{"last page", ptr(2), ptr(4), []string{"1"}, false},
		{"beyond end", ptr(2), ptr(10), []string{}, false},
		{"offset only", nil, ptr(3), []string{"2", "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.ListArtworks(ctx, types.ArtworkFilter{Limit: tt.limit, Offset: tt.offset})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefs, references(res.Items))
			assert.Equal(t, 5, res.Total)
			assert.Equal(t, tt.wantMore, res.HasMore)
			assert.True(t, res.Paginated)
		})
	}
}

func TestListArtworks_Filters(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	blue := mustTag(t, b, types.KindPigment, "Bleu Outremer")
	red := mustTag(t, b, types.KindPigment, "Rouge Cadmium")
	arches := mustTag(t, b, types.KindPaper, "Arches")
	landscapes := mustTag(t, b, types.KindCollection, "Paysages")
	watercolor := mustTag(t, b, types.KindType, "Aquarelle")

	marsh := mustArtwork(t, b, types.ArtworkInput{Reference: "1", Title: ptr("Marais au matin"), Date: ptr("2007-05-12"),
		CollectionID: &landscapes, TypeID: &watercolor})
	cliff := mustArtwork(t, b, types.ArtworkInput{Reference: "2", Title: ptr("Falaises"), Date: ptr("Summer [2007]"),
		CollectionID: &landscapes})
	portrait := mustArtwork(t, b, types.ArtworkInput{Reference: "3", Title: ptr("Portrait"), Date: ptr("10.1995"),
		Owner: ptr("Jeanne Martin")})
	mustArtwork(t, b, types.ArtworkInput{Reference: "4", Title: ptr("Sans titre")})

	require.NoError(t, b.SetPigmentsForArtwork(ctx, marsh, []int64{blue, red}))
	require.NoError(t, b.SetPigmentsForArtwork(ctx, cliff, []int64{blue}))
	require.NoError(t, b.SetPapersForArtwork(ctx, marsh, []int64{arches}))
	require.NoError(t, b.SetPapersForArtwork(ctx, portrait, []int64{arches}))

	tests := []struct {
		name   string
		filter types.ArtworkFilter
		want   []string
	}{
		{"empty filter returns all", types.ArtworkFilter{}, []string{"4", "3", "2", "1"}},
		{"pigment match does not repeat rows", types.ArtworkFilter{Pigments: []int64{blue, red}}, []string{"2", "1"}},
		{"single pigment", types.ArtworkFilter{Pigments: []int64{red}}, []string{"1"}},
		{"pigments and papers combine with AND", types.ArtworkFilter{Pigments: []int64{blue}, Papers: []int64{arches}}, []string{"1"}},
		{"empty slices mean no filter", types.ArtworkFilter{Pigments: []int64{}, Years: []int{}}, []string{"4", "3", "2", "1"}},
		{"collection", types.ArtworkFilter{CollectionID: &landscapes}, []string{"2", "1"}},
		{"collection and type", types.ArtworkFilter{CollectionID: &landscapes, TypeID: &watercolor}, []string{"1"}},
		{"no collection", types.ArtworkFilter{NoCollection: true}, []string{"4", "3"}},
		{"no type", types.ArtworkFilter{NoType: true}, []string{"4", "3", "2"}},
		{"no place", types.ArtworkFilter{NoPlace: true}, []string{"4", "3", "2", "1"}},
		{"no pigments", types.ArtworkFilter{NoPigments: true}, []string{"4", "3"}},
		{"no papers", types.ArtworkFilter{NoPapers: true}, []string{"4", "2"}},
		{"no pigments and no papers", types.ArtworkFilter{NoPigments: true, NoPapers: true}, []string{"4"}},
		{"years", types.ArtworkFilter{Years: []int{2007}}, []string{"2", "1"}},
		{"years any of", types.ArtworkFilter{Years: []int{1995, 2007}}, []string{"3", "2", "1"}},
		{"years outside range match nothing", types.ArtworkFilter{Years: []int{3000}}, []string{}},
		{"date range lower bound", types.ArtworkFilter{DateRange: &types.DateRange{From: "2000-01-01"}}, []string{"1"}},
		{"date range upper bound", types.ArtworkFilter{DateRange: &types.DateRange{To: "2000-01-01"}}, []string{}},
		{"date range both bounds", types.ArtworkFilter{DateRange: &types.DateRange{From: "2007-01-01", To: "2007-12-31"}}, []string{"1"}},
		{"date range excludes later", types.ArtworkFilter{DateRange: &types.DateRange{From: "2008-01-01"}}, []string{}},
		{"text query prefix", types.ArtworkFilter{Query: "mara"}, []string{"1"}},
		{"text query on owner", types.ArtworkFilter{Query: "jeanne"}, []string{"3"}},
		{"text query terms combine", types.ArtworkFilter{Query: "marais soir"}, []string{}},
		{"text query with pigment", types.ArtworkFilter{Query: "falaises", Pigments: []int64{blue}}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.ListArtworks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, references(res.Items))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestListArtworks_QuerySyntaxIsEscaped(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	mustArtwork(t, b, types.ArtworkInput{Reference: "1", Title: ptr(`L'"atelier"`)})

	for _, q := range []string{`"`, `atelier"`, `(`, `AND`, `NEAR(`, `*`, `title:x`, `l'atelier`} {
		t.Run(q, func(t *testing.T) {
			_, err := b.ListArtworks(ctx, types.ArtworkFilter{Query: q})
			assert.NoError(t, err)
		})
	}
}

func TestListArtworks_TextIndexFollowsUpdates(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1", Title: ptr("Marais")})

	_, err := b.UpdateArtwork(ctx, id, types.ArtworkUpdate{Title: types.SetTo("Falaises")})
	require.NoError(t, err)

	res, err := b.ListArtworks(ctx, types.ArtworkFilter{Query: "marais"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = b.ListArtworks(ctx, types.ArtworkFilter{Query: "falaises"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	_, err = b.DeleteArtwork(ctx, id)
	require.NoError(t, err)
	res, err = b.ListArtworks(ctx, types.ArtworkFilter{Query: "falaises"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestListArtworks_PrimaryImage(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	withImages := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	other := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})
	bare := mustArtwork(t, b, types.ArtworkInput{Reference: "3"})

	first, _, err := b.InsertImage(ctx, withImages, "/data/1/a.jpg", "h1")
	require.NoError(t, err)
	second, _, err := b.InsertImage(ctx, withImages, "/data/1/b.jpg", "h2")
	require.NoError(t, err)
	foreign, _, err := b.InsertImage(ctx, other, "/data/2/c.jpg", "h3")
	require.NoError(t, err)

	primaryOf := func(id int64) *types.ArtworkImage {
		t.Helper()
		res, err := b.ListArtworks(ctx, types.ArtworkFilter{})
		require.NoError(t, err)
		for _, a := range res.Items {
			if a.ID == id {
				return a.PrimaryImage
			}
		}
		t.Fatalf("artwork %d not listed", id)
		return nil
	}

	// First import became the preview.
	require.NotNil(t, primaryOf(withImages))
	assert.Equal(t, first.ID, primaryOf(withImages).ID)

	require.NoError(t, b.SetPreviewImage(ctx, withImages, &second.ID))
	assert.Equal(t, second.ID, primaryOf(withImages).ID)

	// Without a preview the oldest image is used.
	require.NoError(t, b.SetPreviewImage(ctx, withImages, nil))
	assert.Equal(t, first.ID, primaryOf(withImages).ID)

	// A preview owned by another artwork is ignored.
	_, err = b.db.Exec("UPDATE artworks SET preview_image_id = ? WHERE id = ?", foreign.ID, withImages)
	require.NoError(t, err)
	assert.Equal(t, first.ID, primaryOf(withImages).ID)

	assert.Nil(t, primaryOf(bare))
}

func TestGetArtworkFull(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	blue := mustTag(t, b, types.KindPigment, "Bleu")
	arches := mustTag(t, b, types.KindPaper, "Arches")
	col := mustTag(t, b, types.KindCollection, "Paysages")
	place := mustTag(t, b, types.KindPlace, "Atelier")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "7", CollectionID: &col, PlaceID: &place})
	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{blue}))
	require.NoError(t, b.SetPapersForArtwork(ctx, id, []int64{arches}))
	first, _, err := b.InsertImage(ctx, id, "/x/a.jpg", "h1")
	require.NoError(t, err)
	second, _, err := b.InsertImage(ctx, id, "/x/b.jpg", "h2")
	require.NoError(t, err)

	full, err := b.GetArtworkFull(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "7", full.Artwork.Reference)
	require.Len(t, full.Pigments, 1)
	assert.Equal(t, "Bleu", full.Pigments[0].Name)
	require.Len(t, full.Papers, 1)
	assert.Equal(t, "Arches", full.Papers[0].Name)
	require.Len(t, full.Images, 2)
	assert.Equal(t, second.ID, full.Images[0].ID, "images are newest first")
	assert.Equal(t, first.ID, full.Images[1].ID)
	require.NotNil(t, full.Collection)
	assert.Equal(t, "Paysages", full.Collection.Name)
	assert.Nil(t, full.Type)
	require.NotNil(t, full.Place)
	assert.Equal(t, "Atelier", full.Place.Name)

	_, err = b.GetArtworkFull(ctx, 9999)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListYears(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	for i, date := range []string{"2007-05-12", "Summer [2007]", "10.1995", "0999", "undated", "  ", "ca. 2150"} {
		mustArtwork(t, b, types.ArtworkInput{Reference: string(rune('a' + i)), Date: ptr(date)})
	}
	mustArtwork(t, b, types.ArtworkInput{Reference: "z"})

	years, err := b.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.YearCount{{Year: 2007, Count: 2}, {Year: 1995, Count: 1}}, years)
}

func TestListYears_Empty(t *testing.T) {
	b := setupBackend(t)
	years, err := b.ListYears(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, years)
	assert.Empty(t, years)
}

func TestCreateArtwork(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	a, err := b.CreateArtwork(ctx, types.ArtworkInput{Reference: "  42 ", Title: ptr("Titre"), Width: ptr(30.0)})
	require.NoError(t, err)
	assert.Equal(t, "42", a.Reference)
	assert.Equal(t, "Titre", *a.Title)
	assert.Equal(t, 30.0, *a.Width)
	assert.Nil(t, a.Height)
	assert.Nil(t, a.PreviewImageID)
	assert.Nil(t, a.PrimaryImage)

	tests := []struct {
		name      string
		in        types.ArtworkInput
		wantErr   error
		wantField string
	}{
		{"missing reference", types.ArtworkInput{}, types.ErrValidation, "reference"},
		{"blank reference", types.ArtworkInput{Reference: "   "}, types.ErrValidation, "reference"},
		{"non-positive width", types.ArtworkInput{Reference: "1", Width: ptr(0.0)}, types.ErrValidation, "width"},
		{"negative height", types.ArtworkInput{Reference: "1", Height: ptr(-2.0)}, types.ErrValidation, "height"},
		{"unknown collection", types.ArtworkInput{Reference: "1", CollectionID: ptr(int64(99))}, types.ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateArtwork(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantField != "" {
				var fe *types.FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.wantField, fe.Field)
			}
		})
	}
}

func TestUpdateArtwork(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	col := mustTag(t, b, types.KindCollection, "C")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1", Title: ptr("Old"), Owner: ptr("Me"), CollectionID: &col})

	a, err := b.UpdateArtwork(ctx, id, types.ArtworkUpdate{
		Title:        types.SetTo("New"),
		Owner:        types.Clear[string](),
		CollectionID: types.Clear[int64](),
		Height:       types.SetTo(12.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "New", *a.Title)
	assert.Nil(t, a.Owner)
	assert.Nil(t, a.CollectionID)
	assert.Equal(t, 12.5, *a.Height)
	assert.Equal(t, "1", a.Reference, "unset fields are left alone")

	_, err = b.UpdateArtwork(ctx, id, types.ArtworkUpdate{})
	assert.ErrorIs(t, err, types.ErrNothingToUpdate)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.UpdateArtwork(ctx, 9999, types.ArtworkUpdate{Title: types.SetTo("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.UpdateArtwork(ctx, id, types.ArtworkUpdate{Reference: types.SetTo(" ")})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.UpdateArtwork(ctx, id, types.ArtworkUpdate{Width: types.SetTo(-1.0)})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.UpdateArtwork(ctx, id, types.ArtworkUpdate{TypeID: types.SetTo(int64(77))})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteArtwork_Cascades(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	blue := mustTag(t, b, types.KindPigment, "Bleu")
	paper := mustTag(t, b, types.KindPaper, "Arches")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	keep := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})
	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{blue}))
	require.NoError(t, b.SetPapersForArtwork(ctx, id, []int64{paper}))
	require.NoError(t, b.SetPigmentsForArtwork(ctx, keep, []int64{blue}))
	_, _, err := b.InsertImage(ctx, id, "/x/a.jpg", "h1")
	require.NoError(t, err)
	_, _, err = b.InsertImage(ctx, id, "/x/b.jpg", "h2")
	require.NoError(t, err)

	removed, err := b.DeleteArtwork(ctx, id)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	var n int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM artwork_images WHERE artwork_id = ?", id).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM artwork_pigments WHERE artwork_id = ?", id).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM artwork_papers WHERE artwork_id = ?", id).Scan(&n))
	assert.Zero(t, n)

	ids, err := b.AssociationIDs(ctx, types.KindPigment, keep)
	require.NoError(t, err)
	assert.Equal(t, []int64{blue}, ids)

	_, err = b.DeleteArtwork(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
