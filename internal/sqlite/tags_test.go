package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func TestTags_CRUD(t *testing.T) {
	for _, kind := range types.TagKinds {
		t.Run(string(kind), func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()

			tag, err := b.CreateTag(ctx, kind, types.TagInput{Name: " Bleu ", Description: ptr("desc"), Date: ptr("2024-01-15")})
			require.NoError(t, err)
			assert.Equal(t, "Bleu", tag.Name)
			assert.Equal(t, "desc", *tag.Description)
			if kind == types.KindPigment || kind == types.KindPaper {
				assert.Nil(t, tag.Date, "undated kinds drop the date")
			} else {
				require.NotNil(t, tag.Date)
				assert.Equal(t, "2024-01-15", *tag.Date)
			}

			updated, err := b.UpdateTag(ctx, kind, tag.ID, types.TagUpdate{Name: types.SetTo("Rouge"), Description: types.Clear[string]()})
			require.NoError(t, err)
			assert.Equal(t, "Rouge", updated.Name)
			assert.Nil(t, updated.Description)

			got, err := b.GetTag(ctx, kind, tag.ID)
			require.NoError(t, err)
			assert.Equal(t, updated, got)

			require.NoError(t, b.DeleteTag(ctx, kind, tag.ID))
			_, err = b.GetTag(ctx, kind, tag.ID)
			assert.ErrorIs(t, err, types.ErrNotFound)
			assert.ErrorIs(t, b.DeleteTag(ctx, kind, tag.ID), types.ErrNotFound)
		})
	}
}

func TestTags_Validation(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.CreateTag(ctx, types.KindPigment, types.TagInput{Name: "  "})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.CreateTag(ctx, types.TagKind("colour"), types.TagInput{Name: "x"})
	assert.ErrorIs(t, err, types.ErrValidation)

	tag, err := b.CreateTag(ctx, types.KindPigment, types.TagInput{Name: "Bleu"})
	require.NoError(t, err)

	_, err = b.UpdateTag(ctx, types.KindPigment, tag.ID, types.TagUpdate{})
	assert.ErrorIs(t, err, types.ErrNothingToUpdate)

	_, err = b.UpdateTag(ctx, types.KindPigment, tag.ID, types.TagUpdate{Date: types.SetTo("2024")})
	assert.ErrorIs(t, err, types.ErrNothingToUpdate, "date is not stored for pigments")

	_, err = b.UpdateTag(ctx, types.KindPigment, tag.ID, types.TagUpdate{Name: types.Clear[string]()})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.UpdateTag(ctx, types.KindPigment, 999, types.TagUpdate{Name: types.SetTo("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListTags_OrderAndCounts(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	zinc := mustTag(t, b, types.KindPigment, "zinc")
	mustTag(t, b, types.KindPigment, "Azur")
	ocre := mustTag(t, b, types.KindPigment, "ocre")
	a1 := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	a2 := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})
	require.NoError(t, b.SetPigmentsForArtwork(ctx, a1, []int64{zinc, ocre}))
	require.NoError(t, b.SetPigmentsForArtwork(ctx, a2, []int64{zinc}))

	tags, err := b.ListTags(ctx, types.KindPigment)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "Azur", tags[0].Name)
	assert.Equal(t, 0, tags[0].ArtworkCount)
	assert.Equal(t, "ocre", tags[1].Name)
	assert.Equal(t, 1, tags[1].ArtworkCount)
	assert.Equal(t, "zinc", tags[2].Name)
	assert.Equal(t, 2, tags[2].ArtworkCount)

	_, err = b.CreateTag(ctx, types.KindCollection, types.TagInput{Name: "Old", Date: ptr("2020-01-01")})
	require.NoError(t, err)
	recent, err := b.CreateTag(ctx, types.KindCollection, types.TagInput{Name: "New", Date: ptr("2024-06-01")})
	require.NoError(t, err)
	mustArtwork(t, b, types.ArtworkInput{Reference: "3", CollectionID: &recent.ID})

	cols, err := b.ListTags(ctx, types.KindCollection)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "New", cols[0].Name, "collections are newest first")
	assert.Equal(t, 1, cols[0].ArtworkCount)
	assert.Equal(t, "Old", cols[1].Name)

	empty, err := b.ListTags(ctx, types.KindPlace)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteTag_DetachesArtworks(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	col := mustTag(t, b, types.KindCollection, "C")
	pig := mustTag(t, b, types.KindPigment, "P")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1", CollectionID: &col})
	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{pig}))

	require.NoError(t, b.DeleteTag(ctx, types.KindCollection, col))
	require.NoError(t, b.DeleteTag(ctx, types.KindPigment, pig))

	a, err := b.GetArtwork(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, a.CollectionID)

	ids, err := b.AssociationIDs(ctx, types.KindPigment, id)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
