package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func TestSetAssociations(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	p1 := mustTag(t, b, types.KindPigment, "P1")
	p2 := mustTag(t, b, types.KindPigment, "P2")
	p3 := mustTag(t, b, types.KindPigment, "P3")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})

	ids := func() []int64 {
		t.Helper()
		got, err := b.AssociationIDs(ctx, types.KindPigment, id)
		require.NoError(t, err)
		return got
	}

	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{p2, p1}))
	assert.Equal(t, []int64{p1, p2}, ids())

	// Same set again is a no-op.
	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{p1, p2}))
	assert.Equal(t, []int64{p1, p2}, ids())

	// Replacement, not merge; repeated ids collapse.
	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, []int64{p3, p3}))
	assert.Equal(t, []int64{p3}, ids())

	require.NoError(t, b.SetPigmentsForArtwork(ctx, id, nil))
	assert.Empty(t, ids())
}

func TestSetAssociations_RollsBackOnUnknownTag(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	p1 := mustTag(t, b, types.KindPaper, "Arches")
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	require.NoError(t, b.SetPapersForArtwork(ctx, id, []int64{p1}))

	err := b.SetPapersForArtwork(ctx, id, []int64{p1, 4242})
	assert.ErrorIs(t, err, types.ErrNotFound)

	got, err := b.AssociationIDs(ctx, types.KindPaper, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{p1}, got, "previous set survives a failed replacement")
}

func TestSetAssociations_Errors(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	p1 := mustTag(t, b, types.KindPigment, "P1")
	assert.ErrorIs(t, b.SetPigmentsForArtwork(ctx, 999, []int64{p1}), types.ErrNotFound)

	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	assert.ErrorIs(t, b.setAssociations(ctx, types.KindCollection, id, nil), types.ErrValidation)

	_, err := b.AssociationIDs(ctx, types.KindPlace, id)
	assert.ErrorIs(t, err, types.ErrValidation)
}
