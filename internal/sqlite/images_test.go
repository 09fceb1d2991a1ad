package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func previewOf(t *testing.T, b *Backend, artworkID int64) *int64 {
	t.Helper()
	a, err := b.GetArtwork(context.Background(), artworkID)
	require.NoError(t, err)
	return a.PreviewImageID
}

func TestInsertImage_FirstBecomesPreview(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})

	first, inserted, err := b.InsertImage(ctx, id, "/x/a.jpg", "h1")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, id, first.ArtworkID)
	assert.Equal(t, "h1", first.Hash)
	assert.Nil(t, first.ThumbnailPath)
	assert.False(t, first.CreatedAt.IsZero())
	require.NotNil(t, previewOf(t, b, id))
	assert.Equal(t, first.ID, *previewOf(t, b, id))

	second, inserted, err := b.InsertImage(ctx, id, "/x/b.jpg", "h2")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, first.ID, *previewOf(t, b, id), "later imports leave the preview alone")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestInsertImage_DuplicateHashIsNoOp(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	other := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})

	first, _, err := b.InsertImage(ctx, id, "/x/a.jpg", "same")
	require.NoError(t, err)

	again, inserted, err := b.InsertImage(ctx, id, "/x/a-copy.jpg", "same")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "/x/a.jpg", again.FilePath)

	images, err := b.ListImages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, images, 1)

	// The same bytes may belong to another artwork.
	_, inserted, err = b.InsertImage(ctx, other, "/y/a.jpg", "same")
	require.NoError(t, err)
	assert.True(t, inserted)

	found, err := b.FindImageByHash(ctx, id, "same")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := b.FindImageByHash(ctx, id, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertImage_UnknownArtwork(t *testing.T) {
	b := setupBackend(t)
	_, _, err := b.InsertImage(context.Background(), 404, "/x/a.jpg", "h")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteImage_PreviewReassignment(t *testing.T) {
	tests := []struct {
		name        string
		images      int
		preview     int // index of the preview image, -1 for none
		remove      int // index of the image to delete
		wantPreview int // index of the expected preview, -1 for none
	}{
		{"delete preview moves to oldest remaining", 3, 0, 0, 1},
		{"delete newer preview moves to oldest", 3, 2, 2, 0},
		{"delete non-preview keeps preview", 3, 1, 0, 1},
		{"delete only image clears preview", 1, 0, 0, -1},
		{"delete with no preview leaves it empty", 2, -1, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()
			id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})

			var imgs []types.ArtworkImage
			for i := 0; i < tt.images; i++ {
				img, _, err := b.InsertImage(ctx, id, "/x/"+string(rune('a'+i))+".jpg", string(rune('a'+i)))
				require.NoError(t, err)
				imgs = append(imgs, img)
			}
			if tt.preview >= 0 {
				require.NoError(t, b.SetPreviewImage(ctx, id, &imgs[tt.preview].ID))
			} else {
				require.NoError(t, b.SetPreviewImage(ctx, id, nil))
			}

			removed, err := b.DeleteImage(ctx, imgs[tt.remove].ID)
			require.NoError(t, err)
			assert.Equal(t, imgs[tt.remove].ID, removed.ID)

			got := previewOf(t, b, id)
			if tt.wantPreview < 0 {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, imgs[tt.wantPreview].ID, *got)
			}

			violations, err := b.PreviewViolations(ctx)
			require.NoError(t, err)
			assert.Empty(t, violations)
		})
	}
}

func TestDeleteImage_NotFound(t *testing.T) {
	b := setupBackend(t)
	_, err := b.DeleteImage(context.Background(), 12)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSetPreviewImage(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	other := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})

	own, _, err := b.InsertImage(ctx, id, "/x/a.jpg", "a")
	require.NoError(t, err)
	foreign, _, err := b.InsertImage(ctx, other, "/x/b.jpg", "b")
	require.NoError(t, err)

	assert.ErrorIs(t, b.SetPreviewImage(ctx, id, &foreign.ID), types.ErrImageNotOwned)
	assert.Equal(t, own.ID, *previewOf(t, b, id), "failed call leaves the preview unchanged")

	missing := int64(999)
	assert.ErrorIs(t, b.SetPreviewImage(ctx, id, &missing), types.ErrNotFound)
	assert.ErrorIs(t, b.SetPreviewImage(ctx, 999, &own.ID), types.ErrNotFound)
}

func TestPreviewViolations(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	other := mustArtwork(t, b, types.ArtworkInput{Reference: "2"})
	foreign, _, err := b.InsertImage(ctx, other, "/x/b.jpg", "b")
	require.NoError(t, err)

	_, err = b.db.Exec("UPDATE artworks SET preview_image_id = ? WHERE id = ?", foreign.ID, id)
	require.NoError(t, err)

	violations, err := b.PreviewViolations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, violations)
}

func TestSetThumbnailPath(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})
	img, _, err := b.InsertImage(ctx, id, "/x/a.jpg", "a")
	require.NoError(t, err)

	missing, err := b.ListImagesWithoutThumbnail(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	require.NoError(t, b.SetThumbnailPath(ctx, img.ID, "/x/thumbs/a.jpg"))
	got, err := b.GetImage(ctx, img.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ThumbnailPath)
	assert.Equal(t, "/x/thumbs/a.jpg", *got.ThumbnailPath)
	assert.Equal(t, "/x/thumbs/a.jpg", got.PreviewPath())

	missing, err = b.ListImagesWithoutThumbnail(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.ErrorIs(t, b.SetThumbnailPath(ctx, 999, "/x"), types.ErrNotFound)

	all, err := b.ListAllImages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImages_LegacyTimestamps(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	id := mustArtwork(t, b, types.ArtworkInput{Reference: "1"})

	stamps := map[string]time.Time{
		"old.jpg":  time.Date(2019, 4, 2, 8, 15, 0, 0, time.UTC),
		"zone.jpg": time.Date(2019, 4, 2, 7, 15, 0, 0, time.UTC),
	}
	_, err := b.db.Exec(`INSERT INTO artwork_images (artwork_id, file_path, hash, created_at) VALUES
		(?, '/x/old.jpg', 'h1', '2019-04-02 08:15:00'),
		(?, '/x/zone.jpg', 'h2', '2019-04-02T09:15:00+02:00')`, id, id)
	require.NoError(t, err)

	images, err := b.ListImages(ctx, id)
	require.NoError(t, err)
	require.Len(t, images, 2)
	for _, img := range images {
		assert.True(t, stamps[img.FilePath[len("/x/"):]].Equal(img.CreatedAt), img.FilePath)
	}

	got, err := b.GetImage(ctx, images[0].ID)
	require.NoError(t, err)
	assert.Equal(t, images[0].CreatedAt, got.CreatedAt)

	_, err = b.DeleteImage(ctx, images[1].ID)
	require.NoError(t, err)
}

func TestParseTimestamp_Rejects(t *testing.T) {
	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}
