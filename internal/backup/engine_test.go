package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalogue/internal/images"
	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/internal/sqlite"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func attach(t *testing.T, dataDir string) *sqlite.Backend {
	t.Helper()
	store := sqlite.NewBackend(zerolog.Nop())
	require.NoError(t, store.Attach(types.Config{DataDir: dataDir}))
	t.Cleanup(func() { store.Detach() })
	return store
}

func writePNG(t *testing.T, path string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// populate creates one artwork with one imported, thumbnailed image.
func populate(t *testing.T, store *sqlite.Backend) (types.Artwork, types.ArtworkImage) {
	t.Helper()
	ctx := context.Background()
	title := "Estuaire"
	a, err := store.CreateArtwork(ctx, types.ArtworkInput{Reference: "2810", Title: &title})
	require.NoError(t, err)

	m := images.NewManager(store, store.Layout(), images.Options{}, zerolog.Nop())
	res, err := m.Import(ctx, a.ID, writePNG(t, filepath.Join(t.TempDir(), "estuaire.png"), 64, 48))
	require.NoError(t, err)
	_, err = m.GenerateThumbnail(ctx, res.ImageID)
	require.NoError(t, err)

	img, err := store.GetImage(ctx, res.ImageID)
	require.NoError(t, err)
	return a, img
}

func entryNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := attach(t, t.TempDir())
	artwork, img := populate(t, store)

	dest := filepath.Join(t.TempDir(), "out", "catalogue.zip")
	var calls []types.Progress
	m, err := New(store, store.Layout(), zerolog.Nop()).Backup(ctx, dest, func(p types.Progress) {
		calls = append(calls, p)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 2, m.ImageFiles)
	assert.Equal(t, store.Layout().ImagesDir(), m.ImagesRoot)
	assert.FileExists(t, dest)

	names := entryNames(t, dest)
	rel := func(p string) string {
		r, err := filepath.Rel(store.Layout().Root, p)
		require.NoError(t, err)
		return filepath.ToSlash(r)
	}
	assert.ElementsMatch(t, []string{
		paths.DatabaseFileName,
		rel(img.FilePath),
		rel(*img.ThumbnailPath),
		manifestEntry,
	}, names)

	require.NotEmpty(t, calls)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].ProcessedBytes, calls[i-1].ProcessedBytes)
		assert.GreaterOrEqual(t, *calls[i].Percent, *calls[i-1].Percent)
	}
	last := calls[len(calls)-1]
	assert.Equal(t, 100.0, *last.Percent)
	assert.Equal(t, 3, last.ProcessedFiles)
	assert.Equal(t, *last.TotalBytes, last.ProcessedBytes)

	// Restore into a different data directory that already holds an
	// unrelated image tree.
	target := t.TempDir()
	stray := filepath.Join(target, paths.ImagesDirName, "99", "originals", "stray.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0o755))
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	layout := paths.NewLayout(target)
	restored, err := New(sqlite.NewBackend(zerolog.Nop()), layout, zerolog.Nop()).Restore(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, m.ID, restored.ID)
	assert.NoFileExists(t, stray)

	other := attach(t, target)
	got, err := other.GetArtworkFull(ctx, artwork.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Artwork.Title)
	assert.Equal(t, "Estuaire", *got.Artwork.Title)
	require.Len(t, got.Images, 1)
	assert.Equal(t, filepath.Join(layout.OriginalsDir(artwork.ID), "estuaire.png"), got.Images[0].FilePath)
	assert.FileExists(t, got.Images[0].FilePath)
	require.NotNil(t, got.Images[0].ThumbnailPath)
	assert.FileExists(t, *got.Images[0].ThumbnailPath)
	assert.True(t, strings.HasPrefix(*got.Images[0].ThumbnailPath, layout.ImagesDir()))
}

func TestBackupRestore_ListSurvives(t *testing.T) {
	ctx := context.Background()
	store := attach(t, t.TempDir())
	m := images.NewManager(store, store.Layout(), images.Options{}, zerolog.Nop())
	src := t.TempDir()

	dates := []string{"1987-06-01", "[2007]", "10.1995", "undated", "2024"}
	imported := 0
	for i, date := range dates {
		d := date
		a, err := store.CreateArtwork(ctx, types.ArtworkInput{Reference: strconv.Itoa(100 + i), Date: &d})
		require.NoError(t, err)
		for j := 0; j < i%3; j++ {
			res, err := m.Import(ctx, a.ID, writePNG(t, filepath.Join(src, fmt.Sprintf("scan-%d-%d.png", i, j)), 20+i, 10+j))
			require.NoError(t, err)
			_, err = m.GenerateThumbnail(ctx, res.ImageID)
			require.NoError(t, err)
			imported++
		}
	}

	want, err := store.ListArtworks(ctx, types.ArtworkFilter{})
	require.NoError(t, err)
	require.Len(t, want.Items, len(dates))
	wantYears, err := store.ListYears(ctx)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "catalogue.zip")
	manifest, err := New(store, store.Layout(), zerolog.Nop()).Backup(ctx, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*imported, manifest.ImageFiles)

	target := paths.NewLayout(t.TempDir())
	_, err = New(sqlite.NewBackend(zerolog.Nop()), target, zerolog.Nop()).Restore(ctx, dest)
	require.NoError(t, err)

	rebase := func(p string) string {
		r, err := filepath.Rel(store.Layout().ImagesDir(), p)
		require.NoError(t, err)
		return filepath.Join(target.ImagesDir(), r)
	}
	for _, a := range want.Items {
		if pi := a.PrimaryImage; pi != nil {
			pi.FilePath = rebase(pi.FilePath)
			require.NotNil(t, pi.ThumbnailPath)
			thumb := rebase(*pi.ThumbnailPath)
			pi.ThumbnailPath = &thumb
		}
	}

	restored := attach(t, target.Root)
	got, err := restored.ListArtworks(ctx, types.ArtworkFilter{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	years, err := restored.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantYears, years)

	all, err := restored.ListAllImages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, imported)
	for _, img := range all {
		assert.FileExists(t, img.FilePath)
		require.NotNil(t, img.ThumbnailPath)
		assert.FileExists(t, *img.ThumbnailPath)
	}
}

func TestBackup_WithoutImagesDir(t *testing.T) {
	store := attach(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "empty.zip")

	m, err := New(store, store.Layout(), zerolog.Nop()).Backup(context.Background(), dest, nil)
	require.NoError(t, err)
	assert.Zero(t, m.ImageFiles)
	assert.ElementsMatch(t, []string{paths.DatabaseFileName, manifestEntry}, entryNames(t, dest))
}

func TestBackup_CancelledLeavesNothing(t *testing.T) {
	store := attach(t, t.TempDir())
	populate(t, store)
	dir := t.TempDir()
	dest := filepath.Join(dir, "catalogue.zip")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := New(store, store.Layout(), zerolog.Nop()).Backup(ctx, dest, func(types.Progress) { cancel() })
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.NoFileExists(t, dest)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial archive is removed")
}

func TestBackup_EmptyDest(t *testing.T) {
	store := attach(t, t.TempDir())
	_, err := New(store, store.Layout(), zerolog.Nop()).Backup(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, types.ErrValidation)
}

// writeZip builds an archive with the given entries.
func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRestore_RejectsInvalidArchives(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
	}{
		{"parent escape", map[string]string{paths.DatabaseFileName: "db", "../evil.txt": "x"}},
		{"nested escape", map[string]string{paths.DatabaseFileName: "db", "images/../../evil.txt": "x"}},
		{"absolute path", map[string]string{paths.DatabaseFileName: "db", "/tmp/evil.txt": "x"}},
		{"unexpected entry", map[string]string{paths.DatabaseFileName: "db", "notes.txt": "x"}},
		{"missing database", map[string]string{"images/1/originals/a.png": "x"}},
		{"broken manifest", map[string]string{paths.DatabaseFileName: "db", manifestEntry: "id: [unterminated"}},
		{"duplicate database", map[string]string{paths.DatabaseFileName: "db", "./" + paths.DatabaseFileName: "other"}},
		{"duplicate image", map[string]string{paths.DatabaseFileName: "db", "images/1/a.png": "x", "images/1/./a.png": "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeZip(t, tt.entries)
			target := t.TempDir()

			_, err := New(sqlite.NewBackend(zerolog.Nop()), paths.NewLayout(target), zerolog.Nop()).Restore(context.Background(), src)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrArchiveInvalid)

			entries, err := os.ReadDir(target)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing is written for a rejected archive")
			assert.NoFileExists(t, filepath.Join(filepath.Dir(target), "evil.txt"))
		})
	}
}

func TestRestore_NotAZip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(src, []byte("plain text"), 0o644))

	_, err := New(sqlite.NewBackend(zerolog.Nop()), paths.NewLayout(t.TempDir()), zerolog.Nop()).Restore(context.Background(), src)
	assert.ErrorIs(t, err, types.ErrArchiveInvalid)
}

func TestRestore_RequiresDetachedStore(t *testing.T) {
	store := attach(t, t.TempDir())
	engine := New(store, store.Layout(), zerolog.Nop())
	dest := filepath.Join(t.TempDir(), "catalogue.zip")
	_, err := engine.Backup(context.Background(), dest, nil)
	require.NoError(t, err)

	_, err = engine.Restore(context.Background(), dest)
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestInspect(t *testing.T) {
	store := attach(t, t.TempDir())
	engine := New(store, store.Layout(), zerolog.Nop())
	dest := filepath.Join(t.TempDir(), "catalogue.zip")
	m, err := engine.Backup(context.Background(), dest, nil)
	require.NoError(t, err)

	got, err := engine.Inspect(dest)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.ImagesRoot, got.ImagesRoot)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))

	legacy := writeZip(t, map[string]string{paths.DatabaseFileName: "db"})
	got, err = engine.Inspect(legacy)
	require.NoError(t, err)
	assert.Empty(t, got.ID)
}
