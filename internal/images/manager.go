// Package images manages the stored originals and derived thumbnails of
// artworks: content-addressed import, thumbnail generation, deletion, the
// artwork preview pointer, batch imports and seeding from a directory.
package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// Store is the persistence the manager needs. *sqlite.Backend satisfies it.
type Store interface {
	GetArtwork(ctx context.Context, id int64) (types.Artwork, error)
	DeleteArtwork(ctx context.Context, id int64) ([]types.ArtworkImage, error)
	ArtworkIDsByReference(ctx context.Context, ref string) ([]int64, error)

	GetImage(ctx context.Context, id int64) (types.ArtworkImage, error)
	FindImageByHash(ctx context.Context, artworkID int64, hash string) (*types.ArtworkImage, error)
	InsertImage(ctx context.Context, artworkID int64, filePath, hash string) (types.ArtworkImage, bool, error)
	SetThumbnailPath(ctx context.Context, imageID int64, path string) error
	DeleteImage(ctx context.Context, imageID int64) (types.ArtworkImage, error)
	SetPreviewImage(ctx context.Context, artworkID int64, imageID *int64) error
}

// allowedMIMEs lists the content types accepted for import.
var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/tiff": true,
	"image/bmp":  true,
	"image/heic": true,
	"image/heif": true,
}

// Options tunes thumbnail output and batch concurrency.
type Options struct {
	ThumbnailWidth   int
	ThumbnailQuality int
	Workers          int
}

// OptionsFromConfig derives manager options from the catalogue config.
func OptionsFromConfig(cfg types.Config) Options {
	cfg = cfg.WithDefaults()
	return Options{
		ThumbnailWidth:   cfg.Thumbnail.Width,
		ThumbnailQuality: cfg.Thumbnail.Quality,
		Workers:          cfg.ImportWorkers,
	}
}

// Manager is the only writer of the blob tree and of image rows. Mutating
// operations are serialised so the preview pointer never refers to a row
// that is being removed.
type Manager struct {
	mu     sync.Mutex
	store  Store
	layout paths.Layout
	opts   Options
	log    zerolog.Logger
}

// NewManager returns a manager writing under layout.
func NewManager(store Store, layout paths.Layout, opts Options, log zerolog.Logger) *Manager {
	defaults := OptionsFromConfig(types.Config{})
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = defaults.ThumbnailWidth
	}
	if opts.ThumbnailQuality <= 0 {
		opts.ThumbnailQuality = defaults.ThumbnailQuality
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	return &Manager{
		store:  store,
		layout: layout,
		opts:   opts,
		log:    log.With().Str("component", "images").Logger(),
	}
}

// Import copies src into the artwork's originals directory and records it.
// Bytes already attached to the artwork make the call a no-op that returns
// the existing row with Duplicate set. The first image of an artwork
// becomes its preview. The thumbnail is not generated here.
func (m *Manager) Import(ctx context.Context, artworkID int64, src string) (types.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ImportResult{}, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("reading source %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return types.ImportResult{}, types.NewFieldError("source", src+" is not a regular file")
	}

	mt, err := mimetype.DetectFile(src)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("detecting type of %s: %w", src, err)
	}
	if !allowedMIMEs[mt.String()] {
		return types.ImportResult{}, types.NewFieldError("source", fmt.Sprintf("unsupported content type %s", mt.String()))
	}

	hash, err := hashFile(src)
	if err != nil {
		return types.ImportResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.GetArtwork(ctx, artworkID); err != nil {
		return types.ImportResult{}, err
	}
	existing, err := m.store.FindImageByHash(ctx, artworkID, hash)
	if err != nil {
		return types.ImportResult{}, err
	}
	if existing != nil {
		m.log.Debug().Int64("artwork", artworkID).Str("source", src).Msg("duplicate image skipped")
		return types.ImportResult{ImageID: existing.ID, StoredPath: existing.FilePath, Hash: hash, Duplicate: true}, nil
	}

	dir, err := m.layout.EnsureOriginalsDir(artworkID)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("creating originals dir: %w", err)
	}
	dest, reuse, err := originalTarget(dir, filepath.Base(src), hash)
	if err != nil {
		return types.ImportResult{}, err
	}
	if !reuse {
		if err := copyFile(src, dest); err != nil {
			return types.ImportResult{}, err
		}
	}

	img, inserted, err := m.store.InsertImage(ctx, artworkID, dest, hash)
	if err != nil {
		if !reuse {
			m.removeFile(dest)
		}
		return types.ImportResult{}, fmt.Errorf("recording image: %w", err)
	}
	if !inserted && img.FilePath != dest && !reuse {
		m.removeFile(dest)
	}

	m.log.Info().Int64("artwork", artworkID).Int64("image", img.ID).Str("path", img.FilePath).Msg("image imported")
	return types.ImportResult{ImageID: img.ID, StoredPath: img.FilePath, Hash: hash, Duplicate: !inserted}, nil
}

// originalTarget picks the stored path for an original named name. The
// name is kept unless another file already uses it; a file with the same
// bytes is reused, different bytes get a hash suffix.
func originalTarget(dir, name, hash string) (string, bool, error) {
	candidates := []string{filepath.Join(dir, name)}
	ext := filepath.Ext(name)
	candidates = append(candidates, filepath.Join(dir, strings.TrimSuffix(name, ext)+"-"+hash[:8]+ext))

	for _, c := range candidates {
		_, err := os.Stat(c)
		if os.IsNotExist(err) {
			return c, false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("checking %s: %w", c, err)
		}
		existing, err := hashFile(c)
		if err != nil {
			return "", false, err
		}
		if existing == hash {
			return c, true, nil
		}
	}
	return "", false, fmt.Errorf("no free name for %s in %s", name, dir)
}

// Delete removes an image. The preview moves to the oldest remaining image
// of the artwork, or is cleared, before the row goes; the original and
// thumbnail files are removed afterwards on a best-effort basis.
func (m *Manager) Delete(ctx context.Context, imageID int64) (types.ArtworkImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, err := m.store.DeleteImage(ctx, imageID)
	if err != nil {
		return types.ArtworkImage{}, err
	}
	m.removeImageFiles(img)
	m.log.Info().Int64("artwork", img.ArtworkID).Int64("image", img.ID).Msg("image deleted")
	return img, nil
}

// SetPreview points the artwork's preview at imageID, or clears it when
// imageID is nil. The image must belong to the artwork.
func (m *Manager) SetPreview(ctx context.Context, artworkID int64, imageID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.SetPreviewImage(ctx, artworkID, imageID)
}

// DeleteArtwork deletes an artwork with its rows, then its blob directory.
func (m *Manager) DeleteArtwork(ctx context.Context, artworkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.store.DeleteArtwork(ctx, artworkID)
	if err != nil {
		return err
	}
	for _, img := range removed {
		m.removeImageFiles(img)
	}
	if err := os.RemoveAll(m.layout.ArtworkDir(artworkID)); err != nil {
		m.log.Warn().Err(err).Int64("artwork", artworkID).Msg("removing artwork directory")
	}
	m.log.Info().Int64("artwork", artworkID).Int("images", len(removed)).Msg("artwork deleted")
	return nil
}

func (m *Manager) removeImageFiles(img types.ArtworkImage) {
	m.removeFile(img.FilePath)
	if img.ThumbnailPath != nil && *img.ThumbnailPath != "" {
		m.removeFile(*img.ThumbnailPath)
	}
}

// removeFile deletes path, ignoring a missing file and logging other failures.
func (m *Manager) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn().Err(err).Str("path", path).Msg("removing file")
	}
}

// copyFile copies src to dest through a temporary file in the destination
// directory, so dest either holds the full content or does not exist.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	return writeAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
