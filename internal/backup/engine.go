// Package backup writes and restores catalogue archives. An archive is a
// zip holding the database at its root, the blob tree under images/ and a
// manifest.yaml describing where the blobs lived when it was taken.
package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/pkg/catalogue"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// Snapshotter produces a consistent copy of the live database at dest.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// Engine runs backups of an attached store and restores into a data
// directory whose store is detached.
type Engine struct {
	store  Snapshotter
	layout paths.Layout
	log    zerolog.Logger
	now    func() time.Time
}

// New returns an engine for the data directory described by layout.
func New(store Snapshotter, layout paths.Layout, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		layout: layout,
		log:    log.With().Str("component", "backup").Logger(),
		now:    time.Now,
	}
}

type blob struct {
	path string
	name string // archive entry name, slash separated
	size int64
}

// Backup writes an archive to dest. The archive is built next to dest under
// a temporary name and renamed into place only once it is complete and
// synced; on error or cancellation the temporary file is removed and dest
// is left untouched. onProgress may be nil.
func (e *Engine) Backup(ctx context.Context, dest string, onProgress types.ProgressFunc) (Manifest, error) {
	if strings.TrimSpace(dest) == "" {
		return Manifest{}, types.NewFieldError("dest", "must not be empty")
	}
	dest, err := filepath.Abs(dest)
	if err != nil {
		return Manifest{}, fmt.Errorf("resolving %s: %w", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating backup dir: %w", err)
	}

	scratch, err := os.MkdirTemp("", "catalogue-backup-")
	if err != nil {
		return Manifest{}, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	dbCopy := filepath.Join(scratch, paths.DatabaseFileName)
	if err := e.store.Snapshot(ctx, dbCopy); err != nil {
		return Manifest{}, err
	}
	dbInfo, err := os.Stat(dbCopy)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading snapshot: %w", err)
	}

	blobs, err := collectBlobs(e.layout.ImagesDir())
	if err != nil {
		return Manifest{}, err
	}
	var imageBytes int64
	for _, b := range blobs {
		imageBytes += b.size
	}

	m := Manifest{
		ID:            uuid.NewString(),
		Format:        formatVersion,
		CreatedAt:     e.now().UTC(),
		Version:       catalogue.Version,
		ImagesRoot:    e.layout.ImagesDir(),
		DatabaseBytes: dbInfo.Size(),
		ImageFiles:    len(blobs),
		ImageBytes:    imageBytes,
	}
	all := append([]blob{{path: dbCopy, name: paths.DatabaseFileName, size: dbInfo.Size()}}, blobs...)
	t := newTracker(onProgress, dbInfo.Size()+imageBytes, len(all))

	partial := fmt.Sprintf("%s.partial-%s", dest, uuid.NewString())
	if err := writeArchive(ctx, partial, all, m, t); err != nil {
		os.Remove(partial)
		return Manifest{}, err
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return Manifest{}, fmt.Errorf("renaming archive to %s: %w", dest, err)
	}
	t.finish()

	e.log.Info().
		Str("dest", dest).
		Str("id", m.ID).
		Int("images", m.ImageFiles).
		Int64("bytes", m.DatabaseBytes+m.ImageBytes).
		Msg("backup written")
	return m, nil
}

// collectBlobs lists the regular files under root. A missing root yields
// no blobs.
func collectBlobs(root string) ([]blob, error) {
	var blobs []blob
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		blobs = append(blobs, blob{
			path: p,
			name: path.Join(paths.ImagesDirName, filepath.ToSlash(rel)),
			size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return blobs, nil
}

func writeArchive(ctx context.Context, dest string, blobs []blob, m Manifest, t *tracker) (err error) {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(f)
	for _, b := range blobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(ctx, zw, b, t); err != nil {
			return err
		}
		t.fileDone()
	}

	w, err := zw.CreateHeader(&zip.FileHeader{Name: manifestEntry, Method: zip.Deflate, Modified: m.CreatedAt})
	if err != nil {
		return fmt.Errorf("adding manifest: %w", err)
	}
	if err := writeManifest(w, m); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing archive: %w", err)
	}
	return nil
}

func addFile(ctx context.Context, zw *zip.Writer, b blob, t *tracker) error {
	src, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", b.path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("reading %s: %w", b.path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("building header for %s: %w", b.path, err)
	}
	hdr.Name = b.name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", b.name, err)
	}
	if _, err := io.Copy(w, &progressReader{ctx: ctx, r: src, t: t}); err != nil {
		return fmt.Errorf("archiving %s: %w", b.name, err)
	}
	return nil
}
