package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/internal/sqlite"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// archive is a validated, open backup archive.
type archive struct {
	zr       *zip.ReadCloser
	entries  map[*zip.File]string // cleaned names
	manifest *Manifest
}

func (a *archive) Close() error { return a.zr.Close() }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrArchiveInvalid, fmt.Sprintf(format, args...))
}

// openArchive opens src and checks every entry: names must stay inside the
// archive, only the database, the manifest and the images tree are
// accepted, and the database must be present.
func openArchive(src string) (*archive, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			zr.Close()
			return nil, invalid("%s contains paths outside the archive", src)
		}
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, zip.ErrChecksum) {
			return nil, invalid("%s: %v", src, err)
		}
		return nil, fmt.Errorf("opening %s: %w", src, err)
	}
	a := &archive{zr: zr, entries: make(map[*zip.File]string, len(zr.File))}

	hasDB := false
	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		name, err := cleanEntryName(f.Name)
		if err != nil {
			zr.Close()
			return nil, err
		}
		if seen[name] {
			zr.Close()
			return nil, invalid("duplicate entry %q", name)
		}
		seen[name] = true
		isDir := f.FileInfo().IsDir()
		switch {
		case name == paths.DatabaseFileName && !isDir:
			hasDB = true
		case name == manifestEntry && !isDir:
			m, err := readManifestEntry(f)
			if err != nil {
				zr.Close()
				return nil, err
			}
			a.manifest = &m
		case name == paths.ImagesDirName && isDir:
		case strings.HasPrefix(name, paths.ImagesDirName+"/"):
		default:
			zr.Close()
			return nil, invalid("unexpected entry %q", f.Name)
		}
		a.entries[f] = name
	}
	if !hasDB {
		zr.Close()
		return nil, invalid("%s is missing", paths.DatabaseFileName)
	}
	return a, nil
}

func cleanEntryName(name string) (string, error) {
	if name == "" || strings.Contains(name, `\`) || path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", invalid("entry %q is not a relative path", name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", invalid("entry %q escapes the archive", name)
	}
	return clean, nil
}

func readManifestEntry(f *zip.File) (Manifest, error) {
	rc, err := f.Open()
	if err != nil {
		return Manifest{}, invalid("manifest: %v", err)
	}
	defer rc.Close()
	m, err := readManifest(rc)
	if err != nil {
		return Manifest{}, invalid("%v", err)
	}
	return m, nil
}

// Inspect validates the archive at src without extracting it and returns
// its manifest. Archives written without a manifest return a zero Manifest.
func (e *Engine) Inspect(src string) (Manifest, error) {
	a, err := openArchive(src)
	if err != nil {
		return Manifest{}, err
	}
	defer a.Close()
	if a.manifest == nil {
		return Manifest{}, nil
	}
	return *a.manifest, nil
}

// Restore replaces the database and the whole images tree of the data
// directory with the contents of the archive at src. The store must be
// detached. Everything is extracted and rebased in a staging directory
// first; the live files are only touched once that succeeds.
func (e *Engine) Restore(ctx context.Context, src string) (Manifest, error) {
	if s, ok := e.store.(interface{ Attached() bool }); ok && s.Attached() {
		return Manifest{}, fmt.Errorf("restore needs a detached store: %w", types.ErrAlreadyAttached)
	}

	a, err := openArchive(src)
	if err != nil {
		return Manifest{}, err
	}
	defer a.Close()

	if err := os.MkdirAll(e.layout.Root, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating data dir: %w", err)
	}
	staging, err := os.MkdirTemp(e.layout.Root, ".restore-")
	if err != nil {
		return Manifest{}, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for f, name := range a.entries {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		if name == manifestEntry {
			continue
		}
		if err := extract(ctx, f, filepath.Join(staging, filepath.FromSlash(name))); err != nil {
			return Manifest{}, err
		}
	}

	staged := paths.NewLayout(staging)
	var m Manifest
	if a.manifest != nil {
		m = *a.manifest
		n, err := sqlite.RebaseImagePaths(ctx, staged.DatabasePath(), m.ImagesRoot, e.layout.ImagesDir())
		if err != nil {
			return Manifest{}, fmt.Errorf("rebasing image paths: %w", err)
		}
		e.log.Debug().Int("rows", n).Str("from", m.ImagesRoot).Msg("image paths rebased")
	} else {
		e.log.Warn().Str("src", src).Msg("archive has no manifest; image paths kept as stored")
	}

	if err := e.swap(staged); err != nil {
		return Manifest{}, err
	}
	e.log.Info().Str("src", src).Str("id", m.ID).Msg("backup restored")
	return m, nil
}

func extract(ctx context.Context, f *zip.File, dest string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	rc, err := f.Open()
	if err != nil {
		return invalid("%s: %v", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	_, err = io.Copy(out, &progressReader{ctx: ctx, r: rc, t: newTracker(nil, 0, 0)})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
			return invalid("%s: %v", f.Name, err)
		}
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}

// swap moves the staged database and images tree into the data directory.
// Stale WAL files go first so SQLite never replays them onto the restored
// database. The previous images tree is parked inside the staging
// directory and removed with it.
func (e *Engine) swap(staged paths.Layout) error {
	db := e.layout.DatabasePath()
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(db + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", db+suffix, err)
		}
	}
	if err := os.Rename(staged.DatabasePath(), db); err != nil {
		return fmt.Errorf("replacing database: %w", err)
	}

	images := e.layout.ImagesDir()
	if err := os.Rename(images, filepath.Join(staged.Root, "previous-images")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("moving previous images: %w", err)
	}
	if err := os.Rename(staged.ImagesDir(), images); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("replacing images: %w", err)
		}
		if err := os.MkdirAll(images, 0o755); err != nil {
			return fmt.Errorf("creating images dir: %w", err)
		}
	}
	return nil
}
