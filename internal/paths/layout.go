package paths

import (
	"os"
	"path/filepath"
	"strconv"
)

// File and directory names inside a data directory. The archive format
// reuses them: the database sits at the archive root and the blob tree
// under ImagesDirName.
const (
	DatabaseFileName  = "catalogue.db"
	ImagesDirName     = "images"
	OriginalsDirName  = "originals"
	ThumbnailsDirName = "thumbnails"
	LogsDirName       = "logs"
)

// Layout maps a data directory onto the database file and the per-artwork
// blob tree:
//
//	<root>/catalogue.db
//	<root>/images/<artwork id>/originals/<file>
//	<root>/images/<artwork id>/thumbnails/<file>.jpg
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{Root: dataDir}
}

// DatabasePath returns the database file path.
func (l Layout) DatabasePath() string {
	return filepath.Join(l.Root, DatabaseFileName)
}

// ImagesDir returns the root of the blob tree.
func (l Layout) ImagesDir() string {
	return filepath.Join(l.Root, ImagesDirName)
}

// LogsDir returns the directory for rotated log files.
func (l Layout) LogsDir() string {
	return filepath.Join(l.Root, LogsDirName)
}

// ArtworkDir returns the blob directory of one artwork.
func (l Layout) ArtworkDir(artworkID int64) string {
	return filepath.Join(l.ImagesDir(), strconv.FormatInt(artworkID, 10))
}

// OriginalsDir returns the directory holding an artwork's original files.
func (l Layout) OriginalsDir(artworkID int64) string {
	return filepath.Join(l.ArtworkDir(artworkID), OriginalsDirName)
}

// ThumbnailsDir returns the directory holding an artwork's thumbnails.
func (l Layout) ThumbnailsDir(artworkID int64) string {
	return filepath.Join(l.ArtworkDir(artworkID), ThumbnailsDirName)
}

// EnsureOriginalsDir creates the originals directory if needed and returns it.
func (l Layout) EnsureOriginalsDir(artworkID int64) (string, error) {
	dir := l.OriginalsDir(artworkID)
	return dir, os.MkdirAll(dir, 0o755)
}

// EnsureThumbnailsDir creates the thumbnails directory if needed and returns it.
func (l Layout) EnsureThumbnailsDir(artworkID int64) (string, error) {
	dir := l.ThumbnailsDir(artworkID)
	return dir, os.MkdirAll(dir, 0o755)
}
