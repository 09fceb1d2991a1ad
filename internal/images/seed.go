package images

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// seedExtensions are the file extensions picked up by SeedFromDirectory.
var seedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".tif": true, ".tiff": true, ".heic": true, ".heif": true,
}

// referencePattern finds an artwork reference such as "PT2810" in a file
// name like "PT2810_30x30_24.02.2024.jpg".
var referencePattern = regexp.MustCompile(`(?i)PT\s*([0-9]+)`)

// ParseReference extracts the artwork reference from a file name.
func ParseReference(name string) (string, bool) {
	m := referencePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SeedFromDirectory walks dir and attaches every image whose file name
// carries a reference to the single artwork with that reference. Hidden
// files and directories are skipped. Bytes already attached to the artwork
// are counted as duplicates.
func (m *Manager) SeedFromDirectory(ctx context.Context, dir string) (types.SeedReport, error) {
	var report types.SeedReport

	info, err := os.Stat(dir)
	if err != nil {
		return report, fmt.Errorf("reading seed directory: %w", err)
	}
	if !info.IsDir() {
		return report, types.NewFieldError("dir", dir+" is not a directory")
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.log.Warn().Err(err).Str("path", path).Msg("cannot read entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && seedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking %s: %w", dir, err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Total++

		ref, ok := ParseReference(file)
		if !ok {
			report.SkippedNoRef++
			m.log.Warn().Str("file", file).Msg("no reference in file name")
			continue
		}

		ids, err := m.store.ArtworkIDsByReference(ctx, ref)
		if err != nil {
			return report, err
		}
		if len(ids) != 1 {
			report.SkippedNoArtwork++
			m.log.Warn().Str("reference", ref).Int("matches", len(ids)).Str("file", filepath.Base(file)).Msg("no unique artwork for reference")
			continue
		}

		res, err := m.Import(ctx, ids[0], file)
		if err != nil {
			report.Failed++
			m.log.Error().Err(err).Str("file", file).Msg("import failed")
			continue
		}
		if res.Duplicate {
			report.SkippedDuplicate++
			continue
		}
		if _, err := m.GenerateThumbnail(ctx, res.ImageID); err != nil {
			m.log.Warn().Err(err).Int64("image", res.ImageID).Msg("thumbnail skipped")
		}
		report.Linked++
		if report.Linked%25 == 0 {
			m.log.Info().Int("linked", report.Linked).Msg("seeding in progress")
		}
	}

	m.log.Info().
		Int("total", report.Total).
		Int("linked", report.Linked).
		Int("skipped_no_ref", report.SkippedNoRef).
		Int("skipped_no_artwork", report.SkippedNoArtwork).
		Int("skipped_duplicate", report.SkippedDuplicate).
		Int("failed", report.Failed).
		Msg("seeding complete")
	return report, nil
}
