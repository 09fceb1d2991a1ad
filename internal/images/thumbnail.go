package images

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// GenerateThumbnail derives a JPEG thumbnail of the configured width from
// the image's original and records its path. Images narrower than the
// width keep their size. Any failure wraps types.ErrThumbnail and leaves
// the original file and the image row as they were, so the call can be
// retried.
func (m *Manager) GenerateThumbnail(ctx context.Context, imageID int64) (string, error) {
	img, err := m.store.GetImage(ctx, imageID)
	if err != nil {
		return "", err
	}

	dir, err := m.layout.EnsureThumbnailsDir(img.ArtworkID)
	if err != nil {
		return "", fmt.Errorf("%w: image %d: creating thumbnails dir: %w", types.ErrThumbnail, img.ID, err)
	}
	dest := filepath.Join(dir, thumbnailName(img))

	if err := m.renderThumbnail(ctx, img.FilePath, dest); err != nil {
		m.log.Warn().Err(err).Int64("image", img.ID).Str("path", img.FilePath).Msg("thumbnail failed")
		return "", fmt.Errorf("%w: image %d (%s): %w", types.ErrThumbnail, img.ID, img.FilePath, err)
	}
	if err := m.store.SetThumbnailPath(ctx, img.ID, dest); err != nil {
		m.removeFile(dest)
		return "", fmt.Errorf("%w: image %d: %w", types.ErrThumbnail, img.ID, err)
	}

	m.log.Debug().Int64("image", img.ID).Str("thumbnail", dest).Msg("thumbnail generated")
	return dest, nil
}

// thumbnailName names the thumbnail after the original. The hash prefix
// keeps "a.png" and "a.jpg" of one artwork apart.
func thumbnailName(img types.ArtworkImage) string {
	base := filepath.Base(img.FilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if len(img.Hash) >= 8 {
		stem += "-" + img.Hash[:8]
	}
	return stem + ".jpg"
}

func (m *Manager) renderThumbnail(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scaled := scaleToWidth(decoded, m.opts.ThumbnailWidth)
	return writeAtomic(dest, func(w io.Writer) error {
		return jpeg.Encode(w, scaled, &jpeg.Options{Quality: m.opts.ThumbnailQuality})
	})
}

// scaleToWidth resamples src to width pixels wide, preserving the aspect
// ratio, onto a white background. Narrower images are not enlarged.
func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > width {
		h = max(1, h*width/w)
		w = width
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
