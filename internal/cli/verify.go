package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// verifyReport lists integrity problems of a catalogue.
type verifyReport struct {
	Images            int     `json:"images" yaml:"images"`
	PreviewViolations []int64 `json:"preview_violations" yaml:"preview_violations"`
	MissingOriginals  []int64 `json:"missing_originals" yaml:"missing_originals"`
	MissingThumbnails []int64 `json:"missing_thumbnails" yaml:"missing_thumbnails"`
	WithoutThumbnail  []int64 `json:"without_thumbnail" yaml:"without_thumbnail"`
}

func (r verifyReport) problems() int {
	return len(r.PreviewViolations) + len(r.MissingOriginals) + len(r.MissingThumbnails)
}

func (r verifyReport) failure() error {
	if n := r.problems(); n > 0 {
		return userError("%d integrity problems found", n)
	}
	return nil
}

func (r verifyReport) renderText(w io.Writer) error {
	fmt.Fprintf(w, "images checked:       %d\n", r.Images)
	fmt.Fprintf(w, "preview violations:   %v\n", r.PreviewViolations)
	fmt.Fprintf(w, "missing originals:    %v\n", r.MissingOriginals)
	fmt.Fprintf(w, "missing thumbnails:   %v\n", r.MissingThumbnails)
	_, err := fmt.Fprintf(w, "without thumbnail:    %v\n", r.WithoutThumbnail)
	return err
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check preview pointers and image files",
		Long: "Report artworks whose preview image belongs to another artwork or no longer\n" +
			"exists, image rows whose files are missing, and images that have no thumbnail yet.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				violations, err := s.store.PreviewViolations(ctx)
				if err != nil {
					return nil, err
				}
				all, err := s.store.ListAllImages(ctx)
				if err != nil {
					return nil, err
				}
				r := verifyReport{
					Images:            len(all),
					PreviewViolations: nonNil(violations),
					MissingOriginals:  []int64{},
					MissingThumbnails: []int64{},
					WithoutThumbnail:  []int64{},
				}
				for _, img := range all {
					ok, err := exists(img.FilePath)
					if err != nil {
						return nil, err
					}
					if !ok {
						r.MissingOriginals = append(r.MissingOriginals, img.ID)
					}
					if img.ThumbnailPath == nil {
						r.WithoutThumbnail = append(r.WithoutThumbnail, img.ID)
						continue
					}
					if ok, err = exists(*img.ThumbnailPath); err != nil {
						return nil, err
					} else if !ok {
						r.MissingThumbnails = append(r.MissingThumbnails, img.ID)
					}
				}
				return r, nil
			})
		},
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
