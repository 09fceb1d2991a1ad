package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// partialFailure is implemented by results that are printed even though
// some items failed; the command then exits with the returned error.
type partialFailure interface {
	failure() error
}

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "image",
		Aliases: []string{"images"},
		Short:   "Import, delete and thumbnail artwork images",
	}
	cmd.AddCommand(
		newImageImportCmd(a),
		newImageThumbnailCmd(a),
		newImageDeleteCmd(a),
		newImageSeedCmd(a),
	)
	return cmd
}

type importLine struct {
	Source       string              `json:"source"`
	Result       *types.ImportResult `json:"result,omitempty"`
	Error        string              `json:"error,omitempty"`
	ThumbnailErr string              `json:"thumbnail_error,omitempty"`
}

type importReport []importLine

func (r importReport) failure() error {
	failed := 0
	for _, l := range r {
		if l.Error != "" {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return &exitErr{code: exitSysError, err: fmt.Errorf("%d of %d imports failed", failed, len(r))}
}

func (r importReport) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tIMAGE\tSTATUS")
	for _, l := range r {
		switch {
		case l.Error != "":
			fmt.Fprintf(tw, "%s\t-\tfailed: %s\n", l.Source, l.Error)
		case l.Result.Duplicate:
			fmt.Fprintf(tw, "%s\t%d\tduplicate\n", l.Source, l.Result.ImageID)
		case l.ThumbnailErr != "":
			fmt.Fprintf(tw, "%s\t%d\timported, no thumbnail: %s\n", l.Source, l.Result.ImageID, l.ThumbnailErr)
		default:
			fmt.Fprintf(tw, "%s\t%d\timported\n", l.Source, l.Result.ImageID)
		}
	}
	return tw.Flush()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newImageImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <artwork-id> <file>...",
		Short: "Copy image files into an artwork and derive thumbnails",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artworkID, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				outcomes, err := s.images.ImportBatch(ctx, artworkID, args[1:])
				if err != nil {
					return nil, err
				}
				report := make(importReport, len(outcomes))
				for i, o := range outcomes {
					report[i] = importLine{
						Source:       o.Source,
						Result:       o.Result,
						Error:        errString(o.Err),
						ThumbnailErr: errString(o.ThumbnailErr),
					}
				}
				return report, nil
			})
		},
	}
}

type thumbnailLine struct {
	ImageID       int64  `json:"image_id"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Error         string `json:"error,omitempty"`
}

type thumbnailReport []thumbnailLine

func (r thumbnailReport) failure() error {
	failed := 0
	for _, l := range r {
		if l.Error != "" {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return &exitErr{code: exitSysError, err: fmt.Errorf("%d of %d thumbnails failed", failed, len(r))}
}

func (r thumbnailReport) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tTHUMBNAIL")
	for _, l := range r {
		if l.Error != "" {
			fmt.Fprintf(tw, "%d\tfailed: %s\n", l.ImageID, l.Error)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\n", l.ImageID, l.ThumbnailPath)
	}
	return tw.Flush()
}

func newImageThumbnailCmd(a *app) *cobra.Command {
	var missing bool
	cmd := &cobra.Command{
		Use:   "thumbnail [image-id...]",
		Short: "Regenerate thumbnails",
		Long:  "Regenerate thumbnails for the given images, or for every image without one with --missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "image id")
			if err != nil {
				return a.fail(cmd, err)
			}
			if missing == (len(ids) > 0) {
				return a.fail(cmd, userError("give image ids or --missing"))
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				if missing {
					pending, err := s.store.ListImagesWithoutThumbnail(ctx)
					if err != nil {
						return nil, err
					}
					for _, img := range pending {
						ids = append(ids, img.ID)
					}
				}
				errs := s.images.GenerateThumbnails(ctx, ids)
				report := make(thumbnailReport, len(ids))
				for i, id := range ids {
					report[i] = thumbnailLine{ImageID: id, Error: errString(errs[i])}
					if errs[i] != nil {
						continue
					}
					img, err := s.store.GetImage(ctx, id)
					if err != nil {
						return nil, err
					}
					if img.ThumbnailPath != nil {
						report[i].ThumbnailPath = *img.ThumbnailPath
					}
				}
				return report, nil
			})
		},
	}
	cmd.Flags().BoolVar(&missing, "missing", false, "process every image that has no thumbnail")
	return cmd
}

func newImageDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <image-id>",
		Short: "Delete an image and its files; the preview moves to the oldest remaining image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "image id")
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.images.Delete(ctx, id)
			})
		},
	}
}

func newImageSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dir>",
		Short: "Link image files named PT<reference> to their artworks",
		Long: "Walk a directory and import every image whose file name carries an artwork\n" +
			"reference such as PT2810. Files matching no artwork, or more than one, are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.images.SeedFromDirectory(ctx, args[0])
			})
		},
	}
}
