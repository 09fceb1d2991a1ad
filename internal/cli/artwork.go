package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

func newArtworkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artwork",
		Aliases: []string{"artworks"},
		Short:   "List, inspect and edit artworks",
	}
	cmd.AddCommand(
		newArtworkListCmd(a),
		newArtworkGetCmd(a),
		newArtworkYearsCmd(a),
		newArtworkCreateCmd(a),
		newArtworkUpdateCmd(a),
		newArtworkDeleteCmd(a),
		newArtworkAssocCmd(a, types.KindPigment),
		newArtworkAssocCmd(a, types.KindPaper),
		newArtworkPreviewCmd(a),
	)
	return cmd
}

// parseID parses a positive row id argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError("invalid %s %q: must be a positive integer", what, arg)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg, what)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newArtworkListCmd(a *app) *cobra.Command {
	var (
		f                      types.ArtworkFilter
		collection, typ, place int64
		from, to               string
		limit, offset          int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artworks matching a filter",
		Long: "List artworks ordered by numeric reference (newest first), then title.\n" +
			"Filters combine with AND; repeated --pigment, --paper and --year values combine with OR.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("collection") {
				f.CollectionID = &collection
			}
			if flags.Changed("type") {
				f.TypeID = &typ
			}
			if flags.Changed("place") {
				f.PlaceID = &place
			}
			if from != "" || to != "" {
				f.DateRange = &types.DateRange{From: from, To: to}
			}
			if flags.Changed("limit") {
				f.Limit = &limit
			}
			if flags.Changed("offset") {
				f.Offset = &offset
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				res, err := s.store.ListArtworks(ctx, f)
				if err != nil {
					return nil, err
				}
				return artworkTable(res), nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.Query, "query", "q", "", "full-text search over reference, title, description and owner")
	flags.Int64Var(&collection, "collection", 0, "collection id")
	flags.Int64Var(&typ, "type", 0, "type id")
	flags.Int64Var(&place, "place", 0, "place id")
	flags.Int64SliceVar(&f.Pigments, "pigment", nil, "pigment id (repeatable)")
	flags.Int64SliceVar(&f.Papers, "paper", nil, "paper id (repeatable)")
	flags.IntSliceVar(&f.Years, "year", nil, "year extracted from the date (repeatable)")
	flags.StringVar(&from, "from", "", "earliest ISO date (YYYY-MM-DD), inclusive")
	flags.StringVar(&to, "to", "", "latest ISO date (YYYY-MM-DD), inclusive")
	flags.BoolVar(&f.NoCollection, "no-collection", false, "only artworks without a collection")
	flags.BoolVar(&f.NoType, "no-type", false, "only artworks without a type")
	flags.BoolVar(&f.NoPlace, "no-place", false, "only artworks without a place")
	flags.BoolVar(&f.NoPigments, "no-pigments", false, "only artworks without pigments")
	flags.BoolVar(&f.NoPapers, "no-papers", false, "only artworks without papers")
	flags.IntVar(&limit, "limit", 0, "page size (0 for no limit)")
	flags.IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newArtworkGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an artwork with its tags and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.store.GetArtworkFull(ctx, id)
			})
		},
	}
}

func newArtworkYearsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Count artworks per year, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				years, err := s.store.ListYears(ctx)
				if err != nil {
					return nil, err
				}
				return yearTable(years), nil
			})
		},
	}
}

// artworkFields binds the editable artwork attributes to flags.
type artworkFields struct {
	reference, title, description, owner, date string
	width, height                              float64
	collection, typ, place                     int64
}

func (af *artworkFields) register(cmd *cobra.Command, update bool) {
	hint := ""
	if update {
		hint = " (empty or 0 clears)"
	}
	flags := cmd.Flags()
	flags.StringVar(&af.reference, "reference", "", "catalogue reference")
	flags.StringVar(&af.title, "title", "", "title"+hint)
	flags.StringVar(&af.description, "description", "", "description"+hint)
	flags.StringVar(&af.owner, "owner", "", "owner"+hint)
	flags.StringVar(&af.date, "date", "", "free-form date, e.g. 2024-02-24 or Printemps 2024"+hint)
	flags.Float64Var(&af.width, "width", 0, "width"+hint)
	flags.Float64Var(&af.height, "height", 0, "height"+hint)
	flags.Int64Var(&af.collection, "collection", 0, "collection id"+hint)
	flags.Int64Var(&af.typ, "type", 0, "type id"+hint)
	flags.Int64Var(&af.place, "place", 0, "place id"+hint)
}

func optional[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func (af *artworkFields) input(cmd *cobra.Command) types.ArtworkInput {
	return types.ArtworkInput{
		Reference:    af.reference,
		Title:        optional(cmd, "title", af.title),
		Description:  optional(cmd, "description", af.description),
		Owner:        optional(cmd, "owner", af.owner),
		Width:        optional(cmd, "width", af.width),
		Height:       optional(cmd, "height", af.height),
		Date:         optional(cmd, "date", af.date),
		CollectionID: optional(cmd, "collection", af.collection),
		TypeID:       optional(cmd, "type", af.typ),
		PlaceID:      optional(cmd, "place", af.place),
	}
}

// patch turns a changed flag into a patch; the zero value clears.
func patch[T comparable](cmd *cobra.Command, name string, v T) types.Patch[T] {
	if !cmd.Flags().Changed(name) {
		return types.Patch[T]{}
	}
	var zero T
	if v == zero {
		return types.Clear[T]()
	}
	return types.SetTo(v)
}

func (af *artworkFields) update(cmd *cobra.Command) types.ArtworkUpdate {
	u := types.ArtworkUpdate{
		Title:        patch(cmd, "title", strings.TrimSpace(af.title)),
		Description:  patch(cmd, "description", af.description),
		Owner:        patch(cmd, "owner", af.owner),
		Width:        patch(cmd, "width", af.width),
		Height:       patch(cmd, "height", af.height),
		Date:         patch(cmd, "date", af.date),
		CollectionID: patch(cmd, "collection", af.collection),
		TypeID:       patch(cmd, "type", af.typ),
		PlaceID:      patch(cmd, "place", af.place),
	}
	// A blank reference is rejected by the store rather than cleared.
	if cmd.Flags().Changed("reference") {
		u.Reference = types.SetTo(af.reference)
	}
	return u
}

func newArtworkCreateCmd(a *app) *cobra.Command {
	var af artworkFields
	cmd := &cobra.Command{
		Use:   "create --reference <ref> [flags]",
		Short: "Create an artwork",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := af.input(cmd)
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.store.CreateArtwork(ctx, in)
			})
		},
	}
	af.register(cmd, false)
	return cmd
}

func newArtworkUpdateCmd(a *app) *cobra.Command {
	var af artworkFields
	cmd := &cobra.Command{
		Use:   "update <id> [flags]",
		Short: "Change artwork attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			u := af.update(cmd)
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.store.UpdateArtwork(ctx, id, u)
			})
		},
	}
	af.register(cmd, true)
	return cmd
}

func newArtworkDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an artwork with its images and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				if err := s.images.DeleteArtwork(ctx, id); err != nil {
					return nil, err
				}
				return map[string]int64{"deleted": id}, nil
			})
		},
	}
}

// newArtworkAssocCmd builds "artwork pigments" and "artwork papers".
func newArtworkAssocCmd(a *app, kind types.TagKind) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   string(kind) + "s <artwork-id> [" + string(kind) + "-id...]",
		Short: "Show or replace the " + string(kind) + "s of an artwork",
		Long: "Without ids, print the current " + string(kind) + " ids. With ids, replace the whole set.\n" +
			"--clear removes every " + string(kind) + ".",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artworkID, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			ids, err := parseIDs(args[1:], string(kind)+" id")
			if err != nil {
				return a.fail(cmd, err)
			}
			if unset && len(ids) > 0 {
				return a.fail(cmd, userError("--clear takes no %s ids", kind))
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				if unset || len(ids) > 0 {
					set := s.store.SetPigmentsForArtwork
					if kind == types.KindPaper {
						set = s.store.SetPapersForArtwork
					}
					if err := set(ctx, artworkID, ids); err != nil {
						return nil, err
					}
				}
				return s.store.AssociationIDs(ctx, kind, artworkID)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "clear", false, "remove every "+string(kind))
	return cmd
}

func newArtworkPreviewCmd(a *app) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "preview <artwork-id> [image-id]",
		Short: "Choose the preview image of an artwork",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artworkID, err := parseID(args[0], "artwork id")
			if err != nil {
				return a.fail(cmd, err)
			}
			var imageID *int64
			switch {
			case len(args) == 2 && unset:
				return a.fail(cmd, userError("--clear takes no image id"))
			case len(args) == 2:
				id, err := parseID(args[1], "image id")
				if err != nil {
					return a.fail(cmd, err)
				}
				imageID = &id
			case !unset:
				return a.fail(cmd, userError("give an image id or --clear"))
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				if err := s.images.SetPreview(ctx, artworkID, imageID); err != nil {
					return nil, err
				}
				return s.store.GetArtwork(ctx, artworkID)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "clear", false, "unset the preview image")
	return cmd
}
