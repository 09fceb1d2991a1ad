package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

var validKinds = func() string {
	names := make([]string, len(types.TagKinds))
	for i, k := range types.TagKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}()

func parseKind(arg string) (types.TagKind, error) {
	kind := types.TagKind(strings.TrimSuffix(strings.ToLower(arg), "s"))
	if !kind.Valid() {
		return "", userError("unknown tag kind %q (valid: %s)", arg, validKinds)
	}
	return kind, nil
}

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tag",
		Aliases: []string{"tags"},
		Short:   "Manage collections, types, places, pigments and papers",
	}
	cmd.AddCommand(
		newTagListCmd(a),
		newTagCreateCmd(a),
		newTagUpdateCmd(a),
		newTagDeleteCmd(a),
	)
	return cmd
}

func newTagListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List tags of a kind with their artwork counts",
		Long:  fmt.Sprintf("List tags of a kind. Valid kinds: %s.", validKinds),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				tags, err := s.store.ListTags(ctx, kind)
				if err != nil {
					return nil, err
				}
				return tagTable(tags), nil
			})
		},
	}
}

type tagFields struct {
	name, description, date string
}

func (tf *tagFields) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&tf.name, "name", "", "tag name")
	flags.StringVar(&tf.description, "description", "", "description")
	flags.StringVar(&tf.date, "date", "", "date (collections only)")
}

func newTagCreateCmd(a *app) *cobra.Command {
	var tf tagFields
	cmd := &cobra.Command{
		Use:   "create <kind> --name <name> [flags]",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			in := types.TagInput{
				Name:        tf.name,
				Description: optional(cmd, "description", tf.description),
				Date:        optional(cmd, "date", tf.date),
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.store.CreateTag(ctx, kind, in)
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newTagUpdateCmd(a *app) *cobra.Command {
	var tf tagFields
	cmd := &cobra.Command{
		Use:   "update <kind> <id> [flags]",
		Short: "Rename or edit a tag; an empty description or date clears it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			id, err := parseID(args[1], string(kind)+" id")
			if err != nil {
				return a.fail(cmd, err)
			}
			u := types.TagUpdate{
				Description: patch(cmd, "description", tf.description),
				Date:        patch(cmd, "date", tf.date),
			}
			if cmd.Flags().Changed("name") {
				u.Name = types.SetTo(tf.name)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.store.UpdateTag(ctx, kind, id, u)
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newTagDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a tag; artworks referencing it keep no value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return a.fail(cmd, err)
			}
			id, err := parseID(args[1], string(kind)+" id")
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				if err := s.store.DeleteTag(ctx, kind, id); err != nil {
					return nil, err
				}
				return map[string]int64{"deleted": id}, nil
			})
		},
	}
}
