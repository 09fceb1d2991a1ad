package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// envelope is the uniform --json output of every command.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// textRenderer is implemented by results with a dedicated text layout.
// Anything else is printed as YAML.
type textRenderer interface {
	renderText(w io.Writer) error
}

func (a *app) print(cmd *cobra.Command, data any) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return writeJSON(out, envelope{Success: true, Data: data})
	}
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(out, v)
		return err
	case textRenderer:
		return v.renderText(out)
	default:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("render output: %w", err)
		}
		return enc.Close()
	}
}

// fail reports err in the JSON envelope when --json is set and returns it
// so the exit code reflects it.
func (a *app) fail(cmd *cobra.Command, err error) error {
	if a.flags.jsonMode {
		if werr := writeJSON(cmd.OutOrStdout(), envelope{Success: false, Error: err.Error()}); werr != nil {
			return werr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	return nil
}

func deref[T any](p *T) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

// artworkTable renders artwork listings.
type artworkTable types.ListResult

func (t artworkTable) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERENCE\tTITLE\tDATE\tPREVIEW")
	for _, art := range t.Items {
		preview := ""
		if art.PrimaryImage != nil {
			preview = art.PrimaryImage.PreviewPath()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", art.ID, art.Reference, deref(art.Title), deref(art.Date), preview)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t.Paginated {
		_, err := fmt.Fprintf(w, "%d of %d artworks\n", len(t.Items), t.Total)
		return err
	}
	_, err := fmt.Fprintf(w, "%d artworks\n", len(t.Items))
	return err
}

// tagTable renders tag listings.
type tagTable []types.Tag

func (t tagTable) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATE\tARTWORKS")
	for _, tag := range t {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", tag.ID, tag.Name, deref(tag.Date), tag.ArtworkCount)
	}
	return tw.Flush()
}

// yearTable renders the year aggregation.
type yearTable []types.YearCount

func (t yearTable) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tARTWORKS")
	for _, y := range t {
		fmt.Fprintf(tw, "%s\t%d\n", strconv.Itoa(y.Year), y.Count)
	}
	return tw.Flush()
}
