package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/internal/backup"
	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/internal/sqlite"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// progressPrinter writes one line per whole percent to w.
type progressPrinter struct {
	w    io.Writer
	last int
}

func (p *progressPrinter) report(pr types.Progress) {
	if pr.Percent == nil || pr.TotalBytes == nil {
		return
	}
	pct := int(*pr.Percent)
	if pct == p.last && pct != 100 {
		return
	}
	p.last = pct
	fmt.Fprintf(p.w, "%3d%%  %s / %s  (%d files)\n", pct,
		humanize.Bytes(uint64(pr.ProcessedBytes)), humanize.Bytes(uint64(*pr.TotalBytes)), pr.ProcessedFiles)
}

func newBackupCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "backup <dest.zip>",
		Short: "Write the database and every image into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) (any, error) {
				var onProgress types.ProgressFunc
				if !quiet && !a.flags.jsonMode {
					onProgress = (&progressPrinter{w: cmd.ErrOrStderr(), last: -1}).report
				}
				engine := backup.New(s.store, s.store.Layout(), s.log)
				return engine.Backup(ctx, args[0], onProgress)
			})
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not report progress")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <src.zip>",
		Short: "Replace the catalogue with the contents of a backup archive",
		Long: "Replace the database and the whole images tree of the data directory with\n" +
			"the archive contents. Nothing is merged; the current catalogue is lost.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.runRestore(cmd, args[0], yes)
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.print(cmd, m)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm that the current catalogue is replaced")
	return cmd
}

func (a *app) runRestore(cmd *cobra.Command, src string, yes bool) (backup.Manifest, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return backup.Manifest{}, userError("archive %s does not exist", src)
		}
		return backup.Manifest{}, fmt.Errorf("stat %s: %w", src, err)
	}
	s, err := a.loadSettings()
	if err != nil {
		return backup.Manifest{}, err
	}
	log, closer, err := a.logger(cmd, s)
	if err != nil {
		return backup.Manifest{}, err
	}
	defer closer.Close()

	layout := paths.NewLayout(s.Config.DataDir)
	engine := backup.New(sqlite.NewBackend(log), layout, log)
	if _, err := engine.Inspect(src); err != nil {
		return backup.Manifest{}, err
	}
	if !yes {
		return backup.Manifest{}, userError("restore replaces the catalogue in %s; rerun with --yes", layout.Root)
	}
	return engine.Restore(cmd.Context(), src)
}
