// Package cli implements the catalogue command-line interface: artwork and
// tag CRUD, image import and thumbnails, backup and restore.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/internal/images"
	"github.com/mesh-intelligence/catalogue/internal/logging"
	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/internal/sqlite"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is shared by every command of one command tree.
type app struct {
	flags rootFlags
}

// NewRootCmd creates the top-level "catalogue" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "catalogue",
		Short: "Catalogue artworks, their images and tags",
		Long:  "Catalogue keeps an artwork inventory in a local SQLite database with\nits original images and thumbnails, and writes and restores zip backups.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: config data_dir, $CATALOGUE_DATA_DIR or platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitErr{code: exitUserError, err: err}
	})

	root.AddCommand(newVersionCmd(a))
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newArtworkCmd(a))
	root.AddCommand(newTagCmd(a))
	root.AddCommand(newImageCmd(a))
	root.AddCommand(newBackupCmd(a))
	root.AddCommand(newRestoreCmd(a))
	root.AddCommand(newVerifyCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
// Interrupts cancel the command context, which stops a running backup.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(ExitCode(err))
}

// exitErr carries an explicit exit code.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitErr{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error onto the process exit code: validation and
// not-found errors are the caller's fault, everything else is a system error.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrImageNotOwned) ||
		errors.Is(err, types.ErrArchiveInvalid) {
		return exitUserError
	}
	return exitSysError
}

// session is an attached store with its image manager, opened for the
// duration of one command.
type session struct {
	settings settings
	log      zerolog.Logger
	store    *sqlite.Backend
	images   *images.Manager
	closer   io.Closer
}

// loadSettings resolves the directories and reads config.yaml.
func (a *app) loadSettings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return loadSettings(configDir, a.flags.dataDir)
}

// logger builds the command logger for s. Console output goes to the
// command's stderr.
func (a *app) logger(cmd *cobra.Command, s settings) (zerolog.Logger, io.Closer, error) {
	lc := s.Log
	lc.Dir = paths.NewLayout(s.Config.DataDir).LogsDir()
	lc.Console = cmd.ErrOrStderr()
	return logging.New(lc)
}

// open loads settings and attaches the store. The caller must Close the
// session.
func (a *app) open(cmd *cobra.Command) (*session, error) {
	s, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	log, closer, err := a.logger(cmd, s)
	if err != nil {
		return nil, err
	}
	store := sqlite.NewBackend(log)
	if err := store.Attach(s.Config); err != nil {
		closer.Close()
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return &session{
		settings: s,
		log:      log,
		store:    store,
		images:   images.NewManager(store, store.Layout(), images.OptionsFromConfig(store.Config()), log),
		closer:   closer,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Detach(); err != nil {
		s.log.Warn().Err(err).Msg("detach store")
	}
	s.closer.Close()
}

// withSession runs fn against an attached store and prints its result.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) (any, error)) error {
	s, err := a.open(cmd)
	if err != nil {
		return a.fail(cmd, err)
	}
	defer s.Close()

	data, err := fn(cmd.Context(), s)
	if err != nil {
		return a.fail(cmd, err)
	}
	if err := a.print(cmd, data); err != nil {
		return err
	}
	if pf, ok := data.(partialFailure); ok {
		return pf.failure()
	}
	return nil
}
