package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/internal/sqlite"
)

type initResult struct {
	ConfigFile string `json:"config_file" yaml:"config_file"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	Database   string `json:"database" yaml:"database"`
	SampleData bool   `json:"sample_data" yaml:"sample_data"`
}

func newInitCmd(a *app) *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize catalogue storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the database schema. --sample-data seeds demonstration tags and artworks\ninto an empty catalogue.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runInit(cmd, sample)
			if err != nil {
				return a.fail(cmd, err)
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&sample, "sample-data", false, "seed sample tags and artworks into an empty catalogue")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, sample bool) (initResult, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return initResult{}, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return initResult{}, fmt.Errorf("create config directory: %w", err)
	}

	// Record an explicit --data-dir so later commands find the same catalogue.
	configPath := filepath.Join(configDir, configFileExt)
	dataDir := ""
	if a.flags.dataDir != "" {
		if dataDir, err = filepath.Abs(a.flags.dataDir); err != nil {
			return initResult{}, fmt.Errorf("resolve data dir: %w", err)
		}
	}
	if err := writeConfigIfMissing(configPath, dataDir); err != nil {
		return initResult{}, fmt.Errorf("write config: %w", err)
	}

	s, err := loadSettings(configDir, a.flags.dataDir)
	if err != nil {
		return initResult{}, err
	}
	log, closer, err := a.logger(cmd, s)
	if err != nil {
		return initResult{}, err
	}
	defer closer.Close()

	store := sqlite.NewBackend(log)
	if err := store.Attach(s.Config); err != nil {
		return initResult{}, fmt.Errorf("initialize storage: %w", err)
	}
	if sample {
		if err := store.SeedSampleData(cmd.Context()); err != nil {
			store.Detach()
			return initResult{}, fmt.Errorf("seed sample data: %w", err)
		}
	}
	if err := store.Detach(); err != nil {
		return initResult{}, fmt.Errorf("finalize storage: %w", err)
	}

	return initResult{
		ConfigFile: configPath,
		DataDir:    s.Config.DataDir,
		Database:   paths.NewLayout(s.Config.DataDir).DatabasePath(),
		SampleData: sample,
	}, nil
}
