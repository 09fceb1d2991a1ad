package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/catalogue/internal/logging"
	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir          = "data_dir"
	cfgKeyLogLevel         = "log.level"
	cfgKeyLogFile          = "log.file"
	cfgKeyThumbnailWidth   = "thumbnail.width"
	cfgKeyThumbnailQuality = "thumbnail.quality"
	cfgKeyImportWorkers    = "import.workers"

	// The CLI is quiet by default; info is for the log file.
	defaultLogLevel = "warn"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	DataDir string `yaml:"data_dir,omitempty"`
	Log     struct {
		Level string `yaml:"level"`
		File  bool   `yaml:"file"`
	} `yaml:"log"`
	Thumbnail struct {
		Width   int `yaml:"width"`
		Quality int `yaml:"quality"`
	} `yaml:"thumbnail"`
	Import struct {
		Workers int `yaml:"workers"`
	} `yaml:"import"`
}

func defaultConfigFile(dataDir string) configFile {
	var cfg configFile
	cfg.DataDir = dataDir
	cfg.Log.Level = defaultLogLevel
	cfg.Thumbnail.Width = types.DefaultThumbnailWidth
	cfg.Thumbnail.Quality = types.DefaultThumbnailQuality
	cfg.Import.Workers = types.DefaultImportWorkers
	return cfg
}

// settings is the resolved configuration of one invocation.
type settings struct {
	ConfigDir string
	Config    types.Config
	Log       logging.Config
}

// loadSettings reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run, and resolves the data
// directory: flag > config > CATALOGUE_DATA_DIR > platform default.
func loadSettings(configDir, dataDirFlag string) (settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return settings{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return settings{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFile, false)
	v.SetDefault(cfgKeyThumbnailWidth, types.DefaultThumbnailWidth)
	v.SetDefault(cfgKeyThumbnailQuality, types.DefaultThumbnailQuality)
	v.SetDefault(cfgKeyImportWorkers, types.DefaultImportWorkers)
	if err := v.BindEnv(cfgKeyLogLevel, "CATALOGUE_LOG_LEVEL"); err != nil {
		return settings{}, fmt.Errorf("bind env: %w", err)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		DataDir: dataDir,
		Thumbnail: types.ThumbnailConfig{
			Width:   v.GetInt(cfgKeyThumbnailWidth),
			Quality: v.GetInt(cfgKeyThumbnailQuality),
		},
		ImportWorkers: v.GetInt(cfgKeyImportWorkers),
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, userError("%s: %w", filepath.Join(configDir, configFileExt), err)
	}

	return settings{
		ConfigDir: configDir,
		Config:    cfg,
		Log: logging.Config{
			Level: v.GetString(cfgKeyLogLevel),
			File:  v.GetBool(cfgKeyLogFile),
		},
	}, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile(dataDir))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# Catalogue configuration. --data-dir overrides data_dir.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
