package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".gitsleuth"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for gitsleuth settings.
const envPrefix = "GITSLEUTH"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Defaults registered by LoadConfig. Zero values mean "component default":
// workers falls back to the CPU count, pool size to the worker count, and
// max_file_size / rename similarity to the diff layer's built-ins.
const (
	DefaultHead         = "HEAD"
	DefaultCacheSize    = "256 MiB"
	DefaultStoreTimeout = 30 * time.Second
	DefaultDiffTimeout  = time.Second
	DefaultLogLevel     = LevelInfo
	DefaultLogFormat    = FormatText
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository.head", DefaultHead)
	viperCfg.SetDefault("repository.pool_size", 0)
	viperCfg.SetDefault("repository.cache_size", DefaultCacheSize)
	viperCfg.SetDefault("repository.store_timeout", DefaultStoreTimeout)

	viperCfg.SetDefault("analysis.workers", 0)
	viperCfg.SetDefault("analysis.max_file_size", 0)
	viperCfg.SetDefault("analysis.diff_timeout", DefaultDiffTimeout)
	viperCfg.SetDefault("analysis.rename_similarity", 0)
	viperCfg.SetDefault("analysis.disable_renames", false)
	viperCfg.SetDefault("analysis.exclude_prefixes", []string{})
	viperCfg.SetDefault("analysis.skip_vendored", true)
	viperCfg.SetDefault("analysis.include_unknown", false)
	viperCfg.SetDefault("analysis.hibernation_threshold", 0)

	viperCfg.SetDefault("identity.exact_matching", false)
	viperCfg.SetDefault("identity.people_file", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.diagnostics_addr", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
}
