// Package config loads and validates gitsleuth configuration from YAML
// files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// RepositoryConfig holds object-store access knobs.
type RepositoryConfig struct {
	// Head is the ref the analysis starts from.
	Head string `mapstructure:"head"`
	// PoolSize is the number of pooled libgit2 handles.
	PoolSize int `mapstructure:"pool_size"`
	// CacheSize is the blob cache budget, humanized ("256 MiB").
	CacheSize string `mapstructure:"cache_size"`
	// StoreTimeout bounds each object read. Zero disables the deadline.
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// AnalysisConfig holds pipeline knobs.
type AnalysisConfig struct {
	// Workers bounds the classification pool; zero means runtime.NumCPU().
	Workers int `mapstructure:"workers"`
	// MaxFileSize is the per-blob size cap in bytes; larger files are
	// excluded like binaries.
	MaxFileSize int64 `mapstructure:"max_file_size"`
	// DiffTimeout bounds one file diff.
	DiffTimeout time.Duration `mapstructure:"diff_timeout"`
	// RenameSimilarity is the minimum shared-line percentage linking a
	// delete+add pair as a rename.
	RenameSimilarity int `mapstructure:"rename_similarity"`
	// DisableRenames turns rename detection off entirely.
	DisableRenames bool `mapstructure:"disable_renames"`
	// ExcludePrefixes lists path prefixes skipped by diff and blame.
	ExcludePrefixes []string `mapstructure:"exclude_prefixes"`
	// SkipVendored excludes paths matched by vendor/generated rules.
	SkipVendored bool `mapstructure:"skip_vendored"`
	// IncludeUnknown keeps unrecognized-language lines in per-language
	// breakdowns under the "unknown" tag.
	IncludeUnknown bool `mapstructure:"include_unknown"`
	// HibernationThreshold packs parked blame states once more than this
	// many are resident. Zero disables hibernation.
	HibernationThreshold int `mapstructure:"hibernation_threshold"`
}

// IdentityConfig controls contributor identity merging.
type IdentityConfig struct {
	// ExactMatching keys contributors by the full "name <email>" pair
	// instead of merging on shared emails or names.
	ExactMatching bool `mapstructure:"exact_matching"`
	// PeopleFile points at an identity dictionary ("Display|alias|alias"
	// per line) pre-seeding the merge.
	PeopleFile string `mapstructure:"people_file"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	// DiagnosticsAddr serves /healthz, /readyz, /metrics when non-empty.
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
	// OTLPEndpoint enables OTLP gRPC export when non-empty.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `mapstructure:"otlp_insecure"`
}

// Log level and format names accepted in LoggingConfig.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatText = "text"
	FormatJSON = "json"
)

// Sentinel errors for configuration validation.
var (
	ErrInvalidWorkers              = errors.New("analysis.workers must be non-negative")
	ErrInvalidMaxFileSize          = errors.New("analysis.max_file_size must be non-negative")
	ErrInvalidDiffTimeout          = errors.New("analysis.diff_timeout must be non-negative")
	ErrInvalidRenameSimilarity     = errors.New("analysis.rename_similarity must be between 0 and 100")
	ErrInvalidHibernationThreshold = errors.New("analysis.hibernation_threshold must be non-negative")
	ErrInvalidPoolSize             = errors.New("repository.pool_size must be non-negative")
	ErrInvalidCacheSize            = errors.New("repository.cache_size is not a parseable byte size")
	ErrInvalidStoreTimeout         = errors.New("repository.store_timeout must be non-negative")
	ErrInvalidLogLevel             = errors.New("logging.level must be debug, info, warn, or error")
	ErrInvalidLogFormat            = errors.New("logging.format must be text or json")
)

const maxSimilarityPercent = 100

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if err := c.validateRepository(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRepository() error {
	if c.Repository.PoolSize < 0 {
		return ErrInvalidPoolSize
	}
	if c.Repository.StoreTimeout < 0 {
		return ErrInvalidStoreTimeout
	}
	if c.Repository.CacheSize != "" {
		if _, err := c.Repository.CacheBytes(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.Analysis.MaxFileSize < 0 {
		return ErrInvalidMaxFileSize
	}
	if c.Analysis.DiffTimeout < 0 {
		return ErrInvalidDiffTimeout
	}
	if c.Analysis.RenameSimilarity < 0 || c.Analysis.RenameSimilarity > maxSimilarityPercent {
		return ErrInvalidRenameSimilarity
	}
	if c.Analysis.HibernationThreshold < 0 {
		return ErrInvalidHibernationThreshold
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return ErrInvalidLogLevel
	}
	switch c.Logging.Format {
	case "", FormatText, FormatJSON:
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// CacheBytes parses the humanized cache size into bytes.
func (r RepositoryConfig) CacheBytes() (int64, error) {
	if r.CacheSize == "" {
		return 0, nil
	}
	size, err := humanize.ParseBytes(r.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidCacheSize, r.CacheSize, err)
	}
	if size > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidCacheSize, r.CacheSize)
	}
	return int64(size), nil
}

// SlogLevel maps the configured level name to a slog level, defaulting to
// info. Call Validate first; unknown names map to info here.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JSONLogs reports whether log output should be JSON formatted.
func (l LoggingConfig) JSONLogs() bool {
	return l.Format == FormatJSON
}
