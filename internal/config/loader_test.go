package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/config"
)

// isolate points the config search path at empty directories so a
// developer's ~/.gitsleuth.yaml cannot leak into assertions.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitsleuth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultHead, cfg.Repository.Head)
	assert.Equal(t, 0, cfg.Repository.PoolSize)
	assert.Equal(t, config.DefaultCacheSize, cfg.Repository.CacheSize)
	assert.Equal(t, config.DefaultStoreTimeout, cfg.Repository.StoreTimeout)

	assert.Equal(t, 0, cfg.Analysis.Workers)
	assert.Equal(t, config.DefaultDiffTimeout, cfg.Analysis.DiffTimeout)
	assert.True(t, cfg.Analysis.SkipVendored)
	assert.False(t, cfg.Analysis.IncludeUnknown)
	assert.Empty(t, cfg.Analysis.ExcludePrefixes)

	assert.False(t, cfg.Identity.ExactMatching)

	assert.Equal(t, config.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, config.FormatText, cfg.Logging.Format)

	assert.Empty(t, cfg.Telemetry.DiagnosticsAddr)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	isolate(t)

	path := writeConfigFile(t, `
repository:
  head: refs/heads/release
  cache_size: 64 MiB
analysis:
  workers: 4
  exclude_prefixes:
    - vendor/
    - third_party/
logging:
  format: json
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/release", cfg.Repository.Head)
	assert.Equal(t, "64 MiB", cfg.Repository.CacheSize)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, []string{"vendor/", "third_party/"}, cfg.Analysis.ExcludePrefixes)
	assert.True(t, cfg.Logging.JSONLogs())

	// Settings the file omits keep their defaults.
	assert.Equal(t, config.DefaultStoreTimeout, cfg.Repository.StoreTimeout)
	assert.Equal(t, config.DefaultDiffTimeout, cfg.Analysis.DiffTimeout)
	assert.True(t, cfg.Analysis.SkipVendored)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("GITSLEUTH_REPOSITORY_HEAD", "refs/heads/dev")
	t.Setenv("GITSLEUTH_ANALYSIS_WORKERS", "8")
	t.Setenv("GITSLEUTH_ANALYSIS_SKIP_VENDORED", "false")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/dev", cfg.Repository.Head)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.False(t, cfg.Analysis.SkipVendored)
}

func TestLoadConfig_SearchPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	content := "repository:\n  head: refs/heads/trunk\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitsleuth.yaml"), []byte(content), 0o600))
	t.Chdir(dir)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/trunk", cfg.Repository.Head)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	isolate(t)

	path := writeConfigFile(t, "repository: [unclosed\n")

	_, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	isolate(t)

	path := writeConfigFile(t, "analysis:\n  workers: -2\n")

	_, err := config.LoadConfig(path)
	require.ErrorIs(t, err, config.ErrInvalidWorkers)
}
