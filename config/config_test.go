package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	ClearConfigCache()
	t.Cleanup(viper.Reset)
}

func TestLoadConfigs_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := LoadConfigs(nil, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Theme, cfg.Theme)
	assert.Equal(t, TreeSourceBackend, cfg.TreeSource)
	assert.Equal(t, "http://localhost:8765", cfg.Backend.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout)
	assert.Equal(t, 20, cfg.Backend.TopK)
}

func TestLoadConfigs_YamlFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	content := "theme: monokai\ntree_source: local\nbackend:\n  base_url: http://retrieval:9000\n  timeout: 30s\n  top_k: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codai-scope-config.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfigs(nil, dir)

	require.NoError(t, err)
	assert.Equal(t, "monokai", cfg.Theme)
	assert.Equal(t, TreeSourceLocal, cfg.TreeSource)
	assert.Equal(t, "http://retrieval:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 5, cfg.Backend.TopK)
}

func TestLoadConfigs_EnvOverridesFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codai-scope-config.json"), []byte(`{"backend":{"top_k":7}}`), 0o644))
	t.Setenv("CODAI_SCOPE_TOP_K", "11")

	cfg, err := LoadConfigs(nil, dir)

	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Backend.TopK)
}

func TestLoadConfigs_FlagsOverride(t *testing.T) {
	resetViper(t)
	cmd := &cobra.Command{Use: "test"}
	InitFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Set("base_url", "http://flag:1"))

	cfg, err := LoadConfigs(cmd, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "http://flag:1", cfg.Backend.BaseURL)
}

func TestLoadConfigs_InvalidTreeSource(t *testing.T) {
	resetViper(t)
	t.Setenv("CODAI_SCOPE_TREE_SOURCE", "ftp")

	_, err := LoadConfigs(nil, t.TempDir())

	assert.ErrorContains(t, err, "tree_source")
}

func TestLoadConfigs_MissingExplicitFile(t *testing.T) {
	resetViper(t)
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := LoadConfigs(nil, t.TempDir())

	assert.Error(t, err)
}

func TestLoadConfigWithCache_ReusesUnchangedFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codai-scope-config.yaml"), []byte("theme: github\n"), 0o644))

	first, err := LoadConfigWithCache(nil, dir)
	require.NoError(t, err)
	second, err := LoadConfigWithCache(nil, dir)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", (&Config{LogLevel: "debug"}).SlogLevel().String())
	assert.Equal(t, "WARN", (&Config{LogLevel: "Warning"}).SlogLevel().String())
	assert.Equal(t, "INFO", (&Config{LogLevel: "loud"}).SlogLevel().String())
}

func TestGetConfigFileType(t *testing.T) {
	assert.Equal(t, "json", GetConfigFileType("a.json"))
	assert.Equal(t, "yaml", GetConfigFileType("a.yml"))
	assert.Equal(t, "", GetConfigFileType("a.toml"))
}
