package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithNoFileOrEnvReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Embedding.ModelID, cfg.Embedding.ModelID)
	require.Equal(t, Default().Seeder.Parallel, cfg.Seeder.Parallel)
}

func TestLoadAppliesYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeder:\n  parallel: 4\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Seeder.Parallel)
}

func TestLoadAppliesEnvironmentOverrideOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeder:\n  parallel: 4\n"), 0o600))

	t.Setenv("CONCEPTRAG_SEEDER_PARALLEL", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Seeder.Parallel)
}

func TestValidateRejectsEmptyModelID(t *testing.T) {
	cfg := Default()
	cfg.Embedding.ModelID = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	require.Error(t, cfg.Validate())
}

func TestToLoggingConfigParsesLevel(t *testing.T) {
	lc, err := LoggingConfig{Level: "debug", Format: "json"}.ToLoggingConfig()
	require.NoError(t, err)
	require.Equal(t, "debug", lc.Level.String())
}
