package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "test1.csv", cfg.Normalize.Input)
	assert.Equal(t, "test1_cleaned.csv", cfg.Normalize.Output)
	assert.Empty(t, cfg.Normalize.BaseDir)
	assert.Equal(t, filepath.Join("data-refinement", "og.csv"), cfg.Aggregate.Input)
	assert.Equal(t, "transformed_dataset.csv", cfg.Aggregate.Output)
	assert.Equal(t, 5, cfg.Aggregate.PreviewRows)
	assert.Empty(t, cfg.Storage.DataDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "eradata.yaml")

	cfg := DefaultConfig()
	cfg.Aggregate.Strict = true
	cfg.Aggregate.PreviewRows = 10
	cfg.Storage.DataDir = "pb_data"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "eradata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aggregate:\n  output: merged.csv\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "merged.csv", cfg.Aggregate.Output)
	assert.Equal(t, filepath.Join("data-refinement", "og.csv"), cfg.Aggregate.Input)
	assert.Equal(t, "test1.csv", cfg.Normalize.Input)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/var/lib/eradata")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/eradata", cfg.Storage.DataDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		port    string
	}{
		{"bad yaml", "aggregate: [", ""},
		{"empty input", "aggregate:\n  input: \"\"\n", ""},
		{"negative preview", "aggregate:\n  preview_rows: -1\n", ""},
		{"bad port env", "", "http"},
		{"port out of range", "server:\n  port: 70000\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.port != "" {
				t.Setenv("PORT", tt.port)
			}
			path := filepath.Join(t.TempDir(), "eradata.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
