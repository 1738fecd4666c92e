package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Labels.MinBothPresent)
	assert.Equal(t, 100, cfg.Labels.MaxGameCards)
	assert.Equal(t, 0.01, cfg.Training.LearningRate)
	assert.Equal(t, 0.001, cfg.Training.L2Reg)
	assert.Equal(t, 50, cfg.Training.Epochs)
	assert.Equal(t, 16, cfg.Training.EmbedDim)
	assert.Equal(t, 2*time.Second, cfg.DebounceDuration())
	assert.Equal(t, 24*time.Hour, cfg.DatasetMaxAge())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[labels]
min_both_present = 250

[training]
epochs = 80
seed = 42

[log]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Labels.MinBothPresent)
	assert.Equal(t, 80, cfg.Training.Epochs)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
	assert.Equal(t, "json", cfg.Log.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.Labels.MaxGameCards)
	assert.Equal(t, 0.01, cfg.Training.LearningRate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[training]\nepochs = 80\n"), 0o644))

	t.Setenv("SYNERGY_TRAINING__EPOCHS", "5")
	t.Setenv("SYNERGY_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Training.Epochs)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"zero learning rate", "[training]\nlearning_rate = 0.0\n"},
		{"embed dim too large", "[training]\nembed_dim = 32\n"},
		{"bad log level", "[log]\nlevel = \"loud\"\n"},
		{"bad debounce", "[labels]\ndebounce = \"soon\"\n"},
		{"storage without path", "[storage]\nenabled = true\npath = \"\"\n"},
		{"broken toml", "[training\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.toml), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Training.Epochs = 123
	cfg.Storage.Enabled = true
	cfg.Metrics.Textfile = "/var/lib/node_exporter/synergy.prom"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "training.learning_rate", envKey("SYNERGY_TRAINING__LEARNING_RATE"))
	assert.Equal(t, "storage.enabled", envKey("SYNERGY_STORAGE__ENABLED"))
}

func TestTOML(t *testing.T) {
	out, err := DefaultConfig().TOML()
	require.NoError(t, err)
	assert.Contains(t, out, "[training]")
	assert.Contains(t, out, "min_both_present = 500")
}
