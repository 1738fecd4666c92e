// Package config loads the synergy tool configuration from defaults, a TOML
// file and SYNERGY_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes environment overrides. Sections are separated by a
// double underscore: SYNERGY_TRAINING__LEARNING_RATE -> training.learning_rate.
const EnvPrefix = "SYNERGY_"

// Config represents the application configuration.
type Config struct {
	Labels   LabelsConfig   `koanf:"labels" toml:"labels"`
	Training TrainingConfig `koanf:"training" toml:"training"`
	Storage  StorageConfig  `koanf:"storage" toml:"storage"`
	Metrics  MetricsConfig  `koanf:"metrics" toml:"metrics"`
	Dataset  DatasetConfig  `koanf:"dataset" toml:"dataset"`
	Log      LogConfig      `koanf:"log" toml:"log"`
}

// LabelsConfig contains label generation settings.
type LabelsConfig struct {
	MinBothPresent int `koanf:"min_both_present" toml:"min_both_present" validate:"min=1"` // Games together before a pair is labeled
	MaxGameCards   int `koanf:"max_game_cards" toml:"max_game_cards" validate:"min=2,max=10000"`
	// Debounce is how long watch mode waits after the last change (e.g., "2s").
	Debounce string `koanf:"debounce" toml:"debounce" validate:"duration"`
}

// TrainingConfig contains embedding model training settings.
type TrainingConfig struct {
	LearningRate float64 `koanf:"learning_rate" toml:"learning_rate" validate:"gt=0"`
	L2Reg        float64 `koanf:"l2_reg" toml:"l2_reg" validate:"gte=0"`
	Epochs       int     `koanf:"epochs" toml:"epochs" validate:"min=1"`
	EmbedDim     int     `koanf:"embed_dim" toml:"embed_dim" validate:"min=1,max=16"`
	Seed         uint64  `koanf:"seed" toml:"seed"` // 0 = random
}

// StorageConfig contains SQLite history settings.
type StorageConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Path    string `koanf:"path" toml:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig contains Prometheus export settings.
type MetricsConfig struct {
	// Textfile receives the job metrics in text exposition format. Empty disables.
	Textfile string `koanf:"textfile" toml:"textfile"`
}

// DatasetConfig contains 17Lands download settings.
type DatasetConfig struct {
	CacheDir string `koanf:"cache_dir" toml:"cache_dir" validate:"required"`
	BaseURL  string `koanf:"base_url" toml:"base_url" validate:"omitempty,url"`
	Format   string `koanf:"format" toml:"format" validate:"required"`
	MaxAge   string `koanf:"max_age" toml:"max_age" validate:"duration"` // e.g., "24h"
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level" toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" toml:"format" validate:"oneof=console json"`
}

// Dir returns the configuration directory, ~/.mtga-synergy.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mtga-synergy"
	}
	return filepath.Join(home, ".mtga-synergy")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Labels: LabelsConfig{
			MinBothPresent: 500,
			MaxGameCards:   100,
			Debounce:       "2s",
		},
		Training: TrainingConfig{
			LearningRate: 0.01,
			L2Reg:        0.001,
			Epochs:       50,
			EmbedDim:     16,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    filepath.Join(dir, "synergy.db"),
		},
		Dataset: DatasetConfig{
			CacheDir: filepath.Join(dir, "datasets"),
			Format:   "PremierDraft",
			MaxAge:   "24h",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps SYNERGY_TRAINING__LEARNING_RATE to training.learning_rate.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Save writes the configuration as TOML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := gotoml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// TOML returns the configuration encoded as TOML.
func (c *Config) TOML() (string, error) {
	data, err := gotoml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DebounceDuration returns the watch debounce as a duration.
func (c *Config) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Labels.Debounce)
	return d
}

// DatasetMaxAge returns the dataset cache age as a duration.
func (c *Config) DatasetMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.Dataset.MaxAge)
	return d
}
