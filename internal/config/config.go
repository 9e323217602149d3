// Package config loads the runtime configuration of the geoseg tools from a
// TOML file and GEOSEG_ environment variables, and builds the process logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/joaolima7/geosegbar/internal/limit"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "geoseg.toml"

// EnvPrefix prefixes every environment override, e.g. GEOSEG_DATABASE_PATH.
const EnvPrefix = "GEOSEG"

// Config is the runtime configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" toml:"database"`
	Log        LogConfig        `mapstructure:"log" toml:"log"`
	Engine     EngineConfig     `mapstructure:"engine" toml:"engine"`
	Statistics StatisticsConfig `mapstructure:"statistics" toml:"statistics"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" toml:"format"` // text or json
}

type EngineConfig struct {
	// BatchWorkers bounds how many instruments a batch submission
	// processes concurrently.
	BatchWorkers int `mapstructure:"batch_workers" toml:"batch_workers"`
}

// StatisticsConfig parameterizes statistical limit derivation.
type StatisticsConfig struct {
	AttentionSigma float64 `mapstructure:"attention_sigma" toml:"attention_sigma"`
	AlertSigma     float64 `mapstructure:"alert_sigma" toml:"alert_sigma"`
	EmergencySigma float64 `mapstructure:"emergency_sigma" toml:"emergency_sigma"`
	MinSamples     int     `mapstructure:"min_samples" toml:"min_samples"`
}

// Sigmas returns the band widths as a limit.Sigmas.
func (s StatisticsConfig) Sigmas() limit.Sigmas {
	return limit.Sigmas{Attention: s.AttentionSigma, Alert: s.AlertSigma, Emergency: s.EmergencySigma}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "geoseg.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Engine:   EngineConfig{BatchWorkers: 4},
		Statistics: StatisticsConfig{
			AttentionSigma: limit.DefaultSigmas.Attention,
			AlertSigma:     limit.DefaultSigmas.Alert,
			EmergencySigma: limit.DefaultSigmas.Emergency,
			MinSamples:     limit.DefaultMinSamples,
		},
	}
}

// Load reads the TOML file at path, applies GEOSEG_ environment overrides
// and validates the result. An empty path means DefaultPath.
//
// A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("engine.batch_workers", d.Engine.BatchWorkers)
	v.SetDefault("statistics.attention_sigma", d.Statistics.AttentionSigma)
	v.SetDefault("statistics.alert_sigma", d.Statistics.AlertSigma)
	v.SetDefault("statistics.emergency_sigma", d.Statistics.EmergencySigma)
	v.SetDefault("statistics.min_samples", d.Statistics.MinSamples)
}

// WriteDefault writes the default configuration to path, creating parent
// directories as needed.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create default config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Engine.BatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("engine.batch_workers must be at least 1, got %d", c.Engine.BatchWorkers))
	}
	if err := c.Statistics.Sigmas().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("statistics: %w", err))
	}
	if c.Statistics.MinSamples < 2 {
		errs = append(errs, fmt.Errorf("statistics.min_samples must be at least 2, got %d", c.Statistics.MinSamples))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}

// NewLogger builds a logger writing to w. An invalid level falls back to
// info; Load has already rejected it.
func NewLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
