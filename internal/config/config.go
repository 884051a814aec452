package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WINDOWSINVESTIGATOR_"

// Config holds runtime configuration. Environment variables override file values.
type Config struct {
	LogLevel              string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogPath               string        `yaml:"log_path"`
	Redact                bool          `yaml:"redact"`
	MetricsAddr           string        `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	CommandTimeout        time.Duration `yaml:"command_timeout" validate:"gt=0"`
	CounterSampleInterval time.Duration `yaml:"counter_sample_interval" validate:"gte=0,lte=10s"`
	MaxLogBytes           int64         `yaml:"max_log_bytes" validate:"gt=0"`
	WULogTempPath         string        `yaml:"wu_log_temp_path"`
	ExtraLogDirs          []string      `yaml:"extra_log_dirs" validate:"dive,required"`
}

// Load reads .env and the YAML file at path, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if v := os.Getenv(envPrefix + "CONFIG"); v != "" {
		path = v
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			b, err := os.ReadFile(path)
			if err != nil {
				return cfg, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
			}
		}
	}

	applyEnv(&cfg)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:              "info",
		CommandTimeout:        30 * time.Second,
		CounterSampleInterval: 100 * time.Millisecond,
		MaxLogBytes:           5 * 1024 * 1024,
		WULogTempPath:         os.TempDir(),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return v
}

// Validate checks field constraints and reports the first violation by YAML key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("config: %w", err)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	// LOGPATH is the historical spelling; LOG_PATH wins when both are set.
	if v := os.Getenv(envPrefix + "LOGPATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv(envPrefix + "LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv(envPrefix + "REDACT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redact = b
		}
	}
	if v := os.Getenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(envPrefix + "COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CommandTimeout = d
		}
	}
	if v := os.Getenv(envPrefix + "COUNTER_SAMPLE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CounterSampleInterval = d
		}
	}
	if v := os.Getenv(envPrefix + "MAX_LOG_BYTES"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxLogBytes = i
		}
	}
	if v := os.Getenv(envPrefix + "WULOG_TEMP_PATH"); v != "" {
		cfg.WULogTempPath = v
	}
	if v := os.Getenv(envPrefix + "EXTRA_LOG_DIRS"); v != "" {
		cfg.ExtraLogDirs = cfg.ExtraLogDirs[:0]
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				cfg.ExtraLogDirs = append(cfg.ExtraLogDirs, d)
			}
		}
	}
}
