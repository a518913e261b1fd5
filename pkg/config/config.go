// Package config loads compressor-instance configuration the way the
// teacher's pkg/config loads server configuration: spf13/viper for
// layered file/env/default resolution, mitchellh/mapstructure decode
// hooks for human-friendly field types, go-playground/validator/v10
// struct-tag validation, and gopkg.in/yaml.v3 as the file format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rohc-go/compressor/internal/logger"
)

// Config describes one compressor instance's tunables (spec §6.1
// create/activate_profile/set_wlsb_window_width/set_periodic_refreshes),
// plus the ambient logging and metrics concerns SPEC_FULL §A.3 adds.
type Config struct {
	CIDType         string   `mapstructure:"cid_type" yaml:"cid_type" validate:"required,oneof=small large"`
	MaxCID          int      `mapstructure:"max_cid" yaml:"max_cid" validate:"required,gt=0"`
	MRRU            int      `mapstructure:"mrru" yaml:"mrru" validate:"omitempty,gte=0"`
	WLSBWindowWidth int      `mapstructure:"wlsb_window_width" yaml:"wlsb_window_width" validate:"required,gt=0"`
	IRTimeout       uint32   `mapstructure:"ir_timeout" yaml:"ir_timeout"`
	FOTimeout       uint32   `mapstructure:"fo_timeout" yaml:"fo_timeout"`
	OARepetitions   uint32   `mapstructure:"oa_repetitions" yaml:"oa_repetitions" validate:"required,gt=0"`
	ProfileMask     []string `mapstructure:"profile_mask" yaml:"profile_mask" validate:"required,min=1,dive,oneof=UNCOMPRESSED IP UDP"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig mirrors logger.Config's fields for file/env decoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures pkg/statsserver's read-only HTTP mux.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// ToLoggerConfig adapts this config's logging section for logger.Init.
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, Format: c.Logging.Format, Output: c.Logging.Output}
}

// GetDefaultConfig returns the spec's documented defaults (spec §6.1:
// window width 4, ir_timeout/fo_timeout 1700/700, oa_repetitions 3).
func GetDefaultConfig() *Config {
	return &Config{
		CIDType:         "small",
		MaxCID:          15,
		MRRU:            0,
		WLSBWindowWidth: 4,
		IRTimeout:       1700,
		FOTimeout:       700,
		OARepetitions:   3,
		ProfileMask:     []string{"UNCOMPRESSED"},
		Logging:         LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Metrics:         MetricsConfig{Enabled: false, Port: 9090},
	}
}

// ApplyDefaults fills any zero-valued field in cfg from the defaults,
// matching the teacher's "zero values replaced, explicit values kept"
// strategy (pkg/config/defaults.go).
func ApplyDefaults(cfg *Config) {
	def := GetDefaultConfig()
	if cfg.CIDType == "" {
		cfg.CIDType = def.CIDType
	}
	if cfg.MaxCID == 0 {
		cfg.MaxCID = def.MaxCID
	}
	if cfg.WLSBWindowWidth == 0 {
		cfg.WLSBWindowWidth = def.WLSBWindowWidth
	}
	if cfg.IRTimeout == 0 {
		cfg.IRTimeout = def.IRTimeout
	}
	if cfg.FOTimeout == 0 {
		cfg.FOTimeout = def.FOTimeout
	}
	if cfg.OARepetitions == 0 {
		cfg.OARepetitions = def.OARepetitions
	}
	if len(cfg.ProfileMask) == 0 {
		cfg.ProfileMask = def.ProfileMask
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = def.Logging.Output
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = def.Metrics.Port
	}
}

var validate = validator.New()

// Validate runs struct-tag validation over cfg (go-playground/validator).
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// Load resolves a Config from environment (ROHC_*), file, and defaults,
// in that precedence order (highest first): env > file > defaults
// (spec SPEC_FULL §A.3). An empty configPath is valid and yields the
// default configuration plus any environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROHC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only affects viper's own Get/AllSettings lookups for
	// keys viper already knows about; Unmarshal decodes from AllSettings,
	// so every key must be registered via SetDefault before ReadInConfig
	// or env vars silently never reach the struct when no file is read.
	setViperDefaults(v, GetDefaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := GetDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// setViperDefaults registers def's fields under their mapstructure keys so
// viper's AutomaticEnv can override them even when no config file supplies
// the key first (viper only resolves env vars for keys it already knows).
func setViperDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("cid_type", def.CIDType)
	v.SetDefault("max_cid", def.MaxCID)
	v.SetDefault("mrru", def.MRRU)
	v.SetDefault("wlsb_window_width", def.WLSBWindowWidth)
	v.SetDefault("ir_timeout", def.IRTimeout)
	v.SetDefault("fo_timeout", def.FOTimeout)
	v.SetDefault("oa_repetitions", def.OARepetitions)
	v.SetDefault("profile_mask", def.ProfileMask)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.port", def.Metrics.Port)
}

// DefaultConfigPath mirrors the teacher's XDG-based default location.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rohc", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "rohc", "config.yaml")
}
