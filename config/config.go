// Package config loads runtime configuration from HYPERION_* environment
// variables. Each variable maps to the field whose tag matches the name without
// the prefix, lowercased: HYPERION_SESSION_TIMEOUT sets SessionTimeout.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	ms "github.com/mitchellh/mapstructure"
)

// Prefix is the environment variable prefix.
const Prefix = "HYPERION_"

// Config holds the settings of a hyperion server.
type Config struct {
	Addr        string `mapstructure:"addr" validate:"required,hostname_port"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	ServiceName string `mapstructure:"service_name" validate:"required"`

	SessionTimeout time.Duration `mapstructure:"session_timeout" validate:"gt=0"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
	CookieName     string        `mapstructure:"cookie_name" validate:"required,printascii,excludesall=;0x2C"`
	LoginRequired  bool          `mapstructure:"login_required"`
	Title          string        `mapstructure:"title"`

	DatabaseURL    string `mapstructure:"database_url" validate:"omitempty,url"`
	DatabaseSchema string `mapstructure:"database_schema" validate:"required"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	MetricsPath string `mapstructure:"metrics_path" validate:"omitempty,startswith=/"`
}

// Default returns the configuration used for unset variables.
func Default() Config {
	return Config{
		Addr:            "0.0.0.0:8080",
		LogLevel:        "info",
		ServiceName:     "hyperion",
		SessionTimeout:  10 * time.Minute,
		SweepInterval:   0,
		CookieName:      "SESSION.COOKIE",
		LoginRequired:   true,
		Title:           "Hyperion",
		DatabaseSchema:  "public",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MetricsPath:     "/metrics",
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromEnviron(os.Environ())
}

// FromEnviron reads KEY=VALUE pairs, ignoring keys without Prefix and keys
// that match no field.
func FromEnviron(environ []string) (Config, error) {
	in := make(map[string]any)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, Prefix) {
			continue
		}
		in[strings.ToLower(strings.TrimPrefix(k, Prefix))] = strings.TrimSpace(v)
	}

	cfg := Default()
	dec, err := ms.NewDecoder(&ms.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       ms.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(in); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
