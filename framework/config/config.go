package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "ARC"

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Container ContainerConfig `mapstructure:"container"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name  string `mapstructure:"name" validate:"required"`
	Env   string `mapstructure:"env" validate:"oneof=local production testing"`
	Debug bool   `mapstructure:"debug"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// ContainerConfig tunes the bean container.
type ContainerConfig struct {
	// StrictRegistration fails Start when two beans share a type and
	// qualifiers, instead of failing the lookup.
	StrictRegistration bool `mapstructure:"strict_registration"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

var defaults = map[string]any{
	"app.name":                      "Arc",
	"app.env":                       "local",
	"app.debug":                     true,
	"http.port":                     "8000",
	"http.shutdown_timeout":         "10s",
	"log.level":                     "info",
	"container.strict_registration": false,
	"metrics.enabled":               true,
	"metrics.path":                  "/metrics",
}

// Load reads .env files (if present), an optional YAML config file and the
// ARC_* environment, in increasing order of precedence, and validates the
// result. Call once at bootstrap: cfg, err := config.Load()
//
// Keys map to variables by upper-casing and replacing dots, so
// "http.shutdown_timeout" is read from ARC_HTTP_SHUTDOWN_TIMEOUT. The config
// file is ./arc.yaml, or whatever ARC_CONFIG_FILE names.
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("arc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read arc.yaml: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a Config built by hand, e.g. in tests. The error wraps
// validator.ValidationErrors.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App:     AppConfig{Name: "Arc", Env: "local", Debug: true},
		HTTP:    HTTPConfig{Port: "8000", ShutdownTimeout: 10 * time.Second},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// ── Environment ───────────────────────────────────────────────────────────────

func (c *Config) IsLocal() bool      { return c.App.Env == "local" }
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
func (c *Config) IsTesting() bool    { return c.App.Env == "testing" }

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string { return ":" + c.HTTP.Port }
