package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-arc/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

// unset clears keys for the duration of the test; godotenv only sets
// variables that are not set yet, and t.Setenv restores the originals.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "Arc"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Debug", cfg.App.Debug, true},
		{"HTTP.Port", cfg.HTTP.Port, "8000"},
		{"HTTP.ShutdownTimeout", cfg.HTTP.ShutdownTimeout, 10 * time.Second},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Container.StrictRegistration", cfg.Container.StrictRegistration, false},
		{"Metrics.Enabled", cfg.Metrics.Enabled, true},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ARC_APP_NAME", "MyApp")
	t.Setenv("ARC_APP_ENV", "production")
	t.Setenv("ARC_APP_DEBUG", "false")
	t.Setenv("ARC_HTTP_PORT", "9000")
	t.Setenv("ARC_HTTP_SHUTDOWN_TIMEOUT", "250ms")
	t.Setenv("ARC_CONTAINER_STRICT_REGISTRATION", "true")

	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 250*time.Millisecond, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.Container.StrictRegistration)
}

func TestLoad_Dotenv(t *testing.T) {
	unset(t, "ARC_APP_NAME", "ARC_HTTP_PORT", "ARC_LOG_LEVEL")

	cfg, err := config.Load("testdata/app.env")
	require.NoError(t, err)

	assert.Equal(t, "FromDotenv", cfg.App.Name)
	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("ARC_CONFIG_FILE", "testdata/arc.yaml")
	t.Setenv("ARC_HTTP_PORT", "9300")

	cfg, err := config.Load("testdata/empty.env")
	require.NoError(t, err)

	assert.Equal(t, "FromYAML", cfg.App.Name)
	assert.True(t, cfg.IsTesting())
	assert.Equal(t, "9300", cfg.HTTP.Port, "environment beats the file")
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.Container.StrictRegistration)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("ARC_CONFIG_FILE", "testdata/nope.yaml")

	_, err := config.Load("testdata/empty.env")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ARC_CONFIG_FILE", "testdata/invalid.yaml")

	_, err := config.Load("testdata/empty.env")
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	assert.ElementsMatch(t, []string{"Config.App.Env", "Config.Log.Level"}, fields)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.Validate(cfg))

	cfg.HTTP.Port = "eighty"
	cfg.Metrics.Path = "metrics"
	assert.Error(t, config.Validate(cfg))
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := config.Default()
	assert.True(t, cfg.IsLocal())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.IsTesting())
}
