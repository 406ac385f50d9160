package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Zero(t, cfg.Analysis.TimeoutSecs)
	assert.Zero(t, cfg.Analysis.RequestsPerMinute)
	assert.Equal(t, time.Duration(0), cfg.Analysis.Timeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: dashboard.db
  max_conns: 4
analysis:
  url: https://analysis.internal/analyze
  timeout_secs: 300
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://dashboard.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dashboard.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, "https://analysis.internal/analyze", cfg.Analysis.URL)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.Timeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://dashboard.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DISCLOSURE_STORE_DRIVER", "postgres")
	t.Setenv("DISCLOSURE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DISCLOSURE_STORE_DATABASE_URL", "postgres://writer@localhost/esg")
	t.Setenv("DISCLOSURE_STORE_READ_DATABASE_URL", "postgres://reader@localhost/esg")
	t.Setenv("DISCLOSURE_RERUN_SECRET_KEY", "hunter2")
	t.Setenv("DISCLOSURE_ANALYSIS_REQUESTS_PER_MINUTE", "6")
	t.Setenv("DISCLOSURE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://writer@localhost/esg", cfg.Store.DatabaseURL)
	assert.Equal(t, "postgres://reader@localhost/esg", cfg.Store.ReadDatabaseURL)
	assert.Equal(t, "hunter2", cfg.Rerun.SecretKey)
	assert.Equal(t, 6, cfg.Analysis.RequestsPerMinute)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validConfig returns a Config that passes validation in every mode.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://writer@localhost/esg"
	cfg.Store.ReadDatabaseURL = "postgres://reader@localhost/esg"
	cfg.Analysis.URL = "https://analysis.internal/analyze"
	cfg.Rerun.SecretKey = "hunter2"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validConfig()
	for _, mode := range []string{"serve", "rerun", "add-company", "export", "migrate"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateServe_MissingFields(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "postgres"}, Server: ServerConfig{Port: 8080}}

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "store.read_database_url is required for postgres")
	assert.Contains(t, err.Error(), "analysis.url is required")
	assert.Contains(t, err.Error(), "rerun.secret_key is required")
}

func TestValidate_SQLiteNeedsNoReadURL(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = "sqlite"
	cfg.Store.ReadDatabaseURL = ""

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_ModeScopedRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.URL = ""
	cfg.Rerun.SecretKey = ""
	cfg.Store.ReadDatabaseURL = ""

	assert.NoError(t, cfg.Validate("migrate"))

	err := cfg.Validate("add-company")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerun.secret_key")
	assert.NotContains(t, err.Error(), "analysis.url")

	err = cfg.Validate("export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_database_url")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.TimeoutSecs = -1
	cfg.Analysis.RequestsPerMinute = -5
	cfg.Store.MaxConns = 2
	cfg.Store.MinConns = 4

	err := cfg.Validate("rerun")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout_secs must be >= 0")
	assert.Contains(t, err.Error(), "requests_per_minute must be >= 0")
	assert.Contains(t, err.Error(), "min_conns must not exceed")
}

func TestValidate_UnknownDriverAndMode(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")

	err = validConfig().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
