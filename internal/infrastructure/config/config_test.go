package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Storage.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Storage.Breaker.Timeout)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9000
log:
  level: debug
  format: text
storage:
  driver: sqlite
  dsn: file:catalog.db
  create_schema: true
  breaker:
    timeout: 10s
`)

	cfg, err := config.Load(config.WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "file:catalog.db", cfg.Storage.DSN)
	assert.True(t, cfg.Storage.CreateSchema)
	assert.Equal(t, 10*time.Second, cfg.Storage.Breaker.Timeout)

	// untouched keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10, cfg.Storage.MaxOpenConns)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(config.WithFile(filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9000\n")
	t.Setenv("CATALOG_SERVER_PORT", "9191")

	cfg, err := config.Load(config.WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_EnvSnakeCaseKeys(t *testing.T) {
	t.Setenv("CATALOG_SERVER_READ_TIMEOUT", "15s")
	t.Setenv("CATALOG_STORAGE_BREAKER_MAX_FAILURES", "7")
	t.Setenv("CATALOG_STORAGE_BREAKER_HALF_OPEN_LIMIT", "3")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7, cfg.Storage.Breaker.MaxFailures)
	assert.Equal(t, 3, cfg.Storage.Breaker.HalfOpenLimit)
}

func TestLoad_OTELVariables(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "catalog-test")
	t.Setenv("OTEL_UNRELATED_SETTING", "ignored")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "catalog-test", cfg.Telemetry.ServiceName)
}

func TestLoad_CatalogEnvBeatsOTELEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "from-otel")
	t.Setenv("CATALOG_TELEMETRY_SERVICE_NAME", "from-catalog")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-catalog", cfg.Telemetry.ServiceName)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CATALOG_SERVER_PORT", "70000")
	t.Setenv("CATALOG_LOG_LEVEL", "verbose")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "log.level")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Server: config.ServerConfig{
				Port:           8080,
				ReadTimeout:    time.Second,
				WriteTimeout:   time.Second,
				RequestTimeout: time.Second,
			},
			Log:       config.LogConfig{Level: "info", Format: "json"},
			Storage:   config.StorageConfig{Driver: "memory"},
			Telemetry: config.TelemetryConfig{ServiceName: "catalog-api"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "valid memory config",
			mutate: func(*config.Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *config.Config) { c.Storage.Driver = "mongo" },
			wantErr: "storage.driver",
		},
		{
			name: "sql driver without dsn",
			mutate: func(c *config.Config) {
				c.Storage = config.StorageConfig{
					Driver:       "postgres",
					MaxOpenConns: 1,
					Breaker:      config.BreakerConfig{MaxFailures: 1, Timeout: time.Second},
				}
			},
			wantErr: "storage.dsn",
		},
		{
			name: "sql driver without breaker settings",
			mutate: func(c *config.Config) {
				c.Storage = config.StorageConfig{Driver: "sqlite", DSN: "file:x.db", MaxOpenConns: 1}
			},
			wantErr: "storage.breaker.max_failures",
		},
		{
			name: "otlp exporter without endpoint",
			mutate: func(c *config.Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Exporter = "otlp"
			},
			wantErr: "telemetry.endpoint",
		},
		{
			name: "disabled telemetry ignores exporter",
			mutate: func(c *config.Config) {
				c.Telemetry.Exporter = "zipkin"
			},
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
