package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	apphttp "github.com/mrops-br/catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/catalog-api/internal/infrastructure/telemetry"
)

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, checks ...apphttp.HealthChecker) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			RequestTimeout: time.Second,
		},
		Log:       config.LogConfig{Level: "error", Format: "json"},
		Telemetry: config.TelemetryConfig{ServiceName: "catalog-api", Environment: "test"},
	}
	tel := telemetry.NewNoOpTelemetry(cfg, io.Discard)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	logger := slog.New(slog.DiscardHandler)
	repo := memory.NewEntryRepository(tel.Tracer(), logger)
	factory := service.NewCatalogServiceFactory(repo, tel.Tracer(), tel.Meter(), logger)

	srv := apphttp.NewServer(&cfg.Server, handler.NewEntryHandler(factory, logger), logger, tel, checks...)
	return srv.Handler()
}

func TestServer_Health(t *testing.T) {
	h := newServer(t, checkFunc(func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServer_HealthReportsFailingDependency(t *testing.T) {
	h := newServer(t, checkFunc(func(context.Context) error { return errors.New("db down") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RoutesAndMetrics(t *testing.T) {
	h := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries",
		strings.NewReader(`{"name":"Chrono Trigger","producer":"Square","price":29.99}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_entries_created")
	assert.Contains(t, rec.Body.String(), "http_server_request_duration")
}

func TestServer_UnknownRoute(t *testing.T) {
	h := newServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
