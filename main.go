// Command catalog-api serves the product catalog over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/breaker"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/sqlstore"
	"github.com/mrops-br/catalog-api/internal/infrastructure/telemetry"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
	storageOpenTimeout    = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.WithFile(os.Getenv("CATALOG_CONFIG_FILE")))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	var telem *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, cfg, os.Stdout)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
	} else {
		telem = telemetry.NewNoOpTelemetry(cfg, os.Stdout)
	}

	// Ensure telemetry is flushed on exit
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown error: %v\n", err)
		}
	}()

	logger := telem.Logger
	logger.Info("Starting Catalog API",
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, telem)
	registerDependencies(injector, logger)

	store, err := do.Invoke[*storage](injector)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Storage shutdown error", slog.Any("error", err))
		}
	}()

	server, err := do.Invoke[*http.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.Any("error", err))
	}
	<-serverErr

	logger.Info("Server stopped")
	return nil
}

// storage bundles the configured repository provider with its lifecycle.
type storage struct {
	provider domain.RepositoryProvider
	checks   []http.HealthChecker
	close    func() error
}

func (s *storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStorage(cfg *config.Config, telem *telemetry.Telemetry) (*storage, error) {
	logger := telem.Logger

	if cfg.Storage.Driver == "memory" {
		return &storage{provider: memory.NewEntryRepository(telem.Tracer(), logger)}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageOpenTimeout)
	defer cancel()

	store, err := sqlstore.Open(ctx, cfg.Storage, telem.Tracer(), logger)
	if err != nil {
		return nil, err
	}

	guarded := breaker.New(store, "catalog-"+cfg.Storage.Driver, cfg.Storage.Breaker, logger)

	return &storage{
		provider: guarded,
		checks:   []http.HealthChecker{store, guarded},
		close:    store.Close,
	}, nil
}

func registerDependencies(injector *do.RootScope, logger *slog.Logger) {
	do.Provide(injector, func(i do.Injector) (*storage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		telem := do.MustInvoke[*telemetry.Telemetry](i)
		return openStorage(cfg, telem)
	})

	do.Provide(injector, func(i do.Injector) (*service.CatalogServiceFactory, error) {
		store := do.MustInvoke[*storage](i)
		telem := do.MustInvoke[*telemetry.Telemetry](i)
		return service.NewCatalogServiceFactory(store.provider, telem.Tracer(), telem.Meter(), logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*handler.EntryHandler, error) {
		factory := do.MustInvoke[*service.CatalogServiceFactory](i)
		return handler.NewEntryHandler(factory, logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*http.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		telem := do.MustInvoke[*telemetry.Telemetry](i)
		store := do.MustInvoke[*storage](i)
		entries := do.MustInvoke[*handler.EntryHandler](i)
		return http.NewServer(&cfg.Server, entries, logger, telem, store.checks...), nil
	})
}
