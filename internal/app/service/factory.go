package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrops-br/catalog-api/internal/app/keylock"
	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CatalogServiceFactory builds request-scoped catalog services. Each service
// owns one repository handle acquired from the provider; all of them share
// the factory's key locks, tracer, logger and instruments.
type CatalogServiceFactory struct {
	provider domain.RepositoryProvider
	locks    *keylock.Locker
	tracer   trace.Tracer
	logger   *slog.Logger
	metrics  *Metrics
}

// NewCatalogServiceFactory creates a new factory
func NewCatalogServiceFactory(
	provider domain.RepositoryProvider,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *CatalogServiceFactory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CatalogServiceFactory{
		provider: provider,
		locks:    keylock.New(),
		tracer:   tracer,
		logger:   logger,
		metrics:  NewMetrics(meter),
	}
}

// Open acquires a repository handle and returns a service bound to it. The
// caller must Close the service when the unit of work ends.
func (f *CatalogServiceFactory) Open(ctx context.Context) (*CatalogService, error) {
	repo, err := f.provider.Acquire(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to acquire entry repository",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("acquire entry repository: %w", err)
	}
	return newCatalogService(repo, f.locks, f.tracer, f.metrics, f.logger), nil
}

// Do runs fn with a freshly opened service and closes it on every exit path.
// A close failure is reported only when fn itself succeeded.
func (f *CatalogServiceFactory) Do(ctx context.Context, fn func(*CatalogService) error) (err error) {
	svc, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			f.logger.WarnContext(ctx, "Failed to release entry repository",
				slog.String("error", cerr.Error()),
			)
			if err == nil {
				err = fmt.Errorf("release entry repository: %w", cerr)
			}
		}
	}()
	return fn(svc)
}
