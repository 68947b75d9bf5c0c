package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/mrops-br/catalog-api"

// ServiceVersion is reported on every exported span and metric.
var ServiceVersion = "1.0.0"

// Telemetry holds all OpenTelemetry components
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	conn *grpc.ClientConn
}

// NewTelemetry initializes all OpenTelemetry components and installs them as
// the global providers.
func NewTelemetry(ctx context.Context, cfg *config.Config, w io.Writer) (*Telemetry, error) {
	// Initialize logger first for debugging
	logger := initLogger(cfg.Log, cfg.Telemetry, w)

	logger.Info("Initializing OpenTelemetry",
		slog.String("exporter", cfg.Telemetry.Exporter),
		slog.String("endpoint", cfg.Telemetry.Endpoint),
		slog.String("service_name", cfg.Telemetry.ServiceName),
	)

	res, err := newResource(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	var conn *grpc.ClientConn
	if cfg.Telemetry.Exporter != "stdout" {
		conn, err = grpc.NewClient(cfg.Telemetry.Endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
	}

	tp, err := initTracerProvider(ctx, &cfg.Telemetry, res, conn)
	if err != nil {
		closeConn(conn)
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	registry := newRegistry()
	mp, err := initMeterProvider(ctx, &cfg.Telemetry, res, conn, registry)
	if err != nil {
		_ = tp.Shutdown(ctx)
		closeConn(conn)
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("Tracer and meter providers initialized successfully")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Registry:       registry,
		Logger:         logger,
		conn:           conn,
	}, nil
}

// NewNoOpTelemetry creates a telemetry instance that never exports. Spans are
// still created so logs carry trace IDs, and metrics are still served on
// /metrics.
func NewNoOpTelemetry(cfg *config.Config, w io.Writer) *Telemetry {
	logger := initLogger(cfg.Log, cfg.Telemetry, w)

	tp := sdktrace.NewTracerProvider()

	registry := newRegistry()
	var opts []metric.Option
	if reader, err := prometheusReader(registry); err == nil {
		opts = append(opts, metric.WithReader(reader))
	} else {
		logger.Warn("Prometheus exporter unavailable", slog.Any("error", err))
	}
	mp := metric.NewMeterProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("Telemetry initialized in no-op mode (export disabled)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Registry:       registry,
		Logger:         logger,
	}
}

// Tracer returns the service tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.TracerProvider.Tracer(instrumentationName)
}

// Meter returns the service meter.
func (t *Telemetry) Meter() otelmetric.Meter {
	return t.MeterProvider.Meter(instrumentationName)
}

// MetricsHandler serves the Prometheus registry.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops all telemetry components
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down OpenTelemetry")

	var errs []error
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown tracer provider", slog.Any("error", err))
		errs = append(errs, err)
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown meter provider", slog.Any("error", err))
		errs = append(errs, err)
	}

	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	t.Logger.Info("OpenTelemetry shutdown successfully")
	return nil
}

func newResource(ctx context.Context, cfg *config.TelemetryConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func closeConn(conn *grpc.ClientConn) {
	if conn != nil {
		_ = conn.Close()
	}
}
