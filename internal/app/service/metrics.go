package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments shared by every CatalogService built from the
// same meter.
type Metrics struct {
	entriesCreated metric.Int64Counter
	operations     metric.Int64Counter
}

// NewMetrics registers the catalog instruments on meter
func NewMetrics(meter metric.Meter) *Metrics {
	entriesCreated, _ := meter.Int64Counter(
		"catalog.entries.created.total",
		metric.WithDescription("Total number of catalog entries created"),
	)

	operations, _ := meter.Int64Counter(
		"catalog.operations",
		metric.WithDescription("Total number of catalog operations"),
	)

	return &Metrics{
		entriesCreated: entriesCreated,
		operations:     operations,
	}
}

func (m *Metrics) record(ctx context.Context, operation, result string) {
	m.operations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}
