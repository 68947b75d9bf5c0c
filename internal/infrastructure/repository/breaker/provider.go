// Package breaker guards storage acquisition with a circuit breaker so a
// failing database is not hammered by every request.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/sony/gobreaker/v2"

	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
)

// Provider decorates a domain.RepositoryProvider with a circuit breaker.
// Only acquisition goes through the breaker; errors raised by the acquired
// repository are reported by the caller's own error handling.
type Provider struct {
	next    domain.RepositoryProvider
	breaker *gobreaker.CircuitBreaker[domain.EntryRepository]
}

var _ domain.RepositoryProvider = (*Provider)(nil)

// New wraps next. name identifies the breaker in logs.
func New(next domain.RepositoryProvider, name string, cfg config.BreakerConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cb := gobreaker.NewCircuitBreaker[domain.EntryRepository](gobreaker.Settings{
		Name:        name,
		MaxRequests: toUint32(cfg.HalfOpenLimit),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.MaxFailures
		},
		// A caller giving up says nothing about the database.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Provider{next: next, breaker: cb}
}

// Acquire obtains a repository from the wrapped provider unless the breaker
// is open.
func (p *Provider) Acquire(ctx context.Context) (domain.EntryRepository, error) {
	repo, err := p.breaker.Execute(func() (domain.EntryRepository, error) {
		return p.next.Acquire(ctx)
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// HealthCheck reports the breaker state without touching the database.
func (p *Provider) HealthCheck(_ context.Context) error {
	switch state := p.breaker.State(); state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return fmt.Errorf("%s: degraded (circuit breaker half-open)", p.breaker.Name())
	case gobreaker.StateOpen:
		return fmt.Errorf("%s: failing (circuit breaker open)", p.breaker.Name())
	default:
		return fmt.Errorf("%s: unknown circuit breaker state %v", p.breaker.Name(), state)
	}
}

// IsOpen reports whether err was returned because the breaker rejected the
// call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func toUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
