// Package sqlstore persists catalog entries in PostgreSQL (pgx) or SQLite
// through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

// Store owns the connection pool and hands out one dedicated connection per
// acquisition.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tracer  trace.Tracer
	logger  *slog.Logger
}

var _ domain.RepositoryProvider = (*Store)(nil)

// Open connects to the database described by cfg and verifies the connection.
// The schema is created when cfg.CreateSchema is set.
func Open(ctx context.Context, cfg config.StorageConfig, tracer trace.Tracer, logger *slog.Logger) (*Store, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := New(db, dialect, tracer, logger)

	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	if cfg.CreateSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Connected to database",
		slog.String("dialect", string(dialect)),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return s, nil
}

// New wraps an already opened pool.
func New(db *sql.DB, dialect Dialect, tracer trace.Tracer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:      db,
		dialect: dialect,
		tracer:  tracer,
		logger:  logger.With(slog.String("component", "sqlstore")),
	}
}

// Acquire reserves a pooled connection for the caller. Closing the returned
// repository hands the connection back to the pool.
func (s *Store) Acquire(ctx context.Context) (domain.EntryRepository, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	repo := NewEntryRepository(conn, s.dialect, s.tracer, s.logger)
	repo.release = conn.Close
	return repo, nil
}

// EnsureSchema creates the entries table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("%s database: %w", s.dialect, err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
