package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"

	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DBTX is the subset of *sql.DB, *sql.Conn and *sql.Tx the repository needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EntryRepository implements domain.EntryRepository on a SQL table.
type EntryRepository struct {
	db      DBTX
	q       queries
	dialect Dialect
	tracer  trace.Tracer
	logger  *slog.Logger
	release func() error
}

var _ domain.EntryRepository = (*EntryRepository)(nil)

// NewEntryRepository creates a repository over db. Close on the returned
// repository does not close db.
func NewEntryRepository(db DBTX, dialect Dialect, tracer trace.Tracer, logger *slog.Logger) *EntryRepository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EntryRepository{
		db:      db,
		q:       dialect.queries(),
		dialect: dialect,
		tracer:  tracer,
		logger:  logger.With(slog.String("component", "sql_entry_repository")),
		release: func() error { return nil },
	}
}

// Close releases the underlying connection when the repository was acquired
// from a Store.
func (r *EntryRepository) Close() error {
	return r.release()
}

func (r *EntryRepository) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", string(r.dialect))),
	)
}

// ListPage returns a page of entries in insertion order
func (r *EntryRepository) ListPage(ctx context.Context, page, pageSize int) ([]*domain.Entry, error) {
	ctx, span := r.startSpan(ctx, "EntryRepository.ListPage")
	defer span.End()

	span.SetAttributes(
		attribute.Int("catalog.page", page),
		attribute.Int("catalog.page_size", pageSize),
	)

	if page < 1 || pageSize < 1 || page-1 > math.MaxInt/pageSize {
		span.SetStatus(codes.Ok, "Page is empty")
		return []*domain.Entry{}, nil
	}
	offset := int64(page-1) * int64(pageSize)

	rows, err := r.db.QueryContext(ctx, r.q.listPage, int64(pageSize), offset)
	if err != nil {
		return nil, r.fail(span, mapError("list entries", err))
	}
	defer rows.Close()

	entries := []*domain.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.fail(span, mapError("scan entry", err))
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(span, mapError("list entries", err))
	}

	span.SetAttributes(attribute.Int("entry.count", len(entries)))

	r.logger.DebugContext(ctx, "Entries page read from database",
		slog.Int("page", page),
		slog.Int("count", len(entries)),
	)

	span.SetStatus(codes.Ok, "Entries retrieved successfully")
	return entries, nil
}

// GetByID retrieves an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	ctx, span := r.startSpan(ctx, "EntryRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	entry, err := scanEntry(r.db.QueryRowContext(ctx, r.q.getByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "Entry not found")
		r.logger.DebugContext(ctx, "Entry not found",
			slog.String("entry_id", id),
		)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, r.fail(span, mapError("get entry", err))
	}

	span.SetStatus(codes.Ok, "Entry found")
	return entry, nil
}

// FindByNameAndProducer returns every entry whose name and producer match exactly
func (r *EntryRepository) FindByNameAndProducer(ctx context.Context, name, producer string) ([]*domain.Entry, error) {
	ctx, span := r.startSpan(ctx, "EntryRepository.FindByNameAndProducer")
	defer span.End()

	rows, err := r.db.QueryContext(ctx, r.q.findByNameAndProducer, name, producer)
	if err != nil {
		return nil, r.fail(span, mapError("find entries", err))
	}
	defer rows.Close()

	var matches []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.fail(span, mapError("scan entry", err))
		}
		matches = append(matches, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(span, mapError("find entries", err))
	}

	span.SetAttributes(attribute.Int("entry.count", len(matches)))
	span.SetStatus(codes.Ok, "Lookup completed")
	return matches, nil
}

// Insert stores a new entry
func (r *EntryRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	ctx, span := r.startSpan(ctx, "EntryRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry.id", entry.ID),
		attribute.String("entry.name", entry.Name),
	)

	if _, err := r.db.ExecContext(ctx, r.q.insert, entry.ID, entry.Name, entry.Producer, entry.Price); err != nil {
		return r.fail(span, mapError("insert entry", err))
	}

	r.logger.InfoContext(ctx, "Entry inserted in database",
		slog.String("entry_id", entry.ID),
		slog.String("entry_name", entry.Name),
	)

	span.SetStatus(codes.Ok, "Entry inserted successfully")
	return nil
}

// Replace overwrites an existing entry; an absent ID is a no-op
func (r *EntryRepository) Replace(ctx context.Context, entry *domain.Entry) error {
	ctx, span := r.startSpan(ctx, "EntryRepository.Replace")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", entry.ID))

	res, err := r.db.ExecContext(ctx, r.q.replace, entry.Name, entry.Producer, entry.Price, entry.ID)
	if err != nil {
		return r.fail(span, mapError("replace entry", err))
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Ok, "Entry absent, nothing replaced")
		return nil
	}

	r.logger.InfoContext(ctx, "Entry replaced in database",
		slog.String("entry_id", entry.ID),
	)

	span.SetStatus(codes.Ok, "Entry replaced successfully")
	return nil
}

// Remove deletes an entry if present
func (r *EntryRepository) Remove(ctx context.Context, id string) error {
	ctx, span := r.startSpan(ctx, "EntryRepository.Remove")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	res, err := r.db.ExecContext(ctx, r.q.remove, id)
	if err != nil {
		return r.fail(span, mapError("remove entry", err))
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Ok, "Entry absent, nothing removed")
		return nil
	}

	r.logger.InfoContext(ctx, "Entry removed from database",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry removed successfully")
	return nil
}

func (r *EntryRepository) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.Entry, error) {
	var e domain.Entry
	if err := s.Scan(&e.ID, &e.Name, &e.Producer, &e.Price); err != nil {
		return nil, err
	}
	return &e, nil
}
