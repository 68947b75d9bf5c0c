package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EntryRepository is an in-memory implementation of domain.EntryRepository.
// Entries are copied on the way in and out, so callers never share memory
// with the store.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
	order   []string
	tracer  trace.Tracer
	logger  *slog.Logger
}

var (
	_ domain.EntryRepository    = (*EntryRepository)(nil)
	_ domain.RepositoryProvider = (*EntryRepository)(nil)
)

// NewEntryRepository creates a new in-memory entry repository
func NewEntryRepository(tracer trace.Tracer, logger *slog.Logger) *EntryRepository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EntryRepository{
		entries: make(map[string]*domain.Entry),
		tracer:  tracer,
		logger:  logger.With(slog.String("component", "memory_entry_repository")),
	}
}

// Acquire returns the shared store itself; there is no per-request resource.
func (r *EntryRepository) Acquire(_ context.Context) (domain.EntryRepository, error) {
	return r, nil
}

// Close is a no-op.
func (r *EntryRepository) Close() error {
	return nil
}

// ListPage returns a page of entries in insertion order
func (r *EntryRepository) ListPage(ctx context.Context, page, pageSize int) ([]*domain.Entry, error) {
	ctx, span := r.tracer.Start(ctx, "EntryRepository.ListPage")
	defer span.End()

	span.SetAttributes(
		attribute.Int("catalog.page", page),
		attribute.Int("catalog.page_size", pageSize),
	)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if page < 1 || pageSize < 1 || page-1 > len(r.order)/pageSize {
		span.SetAttributes(attribute.Int("entry.count", 0))
		span.SetStatus(codes.Ok, "Page is empty")
		return []*domain.Entry{}, nil
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(r.order))
	if end < start {
		end = len(r.order)
	}

	entries := make([]*domain.Entry, 0, end-start)
	for _, id := range r.order[start:end] {
		entries = append(entries, r.entries[id].Clone())
	}

	span.SetAttributes(attribute.Int("entry.count", len(entries)))

	r.logger.DebugContext(ctx, "Entries page read from repository",
		slog.Int("page", page),
		slog.Int("count", len(entries)),
	)

	span.SetStatus(codes.Ok, "Entries retrieved successfully")
	return entries, nil
}

// GetByID retrieves an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	ctx, span := r.tracer.Start(ctx, "EntryRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		span.SetStatus(codes.Error, "Entry not found")
		r.logger.DebugContext(ctx, "Entry not found",
			slog.String("entry_id", id),
		)
		return nil, domain.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Entry found")
	return entry.Clone(), nil
}

// FindByNameAndProducer returns every entry whose name and producer match exactly
func (r *EntryRepository) FindByNameAndProducer(ctx context.Context, name, producer string) ([]*domain.Entry, error) {
	_, span := r.tracer.Start(ctx, "EntryRepository.FindByNameAndProducer")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*domain.Entry
	for _, id := range r.order {
		entry := r.entries[id]
		if entry.Name == name && entry.Producer == producer {
			matches = append(matches, entry.Clone())
		}
	}

	span.SetAttributes(attribute.Int("entry.count", len(matches)))
	span.SetStatus(codes.Ok, "Lookup completed")
	return matches, nil
}

// Insert stores a new entry
func (r *EntryRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	ctx, span := r.tracer.Start(ctx, "EntryRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry.id", entry.ID),
		attribute.String("entry.name", entry.Name),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; !exists {
		r.order = append(r.order, entry.ID)
	}
	r.entries[entry.ID] = entry.Clone()

	r.logger.InfoContext(ctx, "Entry inserted in repository",
		slog.String("entry_id", entry.ID),
		slog.String("entry_name", entry.Name),
	)

	span.SetStatus(codes.Ok, "Entry inserted successfully")
	return nil
}

// Replace overwrites an existing entry, keeping its position
func (r *EntryRepository) Replace(ctx context.Context, entry *domain.Entry) error {
	ctx, span := r.tracer.Start(ctx, "EntryRepository.Replace")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", entry.ID))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; !exists {
		span.SetStatus(codes.Ok, "Entry absent, nothing replaced")
		return nil
	}
	r.entries[entry.ID] = entry.Clone()

	r.logger.InfoContext(ctx, "Entry replaced in repository",
		slog.String("entry_id", entry.ID),
	)

	span.SetStatus(codes.Ok, "Entry replaced successfully")
	return nil
}

// Remove deletes an entry if present
func (r *EntryRepository) Remove(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "EntryRepository.Remove")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		span.SetStatus(codes.Ok, "Entry absent, nothing removed")
		return nil
	}
	delete(r.entries, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}

	r.logger.InfoContext(ctx, "Entry removed from repository",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry removed successfully")
	return nil
}

// Len returns the number of stored entries.
func (r *EntryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
