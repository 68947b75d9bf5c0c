package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/app/keylock"
	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Operation results recorded on the catalog.operations counter.
const (
	resultSuccess       = "success"
	resultFailure       = "failure"
	resultNotFound      = "not_found"
	resultAlreadyExists = "already_exists"
	resultInvalid       = "invalid"
)

// CatalogService handles catalog entry use cases.
//
// It holds no per-call state. Every check-then-write sequence runs under a
// key lock shared by all services built from the same Locker, so concurrent
// callers cannot both pass the uniqueness check for one (name, producer).
type CatalogService struct {
	repo    domain.EntryRepository
	locks   *keylock.Locker
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *Metrics
	newID   func() string
}

// NewCatalogService creates a catalog service over repo. A nil locks gives the
// service a private Locker, which is only correct when this instance is the
// sole writer.
func NewCatalogService(
	repo domain.EntryRepository,
	locks *keylock.Locker,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *CatalogService {
	return newCatalogService(repo, locks, tracer, NewMetrics(meter), logger)
}

func newCatalogService(
	repo domain.EntryRepository,
	locks *keylock.Locker,
	tracer trace.Tracer,
	metrics *Metrics,
	logger *slog.Logger,
) *CatalogService {
	if locks == nil {
		locks = keylock.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CatalogService{
		repo:    repo,
		locks:   locks,
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
		newID:   func() string { return uuid.New().String() },
	}
}

// Close releases the underlying repository handle.
func (s *CatalogService) Close() error {
	return s.repo.Close()
}

// ListEntries returns one page of entries. An empty page is not an error.
func (s *CatalogService) ListEntries(ctx context.Context, page, pageSize int) ([]*dto.EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListEntries")
	defer span.End()

	span.SetAttributes(
		attribute.Int("catalog.page", page),
		attribute.Int("catalog.page_size", pageSize),
	)

	s.logger.InfoContext(ctx, "Listing entries",
		slog.Int("page", page),
		slog.Int("page_size", pageSize),
	)

	entries, err := s.repo.ListPage(ctx, page, pageSize)
	if err != nil {
		return nil, s.fail(ctx, span, "list", err)
	}

	span.SetAttributes(attribute.Int("entry.count", len(entries)))
	s.metrics.record(ctx, "list", resultSuccess)

	s.logger.InfoContext(ctx, "Entries listed successfully",
		slog.Int("count", len(entries)),
	)

	span.SetStatus(codes.Ok, "Entries listed successfully")
	return dto.ToEntryResponseList(entries), nil
}

// GetEntry retrieves an entry by id. It returns domain.ErrNotFound when the
// entry does not exist.
func (s *CatalogService) GetEntry(ctx context.Context, id string) (*dto.EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetEntry")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, "read", err, slog.String("entry_id", id))
	}

	s.metrics.record(ctx, "read", resultSuccess)
	s.logger.DebugContext(ctx, "Entry retrieved successfully",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry retrieved successfully")
	return dto.ToEntryResponse(entry), nil
}

// CreateEntry stores a new entry with a freshly generated id. It returns
// domain.ErrAlreadyExists when an entry with the same name and producer exists.
func (s *CatalogService) CreateEntry(ctx context.Context, req *dto.CreateEntryRequest) (*dto.EntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.CreateEntry")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry.name", req.Name),
		attribute.String("entry.producer", req.Producer),
		attribute.Float64("entry.price", req.Price),
	)

	s.logger.InfoContext(ctx, "Creating entry",
		slog.String("name", req.Name),
		slog.String("producer", req.Producer),
		slog.Float64("price", req.Price),
	)

	candidate := &domain.Entry{Name: req.Name, Producer: req.Producer, Price: req.Price}
	if err := candidate.Validate(); err != nil {
		return nil, s.fail(ctx, span, "create", err)
	}

	release, err := s.locks.Lock(ctx, pairKey(req.Name, req.Producer))
	if err != nil {
		return nil, s.fail(ctx, span, "create", err)
	}
	defer release()

	existing, err := s.repo.FindByNameAndProducer(ctx, req.Name, req.Producer)
	if err != nil {
		return nil, s.fail(ctx, span, "create", err)
	}
	if len(existing) > 0 {
		return nil, s.fail(ctx, span, "create", domain.ErrAlreadyExists,
			slog.String("existing_id", existing[0].ID),
		)
	}

	entry := &domain.Entry{
		ID:       s.newID(),
		Name:     req.Name,
		Producer: req.Producer,
		Price:    req.Price,
	}
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, s.fail(ctx, span, "create", err, slog.String("entry_id", entry.ID))
	}

	s.metrics.entriesCreated.Add(ctx, 1)
	s.metrics.record(ctx, "create", resultSuccess)

	s.logger.InfoContext(ctx, "Entry created successfully",
		slog.String("entry_id", entry.ID),
	)

	span.SetStatus(codes.Ok, "Entry created successfully")
	return dto.ToEntryResponse(entry), nil
}

// UpdateEntry replaces the name, producer and price of an existing entry. It
// returns domain.ErrNotFound for an unknown id and domain.ErrAlreadyExists
// when a different entry already holds the new name and producer.
func (s *CatalogService) UpdateEntry(ctx context.Context, id string, req *dto.UpdateEntryRequest) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.UpdateEntry")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry.id", id),
		attribute.String("entry.name", req.Name),
		attribute.String("entry.producer", req.Producer),
		attribute.Float64("entry.price", req.Price),
	)

	s.logger.InfoContext(ctx, "Updating entry",
		slog.String("entry_id", id),
		slog.String("name", req.Name),
		slog.String("producer", req.Producer),
	)

	candidate := &domain.Entry{ID: id, Name: req.Name, Producer: req.Producer, Price: req.Price}
	if err := candidate.Validate(); err != nil {
		return s.fail(ctx, span, "update", err, slog.String("entry_id", id))
	}

	release, err := s.locks.LockAll(ctx, idKey(id), pairKey(req.Name, req.Producer))
	if err != nil {
		return s.fail(ctx, span, "update", err, slog.String("entry_id", id))
	}
	defer release()

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, span, "update", err, slog.String("entry_id", id))
	}

	if entry.Name != req.Name || entry.Producer != req.Producer {
		others, err := s.repo.FindByNameAndProducer(ctx, req.Name, req.Producer)
		if err != nil {
			return s.fail(ctx, span, "update", err, slog.String("entry_id", id))
		}
		for _, other := range others {
			if other.ID != id {
				return s.fail(ctx, span, "update", domain.ErrAlreadyExists,
					slog.String("entry_id", id),
					slog.String("existing_id", other.ID),
				)
			}
		}
	}

	entry.Name = req.Name
	entry.Producer = req.Producer
	entry.Price = req.Price

	if err := s.repo.Replace(ctx, entry); err != nil {
		return s.fail(ctx, span, "update", err, slog.String("entry_id", id))
	}

	s.metrics.record(ctx, "update", resultSuccess)
	s.logger.InfoContext(ctx, "Entry updated successfully",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry updated successfully")
	return nil
}

// UpdateEntryPrice sets the price of an existing entry. It returns
// domain.ErrNotFound for an unknown id.
func (s *CatalogService) UpdateEntryPrice(ctx context.Context, id string, price float64) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.UpdateEntryPrice")
	defer span.End()

	span.SetAttributes(
		attribute.String("entry.id", id),
		attribute.Float64("entry.price", price),
	)

	s.logger.InfoContext(ctx, "Updating entry price",
		slog.String("entry_id", id),
		slog.Float64("price", price),
	)

	if err := domain.ValidatePrice(price); err != nil {
		return s.fail(ctx, span, "update_price", err, slog.String("entry_id", id))
	}

	release, err := s.locks.Lock(ctx, idKey(id))
	if err != nil {
		return s.fail(ctx, span, "update_price", err, slog.String("entry_id", id))
	}
	defer release()

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, span, "update_price", err, slog.String("entry_id", id))
	}

	entry.Price = price

	if err := s.repo.Replace(ctx, entry); err != nil {
		return s.fail(ctx, span, "update_price", err, slog.String("entry_id", id))
	}

	s.metrics.record(ctx, "update_price", resultSuccess)
	s.logger.InfoContext(ctx, "Entry price updated successfully",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry price updated successfully")
	return nil
}

// DeleteEntry removes an entry. It returns domain.ErrNotFound for an unknown id.
func (s *CatalogService) DeleteEntry(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.DeleteEntry")
	defer span.End()

	span.SetAttributes(attribute.String("entry.id", id))

	s.logger.InfoContext(ctx, "Deleting entry",
		slog.String("entry_id", id),
	)

	release, err := s.locks.Lock(ctx, idKey(id))
	if err != nil {
		return s.fail(ctx, span, "delete", err, slog.String("entry_id", id))
	}
	defer release()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return s.fail(ctx, span, "delete", err, slog.String("entry_id", id))
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		return s.fail(ctx, span, "delete", err, slog.String("entry_id", id))
	}

	s.metrics.record(ctx, "delete", resultSuccess)
	s.logger.InfoContext(ctx, "Entry deleted successfully",
		slog.String("entry_id", id),
	)

	span.SetStatus(codes.Ok, "Entry deleted successfully")
	return nil
}

// fail records err on the span, the operations counter and the log, and
// returns it unchanged. Domain outcomes are logged at warn level, anything
// else is treated as a storage failure.
func (s *CatalogService) fail(ctx context.Context, span trace.Span, operation string, err error, attrs ...any) error {
	result := resultFailure
	level := slog.LevelError
	msg := "Catalog operation failed"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		result, level, msg = resultNotFound, slog.LevelWarn, "Entry not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		result, level, msg = resultAlreadyExists, slog.LevelWarn, "Entry already exists"
	case errors.Is(err, domain.ErrInvalidEntry):
		result, level, msg = resultInvalid, slog.LevelWarn, "Entry validation failed"
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.metrics.record(ctx, operation, result)

	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	s.logger.Log(ctx, level, msg, attrs...)

	return err
}

func pairKey(name, producer string) string {
	return "pair:" + name + "\x00" + producer
}

func idKey(id string) string {
	return "id:" + id
}
