package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/breaker"
)

// ServiceRunner runs fn against a catalog service scoped to one request.
type ServiceRunner interface {
	Do(ctx context.Context, fn func(*service.CatalogService) error) error
}

// EntryHandler handles HTTP requests for catalog entries
type EntryHandler struct {
	services ServiceRunner
	validate *validator.Validate
	logger   *slog.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(services ServiceRunner, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		services: services,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "entry_handler")),
	}
}

// Routes mounts the entry endpoints on r
func (h *EntryHandler) Routes(r chi.Router) {
	r.Get("/", h.ListEntries)
	r.Post("/", h.CreateEntry)
	r.Get("/{id}", h.GetEntry)
	r.Put("/{id}", h.UpdateEntry)
	r.Patch("/{id}/price/{price}", h.UpdateEntryPrice)
	r.Delete("/{id}", h.DeleteEntry)
}

// ListEntries handles GET /api/v1/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	var entries []*dto.EntryResponse
	err = h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		entries, err = svc.ListEntries(r.Context(), page, pageSize)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(entries) == 0 {
		response.Status(w, http.StatusNoContent)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// GetEntry handles GET /api/v1/entries/{id}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, domain.ErrNotFound)
		return
	}

	var entry *dto.EntryResponse
	err = h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		entry, err = svc.GetEntry(r.Context(), id)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, entry)
}

// CreateEntry handles POST /api/v1/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected create request",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	var created *dto.EntryResponse
	err := h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		var err error
		created, err = svc.CreateEntry(r.Context(), &req)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/entries/"+created.ID)
	response.JSON(w, http.StatusCreated, created)
}

// UpdateEntry handles PUT /api/v1/entries/{id}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, domain.ErrNotFound)
		return
	}

	var req dto.UpdateEntryRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected update request",
			slog.String("entry_id", id),
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	err = h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		return svc.UpdateEntry(r.Context(), id, &req)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Status(w, http.StatusOK)
}

// UpdateEntryPrice handles PATCH /api/v1/entries/{id}/price/{price}
func (h *EntryHandler) UpdateEntryPrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, domain.ErrNotFound)
		return
	}

	price, err := strconv.ParseFloat(chi.URLParam(r, "price"), 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, fmt.Errorf("price must be a number: %w", domain.ErrInvalidEntry))
		return
	}

	err = h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		return svc.UpdateEntryPrice(r.Context(), id, price)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Status(w, http.StatusOK)
}

// DeleteEntry handles DELETE /api/v1/entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, domain.ErrNotFound)
		return
	}

	err = h.services.Do(r.Context(), func(svc *service.CatalogService) error {
		return svc.DeleteEntry(r.Context(), id)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Status(w, http.StatusOK)
}

// writeError maps service errors to HTTP statuses. Anything unrecognised is a
// storage failure and is logged here without leaking details to the client.
func (h *EntryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, domain.ErrNotFound)
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusUnprocessableEntity, domain.ErrAlreadyExists)
	case errors.Is(err, domain.ErrInvalidEntry):
		response.Error(w, http.StatusBadRequest, err)
	case breaker.IsOpen(err):
		h.logger.WarnContext(r.Context(), "Storage circuit open", slog.Any("error", err))
		response.Error(w, http.StatusServiceUnavailable, errors.New("storage temporarily unavailable"))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(r.Context(), "Request timed out", slog.Any("error", err))
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			// chi's Timeout middleware answers 504 once the handler returns.
			return
		}
		response.Error(w, http.StatusGatewayTimeout, errors.New("request timed out"))
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("http.request.method", r.Method),
			slog.Any("error", err),
		)
		response.Error(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
