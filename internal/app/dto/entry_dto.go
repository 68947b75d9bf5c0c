package dto

import (
	"github.com/mrops-br/catalog-api/internal/domain"
)

// CreateEntryRequest represents the request to create an entry
type CreateEntryRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100"`
	Producer string  `json:"producer" validate:"required,min=1,max=100"`
	Price    float64 `json:"price" validate:"gte=0,lte=1000000"`
}

// UpdateEntryRequest represents the request to replace every mutable field of an entry
type UpdateEntryRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100"`
	Producer string  `json:"producer" validate:"required,min=1,max=100"`
	Price    float64 `json:"price" validate:"gte=0,lte=1000000"`
}

// EntryResponse is the externally visible projection of an entry
type EntryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Producer string  `json:"producer"`
	Price    float64 `json:"price"`
}

// ToEntryResponse converts a domain Entry to EntryResponse
func ToEntryResponse(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:       e.ID,
		Name:     e.Name,
		Producer: e.Producer,
		Price:    e.Price,
	}
}

// ToEntryResponseList converts a list of domain Entries to an EntryResponse list.
// The result is never nil.
func ToEntryResponseList(entries []*domain.Entry) []*EntryResponse {
	responses := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ToEntryResponse(e)
	}
	return responses
}
