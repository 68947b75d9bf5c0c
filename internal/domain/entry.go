package domain

import (
	"fmt"
	"math"
	"strings"
)

// MaxPrice is the highest price an entry may carry.
const MaxPrice = 1_000_000

// Entry represents a catalog entry.
type Entry struct {
	ID       string
	Name     string
	Producer string
	Price    float64
}

// Validate performs business validation on the entry fields
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.Producer) == "" {
		return fmt.Errorf("%w: producer is required", ErrInvalidEntry)
	}
	return ValidatePrice(e.Price)
}

// ValidatePrice reports whether price is acceptable for an entry.
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be a finite number", ErrInvalidEntry)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidEntry)
	}
	if price > MaxPrice {
		return fmt.Errorf("%w: price must not exceed %d", ErrInvalidEntry, MaxPrice)
	}
	return nil
}

// Clone returns a copy that shares no state with e.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}
