package domain

import "context"

// EntryRepository defines the contract for entry storage.
//
// Implementations do not enforce the (name, producer) uniqueness rule; callers
// check it before writing. Any error other than ErrNotFound from GetByID is a
// storage failure.
type EntryRepository interface {
	// ListPage returns up to pageSize entries starting at offset
	// (page-1)*pageSize, in insertion order. Past the end it returns an
	// empty slice.
	ListPage(ctx context.Context, page, pageSize int) ([]*Entry, error)

	// GetByID returns ErrNotFound when the entry does not exist.
	GetByID(ctx context.Context, id string) (*Entry, error)

	// FindByNameAndProducer returns every entry matching both fields exactly.
	FindByNameAndProducer(ctx context.Context, name, producer string) ([]*Entry, error)

	// Insert adds a new entry. The id must not already be stored.
	Insert(ctx context.Context, entry *Entry) error

	// Replace overwrites the entry with the same id. It does nothing if the
	// id is absent.
	Replace(ctx context.Context, entry *Entry) error

	// Remove deletes the entry with that id, if present.
	Remove(ctx context.Context, id string) error

	// Close releases the handle. The repository must not be used afterwards.
	Close() error
}

// RepositoryProvider hands out request-scoped repository handles.
type RepositoryProvider interface {
	Acquire(ctx context.Context) (EntryRepository, error)
}
