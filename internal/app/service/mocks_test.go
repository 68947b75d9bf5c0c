package service

import (
	"context"

	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

var _ domain.EntryRepository = (*mockRepository)(nil)

func (m *mockRepository) ListPage(ctx context.Context, page, pageSize int) ([]*domain.Entry, error) {
	args := m.Called(ctx, page, pageSize)
	entries, _ := args.Get(0).([]*domain.Entry)
	return entries, args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*domain.Entry)
	return entry, args.Error(1)
}

func (m *mockRepository) FindByNameAndProducer(ctx context.Context, name, producer string) ([]*domain.Entry, error) {
	args := m.Called(ctx, name, producer)
	entries, _ := args.Get(0).([]*domain.Entry)
	return entries, args.Error(1)
}

func (m *mockRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRepository) Replace(ctx context.Context, entry *domain.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) Close() error {
	return m.Called().Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Acquire(ctx context.Context) (domain.EntryRepository, error) {
	args := m.Called(ctx)
	repo, _ := args.Get(0).(domain.EntryRepository)
	return repo, args.Error(1)
}
