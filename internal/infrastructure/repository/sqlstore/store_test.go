package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
	"pgregory.net/rapid"

	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/sqlstore"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(wal)",
		filepath.Join(t.TempDir(), "catalog.db"))

	store, err := sqlstore.Open(context.Background(), config.StorageConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 4,
		CreateSchema: true,
	}, noop.NewTracerProvider().Tracer("test"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func acquire(t *testing.T, store *sqlstore.Store) domain.EntryRepository {
	t.Helper()
	repo, err := store.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(id, name, producer string, price float64) *domain.Entry {
	return &domain.Entry{ID: id, Name: name, Producer: producer, Price: price}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    sqlstore.Dialect
		wantErr bool
	}{
		{in: "postgres", want: sqlstore.Postgres},
		{in: "pgx", want: sqlstore.Postgres},
		{in: "SQLite", want: sqlstore.SQLite},
		{in: "sqlite3", want: sqlstore.SQLite},
		{in: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sqlstore.ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), config.StorageConfig{Driver: "oracle"},
		noop.NewTracerProvider().Tracer("test"), nil)
	require.Error(t, err)
}

func TestEntryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := acquire(t, openStore(t))

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, entry("a", "Chrono Trigger", "Square", 29.99)))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entry("a", "Chrono Trigger", "Square", 29.99), got)

	matches, err := repo.FindByNameAndProducer(ctx, "Chrono Trigger", "Square")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = repo.FindByNameAndProducer(ctx, "chrono trigger", "Square")
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, repo.Replace(ctx, entry("a", "Chrono Trigger", "Square Enix", 19.99)))
	got, err = repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Square Enix", got.Producer)
	assert.Equal(t, 19.99, got.Price)

	require.NoError(t, repo.Replace(ctx, entry("missing", "X", "Y", 1)))
	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Remove(ctx, "a"))
	require.NoError(t, repo.Remove(ctx, "a"))
	_, err = repo.GetByID(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryRepository_UniqueViolationsMapToAlreadyExists(t *testing.T) {
	ctx := context.Background()
	repo := acquire(t, openStore(t))

	require.NoError(t, repo.Insert(ctx, entry("a", "Chrono Trigger", "Square", 29.99)))
	require.NoError(t, repo.Insert(ctx, entry("b", "Secret of Mana", "Square", 39.99)))

	err := repo.Insert(ctx, entry("c", "Chrono Trigger", "Square", 9.99))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = repo.Replace(ctx, entry("b", "Chrono Trigger", "Square", 39.99))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Secret of Mana", got.Name)
}

func TestEntryRepository_ListPage(t *testing.T) {
	ctx := context.Background()
	repo := acquire(t, openStore(t))

	for i := range 7 {
		require.NoError(t, repo.Insert(ctx, entry(fmt.Sprintf("id-%d", i), fmt.Sprintf("Game %d", i), "Studio", float64(i))))
	}
	// removal must not disturb the order of the rest
	require.NoError(t, repo.Remove(ctx, "id-1"))

	tests := []struct {
		name     string
		page     int
		pageSize int
		wantIDs  []string
	}{
		{name: "first page", page: 1, pageSize: 5, wantIDs: []string{"id-0", "id-2", "id-3", "id-4", "id-5"}},
		{name: "partial last page", page: 2, pageSize: 5, wantIDs: []string{"id-6"}},
		{name: "past the end", page: 3, pageSize: 5, wantIDs: []string{}},
		{name: "page zero", page: 0, pageSize: 5, wantIDs: []string{}},
		{name: "zero size", page: 1, pageSize: 0, wantIDs: []string{}},
		{name: "overflowing offset", page: int(^uint(0) >> 1), pageSize: 5, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.ListPage(ctx, tt.page, tt.pageSize)
			require.NoError(t, err)
			require.NotNil(t, page)

			ids := make([]string, 0, len(page))
			for _, e := range page {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestEntryRepository_ReplaceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	repo := acquire(t, openStore(t))

	require.NoError(t, repo.Insert(ctx, entry("a", "A", "P", 1)))
	require.NoError(t, repo.Insert(ctx, entry("b", "B", "P", 2)))
	require.NoError(t, repo.Replace(ctx, entry("a", "A2", "P", 3)))

	page, err := repo.ListPage(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "A2", page[0].Name)
	assert.Equal(t, "b", page[1].ID)
}

func TestEntryRepository_PaginationCoversEveryEntryOnce(t *testing.T) {
	store := openStore(t)

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		repo, err := store.Acquire(ctx)
		require.NoError(t, err)
		defer repo.Close()

		n := rapid.IntRange(0, 12).Draw(t, "n")
		pageSize := rapid.IntRange(1, 6).Draw(t, "pageSize")

		for i := range n {
			require.NoError(t, repo.Insert(ctx, entry(fmt.Sprintf("e-%d", i), fmt.Sprintf("N%d", i), "P", 1)))
		}
		defer func() {
			for i := range n {
				_ = repo.Remove(ctx, fmt.Sprintf("e-%d", i))
			}
		}()

		var seen []string
		for page := 1; ; page++ {
			items, err := repo.ListPage(ctx, page, pageSize)
			require.NoError(t, err)
			if len(items) == 0 {
				break
			}
			require.LessOrEqual(t, len(items), pageSize)
			for _, e := range items {
				seen = append(seen, e.ID)
			}
		}

		require.Len(t, seen, n)
		for i, id := range seen {
			require.Equal(t, fmt.Sprintf("e-%d", i), id)
		}
	})
}

func TestStore_AcquireReleasesConnection(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	// more acquisitions than pool slots; each must give its connection back
	for range 20 {
		repo, err := store.Acquire(ctx)
		require.NoError(t, err)
		_, err = repo.ListPage(ctx, 1, 5)
		require.NoError(t, err)
		require.NoError(t, repo.Close())
	}
	require.NoError(t, store.Ping(ctx))
}

func TestStore_ConcurrentCreatesThroughFactory(t *testing.T) {
	const callers = 16
	store := openStore(t)
	factory := service.NewCatalogServiceFactory(store, noop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"), nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := factory.Do(context.Background(), func(svc *service.CatalogService) error {
				_, err := svc.CreateEntry(context.Background(),
					&dto.CreateEntryRequest{Name: "Chrono Trigger", Producer: "Square", Price: 29.99})
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyExists):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)

	repo := acquire(t, store)
	matches, err := repo.FindByNameAndProducer(context.Background(), "Chrono Trigger", "Square")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
