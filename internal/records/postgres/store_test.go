package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/neuralnyx/domaincrawler/internal/records"
)

func TestGetDomain(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT domain, user_id, created_at, last_crawled_at").
		WithArgs("example.com").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "user_id", "created_at", "last_crawled_at"}).
			AddRow("example.com", "u1", created, (*time.Time)(nil)))

	rec, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, "example.com", rec.Domain)
	require.Equal(t, "u1", rec.UserID)
	require.Nil(t, rec.LastCrawledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDomainNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT domain, user_id, created_at, last_crawled_at").
		WithArgs("missing.com").
		WillReturnRows(pgxmock.NewRows([]string{"domain", "user_id", "created_at", "last_crawled_at"}))

	_, err = store.GetDomain(context.Background(), "missing.com")
	require.ErrorIs(t, err, records.ErrNotFound)
}

func TestUpsertContentWritesRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := records.ContentRecord{
		Domain: "example.com",
		URL:    "https://example.com",
		Crawl: &records.CrawlData{
			Title:      "Example",
			StatusCode: 200,
			CrawledAt:  now,
		},
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO content").
		WithArgs(rec.Domain, rec.URL, pgxmock.AnyArg(), pgxmock.AnyArg(), rec.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertContent(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertContentRequiresKey(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	require.Error(t, store.UpsertContent(context.Background(), records.ContentRecord{URL: "https://example.com"}))
	require.Error(t, store.UpsertContent(context.Background(), records.ContentRecord{Domain: "example.com"}))
}

func TestUpdateDomainMetadataNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE domains").
		WithArgs("ghost.com", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateDomainMetadata(context.Background(), "ghost.com", records.DomainCrawlMetadata{
		LastCrawledAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, records.ErrNotFound)
}
