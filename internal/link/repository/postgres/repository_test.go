package postgres_test

import (
	"context"
	"testing"
	"time"

	linkerror "github.com/Itproger-it/url-short/internal/errors"
	"github.com/Itproger-it/url-short/internal/link/domain"
	repo "github.com/Itproger-it/url-short/internal/link/repository/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkColumns = []string{"id", "key", "secret_key", "target_url", "is_active", "clicks", "created_at"}

func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)
	link := &domain.Link{
		ID:        "link-1",
		Key:       "ABC123",
		SecretKey: "ABC123_XYZ78901",
		TargetURL: "https://example.com/long",
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	t.Run("anonymous link skips the ownership row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO links").
			WithArgs(link.ID, link.Key, link.SecretKey, link.TargetURL, link.IsActive, link.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, r.Create(ctx, link, ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owned link writes both rows", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO links").
			WithArgs(link.ID, link.Key, link.SecretKey, link.TargetURL, link.IsActive, link.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO user_links").
			WithArgs("user-123", link.ID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, r.Create(ctx, link, "user-123"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO links").
			WithArgs(link.ID, link.Key, link.SecretKey, link.TargetURL, link.IsActive, link.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err := r.Create(ctx, link, "")
		assert.ErrorIs(t, err, linkerror.ErrKeyOccupied)
	})
}

func TestGetByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, key").
			WithArgs("ABC123").
			WillReturnRows(pgxmock.NewRows(linkColumns).
				AddRow("link-1", "ABC123", "ABC123_XYZ78901", "https://example.com", true, int64(3), time.Now()))

		link, err := r.GetByKey(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, "link-1", link.ID)
		assert.EqualValues(t, 3, link.Clicks)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, key").
			WithArgs("NOPE42").
			WillReturnError(pgx.ErrNoRows)

		link, err := r.GetByKey(ctx, "NOPE42")
		require.NoError(t, err)
		assert.Nil(t, link)
	})
}

func TestRecordClick(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE links SET clicks").
			WithArgs("ABC123").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("link-1"))
		mock.ExpectExec("INSERT INTO link_metrics").
			WithArgs("link-1", "10.0.0.1", "mobile").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, r.RecordClick(ctx, "ABC123", "10.0.0.1", "mobile"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive or unknown key", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE links SET clicks").
			WithArgs("NOPE42").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err := r.RecordClick(ctx, "NOPE42", "10.0.0.1", "mobile")
		assert.ErrorIs(t, err, linkerror.ErrLinkNotFound)
	})
}

func TestDeactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)

	t.Run("returns the deactivated row", func(t *testing.T) {
		mock.ExpectQuery("UPDATE links l SET is_active = false").
			WithArgs("user-123", "ABC123_XYZ78901").
			WillReturnRows(pgxmock.NewRows(linkColumns).
				AddRow("link-1", "ABC123", "ABC123_XYZ78901", "https://example.com", false, int64(3), time.Now()))

		link, err := r.Deactivate(ctx, "user-123", "ABC123_XYZ78901")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", link.Key)
		assert.False(t, link.IsActive)
	})

	t.Run("not owned or already inactive", func(t *testing.T) {
		mock.ExpectQuery("UPDATE links l SET is_active = false").
			WithArgs("user-123", "nope").
			WillReturnError(pgx.ErrNoRows)

		link, err := r.Deactivate(ctx, "user-123", "nope")
		require.NoError(t, err)
		assert.Nil(t, link)
	})
}

func TestListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT l.id, l.key").
		WithArgs("user-123").
		WillReturnRows(pgxmock.NewRows(linkColumns).
			AddRow("link-1", "ABC123", "ABC123_XYZ78901", "https://example.com/a", true, int64(3), time.Now()).
			AddRow("link-2", "DEF456", "DEF456_QRS23456", "https://example.com/b", true, int64(0), time.Now()))

	links, err := r.ListByOwner(context.Background(), "user-123")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "ABC123", links[0].Key)
	assert.Equal(t, "DEF456", links[1].Key)
}

func TestGetMetrics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT m.id, m.link_id").
		WithArgs("user-123", "ABC123").
		WillReturnRows(pgxmock.NewRows([]string{"id", "link_id", "ip", "device", "date"}).
			AddRow("m-1", "link-1", "10.0.0.1", "mobile", "2026-09-01").
			AddRow("m-2", "link-1", "10.0.0.2", "desktop", "2026-09-01"))

	metrics, err := r.GetMetrics(context.Background(), "user-123", "ABC123")
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "mobile", metrics[0].Device)
	assert.Equal(t, "desktop", metrics[1].Device)
}
