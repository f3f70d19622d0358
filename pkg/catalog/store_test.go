package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

func newMockCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock, *observability.Metrics) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	conn := sqlstore.NewConnectionManager("postgres", db, quietLogger())
	return New(conn, WithMetrics(metrics)), mock, metrics
}

func TestClassify(t *testing.T) {
	driverErr := errors.New("connection reset by peer")

	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"unique", &pq.Error{Code: "23505"}, ErrConflict},
		{"foreign key", &pq.Error{Code: "23503"}, ErrInvalid},
		{"check", &pq.Error{Code: "23514"}, ErrInvalid},
		{"not found", sqlstore.ErrNotFound, ErrNotFound},
		{"other", driverErr, driverErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err, "do thing"), tt.is)
		})
	}

	assert.Nil(t, classify(nil, "noop"))
	assert.True(t, isOutOfRange(classify(&pq.Error{Code: "23514"}, "x")))
	assert.False(t, isOutOfRange(classify(&pq.Error{Code: "23503"}, "x")))
	assert.EqualError(t, classify(driverErr, "list notes"), "failed to list notes: connection reset by peer")
}

func TestStore_FailureIsCountedAndWrapped(t *testing.T) {
	c, mock, metrics := newMockCatalog(t)
	mock.ExpectQuery("SELECT .* FROM levels").WillReturnError(errors.New("server closed the connection"))

	_, err := c.Levels.List(context.Background(), ListParams{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to list levels")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("levels.List", "error")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_NotFoundIsNotAnError(t *testing.T) {
	c, mock, metrics := newMockCatalog(t)
	mock.ExpectQuery("SELECT .* FROM chapters WHERE id = \\$1").
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := c.Chapters.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("chapters.Get", "ok")))
	assert.Zero(t, testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("chapters.Get", "error")))
}

func TestStore_ListPlaceholders(t *testing.T) {
	c, mock, _ := newMockCatalog(t)
	mock.ExpectQuery(`SELECT .* FROM notes WHERE user_id = \$1 AND chapter_id = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("u1", "ch1", 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "chapter_id", "content", "created_at", "updated_at"}))

	notes, err := c.Notes.List(context.Background(), ListParams{OwnerID: "u1", ParentID: "ch1", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteMissingRow(t *testing.T) {
	c, mock, _ := newMockCatalog(t)
	mock.ExpectExec("DELETE FROM levels WHERE id = \\$1").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, c.Levels.Delete(context.Background(), "gone"), ErrNotFound)
}
