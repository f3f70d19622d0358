package stats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

var day = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func newTestConn(t *testing.T) *sqlstore.ConnectionManager {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})

	cfg := storage.DefaultConfig()
	cfg.Driver = storage.DriverSQLite
	cfg.DatabaseURL = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := sqlstore.Open(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, sqlstore.Migrate(context.Background(), conn.Primary(), logger))
	return conn
}

func insertUser(t *testing.T, conn *sqlstore.ConnectionManager, role auth.Role, at time.Time) string {
	t.Helper()
	id := uuid.NewString()
	_, err := conn.Primary().Exec(`
		INSERT INTO users (id, email, full_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, id+"@example.com", "User", string(role), at, at)
	require.NoError(t, err)
	return id
}

func insertEnrollment(t *testing.T, conn *sqlstore.ConnectionManager, learner string, at time.Time) {
	t.Helper()
	_, err := conn.Primary().Exec(`
		INSERT INTO learner_courses (id, learner_id, course_id, progress, status, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 'ENROLLED', $4, $5)`,
		uuid.NewString(), learner, uuid.NewString(), at, at)
	require.NoError(t, err)
}

func insertTransaction(t *testing.T, conn *sqlstore.ConnectionManager, instructor string, amount int64, status string, at time.Time) {
	t.Helper()
	_, err := conn.Primary().Exec(`
		INSERT INTO instructor_course_transactions (id, instructor_id, course_id, amount, currency, kind, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'VND', 'SALE', $5, '', $6, $7)`,
		uuid.NewString(), instructor, uuid.NewString(), amount, status, at, at)
	require.NoError(t, err)
}

func TestAggregateDaily(t *testing.T) {
	conn := newTestConn(t)
	noon := day.Add(12 * time.Hour)

	learner := insertUser(t, conn, auth.RoleLearner, day.AddDate(0, 0, -3))
	insertUser(t, conn, auth.RoleLearner, noon)
	insertUser(t, conn, auth.RoleLearner, day.AddDate(0, 0, 1)) // next day, not counted
	instructor := insertUser(t, conn, auth.RoleInstructor, day.AddDate(0, 0, -10))
	insertUser(t, conn, auth.RoleAdmin, day.AddDate(0, -1, 0))

	insertEnrollment(t, conn, learner, noon)
	insertEnrollment(t, conn, learner, day.Add(-time.Minute))

	insertTransaction(t, conn, instructor, 1000, "COMPLETED", noon)
	insertTransaction(t, conn, instructor, 500, "PENDING", day.Add(23*time.Hour))
	insertTransaction(t, conn, instructor, 9999, "FAILED", noon)
	insertTransaction(t, conn, instructor, 7777, "COMPLETED", day.AddDate(0, 0, 1))

	computed := time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	agg := NewAggregator(conn, WithClock(func() time.Time { return computed }))

	got, err := agg.AggregateDaily(context.Background(), noon)
	require.NoError(t, err)
	assert.Equal(t, &DailyStats{
		Day:               "2026-03-14",
		Learners:          2,
		Instructors:       1,
		Admins:            1,
		Enrollments:       1,
		Transactions:      2,
		TransactionVolume: 1500,
		ComputedAt:        computed,
	}, got)

	stored, err := agg.Day(context.Background(), "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, got.TransactionVolume, stored.TransactionVolume)
	assert.True(t, computed.Equal(stored.ComputedAt))
}

func TestAggregateDaily_RerunReplaces(t *testing.T) {
	conn := newTestConn(t)
	agg := NewAggregator(conn)
	ctx := context.Background()

	first, err := agg.AggregateDaily(ctx, day)
	require.NoError(t, err)
	assert.Zero(t, first.Learners)

	insertUser(t, conn, auth.RoleLearner, day.Add(time.Hour))
	second, err := agg.AggregateDaily(ctx, day)
	require.NoError(t, err)
	assert.EqualValues(t, 1, second.Learners)

	latest, err := agg.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, latest, 1, "one row per day")
	assert.EqualValues(t, 1, latest[0].Learners)
}

func TestLatest(t *testing.T) {
	conn := newTestConn(t)
	agg := NewAggregator(conn)
	ctx := context.Background()

	_, err := agg.Latest(ctx, 5)
	assert.ErrorIs(t, err, ErrNoStats)

	for i := 0; i < 3; i++ {
		_, err := agg.AggregateDaily(ctx, day.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	latest, err := agg.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "2026-03-16", latest[0].Day)
	assert.Equal(t, "2026-03-15", latest[1].Day)
}

func TestDay_Errors(t *testing.T) {
	agg := NewAggregator(newTestConn(t))

	_, err := agg.Day(context.Background(), "14/03/2026")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoStats)

	_, err = agg.Day(context.Background(), "2026-03-14")
	assert.ErrorIs(t, err, ErrNoStats)
}

func TestAggregateDaily_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT role, COUNT").WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	agg := NewAggregator(sqlstore.NewConnectionManager("postgres", db, nil))
	_, err = agg.AggregateDaily(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count users")
	require.NoError(t, mock.ExpectationsWereMet())
}
