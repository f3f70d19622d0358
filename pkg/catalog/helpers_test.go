package catalog

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

// newTestConn opens a private in-memory database with the schema applied.
func newTestConn(t *testing.T) *sqlstore.ConnectionManager {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.Driver = storage.DriverSQLite
	cfg.DatabaseURL = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())

	conn, err := sqlstore.Open(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, sqlstore.Migrate(context.Background(), conn.Primary(), quietLogger()))
	return conn
}

func newTestCatalog(t *testing.T, opts ...Option) (*Catalog, *sqlstore.ConnectionManager) {
	t.Helper()
	conn := newTestConn(t)
	return New(conn, opts...), conn
}

// seedUser inserts an account and returns its id.
func seedUser(t *testing.T, conn *sqlstore.ConnectionManager, role auth.Role) string {
	t.Helper()
	u, err := sqlstore.NewUserStore(conn, nil).Create(context.Background(), auth.NewUser{
		Email:    uuid.NewString() + "@example.com",
		FullName: "Test User",
		Role:     role,
	})
	require.NoError(t, err)
	return u.ID
}

// tick makes every write one second later than the previous one so
// time-ordered listings are deterministic.
func tick(c *Catalog) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Chapters.store.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }
