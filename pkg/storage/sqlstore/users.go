package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
)

const userColumns = `id, email, password_hash, full_name, avatar_url, google_id, role, created_at, updated_at`

// UserStore persists accounts in the users table. It satisfies auth.UserStore
// and maps unique violations to auth.ErrConflict.
type UserStore struct {
	conn    *ConnectionManager
	metrics *observability.Metrics
	now     func() time.Time
}

// NewUserStore creates a user store. metrics may be nil.
func NewUserStore(conn *ConnectionManager, metrics *observability.Metrics) *UserStore {
	return &UserStore{
		conn:    conn,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ auth.UserStore = (*UserStore)(nil)

func scanUser(row interface{ Scan(...interface{}) error }) (*auth.User, error) {
	var (
		u                      auth.User
		hash, avatar, googleID sql.NullString
		role                   string
	)
	if err := row.Scan(&u.ID, &u.Email, &hash, &u.FullName, &avatar, &googleID, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = StringPtr(hash)
	u.AvatarURL = StringPtr(avatar)
	u.GoogleID = StringPtr(googleID)
	u.Role = auth.Role(role)
	return &u, nil
}

func (s *UserStore) findOne(ctx context.Context, op, where string, arg interface{}) (u *auth.User, err error) {
	ctx, span := observability.Tracer().Start(ctx, "UserStore."+op,
		trace.WithAttributes(attribute.String("db.table", "users")))
	defer span.End()
	defer func(start time.Time) { s.metrics.RecordStorageOperation("users."+op, start, ignoreNotFound(err)) }(time.Now())

	// Credential lookups read the primary so a login or a link retry sees
	// rows written moments earlier.
	row := s.conn.Primary().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg)
	u, err = scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// FindByID loads an account by primary key.
func (s *UserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findOne(ctx, "FindByID", "id", id)
}

// FindByEmail loads an account by normalized email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, "FindByEmail", "email", auth.NormalizeEmail(email))
}

// FindByGoogleID loads an account by its linked external identity key.
func (s *UserStore) FindByGoogleID(ctx context.Context, googleID string) (*auth.User, error) {
	return s.findOne(ctx, "FindByGoogleID", "google_id", googleID)
}

// Create inserts a new account. A taken email or google id is auth.ErrConflict.
func (s *UserStore) Create(ctx context.Context, nu auth.NewUser) (u *auth.User, err error) {
	ctx, span := observability.Tracer().Start(ctx, "UserStore.Create")
	defer span.End()
	defer func(start time.Time) { s.metrics.RecordStorageOperation("users.Create", start, err) }(time.Now())

	role := nu.Role
	if role == "" {
		role = auth.RoleLearner
	}
	now := s.now()
	u = &auth.User{
		ID:           uuid.NewString(),
		Email:        auth.NormalizeEmail(nu.Email),
		PasswordHash: nu.PasswordHash,
		FullName:     nu.FullName,
		AvatarURL:    nu.AvatarURL,
		GoogleID:     nu.GoogleID,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.conn.Primary().ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		u.ID, u.Email, NullString(u.PasswordHash), u.FullName,
		NullString(u.AvatarURL), NullString(u.GoogleID), string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return nil, auth.ErrConflict
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Update applies the non-nil fields of upd and returns the updated row.
func (s *UserStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (u *auth.User, err error) {
	ctx, span := observability.Tracer().Start(ctx, "UserStore.Update")
	defer span.End()
	defer func(start time.Time) { s.metrics.RecordStorageOperation("users.Update", start, ignoreNotFound(err)) }(time.Now())

	row := s.conn.Primary().QueryRowContext(ctx, `
		UPDATE users
		SET google_id = COALESCE($1, google_id),
			avatar_url = COALESCE($2, avatar_url),
			updated_at = $3
		WHERE id = $4
		RETURNING `+userColumns,
		NullString(upd.GoogleID), NullString(upd.AvatarURL), s.now(), id,
	)
	u, err = scanUser(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, auth.ErrUserNotFound
	case IsUniqueViolation(err):
		return nil, auth.ErrConflict
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// SetRole changes an account's role.
func (s *UserStore) SetRole(ctx context.Context, id string, role auth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", auth.ErrInvalidInput, role)
	}
	res, err := s.conn.Primary().ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`, string(role), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if err := RowsAffectedOrNotFound(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.ErrUserNotFound
		}
		return err
	}
	return nil
}

// CountByRole returns the number of accounts per role.
func (s *UserStore) CountByRole(ctx context.Context) (map[auth.Role]int64, error) {
	rows, err := s.conn.Replica().QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	counts := map[auth.Role]int64{}
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		counts[auth.Role(role)] = n
	}
	return counts, rows.Err()
}

func ignoreNotFound(err error) error {
	if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
