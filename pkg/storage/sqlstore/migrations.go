package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elearnhq/elearn/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema history in version order. The DDL sticks to
// types and clauses PostgreSQL and SQLite both accept; ids are UUID strings
// generated by the application and timestamps are written by the application.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id VARCHAR(36) PRIMARY KEY,
					email VARCHAR(320) NOT NULL,
					password_hash TEXT,
					full_name VARCHAR(255) NOT NULL DEFAULT '',
					avatar_url TEXT,
					google_id VARCHAR(255),
					role VARCHAR(16) NOT NULL DEFAULT 'LEARNER'
						CHECK (role IN ('LEARNER', 'INSTRUCTOR', 'ADMIN')),
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					CONSTRAINT users_email_key UNIQUE (email),
					CONSTRAINT users_google_id_key UNIQUE (google_id)
				);
				CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
			`,
		},
		{
			Version:     2,
			Description: "Create chapters and levels tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS levels (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(100) NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					rank INTEGER NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS chapters (
					id VARCHAR(36) PRIMARY KEY,
					course_id VARCHAR(36) NOT NULL,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					position INTEGER NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					UNIQUE (course_id, position)
				);
				CREATE INDEX IF NOT EXISTS idx_chapters_course_id ON chapters(course_id);
			`,
		},
		{
			Version:     3,
			Description: "Create notes and feedback tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS notes (
					id VARCHAR(36) PRIMARY KEY,
					user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					chapter_id VARCHAR(36) NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);

				CREATE TABLE IF NOT EXISTS feedback (
					id VARCHAR(36) PRIMARY KEY,
					user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					course_id VARCHAR(36) NOT NULL,
					rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
					comment TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_feedback_course_id ON feedback(course_id);
			`,
		},
		{
			Version:     4,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permissions (
					id VARCHAR(36) PRIMARY KEY,
					role VARCHAR(16) NOT NULL,
					resource VARCHAR(64) NOT NULL,
					action VARCHAR(32) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					UNIQUE (role, resource, action)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create wallets and instructor transactions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS wallets (
					id VARCHAR(36) PRIMARY KEY,
					user_id VARCHAR(36) NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
					currency VARCHAR(3) NOT NULL DEFAULT 'VND',
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS instructor_course_transactions (
					id VARCHAR(36) PRIMARY KEY,
					instructor_id VARCHAR(36) NOT NULL REFERENCES users(id),
					course_id VARCHAR(36) NOT NULL,
					amount BIGINT NOT NULL,
					currency VARCHAR(3) NOT NULL DEFAULT 'VND',
					kind VARCHAR(16) NOT NULL CHECK (kind IN ('SALE', 'PAYOUT', 'REFUND')),
					status VARCHAR(16) NOT NULL CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED')),
					note TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_ict_instructor_id ON instructor_course_transactions(instructor_id);
			`,
		},
		{
			Version:     6,
			Description: "Create citizen id confirmations and learner courses tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS citizen_id_confirmations (
					id VARCHAR(36) PRIMARY KEY,
					user_id VARCHAR(36) NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
					citizen_id VARCHAR(32) NOT NULL UNIQUE,
					full_name VARCHAR(255) NOT NULL,
					front_image_url TEXT NOT NULL DEFAULT '',
					back_image_url TEXT NOT NULL DEFAULT '',
					status VARCHAR(16) NOT NULL DEFAULT 'PENDING'
						CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
					reviewer_note TEXT NOT NULL DEFAULT '',
					reviewed_by VARCHAR(36),
					reviewed_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS learner_courses (
					id VARCHAR(36) PRIMARY KEY,
					learner_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					course_id VARCHAR(36) NOT NULL,
					progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
					status VARCHAR(16) NOT NULL DEFAULT 'ENROLLED'
						CHECK (status IN ('ENROLLED', 'COMPLETED', 'DROPPED')),
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					UNIQUE (learner_id, course_id)
				);
			`,
		},
		{
			Version:     7,
			Description: "Create daily stats table",
			SQL: `
				CREATE TABLE IF NOT EXISTS daily_stats (
					day VARCHAR(10) PRIMARY KEY,
					learners BIGINT NOT NULL DEFAULT 0,
					instructors BIGINT NOT NULL DEFAULT 0,
					admins BIGINT NOT NULL DEFAULT 0,
					enrollments BIGINT NOT NULL DEFAULT 0,
					transactions BIGINT NOT NULL DEFAULT 0,
					transaction_volume BIGINT NOT NULL DEFAULT 0,
					computed_at TIMESTAMP NOT NULL
				);
			`,
		},
	}
}

// Migrate applies every pending migration, each in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range Migrations() {
		if applied[m.Version] {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		logger.WithField("version", m.Version).Infof("applied migration: %s", m.Description)
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)",
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
