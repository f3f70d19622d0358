package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// DayLayout is the key format of daily_stats rows.
const DayLayout = "2006-01-02"

// ErrNoStats is returned by Latest before the first aggregation has run.
var ErrNoStats = errors.New("no stats aggregated yet")

// DailyStats is one day's summary.
type DailyStats struct {
	Day               string    `json:"day"`
	Learners          int64     `json:"learners"`
	Instructors       int64     `json:"instructors"`
	Admins            int64     `json:"admins"`
	Enrollments       int64     `json:"enrollments"`
	Transactions      int64     `json:"transactions"`
	TransactionVolume int64     `json:"transactionVolume"`
	ComputedAt        time.Time `json:"computedAt"`
}

// Aggregator computes and reads daily_stats.
type Aggregator struct {
	conn    *sqlstore.ConnectionManager
	metrics *observability.Metrics
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMetrics records storage timings into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithClock sets the clock stamped into computed_at.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator
func NewAggregator(conn *sqlstore.ConnectionManager, opts ...Option) *Aggregator {
	a := &Aggregator{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateDaily computes the summary for the UTC day containing day and
// stores it, replacing any earlier run for the same day.
func (a *Aggregator) AggregateDaily(ctx context.Context, day time.Time) (out *DailyStats, err error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	ctx, span := observability.Tracer().Start(ctx, "stats.AggregateDaily",
		trace.WithAttributes(attribute.String("stats.day", start.Format(DayLayout))))
	defer span.End()
	began := time.Now()
	defer func() { a.metrics.RecordStorageOperation("daily_stats.Aggregate", began, err) }()

	s := &DailyStats{Day: start.Format(DayLayout), ComputedAt: a.now()}
	err = sqlstore.WithTx(ctx, a.conn.Primary(), func(tx *sql.Tx) error {
		roles, err := countByRole(ctx, tx, end)
		if err != nil {
			return err
		}
		s.Learners = roles[auth.RoleLearner]
		s.Instructors = roles[auth.RoleInstructor]
		s.Admins = roles[auth.RoleAdmin]

		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM learner_courses
			WHERE created_at >= $1 AND created_at < $2`,
			start, end).Scan(&s.Enrollments); err != nil {
			return fmt.Errorf("failed to count enrollments: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM instructor_course_transactions
			WHERE created_at >= $1 AND created_at < $2 AND status <> $3`,
			start, end, "FAILED").Scan(&s.Transactions, &s.TransactionVolume); err != nil {
			return fmt.Errorf("failed to sum transactions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO daily_stats (day, learners, instructors, admins, enrollments, transactions, transaction_volume, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (day) DO UPDATE SET
				learners = EXCLUDED.learners,
				instructors = EXCLUDED.instructors,
				admins = EXCLUDED.admins,
				enrollments = EXCLUDED.enrollments,
				transactions = EXCLUDED.transactions,
				transaction_volume = EXCLUDED.transaction_volume,
				computed_at = EXCLUDED.computed_at`,
			s.Day, s.Learners, s.Instructors, s.Admins, s.Enrollments, s.Transactions, s.TransactionVolume, s.ComputedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert daily stats: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s, nil
}

func countByRole(ctx context.Context, tx *sql.Tx, before time.Time) (map[auth.Role]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT role, COUNT(*) FROM users
		WHERE created_at < $1
		GROUP BY role`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	counts := map[auth.Role]int64{}
	for rows.Next() {
		var (
			role  auth.Role
			count int64
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		counts[role] = count
	}
	return counts, rows.Err()
}

const statsColumns = `day, learners, instructors, admins, enrollments, transactions, transaction_volume, computed_at`

func scanStats(row interface{ Scan(...interface{}) error }) (*DailyStats, error) {
	var s DailyStats
	err := row.Scan(&s.Day, &s.Learners, &s.Instructors, &s.Admins, &s.Enrollments,
		&s.Transactions, &s.TransactionVolume, &s.ComputedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Latest returns up to limit days, most recent first. It returns ErrNoStats
// when the table is empty.
func (a *Aggregator) Latest(ctx context.Context, limit int) (out []*DailyStats, err error) {
	began := time.Now()
	defer func() {
		recorded := err
		if errors.Is(err, ErrNoStats) {
			recorded = nil
		}
		a.metrics.RecordStorageOperation("daily_stats.Latest", began, recorded)
	}()

	if limit <= 0 {
		limit = 30
	}
	rows, err := a.conn.Replica().QueryContext(ctx,
		`SELECT `+statsColumns+` FROM daily_stats ORDER BY day DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily stats: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoStats
	}
	return out, nil
}

// ParseDay parses a YYYY-MM-DD day key as midnight UTC.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// Day loads one day's summary. A day never aggregated is ErrNoStats.
func (a *Aggregator) Day(ctx context.Context, day string) (*DailyStats, error) {
	if _, err := ParseDay(day); err != nil {
		return nil, err
	}
	s, err := scanStats(a.conn.Replica().QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM daily_stats WHERE day = $1`, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoStats
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}
	return s, nil
}
