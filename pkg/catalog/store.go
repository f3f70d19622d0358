package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// ListParams narrows a List call. Zero values mean no filter.
type ListParams struct {
	Limit    int
	Offset   int
	OwnerID  string
	ParentID string
}

// store is the plumbing shared by every resource service.
type store struct {
	conn    *sqlstore.ConnectionManager
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

func newStore(conn *sqlstore.ConnectionManager, metrics *observability.Metrics) *store {
	return &store{
		conn:    conn,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// track starts a span and returns the func that records the outcome.
func (s *store) track(ctx context.Context, table, op string) (context.Context, func(*error)) {
	ctx, span := observability.Tracer().Start(ctx, "catalog."+table+"."+op,
		trace.WithAttributes(attribute.String("db.table", table)))
	start := time.Now()
	return ctx, func(errp *error) {
		err := *errp
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalid) && !errors.Is(err, ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
			s.metrics.RecordStorageOperation(table+"."+op, start, err)
		} else {
			s.metrics.RecordStorageOperation(table+"."+op, start, nil)
		}
		span.End()
	}
}

func (s *store) delete(ctx context.Context, table, id string) (err error) {
	ctx, done := s.track(ctx, table, "Delete")
	defer done(&err)

	res, err := s.conn.Primary().ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return classify(err, "delete from "+table)
	}
	return classify(sqlstore.RowsAffectedOrNotFound(res), "delete from "+table)
}

// filter accumulates WHERE conditions with ascending placeholders.
type filter struct {
	conds []string
	args  []interface{}
}

// eq adds "column = $n" when value is non-empty.
func (f *filter) eq(column, value string) {
	if value == "" {
		return
	}
	f.args = append(f.args, value)
	f.conds = append(f.conds, fmt.Sprintf("%s = $%d", column, len(f.args)))
}

// sql renders the WHERE clause, ORDER BY and the page window.
func (f *filter) sql(orderBy string, p ListParams) (string, []interface{}) {
	var b strings.Builder
	if len(f.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(f.conds, " AND "))
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	args := append(f.args, limit, p.Offset)
	fmt.Fprintf(&b, " ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, len(args)-1, len(args))
	return b.String(), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// list runs a SELECT and scans every row with scan.
func list[T any](ctx context.Context, s *store, table, columns, orderBy string, f *filter, p ListParams, scan func(scanner) (*T, error)) (out []*T, err error) {
	ctx, done := s.track(ctx, table, "List")
	defer done(&err)

	where, args := f.sql(orderBy, p)
	rows, err := s.conn.Replica().QueryContext(ctx, `SELECT `+columns+` FROM `+table+where, args...)
	if err != nil {
		return nil, classify(err, "list "+table)
	}
	defer rows.Close()

	out = []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, classify(err, "scan "+table)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list "+table)
	}
	return out, nil
}

// one runs a single-row statement and scans it.
func one[T any](ctx context.Context, s *store, table, op, query string, args []interface{}, scan func(scanner) (*T, error)) (out *T, err error) {
	ctx, done := s.track(ctx, table, op)
	defer done(&err)

	db := s.conn.Primary()
	if op == "Get" {
		db = s.conn.Replica()
	}
	out, err = scan(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, classify(err, strings.ToLower(op)+" "+table)
	}
	return out, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
