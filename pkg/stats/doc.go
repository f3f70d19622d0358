// Package stats computes the daily platform summary shown on the admin
// dashboard.
//
// The aggregator runs once per day (see cmd/elearn-aggregator) and upserts a
// row into daily_stats keyed by the UTC date, so re-running a day replaces its
// numbers instead of adding to them:
//
//	agg := stats.NewAggregator(conn, stats.WithMetrics(metrics))
//	day, err := agg.AggregateDaily(ctx, time.Now().UTC().AddDate(0, 0, -1))
//
// User counts are cumulative as of the end of the day. Enrollment and
// transaction counts cover only that day; failed transactions are excluded.
package stats
