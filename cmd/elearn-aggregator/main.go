package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/elearnhq/elearn/pkg/async"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/stats"
	"github.com/elearnhq/elearn/pkg/storage"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

var (
	driver   = flag.String("db-driver", getEnv("ELEARN_DB_DRIVER", storage.DriverPostgres), "Database driver (postgres or sqlite3)")
	dbURL    = flag.String("db-url", getEnv("ELEARN_DATABASE_URL", "postgres://localhost/elearn?sslmode=disable"), "Database connection URL")
	schedule = flag.String("schedule", "5 0 * * *", "Cron schedule for daily aggregation (default: 00:05 UTC)")
	runOnce  = flag.Bool("run-once", false, "Run aggregation once and exit")
	date     = flag.String("date", "", "Day to aggregate (YYYY-MM-DD). If empty, aggregates yesterday. Only used with --run-once")
	from     = flag.String("from", "", "First day of a backfill range (YYYY-MM-DD). Requires --run-once")
	to       = flag.String("to", "", "Last day of a backfill range (YYYY-MM-DD), defaults to yesterday")
	workers  = flag.Int("workers", 4, "Concurrent days during a backfill")
	logLevel = flag.String("log-level", getEnv("ELEARN_LOG_LEVEL", "info"), "Log level")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	cfg := storage.DefaultConfig()
	cfg.Driver = *driver
	cfg.DatabaseURL = *dbURL
	cfg.MaxConns = *workers + 1

	storeLogger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stderr)
	conn, err := sqlstore.Open(cfg, storeLogger)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	aggregator := stats.NewAggregator(conn)

	if *runOnce {
		days, err := daysToAggregate(time.Now().UTC())
		if err != nil {
			log.WithError(err).Fatal("Invalid date range")
		}
		if failed := aggregateDays(context.Background(), log, aggregator, days); failed > 0 {
			log.WithField("failed", failed).Fatal("Aggregation failed")
		}
		log.WithField("days", len(days)).Info("Aggregation completed successfully")
		return
	}

	c := cron.New(cron.WithLocation(time.UTC))
	_, err = c.AddFunc(*schedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		aggregateDays(context.Background(), log, aggregator, []time.Time{yesterday})
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule daily aggregation")
	}

	c.Start()
	log.WithField("schedule", *schedule).Info("elearn stats aggregator started")

	ctx, stop := observability.NotifyContext(context.Background())
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	<-c.Stop().Done()
	log.Info("Aggregator stopped")
}

// daysToAggregate resolves --date or --from/--to into UTC days.
func daysToAggregate(now time.Time) ([]time.Time, error) {
	yesterday := now.Truncate(24*time.Hour).AddDate(0, 0, -1)
	if *from == "" {
		if *date == "" {
			return []time.Time{yesterday}, nil
		}
		day, err := stats.ParseDay(*date)
		if err != nil {
			return nil, err
		}
		return []time.Time{day}, nil
	}

	start, err := stats.ParseDay(*from)
	if err != nil {
		return nil, err
	}
	end := yesterday
	if *to != "" {
		if end, err = stats.ParseDay(*to); err != nil {
			return nil, err
		}
	}
	return dayRange(start, end)
}

func dayRange(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s is before start %s", end.Format(stats.DayLayout), start.Format(stats.DayLayout))
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// aggregateDays aggregates every day and returns how many failed.
func aggregateDays(ctx context.Context, log *logrus.Logger, aggregator *stats.Aggregator, days []time.Time) int {
	errs := async.Batch(ctx, days, *workers, 5*time.Minute, func(ctx context.Context, day time.Time) error {
		out, err := aggregator.AggregateDaily(ctx, day)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"day":          out.Day,
			"learners":     out.Learners,
			"enrollments":  out.Enrollments,
			"transactions": out.Transactions,
		}).Info("Daily stats aggregated")
		return nil
	})
	for i, err := range errs {
		if err != nil {
			log.WithError(err).WithField("day", days[i].Format(stats.DayLayout)).Error("Daily aggregation failed")
		}
	}
	return async.Failed(errs)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
