package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/stats"
)

// StatsReader reads aggregated daily stats.
type StatsReader interface {
	Latest(ctx context.Context, limit int) ([]*stats.DailyStats, error)
	Day(ctx context.Context, day string) (*stats.DailyStats, error)
}

// StatsHandlers serves the admin dashboard summary.
type StatsHandlers struct {
	reader StatsReader
	logger *observability.Logger
}

// NewStatsHandlers creates stats handlers
func NewStatsHandlers(reader StatsReader, logger *observability.Logger) *StatsHandlers {
	return &StatsHandlers{reader: reader, logger: logger}
}

// latest handles GET /admin/stats?days=N
func (h *StatsHandlers) latest(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.ParseQueryInt(r, "days", 7)
	if err != nil || days < 1 || days > 366 {
		httputil.WriteBadRequest(w, "days must be between 1 and 366")
		return
	}

	out, err := h.reader.Latest(r.Context(), days)
	if errors.Is(err, stats.ErrNoStats) {
		httputil.WriteSuccess(w, "No stats aggregated yet", []*stats.DailyStats{})
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to read stats")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Stats retrieved", out)
}

// day handles GET /admin/stats/{day}
func (h *StatsHandlers) day(w http.ResponseWriter, r *http.Request) {
	day := mux.Vars(r)["day"]
	if _, err := stats.ParseDay(day); err != nil {
		httputil.WriteBadRequest(w, "day must be formatted YYYY-MM-DD")
		return
	}

	out, err := h.reader.Day(r.Context(), day)
	if errors.Is(err, stats.ErrNoStats) {
		httputil.WriteNotFoundError(w, "No stats for "+day)
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to read stats")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Stats retrieved", out)
}
