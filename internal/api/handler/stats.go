package handler

import (
	"fmt"
	"net/http"

	"github.com/albapepper/mercato-data/internal/api/respond"
	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/report"
	"github.com/albapepper/mercato-data/internal/runlog"
)

// Response limits for the stats endpoints.
const (
	StatsTop        = 10
	DefaultRunLimit = 20
)

// RunsResponse wraps the run log.
type RunsResponse struct {
	Runs  []runlog.Entry `json:"runs"`
	Count int            `json:"count"`
}

// GetStats returns collection statistics.
// @Summary Collection statistics
// @Description Returns totals, value range, counts per position and team, and the top players by market value.
// @Tags stats
// @Produce json
// @Success 200 {object} report.Stats
// @Router /api/v1/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "stats", cache.TTLStats, func() (any, bool) {
		st, err := report.Compute(r.Context(), h.players, StatsTop)
		if err != nil {
			respond.QueryFailed(w, "Failed to compute stats", err)
			return nil, false
		}
		return st, true
	})
}

// GetRuns returns the most recent scrape run outcomes, newest first.
// @Summary Scrape run log
// @Description Returns recent scrape runs with success flag and summary.
// @Tags stats
// @Produce json
// @Param limit query int false "Maximum entries (default 20, max 50)"
// @Success 200 {object} RunsResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/runs [get]
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), DefaultRunLimit, runlog.DefaultLimit)
	if err != nil {
		respond.Fail(w, respond.CodeInvalidLimit, err.Error())
		return
	}

	h.serveCached(w, r, fmt.Sprintf("runs:%d", limit), cache.TTLRuns, func() (any, bool) {
		entries := []runlog.Entry{}
		if h.runs != nil {
			got, err := h.runs.Recent(r.Context(), limit)
			if err != nil {
				respond.QueryFailed(w, "Failed to load run log", err)
				return nil, false
			}
			if got != nil {
				entries = got
			}
		}
		return RunsResponse{Runs: entries, Count: len(entries)}, true
	})
}
