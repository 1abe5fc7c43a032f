package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"go.uber.org/zap"
)

// StoreStats reads the dashboard summary from the registered backend.
type StoreStats struct{}

func (StoreStats) Stats(ctx context.Context) (*database.Stats, error) {
	reader, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return nil, err
	}
	return reader.Stats(ctx)
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	cache  *attendance.StatsCache
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(cache *attendance.StatsCache, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{cache: cache, logger: logger.Named("stats")}
}

// Get returns total active employees, today's stats, recent check-ins and the weekly trend
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	// the cached value is shared, fill empty lists on a copy
	resp := *stats
	if resp.RecentCheckIns == nil {
		resp.RecentCheckIns = []database.RecentCheckIn{}
	}
	if resp.WeeklyTrend == nil {
		resp.WeeklyTrend = []database.TrendPoint{}
	}
	respondJSON(w, http.StatusOK, resp)
}
