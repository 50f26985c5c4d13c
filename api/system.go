package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobCounter reports background job counts by status.
type JobCounter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

type SystemHandler struct {
	db   Pinger
	jobs JobCounter
}

// NewSystemHandler builds the health and version handlers. Either dependency
// may be nil.
func NewSystemHandler(db Pinger, jobs JobCounter) *SystemHandler {
	return &SystemHandler{db: db, jobs: jobs}
}

type healthResponse struct {
	Status  string           `json:"status"`
	Service string           `json:"service"`
	Jobs    map[string]int64 `json:"jobs,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Service: "club"}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			logger.Error("health: database unreachable", slog.Any("err", err))
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	if h.jobs != nil {
		counts, err := h.jobs.Counts(ctx)
		if err != nil {
			logger.Warn("health: job counts", slog.Any("err", err))
		} else {
			resp.Jobs = counts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
