package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/mlowery/crewdesk/internal/database"
	pkghttp "github.com/mlowery/crewdesk/pkg/http"
)

// DatabaseChecker reports database liveness and pool usage
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() database.PoolStats
}

// HealthHandler serves the readiness endpoint
type HealthHandler struct {
	db DatabaseChecker
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db DatabaseChecker) *HealthHandler {
	return &HealthHandler{
		db: db,
	}
}

// HealthResponse is the readiness report returned by /health
type HealthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Pool     database.PoolStats `json:"pool"`
}

// Check pings the database and reports pool usage
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "down",
			Pool:     h.db.Stats(),
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: "up",
		Pool:     h.db.Stats(),
	})
}
