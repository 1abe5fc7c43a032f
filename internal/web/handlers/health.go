package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// HealthChecker reports the status of the recognition service.
type HealthChecker interface {
	Health(ctx context.Context) (*recognition.Health, error)
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status      string              `json:"status"`
	Database    string              `json:"database"`
	Recognition *recognition.Health `json:"recognition,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// HealthHandler reports whether the store and the recognition service are usable
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new health handler. checker may be nil.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Get always answers 200 so the process stays up while a dependency is down.
// Status is "degraded" when either dependency is unavailable.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "not configured"}
	if database.IsInitialized() {
		resp.Database = database.BackendName()
	} else {
		resp.Status = "degraded"
	}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		health, err := h.checker.Health(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
		} else {
			resp.Recognition = health
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
