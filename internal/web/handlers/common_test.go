package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no backend", database.ErrNotInitialized, http.StatusServiceUnavailable},
		{"in flight", workflow.ErrSubmissionInFlight, http.StatusConflict},
		{"duplicate", fmt.Errorf("enroll: %w", recognition.ErrDuplicateIdentity), http.StatusConflict},
		{"bad request", badRequest("limit must be a number"), http.StatusBadRequest},
		{"invalid filter", attendance.ErrInvalidFilter, http.StatusBadRequest},
		{"no photo", recognition.ErrNoArtifact, http.StatusBadRequest},
		{"too few photos", enrollment.ErrInsufficientPhotos, http.StatusBadRequest},
		{"validation", &enrollment.ValidationError{}, http.StatusBadRequest},
		{"rejected", &recognition.RejectedError{Reason: "no match"}, http.StatusUnprocessableEntity},
		{"transport", &recognition.TransportError{Err: errors.New("refused")}, http.StatusBadGateway},
		{"data fetch", &attendance.DataFetchError{Op: "stats", Err: errors.New("down")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("EMP\n001\r"); got != "EMP001" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}
