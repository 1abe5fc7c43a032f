package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"go.uber.org/zap"
)

// errBadRequest marks malformed requests that never reached a service.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps an error of any layer onto an HTTP status code.
func errorStatus(err error) int {
	var (
		rejected   *recognition.RejectedError
		transport  *recognition.TransportError
		validation *enrollment.ValidationError
	)

	switch {
	case errors.Is(err, database.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, workflow.ErrSubmissionInFlight),
		errors.Is(err, recognition.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, attendance.ErrInvalidFilter),
		errors.Is(err, recognition.ErrNoArtifact),
		errors.Is(err, enrollment.ErrInsufficientPhotos),
		errors.Is(err, enrollment.ErrCollectorFull),
		errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure writes err with its status. Request errors carry their own
// text, everything else the message shown to kiosk users.
func respondFailure(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)

	message := workflow.UserMessage(err)
	switch {
	case errors.Is(err, database.ErrNotInitialized):
		message = "database is not configured"
	case errors.Is(err, errBadRequest), errors.Is(err, attendance.ErrInvalidFilter):
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	respondError(w, status, message)
}

// queryInt64 parses an optional non-negative integer query parameter.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

// attendanceQuery reads the filter and page of an attendance listing.
func attendanceQuery(r *http.Request) (database.AttendanceFilter, database.Page, error) {
	q := r.URL.Query()
	filter := database.AttendanceFilter{
		Date:   q.Get("date"),
		Status: database.AttendanceStatus(q.Get("status")),
	}

	employeeID, err := queryInt64(r, "employee_id")
	if err != nil {
		return filter, database.Page{}, err
	}
	filter.EmployeeID = employeeID

	limit, err := queryInt64(r, "limit")
	if err != nil {
		return filter, database.Page{}, err
	}
	offset, err := queryInt64(r, "offset")
	if err != nil {
		return filter, database.Page{}, err
	}
	return filter, database.Page{Limit: int(limit), Offset: int(offset)}, nil
}
