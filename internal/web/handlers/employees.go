package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"go.uber.org/zap"
)

// EmployeesHandler serves the employee directory
type EmployeesHandler struct {
	logger *zap.Logger
}

// NewEmployeesHandler creates a new employees handler
func NewEmployeesHandler(logger *zap.Logger) *EmployeesHandler {
	return &EmployeesHandler{logger: logger.Named("employees")}
}

// List returns all employees with their photo count. The optional q parameter
// filters by name, code or department ignoring case and diacritics.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetEmployeeReader(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	employees, err := reader.ListEmployees(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	employees = attendance.FilterEmployees(employees, r.URL.Query().Get("q"))
	if employees == nil {
		employees = []database.EmployeeSummary{}
	}
	respondJSON(w, http.StatusOK, employees)
}

// Get returns an employee with photos and recent attendance
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondFailure(w, h.logger, badRequest("invalid employee id"))
		return
	}

	reader, err := database.GetEmployeeReader(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	detail, err := reader.GetEmployeeDetail(r.Context(), id)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	if detail == nil {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}

	if detail.Photos == nil {
		detail.Photos = []database.FaceEncoding{}
	}
	if detail.Attendance == nil {
		detail.Attendance = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, detail)
}
