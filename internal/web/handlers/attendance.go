package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AttendanceHandler serves attendance listings and exports
type AttendanceHandler struct {
	logger *zap.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{logger: logger.Named("attendance")}
}

// List returns one page of attendance rows.
// Query: date (YYYY-MM-DD), employee_id, status, limit, offset.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page, err := attendanceQuery(r)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	reader, err := database.GetAttendanceReader(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	result, err := reader.List(r.Context(), filter, page)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	if result.Rows == nil {
		result.Rows = []database.AttendanceRow{}
	}
	respondJSON(w, http.StatusOK, result)
}

// Export writes the filtered attendance rows as an XLSX workbook.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, _, err := attendanceQuery(r)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	reader, err := database.GetAttendanceReader(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	rows, total, err := attendance.CollectRows(r.Context(), reader, filter, constants.ExportMaxRows)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := attendance.WriteXLSX(&buf, attendance.ExportTitle(filter), rows); err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	filename := attendance.ExportFilename(filter)
	if total > len(rows) {
		h.logger.Warn("attendance export truncated",
			zap.String("file", filename),
			zap.Int("rows", len(rows)),
			zap.Int("total", total))
	} else {
		h.logger.Info("attendance exported", zap.String("file", filename), zap.Int("rows", len(rows)))
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Exported-Count", strconv.Itoa(len(rows)))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
