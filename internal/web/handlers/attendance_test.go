package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func seedRows(att interface{ AddRow(database.AttendanceRow) }) {
	rows := []database.AttendanceRow{
		{AttendanceRecord: database.AttendanceRecord{ID: 1, EmployeeID: 7, Date: "2026-10-18", Status: database.StatusPresent}, EmployeeCode: "EMP007", FullName: "Dewi Lestari"},
		{AttendanceRecord: database.AttendanceRecord{ID: 2, EmployeeID: 7, Date: "2026-10-19", Status: database.StatusLate}, EmployeeCode: "EMP007", FullName: "Dewi Lestari"},
		{AttendanceRecord: database.AttendanceRecord{ID: 3, EmployeeID: 8, Date: "2026-10-19", Status: database.StatusPresent}, EmployeeCode: "EMP008", FullName: "Budi Santoso"},
	}
	for _, r := range rows {
		att.AddRow(r)
	}
}

func TestAttendanceHandler_List(t *testing.T) {
	att, _ := withMockBackend(t)
	seedRows(att)

	handler := NewAttendanceHandler(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=2026-10-19&status=late&limit=10&offset=0", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var page database.AttendancePage
	parseJSONResponse(t, recorder, &page)
	if page.Total != 1 || len(page.Rows) != 1 {
		t.Fatalf("expected 1 row, got total=%d rows=%d", page.Total, len(page.Rows))
	}
	if page.Rows[0].EmployeeCode != "EMP007" {
		t.Errorf("expected EMP007, got %s", page.Rows[0].EmployeeCode)
	}

	want := database.AttendanceFilter{Date: "2026-10-19", Status: database.StatusLate}
	if att.LastFilter != want {
		t.Errorf("filter = %+v, want %+v", att.LastFilter, want)
	}
	if att.LastPage.Limit != 10 {
		t.Errorf("limit = %d, want 10", att.LastPage.Limit)
	}
}

func TestAttendanceHandler_List_EmptyIsArray(t *testing.T) {
	withMockBackend(t)

	handler := NewAttendanceHandler(zap.NewNop())
	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if !strings.Contains(recorder.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", recorder.Body.String())
	}
}

func TestAttendanceHandler_List_BadQuery(t *testing.T) {
	withMockBackend(t)
	handler := NewAttendanceHandler(zap.NewNop())

	for _, query := range []string{"employee_id=abc", "limit=-1", "offset=x"} {
		t.Run(query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?"+query, nil))
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestAttendanceHandler_List_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid filter", fmt.Errorf("%w: unknown status %q", attendance.ErrInvalidFilter, "sick"), http.StatusBadRequest, `invalid attendance filter: unknown status "sick"`},
		{"store failure", &attendance.DataFetchError{Op: "attendance", Err: errors.New("connection reset")}, http.StatusInternalServerError, "Failed to load attendance data. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, _ := withMockBackend(t)
			att.ListError = tt.err

			recorder := httptest.NewRecorder()
			NewAttendanceHandler(zap.NewNop()).List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

			assertStatusCode(t, recorder, tt.status)
			assertJSONError(t, recorder, tt.msg)
		})
	}
}

func TestAttendanceHandler_List_NoBackend(t *testing.T) {
	withoutBackend(t)

	recorder := httptest.NewRecorder()
	NewAttendanceHandler(zap.NewNop()).List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "database is not configured")
}

func TestAttendanceHandler_Export(t *testing.T) {
	att, _ := withMockBackend(t)
	seedRows(att)

	recorder := httptest.NewRecorder()
	NewAttendanceHandler(zap.NewNop()).Export(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?date=2026-10-19", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, xlsxContentType)

	disposition := recorder.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, `filename="attendance-2026-10-19-`) || !strings.HasSuffix(disposition, `.xlsx"`) {
		t.Errorf("unexpected Content-Disposition %q", disposition)
	}

	f, err := excelize.OpenReader(recorder.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	// title + header + 2 rows of the date
	if len(rows) != 4 {
		t.Errorf("expected 4 sheet rows, got %d", len(rows))
	}
	if att.LastPage.Limit != 1000 {
		t.Errorf("export limit = %d, want 1000", att.LastPage.Limit)
	}
	if got := recorder.Header().Get("X-Total-Count"); got != "2" {
		t.Errorf("X-Total-Count = %q, want 2", got)
	}
}

func TestAttendanceHandler_Export_AllPages(t *testing.T) {
	att, _ := withMockBackend(t)
	for i := range 2300 {
		att.AddRow(database.AttendanceRow{
			AttendanceRecord: database.AttendanceRecord{ID: int64(i + 1), EmployeeID: 7, Date: "2026-10-19", Status: database.StatusPresent},
			EmployeeCode:     "EMP007",
			FullName:         "Dewi Lestari",
		})
	}

	recorder := httptest.NewRecorder()
	NewAttendanceHandler(zap.NewNop()).Export(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if got := recorder.Header().Get("X-Exported-Count"); got != "2300" {
		t.Errorf("X-Exported-Count = %q, want 2300", got)
	}
	if att.LastPage.Offset != 2000 {
		t.Errorf("last page offset = %d, want 2000", att.LastPage.Offset)
	}

	f, err := excelize.OpenReader(recorder.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2302 {
		t.Errorf("expected 2302 sheet rows, got %d", len(rows))
	}
}
