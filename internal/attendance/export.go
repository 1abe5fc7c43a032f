package attendance

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Attendance"

var exportHeaders = []string{
	"Date", "Employee Code", "Full Name", "Department", "Position",
	"Check In", "Check Out", "Status", "Check In Confidence", "Check Out Confidence",
}

type pageLister interface {
	List(ctx context.Context, filter database.AttendanceFilter, page database.Page) (*database.AttendancePage, error)
}

// CollectRows reads every row matching filter page by page, keeping at most
// maxRows. total is the number of matching rows, larger than len(rows) when
// rows were left out.
func CollectRows(ctx context.Context, lister pageLister, filter database.AttendanceFilter, maxRows int) (rows []database.AttendanceRow, total int, err error) {
	for {
		page, err := lister.List(ctx, filter, database.Page{Limit: constants.ExportPageSize, Offset: len(rows)})
		if err != nil {
			return nil, 0, err
		}
		total = page.Total
		rows = append(rows, page.Rows...)
		if len(page.Rows) == 0 || len(rows) >= total || len(rows) >= maxRows {
			break
		}
	}
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows, total, nil
}

// ExportFilename names an export after its date filter plus a short random id.
func ExportFilename(filter database.AttendanceFilter) string {
	scope := "all"
	if filter.Date != "" {
		scope = filter.Date
	}
	return fmt.Sprintf("attendance-%s-%s.xlsx", scope, strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// ExportTitle is the sheet title of an export.
func ExportTitle(filter database.AttendanceFilter) string {
	if filter.Date != "" {
		return "Attendance report " + filter.Date
	}
	return "Attendance report"
}

// WriteXLSX writes attendance rows as a spreadsheet with a styled header row.
func WriteXLSX(w io.Writer, title string, rows []database.AttendanceRow) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	lastCol := colName(len(exportHeaders) - 1)
	f.SetCellValue(exportSheet, "A1", title)
	f.MergeCell(exportSheet, "A1", lastCol+"1")
	f.SetCellStyle(exportSheet, "A1", "A1", headerStyle)

	for i, h := range exportHeaders {
		f.SetCellValue(exportSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(exportSheet, "A2", lastCol+"2", headerStyle)
	f.SetColWidth(exportSheet, "A", "A", 12)
	f.SetColWidth(exportSheet, "B", "B", 14)
	f.SetColWidth(exportSheet, "C", "C", 24)
	f.SetColWidth(exportSheet, "D", lastCol, 16)

	for i, r := range rows {
		values := []any{
			r.Date,
			r.EmployeeCode,
			r.FullName,
			deref(r.Department),
			deref(r.Position),
			clock(r.CheckInTime),
			clock(r.CheckOutTime),
			string(r.Status),
			confidence(r.CheckInConfidence),
			confidence(r.CheckOutConfidence),
		}
		for col, v := range values {
			f.SetCellValue(exportSheet, cell(colName(col), i+3), v)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04:05")
}

func confidence(c *float64) any {
	if c == nil {
		return ""
	}
	return *c
}
